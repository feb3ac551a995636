package orchestrator

import (
	"context"
	"fmt"
	"net/url"

	"github.com/glorpus-work/gotx/pkg/download"
)

// RepoIndex names the metadata index of one repository.
type RepoIndex struct {
	Name string
	URL  *url.URL
}

func (p *Pipeline) indexItem(r RepoIndex) download.Item {
	return download.Item{
		ID:       r.Name,
		URL:      r.URL,
		Filename: r.Name + ".json",
		Auth:     p.Credentials.For(r.Name),
	}
}

// SyncAll downloads index files for the provided repositories into indexDir
// and returns their local paths keyed by repository name. The caller decides
// which repositories to pass (e.g., enabled-only).
func (p *Pipeline) SyncAll(ctx context.Context, repos []RepoIndex, indexDir string, concurrency int) (map[string]string, error) {
	if p.DL == nil {
		return nil, fmt.Errorf("download manager is not configured")
	}
	items := make([]download.Item, 0, len(repos))
	for _, r := range repos {
		if r.URL == nil {
			continue
		}
		items = append(items, p.indexItem(r))
	}
	if len(items) == 0 {
		return map[string]string{}, nil
	}
	emit(p.Hooks, Event{Phase: PhaseSyncing, Msg: fmt.Sprintf("%d repositories", len(items))})
	return p.DL.FetchAll(ctx, items, download.Options{Dir: indexDir, Concurrency: concurrency})
}
