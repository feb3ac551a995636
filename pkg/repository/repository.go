package repository

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/gotx/pkg/errors"
)

// Repository is a configured package source.
type Repository struct {
	Name     string
	BaseURL  *url.URL
	Priority uint
	Enabled  bool
	// GPGKeys are the key files that may be imported for packages of this
	// repository.
	GPGKeys []string
}

// New validates name and baseURL and returns an enabled repository.
func New(name, baseURL string) (*Repository, error) {
	if name == "" {
		return nil, errors.ErrEmptyRepositoryName
	}
	if baseURL == "" {
		return nil, errors.ErrRepositoryURLEmptyWithName(name)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "repository %s", name)
	}
	if u.Scheme == "" {
		u.Scheme = "file"
	}
	return &Repository{Name: name, BaseURL: u, Enabled: true}, nil
}

// IndexURL is the location of the repository index.
func (r *Repository) IndexURL() *url.URL {
	return r.BaseURL.ResolveReference(&url.URL{Path: IndexPath})
}

// CachePath is where the index of r is cached below dir.
func (r *Repository) CachePath(dir string) string {
	return filepath.Join(dir, r.Name+".json")
}

// IsCacheStale reports whether the cached index is missing or older than ttl.
// A ttl <= 0 never expires.
func (r *Repository) IsCacheStale(dir string, ttl time.Duration) bool {
	stat, err := os.Stat(r.CachePath(dir))
	if err != nil {
		return true
	}
	if ttl <= 0 {
		return false
	}
	return stat.ModTime().Add(ttl).Before(time.Now())
}
