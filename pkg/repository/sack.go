package repository

import (
	"slices"
	"sort"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/platform"
)

// Sack is the package universe: the installed packages plus everything the
// enabled repositories offer for the base architecture. It is built once per
// command and not safe for concurrent mutation.
type Sack struct {
	arch      string
	installed []*model.Package
	available []*model.Package
	repos     map[string]*Repository
	byRef     map[model.PkgRef]*model.Package
}

// NewSack returns a sack over the installed packages for base architecture
// arch (platform.BaseArch() when empty).
func NewSack(arch string, installed []*model.Package) *Sack {
	if arch == "" {
		arch = platform.BaseArch()
	}
	s := &Sack{
		arch:  arch,
		repos: make(map[string]*Repository),
		byRef: make(map[model.PkgRef]*model.Package),
	}
	for _, p := range installed {
		cp := *p
		cp.Repo = model.InstalledRepo
		s.installed = append(s.installed, &cp)
	}
	return s
}

// Arch returns the base architecture of the sack.
func (s *Sack) Arch() string { return s.arch }

// AddRepository adds the packages of idx that fit the base architecture.
// A NEVRA already offered by another repository is kept from the repository
// with the lower priority value.
func (s *Sack) AddRepository(repo *Repository, idx *Index) error {
	if _, ok := s.repos[repo.Name]; ok {
		return errors.ErrRepositoryExistsWithName(repo.Name)
	}
	s.repos[repo.Name] = repo

	skipped := 0
	for _, p := range idx.Packages {
		if !platform.IsCompatible(s.arch, p.Arch) {
			skipped++
			continue
		}
		loc, err := resolveLocation(repo.BaseURL, p.Location)
		if err != nil {
			return errors.Wrapf(err, "repository %s", repo.Name)
		}
		cp := *p
		cp.Repo = repo.Name
		cp.Location = loc
		cp.LocalPath = ""

		if prev, ok := s.byRef[cp.PkgRef]; ok {
			if s.repos[prev.Repo].Priority <= repo.Priority {
				continue
			}
			s.available = slices.DeleteFunc(s.available, func(q *model.Package) bool { return q == prev })
		}
		s.byRef[cp.PkgRef] = &cp
		s.available = append(s.available, &cp)
	}
	logger.Debug("Loaded repository", logger.Fields{
		"repo":     repo.Name,
		"packages": len(idx.Packages) - skipped,
		"skipped":  skipped,
	})
	return nil
}

// LoadCached adds every enabled repository from its cached index in dir.
// Repositories without a cache are skipped with a warning.
func (s *Sack) LoadCached(repos []*Repository, dir string) error {
	for _, r := range repos {
		if !r.Enabled {
			continue
		}
		idx, err := ParseIndexFromFile(r.CachePath(dir))
		if err != nil {
			if errors.Is(err, errors.ErrIndexInvalid) {
				return errors.Wrapf(err, "repository %s", r.Name)
			}
			logger.Warn("Repository metadata is not cached, run makecache", logger.Fields{"repo": r.Name})
			continue
		}
		if err := s.AddRepository(r, idx); err != nil {
			return err
		}
	}
	return nil
}

// Repositories returns the loaded repositories by name.
func (s *Sack) Repositories() map[string]*Repository { return s.repos }

// GPGKeys maps repository names to their key files.
func (s *Sack) GPGKeys() map[string][]string {
	out := make(map[string][]string, len(s.repos))
	for name, r := range s.repos {
		if len(r.GPGKeys) > 0 {
			out[name] = slices.Clone(r.GPGKeys)
		}
	}
	return out
}

// Installed returns the installed packages.
func (s *Sack) Installed() []*model.Package {
	return slices.Clone(s.installed)
}

// AllAvailable returns every repository package.
func (s *Sack) AllAvailable() []*model.Package {
	return slices.Clone(s.available)
}

// Available returns the repository packages matching spec, which may be a
// name, a NEVRA form or a glob, sorted oldest first.
func (s *Sack) Available(spec string) []*model.Package {
	return sorted(match(s.available, spec))
}

// InstalledMatching returns the installed packages matching spec.
func (s *Sack) InstalledMatching(spec string) []*model.Package {
	return sorted(match(s.installed, spec))
}

// Search returns installed and available packages matching pattern.
func (s *Sack) Search(pattern string) []*model.Package {
	return append(s.InstalledMatching(pattern), s.Available(pattern)...)
}

func match(pkgs []*model.Package, spec string) []*model.Package {
	glob := model.IsGlob(spec)
	var out []*model.Package
	for _, p := range pkgs {
		if glob && p.GlobMatch(spec) || !glob && p.ExactMatch(spec) {
			out = append(out, p)
		}
	}
	return out
}

func sorted(pkgs []*model.Package) []*model.Package {
	sort.SliceStable(pkgs, func(i, j int) bool { return model.Compare(pkgs[i].PkgRef, pkgs[j].PkgRef) < 0 })
	return pkgs
}

// Package returns the metadata of ref, preferring the repository copy since
// it carries the download location.
func (s *Sack) Package(ref model.PkgRef) (*model.Package, bool) {
	if p, ok := s.byRef[ref]; ok {
		return p, true
	}
	for _, p := range s.installed {
		if p.PkgRef == ref {
			return p, true
		}
	}
	return nil, false
}

// IsInstalled reports whether exactly ref is installed.
func (s *Sack) IsInstalled(ref model.PkgRef) bool {
	return slices.ContainsFunc(s.installed, func(p *model.Package) bool { return p.PkgRef == ref })
}

// InstalledByName returns the installed packages called name.
func (s *Sack) InstalledByName(name string) []*model.Package {
	var out []*model.Package
	for _, p := range s.installed {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// Newest returns the newest available package providing capability, or
// nil. Packages named capability win over other providers.
func (s *Sack) Newest(capability string) *model.Package {
	var best *model.Package
	for _, p := range s.available {
		if !p.ProvidesCap(capability) {
			continue
		}
		switch {
		case best == nil:
			best = p
		case (p.Name == capability) != (best.Name == capability):
			if p.Name == capability {
				best = p
			}
		case model.Compare(p.PkgRef, best.PkgRef) > 0:
			best = p
		}
	}
	return best
}

// InstalledProvider returns an installed package providing capability, or nil.
func (s *Sack) InstalledProvider(capability string) *model.Package {
	for _, p := range s.installed {
		if p.ProvidesCap(capability) {
			return p
		}
	}
	return nil
}

// Obsoleters returns the available packages that obsolete name.
func (s *Sack) Obsoleters(name string) []*model.Package {
	var out []*model.Package
	for _, p := range s.available {
		if p.ObsoletesName(name) {
			out = append(out, p)
		}
	}
	return sorted(out)
}

// Upgrades returns, for every installed package, the newest available build
// of the same name and architecture when it is newer.
func (s *Sack) Upgrades() []*model.Package {
	var out []*model.Package
	for _, inst := range s.installed {
		var best *model.Package
		for _, p := range s.available {
			if !model.SameNameArch(p.PkgRef, inst.PkgRef) || !model.Newer(p.PkgRef, inst.PkgRef) {
				continue
			}
			if best == nil || model.Newer(p.PkgRef, best.PkgRef) {
				best = p
			}
		}
		if best != nil {
			out = append(out, best)
		}
	}
	return sorted(out)
}

// Downgrade returns, for the installed package inst, the newest available
// build of the same name and architecture that is older.
func (s *Sack) Downgrade(inst *model.Package) *model.Package {
	var best *model.Package
	for _, p := range s.available {
		if !model.SameNameArch(p.PkgRef, inst.PkgRef) || !model.Newer(inst.PkgRef, p.PkgRef) {
			continue
		}
		if best == nil || model.Newer(p.PkgRef, best.PkgRef) {
			best = p
		}
	}
	return best
}
