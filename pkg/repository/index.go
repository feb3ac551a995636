// Package repository reads repository metadata indexes and joins them with
// the installed package set into a Sack, the package universe every other
// component queries.
package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
	"github.com/glorpus-work/gotx/pkg/model"
)

const (
	// FormatVersion is the index format written by NewIndex.
	FormatVersion = "1"
	// IndexPath is the location of the index below a repository base URL.
	IndexPath = "repodata/index.json"
	// InitialPackageCapacity is the initial capacity for the packages slice.
	InitialPackageCapacity = 100
)

// Index is the metadata of one repository. Package locations are relative to
// the repository base URL unless absolute.
type Index struct {
	FormatVersion string           `json:"format_version"`
	LastUpdate    time.Time        `json:"last_update"`
	Packages      []*model.Package `json:"packages"`
}

// NewIndex creates a new index with the current timestamp.
func NewIndex() *Index {
	return &Index{
		FormatVersion: FormatVersion,
		LastUpdate:    time.Now(),
		Packages:      make([]*model.Package, 0, InitialPackageCapacity),
	}
}

// ParseIndex parses an index from JSON data.
func ParseIndex(data []byte) (*Index, error) {
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrIndexInvalid, err)
	}
	if index.FormatVersion == "" {
		return nil, fmt.Errorf("%w: missing format version", errors.ErrIndexInvalid)
	}
	for i, p := range index.Packages {
		if p == nil {
			return nil, fmt.Errorf("%w: package %d is empty", errors.ErrIndexInvalid, i)
		}
		if err := p.PkgRef.Validate(); err != nil {
			return nil, fmt.Errorf("%w: package %d: %w", errors.ErrIndexInvalid, i, err)
		}
	}
	return &index, nil
}

// ParseIndexFromReader parses an index from an io.Reader.
func ParseIndexFromReader(reader io.Reader) (*Index, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read index data")
	}
	return ParseIndex(data)
}

// ParseIndexFromFile parses the index stored at filePath.
func ParseIndexFromFile(filePath string) (*Index, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open index file %s", filePath)
	}
	defer func() { _ = file.Close() }()
	return ParseIndexFromReader(file)
}

// ToJSON converts the index to JSON bytes.
func (idx *Index) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal index to JSON")
	}
	return data, nil
}

// Save writes the index atomically.
func (idx *Index) Save(path string) error {
	data, err := idx.ToJSON()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, fsutil.FileModeDefault)
}

// AddPackage adds pkg, replacing an entry with the same NEVRA.
func (idx *Index) AddPackage(pkg *model.Package) {
	idx.LastUpdate = time.Now()
	for i := range idx.Packages {
		if idx.Packages[i].PkgRef == pkg.PkgRef {
			idx.Packages[i] = pkg
			return
		}
	}
	idx.Packages = append(idx.Packages, pkg)
}

// RemovePackage removes the package with the given NEVRA.
func (idx *Index) RemovePackage(ref model.PkgRef) bool {
	for i := range idx.Packages {
		if idx.Packages[i].PkgRef == ref {
			idx.Packages = append(idx.Packages[:i], idx.Packages[i+1:]...)
			idx.LastUpdate = time.Now()
			return true
		}
	}
	return false
}

// resolveLocation makes a package location absolute against base.
func resolveLocation(base *url.URL, location string) (string, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: bad location %q: %v", errors.ErrIndexInvalid, location, err)
	}
	if loc.IsAbs() || base == nil {
		return loc.String(), nil
	}
	return base.ResolveReference(loc).String(), nil
}
