// Package cache manages the downloaded repository metadata and package
// archives kept between transactions.
package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
)

// Target selects what Clean removes.
type Target string

const (
	TargetMetadata Target = "metadata"
	TargetPackages Target = "packages"
	TargetAll      Target = "all"
)

// ParseTarget parses a clean target name.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetMetadata, TargetPackages, TargetAll:
		return t, nil
	}
	return "", fmt.Errorf("unknown cache target %q (want metadata, packages or all): %w", s, errors.ErrValidation)
}

// Cache is the on-disk cache: repository indexes in IndexDir and package
// archives in PackageDir.
type Cache struct {
	IndexDir   string
	PackageDir string
}

// New returns the cache rooted at the two directories.
func New(indexDir, packageDir string) *Cache {
	return &Cache{IndexDir: indexDir, PackageDir: packageDir}
}

// CleanResult holds the bytes freed per area.
type CleanResult struct {
	MetadataFreed int64
	PackageFreed  int64
}

// TotalFreed is the sum over both areas.
func (r *CleanResult) TotalFreed() int64 {
	return r.MetadataFreed + r.PackageFreed
}

func (r *CleanResult) String() string {
	if r.TotalFreed() == 0 {
		return "No files were removed from the cache."
	}
	msg := fmt.Sprintf("Freed %s of disk space.", humanize.IBytes(uint64(r.TotalFreed())))
	if r.MetadataFreed > 0 {
		msg += fmt.Sprintf("\n- Metadata: %s", humanize.IBytes(uint64(r.MetadataFreed)))
	}
	if r.PackageFreed > 0 {
		msg += fmt.Sprintf("\n- Packages: %s", humanize.IBytes(uint64(r.PackageFreed)))
	}
	return msg
}

// Clean empties the areas selected by target. Missing directories count as
// empty.
func (c *Cache) Clean(target Target) (*CleanResult, error) {
	result := &CleanResult{}
	var err error

	if target == TargetAll || target == TargetMetadata {
		if result.MetadataFreed, err = cleanDirectory(c.IndexDir); err != nil {
			return nil, errors.Wrapf(err, "failed to clean metadata cache")
		}
	}
	if target == TargetAll || target == TargetPackages {
		if result.PackageFreed, err = cleanDirectory(c.PackageDir); err != nil {
			return nil, errors.Wrapf(err, "failed to clean package cache")
		}
	}

	logger.Debug("Cache cleaned", logger.Fields{
		"target":         string(target),
		"metadata_freed": result.MetadataFreed,
		"package_freed":  result.PackageFreed,
	})
	return result, nil
}

// Info describes the current cache contents.
type Info struct {
	MetadataSize  int64
	MetadataFiles int
	PackageSize   int64
	PackageFiles  int
}

func (i *Info) String() string {
	return fmt.Sprintf("Metadata: %s (%d files)\nPackages: %s (%d files)",
		humanize.IBytes(uint64(i.MetadataSize)), i.MetadataFiles,
		humanize.IBytes(uint64(i.PackageSize)), i.PackageFiles)
}

// Info measures both areas.
func (c *Cache) Info() (*Info, error) {
	info := &Info{}
	var err error
	if info.MetadataSize, info.MetadataFiles, err = dirSizeAndFiles(c.IndexDir); err != nil {
		return nil, errors.Wrapf(err, "failed to get metadata cache info")
	}
	if info.PackageSize, info.PackageFiles, err = dirSizeAndFiles(c.PackageDir); err != nil {
		return nil, errors.Wrapf(err, "failed to get package cache info")
	}
	return info, nil
}

// cleanDirectory removes dir and recreates it empty. It returns the bytes
// freed.
func cleanDirectory(dir string) (int64, error) {
	size, _, err := dirSizeAndFiles(dir)
	if err != nil || size == 0 && !exists(dir) {
		return 0, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, errors.Wrapf(err, "failed to remove directory %s", dir)
	}
	if err := os.MkdirAll(dir, fsutil.DirModeSecure); err != nil {
		return size, errors.Wrapf(err, "failed to recreate directory %s", dir)
	}
	return size, nil
}

func dirSizeAndFiles(dir string) (size int64, count int, err error) {
	if !exists(dir) {
		return 0, 0, nil
	}
	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		count++
		return nil
	})
	if err != nil {
		err = errors.Wrapf(err, "error walking directory %s", dir)
	}
	return size, count, err
}

func exists(dir string) bool {
	_, err := os.Stat(dir)
	return err == nil
}
