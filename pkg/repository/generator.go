package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/installer"
	"github.com/glorpus-work/gotx/pkg/model"
)

// Generator builds the index of a repository from a directory of package
// archives. Package locations are recorded relative to Dir, which is the
// repository base, and the index is written to Dir/repodata/index.json.
type Generator struct {
	Dir string
	// ForceOverwrite replaces an existing index.
	ForceOverwrite bool
}

// NewGenerator creates a generator for the repository rooted at dir.
func NewGenerator(dir string) *Generator {
	return &Generator{Dir: dir}
}

// OutputPath is the index file Generate writes.
func (g *Generator) OutputPath() string {
	return filepath.Join(g.Dir, filepath.FromSlash(IndexPath))
}

// Validate checks if the generator is properly configured.
func (g *Generator) Validate() error {
	if g.Dir == "" {
		return errors.Wrapf(errors.ErrInvalidPath, "repository directory is required")
	}
	fi, err := os.Stat(g.Dir)
	if os.IsNotExist(err) {
		return errors.Wrapf(errors.ErrInvalidPath, "repository directory does not exist: %s", g.Dir)
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.Wrapf(errors.ErrInvalidPath, "not a directory: %s", g.Dir)
	}
	if !g.ForceOverwrite {
		if _, err := os.Stat(g.OutputPath()); err == nil {
			return errors.Wrapf(errors.ErrValidation, "index exists (use --force to overwrite): %s", g.OutputPath())
		}
	}
	return nil
}

// Generate scans Dir for package archives and writes the index. It returns
// the number of packages indexed.
func (g *Generator) Generate(ctx context.Context) (int, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}

	idx := NewIndex()
	walkErr := filepath.WalkDir(g.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), installer.FileExtension) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		pkg, err := g.describe(ctx, p)
		if err != nil {
			return errors.Wrapf(err, "failed to process package %s", p)
		}
		idx.AddPackage(pkg)
		return nil
	})
	if walkErr != nil {
		return 0, walkErr
	}
	if len(idx.Packages) == 0 {
		return 0, errors.Wrapf(errors.ErrValidation, "no %s packages found in %s", installer.FileExtension, g.Dir)
	}

	if err := os.MkdirAll(filepath.Dir(g.OutputPath()), 0o755); err != nil {
		return 0, errors.Wrap(err, "failed to create repodata directory")
	}
	if err := idx.Save(g.OutputPath()); err != nil {
		return 0, err
	}
	logger.Info("Repository index written", logger.Fields{"path": g.OutputPath(), "packages": len(idx.Packages)})
	return len(idx.Packages), nil
}

func (g *Generator) describe(ctx context.Context, path string) (*model.Package, error) {
	pkg, err := installer.ReadMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	sum, err := sha256File(path)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(g.Dir, path)
	if err != nil {
		return nil, err
	}

	pkg.Location = filepath.ToSlash(rel)
	pkg.Checksum = sum
	pkg.Size = stat.Size()
	pkg.LocalPath = ""
	pkg.Repo = ""
	return pkg, nil
}

func sha256File(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
