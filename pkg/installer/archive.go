package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/mholt/archives"
)

// Layout of a package archive: the metadata document and the file tree that
// is installed relative to the root.
const (
	MetadataPath = "meta/package.json"
	DataDir      = "data"
	// FileExtension is the extension of package archives.
	FileExtension = ".gotx"
)

func openArchive(ctx context.Context, path string) (fs.FS, func(), error) {
	fsys, err := archives.FileSystem(ctx, path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open package archive %s: %w", path, err)
	}
	closeFn := func() {}
	if closer, ok := fsys.(io.Closer); ok {
		closeFn = func() { _ = closer.Close() }
	}
	return fsys, closeFn, nil
}

// ReadMetadata returns the package metadata stored in the archive at path.
func ReadMetadata(ctx context.Context, path string) (*model.Package, error) {
	fsys, closeFn, err := openArchive(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	data, err := fs.ReadFile(fsys, MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrPackageInvalid, path, err)
	}
	pkg, err := parseMetadata(data, path)
	if err != nil {
		return nil, err
	}
	pkg.LocalPath = path
	return pkg, nil
}

func parseMetadata(data []byte, src string) (*model.Package, error) {
	var pkg model.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrPackageInvalid, src, err)
	}
	if err := pkg.PkgRef.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrPackageInvalid, src, err)
	}
	return &pkg, nil
}

// dataFiles lists the files of the archive's data tree relative to it.
func dataFiles(ctx context.Context, path string) ([]string, error) {
	fsys, closeFn, err := openArchive(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var files []string
	err = walkData(fsys, func(rel string, _ string, d fs.DirEntry) error {
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// extract writes the data tree of the archive at path under root and returns
// the files it wrote, relative to root.
func extract(ctx context.Context, path, root string) ([]string, error) {
	fsys, closeFn, err := openArchive(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var files []string
	err = walkData(fsys, func(rel, entry string, d fs.DirEntry) error {
		target := filepath.Join(root, filepath.FromSlash(rel))
		if d.IsDir() {
			return os.MkdirAll(target, fsutil.DirModeDefault)
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", entry, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			err = writeSymlink(fsys, entry, target)
		} else {
			err = writeRegularFile(fsys, entry, target, info)
		}
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	slices.Sort(files)
	return files, err
}

func walkData(fsys fs.FS, fn func(rel, entry string, d fs.DirEntry) error) error {
	return fs.WalkDir(fsys, ".", func(entry string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, ok := strings.CutPrefix(entry, DataDir+"/")
		if !ok {
			return nil
		}
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("%w: archive entry %s escapes the root", errors.ErrPackageInvalid, entry)
		}
		return fn(rel, entry, d)
	})
}

func writeSymlink(fsys fs.FS, entry, target string) error {
	link, err := fsys.Open(entry)
	if err != nil {
		return fmt.Errorf("failed to read symlink %s: %w", entry, err)
	}
	defer func() { _ = link.Close() }()

	dest, err := io.ReadAll(link)
	if err != nil {
		return fmt.Errorf("failed to read symlink target %s: %w", entry, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", entry, err)
	}
	_ = os.Remove(target)
	return os.Symlink(string(dest), target)
}

func writeRegularFile(fsys fs.FS, entry, target string, info fs.FileInfo) error {
	src, err := fsys.Open(entry)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", entry, err)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(target), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", entry, err)
	}
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy file %s: %w", entry, err)
	}
	if err := dst.Close(); err != nil {
		return err
	}
	if err := os.Chmod(target, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", target, err)
	}
	return os.Chtimes(target, info.ModTime(), info.ModTime())
}

// Build packs srcDir, which holds meta/package.json and a data/ tree, into a
// gzip-compressed tar archive at out.
func Build(ctx context.Context, srcDir, out string) error {
	if _, err := ReadMetadataFile(filepath.Join(srcDir, filepath.FromSlash(MetadataPath))); err != nil {
		return err
	}
	abs, err := filepath.Abs(srcDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		abs + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", out, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, file, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

// ReadMetadataFile parses an unpacked metadata document.
func ReadMetadataFile(path string) (*model.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrPackageInvalid, err)
	}
	return parseMetadata(data, path)
}
