package index

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FS serves files from a directory on local disk.
type FS struct {
	root string
	log  *slog.Logger
}

// NewFS returns a provider rooted at the given directory.
func NewFS(root string, log *slog.Logger) *FS {
	if log == nil {
		log = slog.Default()
	}
	return &FS{root: root, log: log}
}

// List walks the root and returns relative paths for every regular file,
// sorted lexicographically.
func (f *FS) List(ctx context.Context) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", f.root, err)
	}

	sort.Strings(entries)
	f.log.Debug("listed source folder", "root", f.root, "files", len(entries))
	return entries, nil
}

// Fetch copies root/relPath into destDir/relPath.
func (f *FS) Fetch(ctx context.Context, relPath, destDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src := filepath.Join(f.root, filepath.FromSlash(relPath))
	dst := filepath.Join(destDir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("creating destination dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", relPath, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("copying %s: %w", relPath, err)
	}
	return dst, nil
}
