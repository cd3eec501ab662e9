package dropbox

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Folder adapts one Dropbox folder to the file-index contract used by
// slot resolution: relative forward-slash paths in sorted order.
type Folder struct {
	client *Client
	root   string
}

// NewFolder returns a provider for the folder at root, which must be an
// internal path (see Client.ResolveSharedLink for shared links).
func NewFolder(client *Client, root string) *Folder {
	return &Folder{client: client, root: strings.TrimRight(root, "/")}
}

// List returns folder-relative paths for every file under the root,
// sorted lexicographically. Dropbox returns listings in no documented
// order, so sorting here is what makes resolution deterministic.
func (f *Folder) List(ctx context.Context) ([]string, error) {
	entries, err := f.client.ListFolder(ctx, f.root)
	if err != nil {
		return nil, err
	}

	prefix := f.root + "/"
	var rels []string
	for _, e := range entries {
		if !strings.HasPrefix(e.PathLower, prefix) {
			continue
		}
		rels = append(rels, strings.TrimPrefix(e.PathLower, prefix))
	}

	sort.Strings(rels)
	return rels, nil
}

// Fetch downloads root/relPath into destDir, mirroring the relative
// layout.
func (f *Folder) Fetch(ctx context.Context, relPath, destDir string) (string, error) {
	local := filepath.Join(destDir, filepath.FromSlash(relPath))
	if err := f.client.Download(ctx, f.root+"/"+relPath, local); err != nil {
		return "", fmt.Errorf("fetching %s: %w", relPath, err)
	}
	return local, nil
}
