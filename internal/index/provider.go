// Package index lists the files available in a source folder and fetches
// selected entries to local disk for assembly.
package index

import "context"

// Provider exposes one source folder. List and Fetch use forward-slash
// paths relative to the provider root.
//
// Implementations must return listings in a stable order: slot resolution
// picks the first surviving candidate, so listing order decides ties.
type Provider interface {
	// List returns every file under the root, sorted lexicographically.
	List(ctx context.Context) ([]string, error)

	// Fetch copies the file at relPath into destDir, mirroring the
	// relative layout, and returns the local path.
	Fetch(ctx context.Context, relPath, destDir string) (string, error)
}
