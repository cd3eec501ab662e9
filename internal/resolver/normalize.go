package resolver

import (
	"path"
	"strings"
)

// normalizePath lowercases a path and converts backslash separators to
// forward slashes, so folder hints match regardless of origin filesystem.
func normalizePath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
}

// normalizeName prepares a basename or hint for fuzzy word matching:
// lowercase, underscores and dashes become spaces, repeated whitespace
// collapses to one space.
func normalizeName(s string) string {
	t := strings.ToLower(s)
	t = strings.ReplaceAll(t, "_", " ")
	t = strings.ReplaceAll(t, "-", " ")
	return strings.Join(strings.Fields(t), " ")
}

// basename returns the final path element of a slash-normalized path.
func basename(p string) string {
	return path.Base(normalizePath(p))
}
