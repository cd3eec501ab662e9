package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the binder home directory.
	DefaultDirName = ".binder"

	// WorkDirName is the subdirectory for per-request working directories.
	WorkDirName = "work"

	// OutputDirName is the subdirectory for finished packets.
	OutputDirName = "output"

	// ManifestsDirName is the subdirectory for user manifests.
	ManifestsDirName = "manifests"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the binder home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.binder).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// WorkPath returns the path to the working directory. Each packet run
// claims its own subdirectory underneath.
func (d *Dir) WorkPath() string {
	return filepath.Join(d.path, WorkDirName)
}

// OutputPath returns the path to the finished packet directory.
func (d *Dir) OutputPath() string {
	return filepath.Join(d.path, OutputDirName)
}

// ManifestsPath returns the path to the user manifest directory.
func (d *Dir) ManifestsPath() string {
	return filepath.Join(d.path, ManifestsDirName)
}

// ManifestPath returns the path to a named manifest file.
func (d *Dir) ManifestPath(name string) string {
	return filepath.Join(d.ManifestsPath(), name)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.WorkPath(), d.OutputPath(), d.ManifestsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
