// Package version holds build metadata injected at link time.
package version

import "runtime"

// Populated via -ldflags at build time:
//
//	-X github.com/jackzampolin/binder/version.GitRelease=v0.1.0
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo is the Go toolchain the binary was built with.
var GoInfo = runtime.Version()
