// Package report delivers pipeline progress to interested sinks. Reporters
// are fire-and-forget: a failed delivery is logged, never propagated, so
// status plumbing cannot fail an assembly run.
package report

import "context"

// Pipeline stages, reported in order during a packet run.
const (
	StageResolving   = "resolving"
	StageDownloading = "downloading"
	StageAssembling  = "assembling"
	StageCompleted   = "completed"
	StageError       = "error"
)

// Progress percentages for each milestone.
const (
	PercentResolving   = 10
	PercentDownloading = 40
	PercentAssembling  = 70
	PercentCompleted   = 100
)

// Update is one progress notification for a client's packet run.
type Update struct {
	Client  string `json:"client"`
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// StatusReporter receives progress updates.
type StatusReporter interface {
	Report(ctx context.Context, u Update)
}

// Nop discards every update.
type Nop struct{}

func (Nop) Report(context.Context, Update) {}

// Multi fans updates out to several reporters in order.
func Multi(reporters ...StatusReporter) StatusReporter {
	return multi(reporters)
}

type multi []StatusReporter

func (m multi) Report(ctx context.Context, u Update) {
	for _, r := range m {
		r.Report(ctx, u)
	}
}
