package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackzampolin/binder/internal/ocr"
	"github.com/jackzampolin/binder/internal/packet"
)

// Job is the interface that all job types must implement.
type Job interface {
	// ID returns the job record ID. Empty until the scheduler assigns one.
	ID() string

	// SetRecordID sets the job record ID after submission.
	SetRecordID(id string)

	// Type returns the job type identifier.
	Type() string

	// Execute runs the job. It should respect context cancellation.
	// Dependencies are retrieved via DepsFromContext(ctx).
	Execute(ctx context.Context) error

	// Status returns the current status of the job as key-value pairs.
	// This allows jobs to report progress, current step, items processed, etc.
	// Returns nil map if no status to report.
	Status(ctx context.Context) (map[string]string, error)
}

// Dependencies provides access to shared resources for job execution.
type Dependencies struct {
	Packets *packet.Service
	OCR     *ocr.Service
	Logger  *slog.Logger
}

// depsKey is the context key for Dependencies.
type depsKey struct{}

// ContextWithDeps returns a new context with Dependencies attached.
func ContextWithDeps(ctx context.Context, deps Dependencies) context.Context {
	return context.WithValue(ctx, depsKey{}, deps)
}

// DepsFromContext retrieves Dependencies from the context.
// Returns a Dependencies with nil fields if not found.
func DepsFromContext(ctx context.Context) Dependencies {
	deps, ok := ctx.Value(depsKey{}).(Dependencies)
	if !ok {
		return Dependencies{}
	}
	return deps
}

// Status represents the current state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Record tracks one submitted job. Records live in process memory and do
// not survive a restart.
type Record struct {
	ID          string            `json:"id"`
	JobType     string            `json:"job_type"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewRecord creates a new job record for submission.
func NewRecord(jobType string, metadata map[string]string) *Record {
	return &Record{
		JobType:   jobType,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
	}
}
