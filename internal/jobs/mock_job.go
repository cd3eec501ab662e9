package jobs

import (
	"context"
	"fmt"
	"sync"
)

const MockJobType = "mock"

// MockJob is a simple job for testing the job system.
// Execution behavior is configurable through MockJobConfig.
type MockJob struct {
	id        string
	jobType   string
	executeFn func(ctx context.Context) error

	mu   sync.Mutex
	runs int
}

// MockJobConfig configures a mock job.
type MockJobConfig struct {
	Type      string                          // Job type identifier (default: mock)
	ExecuteFn func(ctx context.Context) error // Behavior of Execute (default: succeed)
}

// NewMockJob creates a new mock job.
func NewMockJob(cfg MockJobConfig) *MockJob {
	jobType := cfg.Type
	if jobType == "" {
		jobType = MockJobType
	}
	return &MockJob{
		jobType:   jobType,
		executeFn: cfg.ExecuteFn,
	}
}

// ID returns the job record ID. Empty until submitted.
func (j *MockJob) ID() string {
	return j.id
}

// SetRecordID sets the job record ID after submission.
func (j *MockJob) SetRecordID(id string) {
	j.id = id
}

func (j *MockJob) Type() string {
	return j.jobType
}

// Execute runs the configured behavior and counts invocations.
func (j *MockJob) Execute(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()

	if j.executeFn != nil {
		return j.executeFn(ctx)
	}
	return nil
}

// Status returns current progress.
func (j *MockJob) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return map[string]string{
		"runs": fmt.Sprintf("%d", j.runs),
	}, nil
}

// Runs returns how many times Execute was invoked (for testing).
func (j *MockJob) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

// Verify interface
var _ Job = (*MockJob)(nil)
