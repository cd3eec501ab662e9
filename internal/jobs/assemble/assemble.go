// Package assemble wraps a full packet run as a schedulable job.
package assemble

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jackzampolin/binder/internal/index"
	"github.com/jackzampolin/binder/internal/jobs"
	"github.com/jackzampolin/binder/internal/manifest"
	"github.com/jackzampolin/binder/internal/packet"
)

// JobType is the identifier for this job type.
const JobType = "packet_assemble"

// Config configures a packet assembly job.
type Config struct {
	// Client names the person the packet is for.
	Client string

	// Manifest drives slot resolution.
	Manifest *manifest.Manifest

	// Source is the document index the packet is assembled from.
	Source index.Provider
}

// Validate checks that the config has all required fields.
func (c Config) Validate() error {
	if c.Client == "" {
		return fmt.Errorf("client name is required")
	}
	if c.Manifest == nil {
		return fmt.Errorf("manifest is required")
	}
	if c.Source == nil {
		return fmt.Errorf("source provider is required")
	}
	return nil
}

// Job runs one packet assembly through the packet service.
type Job struct {
	id     string
	client string
	man    *manifest.Manifest
	source index.Provider

	mu     sync.Mutex
	report *packet.Report
}

// New creates a packet assembly job.
func New(cfg Config) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Job{
		client: cfg.Client,
		man:    cfg.Manifest,
		source: cfg.Source,
	}, nil
}

// ID returns the job record ID. Empty until submitted.
func (j *Job) ID() string {
	return j.id
}

// SetRecordID sets the job record ID after submission.
func (j *Job) SetRecordID(id string) {
	j.id = id
}

func (j *Job) Type() string {
	return JobType
}

// Execute runs the packet pipeline end to end using the packet service
// from the job dependencies.
func (j *Job) Execute(ctx context.Context) error {
	deps := jobs.DepsFromContext(ctx)
	if deps.Packets == nil {
		return fmt.Errorf("packet service not available")
	}

	report, err := deps.Packets.Run(ctx, packet.Request{
		Client:   j.client,
		Manifest: j.man,
	}, j.source)

	if report != nil {
		j.mu.Lock()
		j.report = report
		j.mu.Unlock()
	}
	return err
}

// Status returns current progress.
func (j *Job) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := map[string]string{
		"client":   j.client,
		"manifest": j.man.Name(),
	}
	if j.report != nil {
		status["output_path"] = j.report.Artifact.Path
		status["presence_mask"] = j.report.Artifact.PresenceMask
		status["dropped"] = strconv.Itoa(len(j.report.Dropped))
	}
	return status, nil
}

// Report returns the packet report once Execute has finished.
func (j *Job) Report() *packet.Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.report
}

// Verify interface
var _ jobs.Job = (*Job)(nil)
