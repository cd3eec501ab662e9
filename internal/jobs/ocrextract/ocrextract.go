// Package ocrextract wraps pattern-based page extraction as a schedulable job.
package ocrextract

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jackzampolin/binder/internal/jobs"
	"github.com/jackzampolin/binder/internal/ocr"
)

// JobType is the identifier for this job type.
const JobType = "ocr_extract"

// Config configures an OCR extraction job.
type Config struct {
	// InputPath is the PDF to scan.
	InputPath string

	// Pattern is the text to look for on each page.
	Pattern string

	// UseRegex treats Pattern as a regular expression.
	UseRegex bool

	// CaseSensitive disables the default case folding.
	CaseSensitive bool

	// Suffix names the output file next to the input.
	Suffix string
}

// Validate checks that the config has all required fields.
func (c Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input path is required")
	}
	if c.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	return nil
}

// Job runs one OCR extraction through the OCR service.
type Job struct {
	id  string
	cfg Config

	mu     sync.Mutex
	result *ocr.Result
}

// New creates an OCR extraction job.
func New(cfg Config) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Job{cfg: cfg}, nil
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

// Execute scans the input PDF using the OCR service from the job
// dependencies.
func (j *Job) Execute(ctx context.Context) error {
	deps := jobs.DepsFromContext(ctx)
	if deps.OCR == nil {
		return fmt.Errorf("ocr service not available")
	}

	result, err := deps.OCR.ExtractPages(ctx, ocr.Request{
		InputPath:     j.cfg.InputPath,
		Pattern:       j.cfg.Pattern,
		UseRegex:      j.cfg.UseRegex,
		CaseSensitive: j.cfg.CaseSensitive,
		Suffix:        j.cfg.Suffix,
	})

	if result != nil {
		j.mu.Lock()
		j.result = result
		j.mu.Unlock()
	}
	return err
}

// Status returns current progress.
func (j *Job) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := map[string]string{
		"input_path": j.cfg.InputPath,
		"pattern":    j.cfg.Pattern,
	}
	if j.result != nil {
		status["matched_pages"] = strconv.Itoa(len(j.result.MatchedPages))
		status["pages"] = strconv.Itoa(j.result.Pages)
		if j.result.OutputPath != "" {
			status["output_path"] = j.result.OutputPath
		}
	}
	return status, nil
}

// Result returns the extraction result once Execute has finished.
func (j *Job) Result() *ocr.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Verify interface
var _ jobs.Job = (*Job)(nil)
