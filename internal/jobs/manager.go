package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no job record exists for the given ID.
var ErrNotFound = errors.New("job not found")

// Manager handles job record CRUD operations in an in-memory store.
// It does not execute jobs - that's handled by the scheduler, which
// updates job status via the manager.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*Record
	logger  *slog.Logger
}

// NewManager creates a new job manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		records: make(map[string]*Record),
		logger:  logger,
	}
}

// Create creates a new job record and returns its ID.
func (m *Manager) Create(ctx context.Context, jobType string, metadata map[string]string) (string, error) {
	record := NewRecord(jobType, metadata)
	record.ID = uuid.New().String()

	m.mu.Lock()
	m.records[record.ID] = record
	m.mu.Unlock()

	m.logger.Info("job created", "id", record.ID, "type", jobType)
	return record.ID, nil
}

// Get returns a copy of a job record by ID.
func (m *Manager) Get(ctx context.Context, jobID string) (*Record, error) {
	m.mu.RLock()
	record, ok := m.records[jobID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return copyRecord(record), nil
}

// List returns jobs matching the filter, newest first.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	m.mu.RLock()
	records := make([]*Record, 0, len(m.records))
	for _, record := range m.records {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && record.JobType != filter.JobType {
			continue
		}
		records = append(records, copyRecord(record))
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// UpdateStatus updates a job's status, stamping the transition time.
func (m *Manager) UpdateStatus(ctx context.Context, jobID string, status Status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	record.Status = status

	now := time.Now().UTC()
	switch status {
	case StatusRunning:
		record.StartedAt = &now
	case StatusCompleted, StatusFailed, StatusCancelled:
		record.CompletedAt = &now
	}

	if errMsg != "" {
		record.Error = errMsg
	}
	return nil
}

// UpdateMetadata replaces a job's metadata (for progress tracking).
func (m *Manager) UpdateMetadata(ctx context.Context, jobID string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	record.Metadata = metadata
	return nil
}

// Delete removes a job record.
func (m *Manager) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[jobID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	delete(m.records, jobID)
	return nil
}

// ListFilter specifies criteria for listing jobs.
type ListFilter struct {
	Status  Status // Filter by status (empty = all)
	JobType string // Filter by job type (empty = all)
	Limit   int    // Max results (0 = default 100)
}

func copyRecord(record *Record) *Record {
	out := *record
	if record.Metadata != nil {
		out.Metadata = make(map[string]string, len(record.Metadata))
		for k, v := range record.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
