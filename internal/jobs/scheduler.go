package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Scheduler pulls submitted jobs off the priority queue and executes them
// on a pool of workers, recording lifecycle transitions in the manager.
type Scheduler struct {
	mu      sync.RWMutex
	manager *Manager
	queue   *PriorityQueue
	running map[string]*activeJob
	logger  *slog.Logger
}

// activeJob tracks an executing job and its cancellation handle.
type activeJob struct {
	job    Job
	cancel context.CancelFunc
}

// SchedulerConfig configures a new scheduler.
type SchedulerConfig struct {
	Manager *Manager
	Logger  *slog.Logger
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		manager: cfg.Manager,
		queue:   NewPriorityQueue(),
		running: make(map[string]*activeJob),
		logger:  logger,
	}
}

// Submit records a job and queues it for execution. Returns the job ID.
func (s *Scheduler) Submit(ctx context.Context, job Job, priority int) (string, error) {
	// Capture initial metadata from job status
	metadata, err := job.Status(ctx)
	if err != nil {
		s.logger.Warn("failed to get initial job status", "type", job.Type(), "error", err)
	}

	var id string
	if s.manager != nil {
		id, err = s.manager.Create(ctx, job.Type(), metadata)
		if err != nil {
			return "", fmt.Errorf("failed to create job record: %w", err)
		}
	} else {
		// Generate an ID for in-memory tracking when no manager is wired
		id = uuid.New().String()
	}
	job.SetRecordID(id)

	if err := s.queue.Push(&QueuedJob{Job: job, Priority: priority}); err != nil {
		if s.manager != nil {
			s.manager.UpdateStatus(ctx, id, StatusFailed, err.Error())
		}
		return "", fmt.Errorf("failed to queue job: %w", err)
	}

	s.logger.Info("job submitted", "id", id, "type", job.Type(), "priority", priority)
	return id, nil
}

// RunWorkers starts multiple worker goroutines to process the queue in parallel.
func (s *Scheduler) RunWorkers(ctx context.Context, numWorkers int) {
	s.logger.Info("starting worker pool", "count", numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			s.workerLoop(ctx, workerNum)
		}(i)
	}

	// Wait for all workers to finish when context is cancelled
	go func() {
		<-ctx.Done()
		wg.Wait()
		s.logger.Info("all workers stopped")
	}()
}

func (s *Scheduler) workerLoop(ctx context.Context, workerNum int) {
	logger := s.logger.With("worker_num", workerNum)
	logger.Debug("worker started")

	for {
		qj := s.queue.Pop(ctx.Done())
		if qj == nil {
			logger.Debug("worker stopping")
			return
		}
		s.runJob(ctx, qj.Job)
	}
}

// runJob executes one job, tracking it in the running set so it can be
// cancelled, and records the terminal status.
func (s *Scheduler) runJob(ctx context.Context, job Job) {
	id := job.ID()

	// A job cancelled while still queued must not execute
	if s.manager != nil {
		if record, err := s.manager.Get(ctx, id); err == nil && record.Status == StatusCancelled {
			s.logger.Info("skipping cancelled job", "id", id, "type", job.Type())
			return
		}
	}

	if s.manager != nil {
		if err := s.manager.UpdateStatus(ctx, id, StatusRunning, ""); err != nil {
			s.logger.Warn("failed to update job status", "id", id, "error", err)
		}
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.running[id] = &activeJob{job: job, cancel: cancel}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
		cancel()
	}()

	s.logger.Info("job started", "id", id, "type", job.Type())

	err := job.Execute(jobCtx)

	// Persist final metadata before the terminal status transition
	if s.manager != nil {
		if metadata, mErr := job.Status(ctx); mErr == nil && len(metadata) > 0 {
			if uErr := s.manager.UpdateMetadata(ctx, id, metadata); uErr != nil {
				s.logger.Warn("failed to update job metadata", "id", id, "error", uErr)
			}
		}
	}

	switch {
	case err == nil:
		if s.manager != nil {
			s.manager.UpdateStatus(ctx, id, StatusCompleted, "")
		}
		s.logger.Info("job completed", "id", id, "type", job.Type())

	case jobCtx.Err() != nil:
		if s.manager != nil {
			s.manager.UpdateStatus(ctx, id, StatusCancelled, err.Error())
		}
		s.logger.Warn("job cancelled", "id", id, "type", job.Type())

	default:
		if s.manager != nil {
			s.manager.UpdateStatus(ctx, id, StatusFailed, err.Error())
		}
		s.logger.Error("job failed", "id", id, "type", job.Type(), "error", err)
	}
}

// Cancel stops a running job or withdraws a queued one.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) error {
	s.mu.RLock()
	active, ok := s.running[jobID]
	s.mu.RUnlock()

	if ok {
		active.cancel()
		s.logger.Info("job cancel requested", "id", jobID)
		return nil
	}

	if s.manager == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	record, err := s.manager.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if record.Status != StatusQueued {
		return fmt.Errorf("job %s is not active (status %s)", jobID, record.Status)
	}
	return s.manager.UpdateStatus(ctx, jobID, StatusCancelled, "")
}

// JobStatus returns the live status of a running job.
func (s *Scheduler) JobStatus(ctx context.Context, jobID string) (map[string]string, error) {
	s.mu.RLock()
	active, ok := s.running[jobID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("job not active: %s", jobID)
	}
	return active.job.Status(ctx)
}

// PendingCount returns the number of jobs waiting in the queue.
func (s *Scheduler) PendingCount() int {
	return s.queue.Len()
}

// ActiveJobs returns the number of jobs currently executing.
func (s *Scheduler) ActiveJobs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.running)
}

// QueueStats reports queue depth by priority level.
func (s *Scheduler) QueueStats() PriorityQueueStats {
	return s.queue.Stats()
}
