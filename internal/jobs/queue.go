package jobs

import (
	"container/heap"
	"errors"
	"sync"
)

// ErrNilJob is returned when attempting to push a nil queued job.
var ErrNilJob = errors.New("cannot push nil job")

// Priority levels for queued jobs.
// Higher values are processed first.
const (
	PriorityLow    = 0  // Background housekeeping
	PriorityNormal = 10 // Page-level operations (ocr_extract)
	PriorityHigh   = 20 // Client-facing deliverables (packet_assemble)
)

// PriorityForType returns the appropriate priority for a job type.
// Packet assembly produces the deliverable a client is waiting on, so it
// outranks page-level extraction work.
func PriorityForType(jobType string) int {
	switch jobType {
	case "packet_assemble":
		return PriorityHigh
	case "ocr_extract":
		return PriorityNormal
	}
	return PriorityNormal
}

// QueuedJob pairs a job with its scheduling priority.
type QueuedJob struct {
	Job      Job
	Priority int
}

// PriorityQueue is a thread-safe priority queue for submitted jobs.
// Jobs with higher Priority values are dequeued first.
// When priorities are equal, jobs are processed in FIFO order.
type PriorityQueue struct {
	mu     sync.Mutex
	items  queuedJobHeap
	seq    uint64        // Sequence number for FIFO ordering within same priority
	notify chan struct{} // Signaled when items are pushed
}

// NewPriorityQueue creates a new priority queue.
func NewPriorityQueue() *PriorityQueue {
	pq := &PriorityQueue{
		items:  make(queuedJobHeap, 0),
		notify: make(chan struct{}, 1), // Buffered to avoid blocking Push
	}
	heap.Init(&pq.items)
	return pq
}

// Push adds a job to the queue.
// Returns an error if the queued job or its Job is nil.
func (pq *PriorityQueue) Push(qj *QueuedJob) error {
	if qj == nil || qj.Job == nil {
		return ErrNilJob
	}

	pq.mu.Lock()
	pq.seq++
	item := &queuedJobItem{
		qj:  qj,
		seq: pq.seq,
	}
	heap.Push(&pq.items, item)
	pq.mu.Unlock()

	// Signal waiting consumers (non-blocking)
	select {
	case pq.notify <- struct{}{}:
	default:
		// Channel already has a pending notification
	}
	return nil
}

// Pop removes and returns the highest priority job.
// Blocks until an item is available or the done channel is closed.
// Returns nil if done is closed while waiting.
func (pq *PriorityQueue) Pop(done <-chan struct{}) *QueuedJob {
	for {
		pq.mu.Lock()
		if pq.items.Len() > 0 {
			item := heap.Pop(&pq.items).(*queuedJobItem)
			pq.mu.Unlock()
			return item.qj
		}
		pq.mu.Unlock()

		// Wait for notification or cancellation
		select {
		case <-done:
			return nil
		case <-pq.notify:
			// Item may have been pushed, loop to check
		}
	}
}

// TryPop attempts to pop without blocking.
// Returns nil if queue is empty.
func (pq *PriorityQueue) TryPop() *QueuedJob {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if pq.items.Len() == 0 {
		return nil
	}

	item := heap.Pop(&pq.items).(*queuedJobItem)
	return item.qj
}

// Len returns the number of items in the queue.
func (pq *PriorityQueue) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.items.Len()
}

// Stats returns queue statistics by priority level.
func (pq *PriorityQueue) Stats() PriorityQueueStats {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	stats := PriorityQueueStats{
		Total: pq.items.Len(),
	}

	for _, item := range pq.items {
		switch {
		case item.qj.Priority >= PriorityHigh:
			stats.High++
		case item.qj.Priority >= PriorityNormal:
			stats.Normal++
		default:
			stats.Low++
		}
	}

	return stats
}

// PriorityQueueStats reports queue depth by priority level.
type PriorityQueueStats struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Normal int `json:"normal"`
	Low    int `json:"low"`
}

// queuedJobItem wraps a QueuedJob with sequence number for heap ordering.
type queuedJobItem struct {
	qj  *QueuedJob
	seq uint64 // For FIFO ordering within same priority
}

// queuedJobHeap implements heap.Interface for queued jobs.
// Higher priority items come first. Equal priorities use FIFO (lower seq first).
type queuedJobHeap []*queuedJobItem

func (h queuedJobHeap) Len() int { return len(h) }

func (h queuedJobHeap) Less(i, j int) bool {
	// Higher priority comes first (max-heap behavior)
	if h[i].qj.Priority != h[j].qj.Priority {
		return h[i].qj.Priority > h[j].qj.Priority
	}
	// Same priority: lower sequence number (earlier) comes first (FIFO)
	return h[i].seq < h[j].seq
}

func (h queuedJobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *queuedJobHeap) Push(x any) {
	*h = append(*h, x.(*queuedJobItem))
}

func (h *queuedJobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // Avoid memory leak
	*h = old[0 : n-1]
	return item
}
