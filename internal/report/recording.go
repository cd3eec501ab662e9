package report

import (
	"context"
	"sync"
)

// Recording keeps every update in memory. Useful in tests and for
// inspecting a run after the fact.
type Recording struct {
	mu      sync.Mutex
	updates []Update
}

// NewRecording returns an empty recording reporter.
func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) Report(_ context.Context, u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

// Updates returns a copy of everything reported so far.
func (r *Recording) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Update, len(r.updates))
	copy(out, r.updates)
	return out
}

// Stages returns just the stage labels, in report order.
func (r *Recording) Stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	stages := make([]string, len(r.updates))
	for i, u := range r.updates {
		stages[i] = u.Stage
	}
	return stages
}
