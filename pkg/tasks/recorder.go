package tasks

import (
	"context"
	"sync"
)

// Recorder is a Submitter that only remembers what it was given
type Recorder struct {
	mu    sync.Mutex
	tasks []Task

	// Err, when set, is returned by every Submit and nothing is recorded
	Err error
}

// Submit records task
func (r *Recorder) Submit(ctx context.Context, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.tasks = append(r.tasks, task)
	return nil
}

// Tasks returns a copy of the recorded submissions in order
func (r *Recorder) Tasks() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.tasks...)
}

// Count returns how many tasks of kind were submitted
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets every recorded submission
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = nil
}
