package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned when the task buffer has no free slot
	ErrQueueFull = errors.New("task queue is full")

	// ErrPoolStopped is returned for submissions after Stop
	ErrPoolStopped = errors.New("task pool is stopped")
)

// Kind identifies a background task type
type Kind string

const (
	KindStorageCheck    Kind = "storage-check"
	KindSentinelCheck   Kind = "sentinel-check"
	KindLogDrainInstall Kind = "log-drain-install"
)

// Task is a fire-and-forget unit of work targeting one server
type Task struct {
	ID          string
	Kind        Kind
	ServerID    string
	SubmittedAt time.Time
}

// New creates a task with a fresh ID
func New(kind Kind, serverID string) Task {
	return Task{
		ID:          uuid.New().String(),
		Kind:        kind,
		ServerID:    serverID,
		SubmittedAt: time.Now(),
	}
}

// Submitter accepts background tasks. Submit returns once the task is
// accepted; the caller never observes its outcome.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// Handler executes one task
type Handler func(ctx context.Context, task Task) error
