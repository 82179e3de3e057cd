// Package task is a sqlite-backed asynchronous job queue. Tasks survive
// restarts, may depend on one another, and are executed by a worker pool
// against a registry of named handlers.
package task

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Task struct {
	ID      string
	Handler string
	Payload json.RawMessage

	Status Status

	// DependsOn names a task that must complete before this one runs.
	// If the dependency fails, this task fails without running.
	DependsOn string

	Error    string
	Attempts int

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}
