// Package store defines the run ledger: persisted records of compiled
// schedules and their executions, plus the per-node events a run emitted.
package store

import (
	"context"
	"time"
)

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunExecuting RunStatus = "executing"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one compile-and-execute cycle.
type Run struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Scheme     string        `json:"scheme"`
	Status     RunStatus     `json:"status"`
	Nodes      int           `json:"nodes"`
	Primitives int           `json:"primitives"`
	// Document is the compiled schedule document, as JSON.
	Document []byte        `json:"document,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is one observation from a node during a run.
type Event struct {
	ID    int64  `json:"id"`
	RunID string `json:"run_id"`
	Node  string `json:"node"`
	// Kind is one of state_change, entanglement, correction, failure.
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	// At is the virtual time of the observation.
	At        time.Duration `json:"at"`
	CreatedAt time.Time     `json:"created_at"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Status []RunStatus
	Scheme string
	Limit  int
}

// Store is the persistence interface for the run ledger.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	UpdateRun(ctx context.Context, run *Run) error

	RecordEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, runID string) ([]*Event, error)

	Close() error
}
