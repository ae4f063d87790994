package stores

import (
	"context"
	"fmt"
	"time"
)

// RunStatus represents the status of a recorded command run.
type RunStatus string

const (
	// RunStatusRunning indicates the command has not finished.
	RunStatusRunning RunStatus = "running"

	// RunStatusSucceeded indicates the command exited 0.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusFailed indicates the command finished with exit code 1, such as
	// a failed build or a timeout.
	RunStatusFailed RunStatus = "failed"

	// RunStatusError indicates the command aborted on an error.
	RunStatusError RunStatus = "error"
)

// IsTerminal returns true if the run status represents a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed || s == RunStatusError
}

// Validate checks if the run status is valid.
func (s RunStatus) Validate() error {
	switch s {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed, RunStatusError:
		return nil
	default:
		return fmt.Errorf("invalid run status: %s", s)
	}
}

// EventLevel represents the severity level of an event
type EventLevel string

const (
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Run is one invocation of a ppactl command.
type Run struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	Args        string     `json:"args"`
	DryRun      bool       `json:"dry_run"`
	Status      RunStatus  `json:"status"`
	ExitCode    *int       `json:"exit_code,omitempty"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Event is an engine event recorded during a run.
type Event struct {
	ID        int64      `json:"id"`
	EventID   string     `json:"event_id"`
	RunID     string     `json:"run_id"`
	Type      string     `json:"type"`
	Level     EventLevel `json:"level"`
	Package   string     `json:"package,omitempty"`
	Version   string     `json:"version,omitempty"`
	Message   string     `json:"message"`
	Details   string     `json:"details"` // JSON blob
	Timestamp time.Time  `json:"timestamp"`
}

// EventFilter narrows GetEvents. Empty fields match everything.
type EventFilter struct {
	RunID   string
	Package string
	Level   EventLevel
}

// Store records run history. It is an audit log only.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Runs
	CreateRun(ctx context.Context, run *Run) error
	CompleteRun(ctx context.Context, id string, status RunStatus, exitCode int, errMsg *string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)

	// Events
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]*Event, error)

	// Health
	HealthCheck(ctx context.Context) error
}
