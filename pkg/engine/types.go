package engine

import (
	"fmt"
	"time"

	"github.com/openfroyo/ppactl/pkg/launchpad"
)

// Process exit codes returned by the entry points.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ArchiveRef identifies a PPA by owner and name.
type ArchiveRef struct {
	Owner string `yaml:"owner" validate:"required"`
	Name  string `yaml:"name" validate:"required"`
}

// String returns the conventional "~owner/name" form.
func (r ArchiveRef) String() string {
	return fmt.Sprintf("~%s/%s", r.Owner, r.Name)
}

// NameVersion is a source package name and version pair.
type NameVersion struct {
	Name    string
	Version string
}

// String returns "name version".
func (nv NameVersion) String() string {
	return nv.Name + " " + nv.Version
}

// CopyKey identifies one copy batch. All packages queued under the same key are
// synchronized in a single request.
type CopyKey struct {
	SourceSeries string
	TargetSeries string
	Pocket       launchpad.Pocket
}

// String returns "source->target (pocket)".
func (k CopyKey) String() string {
	return fmt.Sprintf("%s->%s (%s)", k.SourceSeries, k.TargetSeries, k.Pocket)
}

// Deadline is an absolute cutoff derived from a start time plus a timeout.
type Deadline struct {
	at time.Time
}

// NewDeadline returns the deadline start+timeout.
func NewDeadline(start time.Time, timeout time.Duration) Deadline {
	return Deadline{at: start.Add(timeout)}
}

// Exceeded reports whether now has reached the deadline.
func (d Deadline) Exceeded(now time.Time) bool {
	return !now.Before(d.at)
}

// At returns the cutoff time.
func (d Deadline) At() time.Time {
	return d.at
}

// WaitState is a state of the build waiter.
type WaitState string

const (
	WaitStateAwaitingSource WaitState = "awaiting_source"
	WaitStatePollingBuilds  WaitState = "polling_builds"
	WaitStateSucceeded      WaitState = "succeeded"
	WaitStateFailed         WaitState = "failed"
	WaitStateTimedOut       WaitState = "timed_out"
)

// IsTerminal returns true if the waiter stops in this state.
func (s WaitState) IsTerminal() bool {
	return s == WaitStateSucceeded || s == WaitStateFailed || s == WaitStateTimedOut
}

// ExitCode maps a terminal wait state to a process exit code.
func (s WaitState) ExitCode() int {
	if s == WaitStateSucceeded {
		return ExitSuccess
	}
	return ExitFailure
}

// Default build wait parameters.
const (
	DefaultWaitInterval = 60 * time.Second
	DefaultWaitTimeout  = 1800 * time.Second
)

// WaitOptions configures WaitForBuilds.
type WaitOptions struct {
	// Archive is where the source is expected. Zero means the proposed archive.
	Archive ArchiveRef

	Package string
	Version string

	// Interval between polls. Zero means DefaultWaitInterval.
	Interval time.Duration

	// Timeout for the whole wait. Zero means DefaultWaitTimeout.
	Timeout time.Duration
}
