package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a notable engine action, recorded in run history.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// RunID is the run that produced the event.
	RunID string `json:"run_id,omitempty"`

	// Package and Version identify the source package concerned, if any.
	Package string `json:"package,omitempty"`
	Version string `json:"version,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants.
const (
	EventTypeCopyQueued       = "copy.queued"
	EventTypeCopySynced       = "copy.synced"
	EventTypeCopyDeferred     = "copy.deferred"
	EventTypeRejectionIgnored = "rejection.ignored"
	EventTypePromotionCopied  = "promotion.copied"
	EventTypeBuildFailed      = "build.failed"
	EventTypeBuildsSucceeded  = "builds.succeeded"
	EventTypeWaitTimedOut     = "wait.timed_out"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be delivered to a subscriber.
type EventFilter func(event Event) bool

// EventPublisher delivers events synchronously to its subscribers, in
// subscription order. A nil *EventPublisher drops every event.
type EventPublisher struct {
	runID       string
	subscribers []subscriberEntry
	mu          sync.RWMutex
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a publisher that stamps every event with runID.
func NewEventPublisher(runID string) *EventPublisher {
	return &EventPublisher{runID: runID}
}

// Publish fills in ID, timestamp and run ID, then delivers the event.
func (ep *EventPublisher) Publish(event Event) {
	if ep == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = ep.runID
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()
	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Subscribe adds a new event subscriber. filter may be nil.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}
