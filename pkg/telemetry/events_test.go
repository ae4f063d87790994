package telemetry

import (
	"testing"
)

func TestEventPublisher(t *testing.T) {
	ep := NewEventPublisher("run-1")

	var all, errorsOnly, copies []Event
	ep.Subscribe(func(e Event) { all = append(all, e) }, nil)
	ep.Subscribe(func(e Event) { errorsOnly = append(errorsOnly, e) }, FilterByLevel(EventLevelError))
	ep.Subscribe(func(e Event) { copies = append(copies, e) }, FilterByType(EventTypeCopyQueued, EventTypeCopySynced))

	ep.Publish(Event{Type: EventTypeCopyQueued, Package: "kolibri-server", Message: "queued"})
	ep.Publish(Event{Type: EventTypeBuildFailed, Level: EventLevelError, Message: "amd64 failed"})
	ep.Publish(Event{Type: EventTypeRejectionIgnored, Level: EventLevelWarning, Message: "obsolete"})

	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if len(errorsOnly) != 1 || errorsOnly[0].Type != EventTypeBuildFailed {
		t.Errorf("unexpected error events: %+v", errorsOnly)
	}
	if len(copies) != 1 || copies[0].Type != EventTypeCopyQueued {
		t.Errorf("unexpected copy events: %+v", copies)
	}

	first := all[0]
	if first.ID == "" || first.Timestamp.IsZero() {
		t.Errorf("expected ID and timestamp to be filled: %+v", first)
	}
	if first.RunID != "run-1" {
		t.Errorf("expected run ID run-1, got %q", first.RunID)
	}
	if first.Level != EventLevelInfo {
		t.Errorf("expected default level info, got %q", first.Level)
	}
	if all[0].ID == all[1].ID {
		t.Error("expected unique event IDs")
	}
}

func TestNilEventPublisher(t *testing.T) {
	var ep *EventPublisher
	// Must not panic.
	ep.Publish(Event{Type: EventTypeCopySynced})
}
