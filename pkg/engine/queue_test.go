package engine

import (
	"context"
	"reflect"
	"testing"

	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

func TestCopyQueueSetSemantics(t *testing.T) {
	q := NewCopyQueue()
	q.Add("kolibri-server", "jammy", "noble", launchpad.PocketRelease)
	q.Add("kolibri-server", "jammy", "noble", launchpad.PocketRelease)

	if q.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", q.Len())
	}
	key := CopyKey{SourceSeries: "jammy", TargetSeries: "noble", Pocket: launchpad.PocketRelease}
	if names := q.Names(key); len(names) != 1 {
		t.Errorf("expected set of size 1, got %v", names)
	}
}

func TestCopyQueueKeyOrder(t *testing.T) {
	q := NewCopyQueue()
	q.Add("b", "jammy", "noble", launchpad.PocketRelease)
	q.Add("a", "jammy", "focal", launchpad.PocketRelease)
	q.Add("a", "jammy", "noble", launchpad.PocketRelease)
	q.Add("c", "jammy", "noble", launchpad.PocketUpdates)

	want := []CopyKey{
		{SourceSeries: "jammy", TargetSeries: "noble", Pocket: launchpad.PocketRelease},
		{SourceSeries: "jammy", TargetSeries: "focal", Pocket: launchpad.PocketRelease},
		{SourceSeries: "jammy", TargetSeries: "noble", Pocket: launchpad.PocketUpdates},
	}
	if got := q.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if got := q.Names(want[0]); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v, want sorted [a b]", got)
	}
}

func TestPerformQueuedCopiesEmpty(t *testing.T) {
	svc := newFakeService()
	te := newTestEngine(t, svc, nil)

	if err := te.PerformQueuedCopies(context.Background(), testProposed); err != nil {
		t.Fatalf("PerformQueuedCopies failed: %v", err)
	}
	for op, n := range svc.calls {
		t.Errorf("expected no remote calls, got %d %s", n, op)
	}
}

func TestPerformQueuedCopiesBatches(t *testing.T) {
	svc := newFakeService()
	te := newTestEngine(t, svc, nil)

	te.QueueCopy("zeta", "jammy", "noble", launchpad.PocketRelease)
	te.QueueCopy("alpha", "jammy", "noble", launchpad.PocketRelease)
	te.QueueCopy("alpha", "jammy", "focal", launchpad.PocketRelease)

	if err := te.PerformQueuedCopies(context.Background(), testProposed); err != nil {
		t.Fatalf("PerformQueuedCopies failed: %v", err)
	}

	if len(svc.syncCalls) != 2 {
		t.Fatalf("expected 2 sync calls, got %d", len(svc.syncCalls))
	}
	first := svc.syncCalls[0]
	if !reflect.DeepEqual(first.SourceNames, []string{"alpha", "zeta"}) {
		t.Errorf("expected sorted names in one batch, got %v", first.SourceNames)
	}
	if first.FromSeries != "jammy" || first.ToSeries != "noble" || first.ToPocket != launchpad.PocketRelease {
		t.Errorf("unexpected batch key: %+v", first)
	}
	if first.FromArchiveLink != archiveLink(testProposed) || !first.IncludeBinaries {
		t.Errorf("unexpected archive or binaries flag: %+v", first)
	}
	if svc.syncCalls[1].ToSeries != "focal" {
		t.Errorf("expected second batch to target focal, got %s", svc.syncCalls[1].ToSeries)
	}
	if te.Queue().Len() != 0 {
		t.Error("expected queue to be drained")
	}
	if n := len(te.eventsOfType(telemetry.EventTypeCopySynced)); n != 2 {
		t.Errorf("expected 2 synced events, got %d", n)
	}

	// A drained queue is not executed again.
	if err := te.PerformQueuedCopies(context.Background(), testProposed); err != nil {
		t.Fatalf("PerformQueuedCopies failed: %v", err)
	}
	if len(svc.syncCalls) != 2 {
		t.Errorf("expected no further sync calls, got %d", len(svc.syncCalls))
	}
}

func TestPerformQueuedCopiesDryRun(t *testing.T) {
	svc := newFakeService()
	te := newTestEngine(t, svc, func(o *Options) { o.DryRun = true })
	te.QueueCopy("kolibri-server", "jammy", "noble", launchpad.PocketRelease)

	if err := te.PerformQueuedCopies(context.Background(), testProposed); err != nil {
		t.Fatalf("PerformQueuedCopies failed: %v", err)
	}
	if len(svc.syncCalls) != 0 {
		t.Errorf("dry run must not sync, got %d calls", len(svc.syncCalls))
	}
}

func TestPerformQueuedCopiesRejections(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{
			name: "already published is ignored",
			err:  &launchpad.BadRequestError{Message: "kolibri-server 1.0 in noble (same version already published in the target archive)"},
		},
		{
			name:    "other rejection is fatal",
			err:     &launchpad.BadRequestError{Message: "insufficient permissions"},
			wantErr: true,
		},
		{
			name:    "obsolete series is fatal for sync",
			err:     &launchpad.BadRequestError{Message: "precise is obsolete and will not accept new uploads"},
			wantErr: true,
		},
		{
			name:    "server error is fatal",
			err:     &launchpad.APIError{StatusCode: 503},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.syncErr = tt.err
			te := newTestEngine(t, svc, nil)
			te.QueueCopy("kolibri-server", "jammy", "noble", launchpad.PocketRelease)
			te.QueueCopy("kolibri-server", "jammy", "focal", launchpad.PocketRelease)

			err := te.PerformQueuedCopies(context.Background(), testProposed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PerformQueuedCopies error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if len(svc.syncCalls) != 1 {
					t.Errorf("expected abort after first batch, got %d calls", len(svc.syncCalls))
				}
				return
			}
			if len(svc.syncCalls) != 2 {
				t.Errorf("expected both batches attempted, got %d", len(svc.syncCalls))
			}
			if n := len(te.eventsOfType(telemetry.EventTypeRejectionIgnored)); n != 2 {
				t.Errorf("expected 2 rejection events, got %d", n)
			}
		})
	}
}
