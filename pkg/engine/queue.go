package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

// CopyQueue accumulates planned copies, batched by CopyKey. Keys iterate in the
// order they were first added.
type CopyQueue struct {
	keys    []CopyKey
	batches map[CopyKey]map[string]struct{}
}

// NewCopyQueue creates an empty queue.
func NewCopyQueue() *CopyQueue {
	return &CopyQueue{batches: make(map[CopyKey]map[string]struct{})}
}

// Add queues name for copying from source to target in pocket. Adding the same
// name under the same key twice is a no-op.
func (q *CopyQueue) Add(name, source, target string, pocket launchpad.Pocket) {
	key := CopyKey{SourceSeries: source, TargetSeries: target, Pocket: pocket}
	names, ok := q.batches[key]
	if !ok {
		names = make(map[string]struct{})
		q.batches[key] = names
		q.keys = append(q.keys, key)
	}
	names[name] = struct{}{}
}

// Keys returns the batch keys in insertion order.
func (q *CopyQueue) Keys() []CopyKey {
	return append([]CopyKey(nil), q.keys...)
}

// Names returns the sorted package names queued under key.
func (q *CopyQueue) Names(key CopyKey) []string {
	names := make([]string, 0, len(q.batches[key]))
	for n := range q.batches[key] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of batch keys.
func (q *CopyQueue) Len() int {
	return len(q.keys)
}

func (q *CopyQueue) reset() {
	q.keys = nil
	q.batches = make(map[CopyKey]map[string]struct{})
}

// QueueCopy adds a planned copy to the engine's queue.
func (e *Engine) QueueCopy(name, source, target string, pocket launchpad.Pocket) {
	e.queue.Add(name, source, target, pocket)
	e.metrics.RecordCopyQueued()
}

// PerformQueuedCopies issues one SyncSources request per non-empty batch into
// the archive identified by ref, then drains the queue. An "already published"
// rejection counts as success. Any other failure aborts and is returned.
func (e *Engine) PerformQueuedCopies(ctx context.Context, ref ArchiveRef) error {
	defer e.queue.reset()
	if e.queue.Len() == 0 {
		return nil
	}

	archive, err := e.cache.GetPPA(ctx, ref)
	if err != nil {
		return err
	}

	for _, key := range e.queue.keys {
		names := e.queue.Names(key)
		if len(names) == 0 {
			continue
		}
		l := e.logger.WithFields(map[string]interface{}{
			"from":   key.SourceSeries,
			"to":     key.TargetSeries,
			"pocket": string(key.Pocket),
		})
		joined := strings.Join(names, ", ")

		if e.dryRun {
			l.Infof("dry run: would copy %s from %s to %s", joined, key.SourceSeries, key.TargetSeries)
			e.metrics.RecordCopyBatch("dry_run")
			continue
		}

		l.Infof("copying %s from %s to %s", joined, key.SourceSeries, key.TargetSeries)
		err := e.service.SyncSources(ctx, archive, launchpad.SyncSourcesRequest{
			SourceNames:     names,
			FromArchiveLink: archive.SelfLink,
			FromSeries:      key.SourceSeries,
			ToSeries:        key.TargetSeries,
			ToPocket:        key.Pocket,
			IncludeBinaries: true,
		})
		if err != nil {
			outcome, kind := ClassifyRejection(err, RejectionAlreadyPublished)
			if outcome == RejectionFatal {
				e.metrics.RecordCopyBatch("failed")
				wrapped := wrapRemoteError("syncSources", key.String(), err)
				e.metrics.RecordError(string(wrapped.Class))
				return wrapped
			}
			l.Infof("%s already published in %s, nothing to copy", joined, key.TargetSeries)
			e.metrics.RecordRejectionIgnored(string(kind))
			e.metrics.RecordCopyBatch("ignored")
			e.publish(telemetry.Event{
				Type:    telemetry.EventTypeRejectionIgnored,
				Message: err.Error(),
				Data:    batchData(key, names, kind),
			})
			continue
		}

		e.metrics.RecordCopyBatch("synced")
		e.publish(telemetry.Event{
			Type:    telemetry.EventTypeCopySynced,
			Message: "synced " + joined + " to " + key.TargetSeries,
			Data:    batchData(key, names, ""),
		})
	}
	return nil
}

func batchData(key CopyKey, names []string, kind RejectionKind) map[string]interface{} {
	data := map[string]interface{}{
		"from":     key.SourceSeries,
		"to":       key.TargetSeries,
		"pocket":   string(key.Pocket),
		"packages": names,
	}
	if kind != "" {
		data["rejection"] = string(kind)
	}
	return data
}
