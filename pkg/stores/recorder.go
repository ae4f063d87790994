package stores

import (
	"context"
	"encoding/json"

	"github.com/openfroyo/ppactl/pkg/telemetry"
)

// Recorder returns a subscriber that appends published events to store.
// Write failures are logged and never interrupt the engine.
func Recorder(ctx context.Context, store Store, logger *telemetry.Logger) telemetry.EventSubscriber {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	logger = logger.NewComponentLogger("history")

	return func(e telemetry.Event) {
		details := "{}"
		if len(e.Data) > 0 {
			b, err := json.Marshal(e.Data)
			if err != nil {
				logger.WithError(err).Warnf("failed to encode details of %s event", e.Type)
			} else {
				details = string(b)
			}
		}

		event := &Event{
			EventID:   e.ID,
			RunID:     e.RunID,
			Type:      e.Type,
			Level:     EventLevel(e.Level),
			Package:   e.Package,
			Version:   e.Version,
			Message:   e.Message,
			Details:   details,
			Timestamp: e.Timestamp.UTC(),
		}
		if err := store.AppendEvent(ctx, event); err != nil {
			logger.WithError(err).Warnf("failed to record %s event", e.Type)
		}
	}
}
