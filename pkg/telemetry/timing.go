package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TimingHook adds elapsed time and request counts to every log line:
//
//	elapsed=1.204s since_last=+0.311s requests=7 requests_delta=+2
//
// Indented continuation lines are left alone so they stay attached to the
// line before them.
type TimingHook struct {
	requests func() int64
	now      func() time.Time

	mu           sync.Mutex
	start        time.Time
	last         time.Time
	lastRequests int64
}

// NewTimingHook creates a hook measuring from now. requests reports the
// running request count and may be nil.
func NewTimingHook(requests func() int64) *TimingHook {
	return newTimingHook(requests, time.Now)
}

func newTimingHook(requests func() int64, now func() time.Time) *TimingHook {
	if requests == nil {
		requests = func() int64 { return 0 }
	}
	start := now()
	return &TimingHook{
		requests: requests,
		now:      now,
		start:    start,
		last:     start,
	}
}

// Run implements zerolog.Hook.
func (h *TimingHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if strings.HasPrefix(msg, "  ") {
		return
	}

	h.mu.Lock()
	now := h.now()
	n := h.requests()
	elapsed, delta := now.Sub(h.start), now.Sub(h.last)
	deltaRequests := n - h.lastRequests
	h.last, h.lastRequests = now, n
	h.mu.Unlock()

	e.Str("elapsed", fmt.Sprintf("%.3fs", elapsed.Seconds())).
		Str("since_last", fmt.Sprintf("%+.3fs", delta.Seconds())).
		Int64("requests", n).
		Str("requests_delta", fmt.Sprintf("%+d", deltaRequests))
}
