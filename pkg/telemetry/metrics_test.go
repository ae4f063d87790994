package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// counterValue sums every series of the named counter.
func counterValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(DefaultConfig().Metrics)

	m.RecordRunStarted("promote")
	m.RecordRunCompleted("promote", "succeeded", time.Second)
	m.RecordAPICall("copyPackage", 10*time.Millisecond)
	m.RecordAPICall("copyPackage", 20*time.Millisecond)
	m.RecordAPIError("copyPackage")
	m.RecordCopyQueued()
	m.RecordCopyBatch("synced")
	m.RecordPromotion("copied")
	m.RecordRejectionIgnored("obsolete-series")
	m.RecordError("permanent")
	m.RecordWaitPoll()
	m.RecordWaitOutcome("succeeded")

	tests := []struct {
		name string
		want float64
	}{
		{"ppactl_runs_started_total", 1},
		{"ppactl_runs_completed_total", 1},
		{"ppactl_api_calls_total", 2},
		{"ppactl_api_errors_total", 1},
		{"ppactl_copies_queued_total", 1},
		{"ppactl_copy_batches_total", 1},
		{"ppactl_promotions_total", 1},
		{"ppactl_rejections_ignored_total", 1},
		{"ppactl_errors_by_class_total", 1},
		{"ppactl_wait_polls_total", 1},
		{"ppactl_wait_outcomes_total", 1},
	}
	for _, tt := range tests {
		if got := counterValue(t, m, tt.name); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.RecordRunStarted("promote")
	m.RecordAPICall("getBuilds", time.Second)
	m.RecordCopyBatch("synced")
	m.RecordWaitOutcome("failed")
	if err := m.WriteTextfile(); err != nil {
		t.Errorf("WriteTextfile on nil metrics: %v", err)
	}
	if _, err := m.Gatherer().Gather(); err != nil {
		t.Errorf("Gather on nil metrics: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	cfg := DefaultConfig().Metrics
	cfg.Textfile = filepath.Join(t.TempDir(), "ppactl.prom")
	m := NewMetrics(cfg)
	m.RecordPromotion("copied")

	if err := m.WriteTextfile(); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(cfg.Textfile)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), `ppactl_promotions_total{outcome="copied"} 1`) {
		t.Errorf("unexpected textfile contents:\n%s", data)
	}
}
