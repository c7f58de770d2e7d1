package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordRequest("weather", "success")
	r.RecordRequest("weather", "success")
	r.RecordCache("weather", true)
	r.RecordCache("weather", false)
	r.RecordScore("overall", 88.5)

	if got := testutil.ToFloat64(r.requests.WithLabelValues("weather", "success")); got != 2 {
		t.Fatalf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("weather", "hit")); got != 1 {
		t.Fatalf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.scores.WithLabelValues("overall")); got != 88.5 {
		t.Fatalf("overall score = %v, want 88.5", got)
	}
}
