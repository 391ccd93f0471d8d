package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(EntriesSkipped.WithLabelValues("EURUSD", "spike"))
	EntriesSkipped.WithLabelValues("EURUSD", "spike").Inc()
	if got := testutil.ToFloat64(EntriesSkipped.WithLabelValues("EURUSD", "spike")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
	if Result(true) != "ok" || Result(false) != "failed" {
		t.Fatal("unexpected result labels")
	}
}
