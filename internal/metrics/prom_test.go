package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	SetBuildInfo("1.0.0")
	RecordOperation("schedule", "OK_SCHEDULED")
	RecordOperation("schedule", "OK_SCHEDULED")
	SetRegistrySize(3, 1, 4)
	SetNodeLoads(map[int]int{1: 10, 2: 8})
	SetPlanSpread(2)

	if v := testutil.ToFloat64(operations.WithLabelValues("schedule", "OK_SCHEDULED")); v != 2 {
		t.Fatalf("operations: %v", v)
	}
	if v := testutil.ToFloat64(registeredNodes); v != 3 {
		t.Fatalf("nodes: %v", v)
	}
	if v := testutil.ToFloat64(tasks.WithLabelValues("placed")); v != 4 {
		t.Fatalf("placed tasks: %v", v)
	}
	if v := testutil.ToFloat64(nodeLoad.WithLabelValues("1")); v != 10 {
		t.Fatalf("node load: %v", v)
	}
	if v := testutil.ToFloat64(planSpread); v != 2 {
		t.Fatalf("plan spread: %v", v)
	}

	SetNodeLoads(map[int]int{2: 1})
	if n := testutil.CollectAndCount(nodeLoad); n != 1 {
		t.Fatalf("expected stale node series to be dropped, got %d series", n)
	}
	if v := testutil.ToFloat64(buildInfo.WithLabelValues("1.0.0")); v != 1 {
		t.Fatalf("build info: %v", v)
	}
}
