package llm

import (
	"testing"
	"time"
)

func TestStatsSnapshot(t *testing.T) {
	s := NewStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400} {
		s.Record(ms)
	}

	snap := s.Snapshot()
	if snap.Count != 4 {
		t.Fatalf("count = %d, want 4", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 400 {
		t.Errorf("min/max = %d/%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 250 {
		t.Errorf("avg = %v, want 250", snap.AvgMs)
	}
	if snap.P50Ms < 200 || snap.P50Ms > 300 {
		t.Errorf("p50 = %v", snap.P50Ms)
	}
}

func TestStatsEmpty(t *testing.T) {
	snap := NewStats(time.Hour).Snapshot()
	if snap.Count != 0 || snap.AvgMs != 0 {
		t.Errorf("empty snapshot = %+v", snap)
	}
}

func TestStatsNegativeClamped(t *testing.T) {
	s := NewStats(time.Hour)
	s.Record(-50)
	if snap := s.Snapshot(); snap.MinMs != 0 {
		t.Errorf("negative duration must clamp to 0, got %d", snap.MinMs)
	}
}

func TestPercentile(t *testing.T) {
	vals := []int64{10, 20, 30, 40, 50}
	if got := percentile(vals, 0); got != 10 {
		t.Errorf("p0 = %v", got)
	}
	if got := percentile(vals, 100); got != 50 {
		t.Errorf("p100 = %v", got)
	}
	if got := percentile(vals, 50); got != 30 {
		t.Errorf("p50 = %v", got)
	}
}
