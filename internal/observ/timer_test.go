package observ

import (
	"strings"
	"sync"
	"testing"
)

func TestReportAggregatesByName(t *testing.T) {
	tm := NewTimer()
	for _, name := range []string{"usage", "plan", "usage"} {
		tm.End(tm.Begin(name), "")
	}
	tm.End(tm.Begin("metadata"), "7 stages")

	r := tm.Report()
	var names []string
	for _, p := range r.Phases {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "usage,plan,metadata" {
		t.Fatalf("phases = %v", names)
	}
	if r.Phases[2].Note != "7 stages" {
		t.Fatalf("note = %q", r.Phases[2].Note)
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("total %f below a phase %f", r.TotalMS, r.Phases[0].DurationMS)
	}
}

func TestNotesCountRuns(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("plan"), "a")
	tm.End(tm.Begin("plan"), "b")
	if got := tm.Report().Phases[0].Note; got != "2 runs" {
		t.Fatalf("note = %q", got)
	}
}

func TestTimerIsConcurrencySafe(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin("job"), "")
		}()
	}
	wg.Wait()
	if got := len(tm.Report().Phases); got != 1 {
		t.Fatalf("phases = %d", got)
	}
}

func TestNilTimerAndSummary(t *testing.T) {
	var nilTimer *Timer
	if idx := nilTimer.Begin("x"); idx != -1 {
		t.Fatalf("nil Begin = %d", idx)
	}
	nilTimer.End(0, "")

	tm := NewTimer()
	tm.End(tm.Begin("rewrite"), "")
	tm.End(99, "ignored")
	s := tm.Summary()
	if !strings.HasPrefix(s, "timings:\n  rewrite") || !strings.Contains(s, "  total") {
		t.Fatalf("summary = %q", s)
	}
}
