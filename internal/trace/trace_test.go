package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		emit  []Scope
	}{
		{LevelOff, nil},
		{LevelError, nil},
		{LevelPhase, []Scope{ScopeDriver, ScopePass}},
		{LevelDetail, []Scope{ScopeDriver, ScopePass, ScopeJob}},
		{LevelDebug, []Scope{ScopeDriver, ScopePass, ScopeJob, ScopeFunc}},
	}
	for _, tc := range cases {
		var got []Scope
		for _, s := range []Scope{ScopeDriver, ScopePass, ScopeJob, ScopeFunc} {
			if tc.level.ShouldEmit(s) {
				got = append(got, s)
			}
		}
		if len(got) != len(tc.emit) {
			t.Fatalf("%s emits %v, want %v", tc.level, got, tc.emit)
		}
		parsed, err := ParseLevel(tc.level.String())
		if err != nil || parsed != tc.level {
			t.Fatalf("ParseLevel(%q) = %v, %v", tc.level, parsed, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("ParseLevel accepted an unknown level")
	}
}

func TestParseModeAndFormat(t *testing.T) {
	for in, want := range map[string]StorageMode{"stream": ModeStream, "RING": ModeRing, "both": ModeBoth} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("file"); err == nil {
		t.Fatalf("ParseMode accepted file")
	}
	for in, want := range map[string]Format{"": FormatAuto, "text": FormatText, "json": FormatNDJSON, "ndjson": FormatNDJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
}

func TestStreamSpansNest(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, job := Start(ctx, ScopeJob, "job:forward")
	_, pass := Start(ctx, ScopePass, "plan")
	pass.WithExtra("funcs", "3").End("")
	_, fn := Start(ctx, ScopeFunc, "fs_main")
	fn.End("")
	job.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{"→ job:forward", "  → plan", "  ← plan {funcs=3}", "← job:forward (ok)"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
	if fn.ID() != 0 {
		t.Fatalf("filtered span got id %d", fn.ID())
	}
}

func TestRingKeepsNewest(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeFunc, name, "", 0, nil)
	}
	snap := r.Snapshot()
	var names []string
	for _, ev := range snap {
		names = append(names, ev.Name)
	}
	if strings.Join(names, ",") != "c,d,e" {
		t.Fatalf("snapshot = %v", names)
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].Seq <= snap[i-1].Seq {
			t.Fatalf("sequence not increasing: %d then %d", snap[i-1].Seq, snap[i].Seq)
		}
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatalf("dump: %v", err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	var ev map[string]any
	if err := json.Unmarshal([]byte(first), &ev); err != nil {
		t.Fatalf("ndjson line %q: %v", first, err)
	}
	if ev["name"] != "c" || ev["kind"] != "point" || ev["scope"] != "func" {
		t.Fatalf("decoded %v", ev)
	}
}

func TestNewSelectsTracer(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Fatalf("LevelOff gave %T, %v", tr, err)
	}

	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, RingSize: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	multi, ok := tr.(*MultiTracer)
	if !ok || multi.Ring() == nil {
		t.Fatalf("ModeBoth gave %T", tr)
	}
	Begin(tr, ScopeDriver, "plan", 0).End("")
	if got := len(multi.Ring().Snapshot()); got != 2 {
		t.Fatalf("ring holds %d events", got)
	}
	if !strings.Contains(buf.String(), "← plan") {
		t.Fatalf("stream output %q", buf.String())
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := New(Config{Level: LevelPhase}); err == nil {
		t.Fatalf("missing mode accepted")
	}
}

func TestFormatTextExtrasSorted(t *testing.T) {
	ev := &Event{Time: time.Unix(0, 0), Seq: 7, Kind: KindPoint, Scope: ScopeJob, Name: "spill", Extra: map[string]string{"b": "2", "a": "1"}}
	got := string(FormatEvent(ev, FormatText))
	if got != "#000007 job    • spill {a=1, b=2}\n" {
		t.Fatalf("text = %q", got)
	}
}

func TestFromContextDefaults(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context has a tracer")
	}
	if ParentID(context.Background()) != 0 {
		t.Fatalf("empty context has a parent span")
	}
}
