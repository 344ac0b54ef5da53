package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"pipelayout/internal/metadata"
	"pipelayout/internal/pipeline"
)

func TestReadProgressView(t *testing.T) {
	tests := []struct {
		value string
		jobs  int
		tty   bool
		want  progressView
	}{
		{value: "", jobs: 3, tty: true, want: viewTUI},
		{value: "AUTO", jobs: 1, tty: true, want: viewNone},
		{value: "auto", jobs: 3, tty: false, want: viewNone},
		{value: " on ", jobs: 1, want: viewTUI},
		{value: "lines", jobs: 2, tty: true, want: viewLines},
		{value: "off", jobs: 4, tty: true, want: viewNone},
	}
	for _, tt := range tests {
		got, err := readProgressView(tt.value, tt.jobs, tt.tty)
		if err != nil || got != tt.want {
			t.Fatalf("readProgressView(%q, %d, %v) = %d, %v; want %d", tt.value, tt.jobs, tt.tty, got, err, tt.want)
		}
	}
	if _, err := readProgressView("sometimes", 1, true); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
}

func TestLineSink(t *testing.T) {
	var buf bytes.Buffer
	sink := &lineSink{w: &buf}
	sink.OnEvent(pipeline.Event{Status: pipeline.StatusDone})
	sink.OnEvent(pipeline.Event{Job: "forward", Status: pipeline.StatusQueued})
	sink.OnEvent(pipeline.Event{Job: "forward", Pass: pipeline.PassPlan, Status: pipeline.StatusWorking})
	sink.OnEvent(pipeline.Event{Job: "forward", Status: pipeline.StatusError, Err: errors.New("boom")})
	want := "forward: plan\nforward: failed: boom\n"
	if buf.String() != want {
		t.Fatalf("lines = %q, want %q", buf.String(), want)
	}
}

func TestColorEnabled(t *testing.T) {
	if on, err := colorEnabled("on"); err != nil || !on {
		t.Fatalf("on = %v, %v", on, err)
	}
	if on, err := colorEnabled("off"); err != nil || on {
		t.Fatalf("off = %v, %v", on, err)
	}
	if _, err := colorEnabled("rainbow"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTableAlignsByDisplayWidth(t *testing.T) {
	var tb table
	tb.add("ref", "dword")
	tb.add("set0/b0", "0")
	tb.add("ß", "12")
	var buf bytes.Buffer
	if err := tb.render(&buf, "  ", newStyles(false).head); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "  ref      dword\n  set0/b0  0\n  ß        12\n"
	if got := buf.String(); got != want {
		t.Fatalf("table:\n%q\nwant:\n%q", got, want)
	}
}

func TestPlanAndEmitTestdata(t *testing.T) {
	path := filepath.Join("testdata", "forward.toml")
	reqs, bag := loadRequests([]string{path, filepath.Join("testdata", "missing.toml")}, 0)
	if len(reqs) != 1 || bag.Len() != 1 || !bag.HasErrors() {
		t.Fatalf("reqs = %d, diagnostics = %s", len(reqs), bag.Short())
	}
	if got := bag.Items()[0].Code.ID(); got != "IO7001" {
		t.Fatalf("missing file code = %s", got)
	}

	results, err := pipeline.RunJobs(context.Background(), reqs, pipeline.Options{Check: true})
	if err != nil {
		t.Fatalf("run jobs: %v", err)
	}
	res := results[0]
	if res.Err != nil {
		t.Fatalf("job failed: %v\n%s", res.Err, res.Bag.Short())
	}

	var out bytes.Buffer
	if err := renderResult(&out, res, newStyles(false)); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"pipeline forward", "vs_main", "fs_main", "shade", "spill_table"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("plan output misses %q:\n%s", want, out.String())
		}
	}

	file := filepath.Join(t.TempDir(), "forward.mpk")
	if err := metadata.WriteFile(file, res.Blob); err != nil {
		t.Fatalf("write: %v", err)
	}
	blob, err := metadata.ReadFile(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out.Reset()
	if err := renderBlob(&out, blob, newStyles(false)); err != nil {
		t.Fatalf("render blob: %v", err)
	}
	for _, want := range []string{"entry vs_main", "entry fs_main", "library shade", "spill table"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("inspect output misses %q:\n%s", want, out.String())
		}
	}
}
