package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"pipelayout/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(0)
	site := diag.Site{Pipeline: "forward", Stage: "vertex", Func: "vs_main"}
	bag.Add(diag.NewError(diag.PlnConfigurationOverflow, site, "needs 18 registers, budget 16").
		WithNote(diag.Site{Pipeline: "forward", Func: "helper"}, "called from here"))
	bag.Add(diag.New(diag.SevInfo, diag.PlnSpilled, site, "set0/b1 spilled"))
	return bag
}

func TestPrettyPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{ShowNotes: true}); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	want := "forward: stage vertex: fn vs_main: error PLN4001: needs 18 registers, budget 16\n" +
		"    note: forward: fn helper: called from here\n" +
		"forward: stage vertex: fn vs_main: info PLN4003: set0/b1 spilled\n"
	if got := buf.String(); got != want {
		t.Fatalf("pretty output:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyColorAndLimit(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{Color: true, Max: 1}); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI sequences in %q", out)
	}
	if strings.Contains(out, "note:") {
		t.Fatalf("notes printed without ShowNotes")
	}
	if !strings.HasSuffix(out, "... 1 more diagnostic(s) not shown\n") {
		t.Fatalf("missing truncation marker in %q", out)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleBag(), JSONOpts{IncludeNotes: true}); err != nil {
		t.Fatalf("json: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d, items = %d", out.Count, len(out.Diagnostics))
	}
	first := out.Diagnostics[0]
	if first.Code != "PLN4001" || first.Severity != "ERROR" || first.Site.Func != "vs_main" {
		t.Fatalf("first = %+v", first)
	}
	if len(first.Notes) != 1 || first.Notes[0].Site.Func != "helper" {
		t.Fatalf("notes = %+v", first.Notes)
	}
}
