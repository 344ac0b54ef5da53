package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"pipelayout/internal/layout"
	"pipelayout/internal/metadata"
	"pipelayout/internal/pipeline"
	"pipelayout/internal/plan"
)

type styles struct {
	title lipgloss.Style
	head  lipgloss.Style
	faint lipgloss.Style
	spill lipgloss.Style
}

func newStyles(enabled bool) styles {
	if !enabled {
		plain := lipgloss.NewStyle()
		return styles{title: plain, head: plain, faint: plain, spill: plain}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		head:  lipgloss.NewStyle().Bold(true),
		faint: lipgloss.NewStyle().Faint(true),
		spill: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// table lays out rows in left-aligned columns sized by display width.
type table struct {
	rows [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer, indent string, head lipgloss.Style) error {
	var widths []int
	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for r, row := range t.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i < len(row)-1 {
				cell = runewidth.FillRight(cell, widths[i])
			}
			cells[i] = cell
		}
		line := indent + strings.Join(cells, "  ")
		if r == 0 {
			line = head.Render(line)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func renderResult(w io.Writer, res *pipeline.Result, st styles) error {
	if _, err := fmt.Fprintf(w, "%s  %s\n", st.title.Render("pipeline "+res.Name),
		st.faint.Render(fmt.Sprintf("spill table %d bytes, %d functions", res.Region.SizeBytes, len(res.Plans)))); err != nil {
		return err
	}
	for _, p := range res.Plans {
		if err := renderPlan(w, p, st); err != nil {
			return err
		}
	}
	return nil
}

func renderPlan(w io.Writer, p *plan.Plan, st styles) error {
	header := fmt.Sprintf("  %s  %s %s  %d/%d registers", p.Name, p.Role, p.Stage, len(p.Slots), p.Budget)
	if _, err := fmt.Fprintln(w, st.head.Render(header)); err != nil {
		return err
	}
	if len(p.Slots) > 0 {
		var t table
		t.add("slot", "kind", "value")
		for _, s := range p.Slots {
			t.add(fmt.Sprintf("s%d", s.Index), s.Kind.String(), p.Describe(s))
		}
		if err := t.render(w, "    ", st.faint); err != nil {
			return err
		}
	}
	if len(p.Spilled) > 0 {
		var t table
		t.add("spilled", "offset", "words", "flags")
		for _, e := range p.Spilled {
			var flags []string
			if e.AddressTaken {
				flags = append(flags, "addr")
			}
			if e.DynamicallyIndexed {
				flags = append(flags, "dynamic")
			}
			t.add(p.Tree.Node(e.Leaf).Ref().String(), fmt.Sprintf("0x%x", e.ByteOffset),
				fmt.Sprint(e.SizeInWords), strings.Join(flags, ","))
		}
		if err := t.render(w, "    ", st.spill); err != nil {
			return err
		}
	}
	if len(p.Promoted) > 0 {
		refs := make([]string, len(p.Promoted))
		for i, leaf := range p.Promoted {
			refs[i] = p.Tree.Node(leaf).Ref().String()
		}
		if _, err := fmt.Fprintf(w, "    %s\n", st.faint.Render("promoted: "+strings.Join(refs, ", "))); err != nil {
			return err
		}
	}
	return nil
}

func renderBlob(w io.Writer, b *metadata.Blob, st styles) error {
	if _, err := fmt.Fprintf(w, "%s  %s\n", st.title.Render("pipeline "+b.Pipeline),
		st.faint.Render(fmt.Sprintf("target %s, metadata %s", b.Target, b.Version))); err != nil {
		return err
	}
	for _, s := range b.Stages {
		threshold := "none"
		if s.SpillThreshold != metadata.NoSpill {
			threshold = fmt.Sprint(s.SpillThreshold)
		}
		header := fmt.Sprintf("  %s  entry %s  user data limit %d  spill threshold %s", s.Stage, s.Entry, s.UserDataLimit, threshold)
		if _, err := fmt.Fprintln(w, st.head.Render(header)); err != nil {
			return err
		}
		if err := renderRegMap(w, b, s.UserDataRegMap, st); err != nil {
			return err
		}
	}
	if len(b.SpillTable.Entries) > 0 {
		header := fmt.Sprintf("  spill table  %d bytes", b.SpillTable.SizeBytes)
		if _, err := fmt.Fprintln(w, st.head.Render(header)); err != nil {
			return err
		}
		var t table
		t.add("ref", "dword", "words")
		for _, e := range b.SpillTable.Entries {
			t.add(e.Ref, fmt.Sprint(e.ByteOffset/layout.WordBytes), fmt.Sprint(e.SizeInWords))
		}
		if err := t.render(w, "    ", st.faint); err != nil {
			return err
		}
	}
	for _, lib := range b.Libraries {
		header := fmt.Sprintf("  library %s  reach %s  fingerprint %016x", lib.Name, lib.Reach, lib.Fingerprint)
		if _, err := fmt.Fprintln(w, st.head.Render(header)); err != nil {
			return err
		}
		if err := renderRegMap(w, b, lib.UserDataRegMap, st); err != nil {
			return err
		}
	}
	return nil
}

func renderRegMap(w io.Writer, b *metadata.Blob, regs []uint32, st styles) error {
	var t table
	t.add("reg", "tag", "value")
	for i, tag := range regs {
		t.add(fmt.Sprintf("r%d", i), fmt.Sprintf("0x%08x", tag), b.ResolveTag(tag))
	}
	return t.render(w, "    ", st.faint)
}
