package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"pipelayout/internal/diag"
)

// Pretty renders diagnostics one per line, in bag order (callers sort first):
//
//	<site>: <SEV> <CODE>: <message>
//	    note: <site>: <message>
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	items := bag.Items()
	limit := len(items)
	if opts.Max > 0 && opts.Max < limit {
		limit = opts.Max
	}
	for _, d := range items[:limit] {
		if err := prettyOne(w, d, opts); err != nil {
			return err
		}
	}
	if hidden := len(items) - limit; hidden > 0 {
		if _, err := fmt.Fprintf(w, "... %d more diagnostic(s) not shown\n", hidden); err != nil {
			return err
		}
	}
	return nil
}

func prettyOne(w io.Writer, d diag.Diagnostic, opts PrettyOpts) error {
	sev := sevColor(d.Severity, opts.Color)
	code := newColor(opts.Color, color.Bold)
	site := newColor(opts.Color, color.Faint)

	prefix := ""
	if !d.Primary.IsZero() {
		prefix = site.Sprint(d.Primary.String()) + ": "
	}
	if _, err := fmt.Fprintf(w, "%s%s %s: %s\n", prefix, sev.Sprint(d.Severity.Label()), code.Sprint(d.Code.ID()), d.Message); err != nil {
		return err
	}
	if !opts.ShowNotes {
		return nil
	}
	note := newColor(opts.Color, color.FgCyan)
	for _, n := range d.Notes {
		loc := ""
		if !n.Site.IsZero() {
			loc = n.Site.String() + ": "
		}
		if _, err := fmt.Fprintf(w, "    %s %s%s\n", note.Sprint("note:"), loc, n.Msg); err != nil {
			return err
		}
	}
	return nil
}

func sevColor(sev diag.Severity, enabled bool) *color.Color {
	switch sev {
	case diag.SevError:
		return newColor(enabled, color.FgRed, color.Bold)
	case diag.SevWarning:
		return newColor(enabled, color.FgYellow, color.Bold)
	default:
		return newColor(enabled, color.FgBlue)
	}
}

func newColor(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
