package diag

import (
	"cmp"
	"slices"
	"strings"
)

type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag creates a bag holding at most max diagnostics; max <= 0 means no limit.
func NewBag(max int) *Bag {
	if max < 0 {
		max = 0
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(max, 64)),
		max:   max,
	}
}

// Add appends a diagnostic unless the limit is reached.
// Returns false when the diagnostic was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any diagnostic has Severity >= Error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic has Severity >= Warning.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the diagnostics. The slice aliases the bag; do not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends the diagnostics of other, growing the limit when needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if b.max > 0 && len(b.items)+len(other.items) > b.max {
		b.max = len(b.items) + len(other.items)
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics by site, severity (desc) and code for stable output.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(di, dj Diagnostic) int {
		if c := cmp.Compare(di.Primary.Pipeline, dj.Primary.Pipeline); c != 0 {
			return c
		}
		if c := cmp.Compare(di.Primary.Stage, dj.Primary.Stage); c != 0 {
			return c
		}
		if c := cmp.Compare(di.Primary.Func, dj.Primary.Func); c != 0 {
			return c
		}
		if c := cmp.Compare(di.Primary.Ref, dj.Primary.Ref); c != 0 {
			return c
		}
		if di.Severity != dj.Severity {
			return cmp.Compare(dj.Severity, di.Severity)
		}
		if c := cmp.Compare(di.Code, dj.Code); c != 0 {
			return c
		}
		return cmp.Compare(di.Message, dj.Message)
	})
}

// Dedup drops diagnostics repeating an earlier Code+Site+Message.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		site Site
		msg  string
	}
	seen := make(map[key]bool)
	newitems := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		k := key{d.Code, d.Primary, d.Message}
		if seen[k] {
			continue
		}
		seen[k] = true
		newitems = append(newitems, d)
	}
	b.items = newitems
}

// Short renders every diagnostic with Diagnostic.Short, one per line.
func (b *Bag) Short() string {
	lines := make([]string, 0, len(b.items))
	for _, d := range b.items {
		lines = append(lines, d.Short())
	}
	return strings.Join(lines, "\n")
}
