package usage

import (
	"fmt"
	"slices"

	"pipelayout/internal/restree"
)

// KeyKind tells whether a usage key names a leaf or a special value.
type KeyKind uint8

const (
	KeyLeaf KeyKind = iota + 1
	KeySpecial
)

// Key identifies one piece of pipeline-supplied data.
type Key struct {
	Kind    KeyKind
	Leaf    restree.NodeID
	Special restree.SpecialValue
}

// LeafKey builds a key for a resource leaf.
func LeafKey(id restree.NodeID) Key {
	return Key{Kind: KeyLeaf, Leaf: id, Special: 0}
}

// SpecialKey builds a key for a special value.
func SpecialKey(v restree.SpecialValue) Key {
	return Key{Kind: KeySpecial, Leaf: restree.NoNodeID, Special: v}
}

func (k Key) String() string {
	if k.Kind == KeySpecial {
		return k.Special.String()
	}
	return fmt.Sprintf("node#%d", k.Leaf)
}

// Entry is a key plus how the function accesses it.
type Entry struct {
	Key
	AddressTaken       bool
	DynamicallyIndexed bool
}

// NeedsMemory reports whether the entry must have a backing memory image.
func (e Entry) NeedsMemory() bool {
	return e.AddressTaken || e.DynamicallyIndexed
}

// Mask is the set of data a function uses. The zero value is empty and
// ready to use.
type Mask struct {
	entries map[Key]Entry
}

// NewMask returns an empty mask.
func NewMask() *Mask {
	return &Mask{entries: make(map[Key]Entry)}
}

// Add inserts e, OR-ing flags with an existing entry.
func (m *Mask) Add(e Entry) {
	if m.entries == nil {
		m.entries = make(map[Key]Entry)
	}
	if prev, ok := m.entries[e.Key]; ok {
		e.AddressTaken = e.AddressTaken || prev.AddressTaken
		e.DynamicallyIndexed = e.DynamicallyIndexed || prev.DynamicallyIndexed
	}
	m.entries[e.Key] = e
}

// Union adds every entry of other.
func (m *Mask) Union(other *Mask) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		m.Add(e)
	}
}

// Clone returns an independent copy.
func (m *Mask) Clone() *Mask {
	out := NewMask()
	out.Union(m)
	return out
}

// Get returns the entry for k.
func (m *Mask) Get(k Key) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	e, ok := m.entries[k]
	return e, ok
}

// Has reports whether k is in the mask.
func (m *Mask) Has(k Key) bool {
	_, ok := m.Get(k)
	return ok
}

// Remove deletes k.
func (m *Mask) Remove(k Key) {
	if m == nil {
		return
	}
	delete(m.entries, k)
}

// Len returns the number of entries.
func (m *Mask) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Specials returns special-value entries in enum order.
func (m *Mask) Specials() []Entry {
	if m == nil {
		return nil
	}
	var out []Entry
	for _, e := range m.entries {
		if e.Kind == KeySpecial {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return int(a.Special) - int(b.Special) })
	return out
}

// Leaves returns leaf entries in tree order.
func (m *Mask) Leaves(tree *restree.Tree) []Entry {
	if m == nil {
		return nil
	}
	var out []Entry
	for _, e := range m.entries {
		if e.Kind == KeyLeaf {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return tree.Rank(a.Leaf) - tree.Rank(b.Leaf) })
	return out
}

// Sorted returns specials in enum order followed by leaves in tree order.
func (m *Mask) Sorted(tree *restree.Tree) []Entry {
	return append(m.Specials(), m.Leaves(tree)...)
}

// LeafWords sums the size of every leaf entry.
func (m *Mask) LeafWords(tree *restree.Tree) uint32 {
	var total uint32
	for _, e := range m.Leaves(tree) {
		total += tree.Node(e.Leaf).SizeInWords
	}
	return total
}

// Equal reports whether both masks hold the same entries and flags.
func (m *Mask) Equal(other *Mask) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m == nil {
		return true
	}
	for k, e := range m.entries {
		o, ok := other.entries[k]
		if !ok || o != e {
			return false
		}
	}
	return true
}
