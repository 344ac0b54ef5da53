package plan

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"slices"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/ir"
	"pipelayout/internal/layout"
	"pipelayout/internal/restree"
)

// SlotKind tags the content of one argument register.
type SlotKind uint8

const (
	SlotLeaf SlotKind = iota + 1
	SlotSpecial
	SlotSpillPointer
	SlotPadding
)

func (k SlotKind) String() string {
	switch k {
	case SlotLeaf:
		return "leaf"
	case SlotSpecial:
		return "special"
	case SlotSpillPointer:
		return "spill_table"
	case SlotPadding:
		return "padding"
	}
	return fmt.Sprintf("slot(%d)", uint8(k))
}

// Slot is one hardware argument register. Multi-word leaves and specials
// occupy consecutive slots, Word counting from zero.
type Slot struct {
	Index   uint32
	Kind    SlotKind
	Leaf    restree.NodeID
	Word    uint32
	Special restree.SpecialValue
}

// SpillEntry is a leaf this function reads from the spill table.
type SpillEntry struct {
	Leaf               restree.NodeID
	ByteOffset         uint32
	SizeInWords        uint32
	AddressTaken       bool
	DynamicallyIndexed bool
}

// Eligible reports whether the entry may live in registers only.
func (e SpillEntry) Eligible() bool {
	return !e.AddressTaken && !e.DynamicallyIndexed
}

// Plan is the argument layout of one function.
type Plan struct {
	Func   ir.FuncID
	Name   string
	Stage  restree.StageKind
	Role   callgraph.Role
	Budget int

	Slots   []Slot
	Spilled []SpillEntry
	// Promoted lists leaves the unspiller moved back into registers.
	Promoted []restree.NodeID
	// NeedsMemory is set when some entry is address-taken or dynamically
	// indexed, or a callee takes the spill pointer, so the spill table must
	// be reachable whatever the packing.
	NeedsMemory bool

	Tree   *restree.Tree
	Region *layout.Region
}

// Free returns the number of unused registers.
func (p *Plan) Free() int {
	return p.Budget - len(p.Slots)
}

// SpillPointer returns the slot of the spill table pointer.
func (p *Plan) SpillPointer() (uint32, bool) {
	for _, s := range p.Slots {
		if s.Kind == SlotSpillPointer {
			return s.Index, true
		}
	}
	return 0, false
}

// LeafSlot returns the first slot of a register-placed leaf.
func (p *Plan) LeafSlot(leaf restree.NodeID) (uint32, bool) {
	for _, s := range p.Slots {
		if s.Kind == SlotLeaf && s.Leaf == leaf && s.Word == 0 {
			return s.Index, true
		}
	}
	return 0, false
}

// SpecialSlot returns the first slot of a special value.
func (p *Plan) SpecialSlot(v restree.SpecialValue) (uint32, bool) {
	for _, s := range p.Slots {
		if s.Kind == SlotSpecial && s.Special == v && s.Word == 0 {
			return s.Index, true
		}
	}
	return 0, false
}

// IsSpilled reports whether leaf is spill-sourced in this plan.
func (p *Plan) IsSpilled(leaf restree.NodeID) bool {
	return slices.ContainsFunc(p.Spilled, func(e SpillEntry) bool { return e.Leaf == leaf })
}

// RegisterLeaves returns register-placed leaves in slot order.
func (p *Plan) RegisterLeaves() []restree.NodeID {
	var out []restree.NodeID
	for _, s := range p.Slots {
		if s.Kind == SlotLeaf && s.Word == 0 {
			out = append(out, s.Leaf)
		}
	}
	return out
}

// Fingerprint hashes the register shape. It names leaves by reference, not by
// node id, so plans over equal trees agree.
func (p *Plan) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	put(uint32(len(p.Slots)))
	for _, s := range p.Slots {
		put(uint32(s.Kind))
		switch s.Kind {
		case SlotLeaf:
			ref := p.Tree.Node(s.Leaf).Ref()
			put(ref.Set)
			put(ref.Binding)
			put(s.Word)
		case SlotSpecial:
			put(uint32(s.Special))
			put(s.Word)
		}
	}
	return h.Sum64()
}

// Describe renders a slot for listings.
func (p *Plan) Describe(s Slot) string {
	switch s.Kind {
	case SlotLeaf:
		n := p.Tree.Node(s.Leaf)
		if n.SizeInWords > 1 {
			return fmt.Sprintf("%s[%d]", n.Ref(), s.Word)
		}
		return n.Ref().String()
	case SlotSpecial:
		if s.Special.Words() > 1 {
			return fmt.Sprintf("%s[%d]", s.Special, s.Word)
		}
		return s.Special.String()
	}
	return s.Kind.String()
}

func (p *Plan) reindex() {
	for i := range p.Slots {
		p.Slots[i].Index = slotIndex(i)
	}
}
