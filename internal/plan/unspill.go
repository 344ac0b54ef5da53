package plan

import (
	"slices"

	"pipelayout/internal/callgraph"
)

// Unspill promotes spilled leaves of an entry-point plan into unused
// registers. When every spilled leaf is eligible, no memory image is needed
// otherwise, and they all fit once the spill pointer is released, all of them
// are promoted and the pointer is dropped. Otherwise eligible leaves are
// promoted in tree order, skipping those that do not fit, and placed before
// the spill pointer. Region offsets never change. Returns the number of
// promoted leaves.
func Unspill(p *Plan) int {
	if p == nil || len(p.Spilled) == 0 || callgraph.IsLibrary(p.Role) {
		return 0
	}
	ptr, hasPtr := p.SpillPointer()
	if !hasPtr {
		return 0
	}
	free := p.Free()

	allEligible := !p.NeedsMemory
	var total int
	for _, e := range p.Spilled {
		total += int(e.SizeInWords)
		if !e.Eligible() {
			allEligible = false
		}
	}
	if allEligible && total <= free+1 {
		head := p.Slots[:ptr:ptr]
		tail := slices.Clone(p.Slots[ptr+1:])
		for _, e := range p.Spilled {
			head = appendLeafSlots(head, e)
			p.Promoted = append(p.Promoted, e.Leaf)
		}
		p.Slots = append(head, tail...)
		p.Spilled = nil
		p.reindex()
		return len(p.Promoted)
	}

	var (
		promoted []Slot
		kept     []SpillEntry
	)
	for _, e := range p.Spilled {
		size := int(e.SizeInWords)
		if e.Eligible() && size <= free {
			promoted = appendLeafSlots(promoted, e)
			p.Promoted = append(p.Promoted, e.Leaf)
			free -= size
			continue
		}
		kept = append(kept, e)
	}
	if len(promoted) == 0 {
		return 0
	}
	p.Slots = slices.Insert(p.Slots, int(ptr), promoted...)
	p.Spilled = kept
	p.reindex()
	return len(p.Promoted)
}

func appendLeafSlots(slots []Slot, e SpillEntry) []Slot {
	for w := uint32(0); w < e.SizeInWords; w++ {
		slots = append(slots, Slot{Kind: SlotLeaf, Leaf: e.Leaf, Word: w})
	}
	return slots
}
