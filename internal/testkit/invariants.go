package testkit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/plan"
	"pipelayout/internal/restree"
	"pipelayout/internal/usage"
)

// CheckPlanInvariants verifies a final plan against its call-graph node:
//  1. the slot count stays within the budget and indices are dense
//  2. every effective entry is placed exactly once, in registers or spilled
//  3. multi-word values occupy consecutive slots in word order
//  4. spilled entries keep their region offset
//  5. a spill pointer exists whenever memory is read; libraries end with it
//
// All violations are joined into the returned error.
func CheckPlanInvariants(p *plan.Plan, node *callgraph.Node) error {
	if p == nil || node == nil {
		return fmt.Errorf("nil plan or node")
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{p.Name}, args...)...))
	}

	// 1) budget and indices
	if len(p.Slots) > p.Budget {
		fail("%d slots exceed budget %d", len(p.Slots), p.Budget)
	}
	for i, s := range p.Slots {
		idx, err := safecast.Conv[int](s.Index)
		if err != nil || idx != i {
			fail("slot %d carries index %d", i, s.Index)
		}
	}

	// 2) + 3) placement of each entry
	leafRegs := make(map[restree.NodeID]int)
	specialRegs := make(map[restree.SpecialValue]int)
	pointers := 0
	for i, s := range p.Slots {
		switch s.Kind {
		case plan.SlotLeaf:
			if s.Word == 0 {
				leafRegs[s.Leaf]++
				checkRun(p, i, p.Tree.Node(s.Leaf).SizeInWords, fail)
			}
		case plan.SlotSpecial:
			if s.Word == 0 {
				specialRegs[s.Special]++
				checkRun(p, i, s.Special.Words(), fail)
			}
		case plan.SlotSpillPointer:
			pointers++
		}
	}
	spilled := make(map[restree.NodeID]int)
	for _, e := range p.Spilled {
		spilled[e.Leaf]++
	}

	for _, e := range node.Effective.Leaves(p.Tree) {
		in, out := leafRegs[e.Leaf], spilled[e.Leaf]
		if in+out != 1 {
			fail("%s placed %d times in registers and %d times in memory", p.Tree.Describe(e.Leaf), in, out)
		}
	}
	for leaf := range leafRegs {
		if !node.Effective.Has(usage.LeafKey(leaf)) {
			fail("%s occupies registers but is not used", p.Tree.Describe(leaf))
		}
	}
	for _, e := range node.Effective.Specials() {
		if specialRegs[e.Special] != 1 {
			fail("%s placed %d times", e.Special, specialRegs[e.Special])
		}
	}

	// 4) stable offsets
	for _, e := range p.Spilled {
		re, ok := p.Region.Lookup(e.Leaf)
		if !ok || re.ByteOffset != e.ByteOffset || re.SizeInWords != e.SizeInWords {
			fail("spilled %s at byte %d disagrees with region", p.Tree.Describe(e.Leaf), e.ByteOffset)
		}
	}

	// 5) spill pointer
	if pointers > 1 {
		fail("%d spill pointers", pointers)
	}
	if (len(p.Spilled) > 0 || p.NeedsMemory) && pointers == 0 {
		fail("reads memory without a spill pointer")
	}
	if callgraph.IsLibrary(p.Role) {
		if n := len(p.Slots); n == 0 || p.Slots[n-1].Kind != plan.SlotSpillPointer {
			fail("library shape does not end with the spill pointer")
		}
	}

	return errors.Join(errs...)
}

func checkRun(p *plan.Plan, start int, words uint32, fail func(string, ...any)) {
	first := p.Slots[start]
	for w := uint32(0); w < words; w++ {
		i := start + int(w)
		if i >= len(p.Slots) {
			fail("slot %d: value truncated after %d words", start, w)
			return
		}
		s := p.Slots[i]
		if s.Kind != first.Kind || s.Leaf != first.Leaf || s.Special != first.Special || s.Word != w {
			fail("slot %d: expected word %d of the value starting at slot %d", i, w, start)
			return
		}
	}
}
