package plan

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/ir"
	"pipelayout/internal/layout"
	"pipelayout/internal/restree"
	"pipelayout/internal/usage"
)

// Planner packs effective usage into argument registers.
type Planner struct {
	Tree   *restree.Tree
	Region *layout.Region
}

// Plan computes the layout of one frozen call-graph node. Libraries always get
// the maximal shape; entry points get their used leaves in tree order up to
// the budget, the rest spilled. Callee plans are not consulted; use All to
// give callers of pointer-taking callees a spill pointer.
func (pl *Planner) Plan(node *callgraph.Node) (*Plan, error) {
	return pl.plan(node, false)
}

func (pl *Planner) plan(node *callgraph.Node, forwardsPointer bool) (*Plan, error) {
	prof := node.Profile
	p := &Plan{
		Func:   node.Func.ID,
		Name:   node.Func.Name,
		Stage:  node.Stage,
		Role:   node.Role,
		Budget: prof.Budget,
		Tree:   pl.Tree,
		Region: pl.Region,
	}
	eff := node.Effective

	for i, n := 0, prof.FixedWords(); i < n; i++ {
		p.Slots = append(p.Slots, Slot{Kind: SlotPadding, Leaf: restree.NoNodeID})
	}
	for _, f := range prof.Fixed {
		for w, n := uint32(0), f.Value.Words(); w < n; w++ {
			p.Slots[f.Slot+w] = Slot{Kind: SlotSpecial, Leaf: restree.NoNodeID, Word: w, Special: f.Value}
		}
	}
	for _, e := range eff.Specials() {
		if _, fixed := prof.FixedSlot(e.Special); fixed {
			continue
		}
		p.appendSpecial(e.Special)
	}
	if needed := len(p.Slots) + 1; needed > p.Budget {
		return nil, &OverflowError{Func: p.Name, Stage: p.Stage, Needed: needed, Budget: p.Budget}
	}

	leaves := eff.Leaves(pl.Tree)
	p.NeedsMemory = forwardsPointer
	for _, e := range leaves {
		if e.NeedsMemory() {
			p.NeedsMemory = true
		}
	}

	if lib, ok := node.Role.(callgraph.Library); ok {
		pl.packLibrary(p, lib.Reach, leaves)
	} else {
		pl.packEntry(p, leaves)
	}
	p.reindex()
	return p, nil
}

// packLibrary reserves min(superset words, free - 1) resource registers,
// fills them with a tree-order prefix and pads the remainder. The superset is
// every leaf visible to reach; leaves outside it are always spilled. The
// spill pointer is always the final slot.
func (pl *Planner) packLibrary(p *Plan, reach restree.StageMask, leaves []usage.Entry) {
	var superset int
	for _, e := range leaves {
		if callgraph.InReach(pl.Tree, reach, e.Leaf) {
			superset += int(pl.Tree.Node(e.Leaf).SizeInWords)
		}
	}
	reserved := min(superset, p.Budget-len(p.Slots)-1)

	used := 0
	cutoff := false
	for _, e := range leaves {
		size := int(pl.Tree.Node(e.Leaf).SizeInWords)
		if !callgraph.InReach(pl.Tree, reach, e.Leaf) {
			p.spill(e)
			continue
		}
		if !cutoff && used+size <= reserved {
			p.appendLeaf(e.Leaf)
			used += size
			continue
		}
		cutoff = true
		p.spill(e)
	}
	for ; used < reserved; used++ {
		p.Slots = append(p.Slots, Slot{Kind: SlotPadding, Leaf: restree.NoNodeID})
	}
	p.appendPointer()
}

// packEntry places leaves one register per word until the next one would
// pass budget-1; that leaf and all later ones are spilled.
func (pl *Planner) packEntry(p *Plan, leaves []usage.Entry) {
	limit := p.Budget - 1
	cutoff := false
	for _, e := range leaves {
		size := int(pl.Tree.Node(e.Leaf).SizeInWords)
		if !cutoff && len(p.Slots)+size <= limit {
			p.appendLeaf(e.Leaf)
			continue
		}
		cutoff = true
		p.spill(e)
	}
	if len(p.Spilled) > 0 || p.NeedsMemory {
		p.appendPointer()
	}
}

func (p *Plan) appendLeaf(leaf restree.NodeID) {
	for w, n := uint32(0), p.Tree.Node(leaf).SizeInWords; w < n; w++ {
		p.Slots = append(p.Slots, Slot{Kind: SlotLeaf, Leaf: leaf, Word: w})
	}
}

func (p *Plan) appendSpecial(v restree.SpecialValue) {
	for w, n := uint32(0), v.Words(); w < n; w++ {
		p.Slots = append(p.Slots, Slot{Kind: SlotSpecial, Leaf: restree.NoNodeID, Word: w, Special: v})
	}
}

func (p *Plan) appendPointer() {
	p.Slots = append(p.Slots, Slot{Kind: SlotSpillPointer, Leaf: restree.NoNodeID})
}

func (p *Plan) spill(e usage.Entry) {
	re, ok := p.Region.Lookup(e.Leaf)
	if !ok {
		panic(&layout.RegionError{Kind: layout.RegionErrUnknownLeaf, Leaf: e.Leaf})
	}
	p.Spilled = append(p.Spilled, SpillEntry{
		Leaf:               e.Leaf,
		ByteOffset:         re.ByteOffset,
		SizeInWords:        re.SizeInWords,
		AddressTaken:       e.AddressTaken,
		DynamicallyIndexed: e.DynamicallyIndexed,
	})
}

// All plans every node of g, callees before callers, and unspills entry
// points. A caller of a function whose final plan takes the spill pointer
// keeps one of its own to pass along. Overflow errors of all functions are
// joined in id order.
func (pl *Planner) All(g *callgraph.Graph) ([]*Plan, error) {
	plans := make([]*Plan, len(g.Nodes))
	errs := make([]error, len(g.Nodes))
	for i := len(g.Order) - 1; i >= 0; i-- {
		id := g.Order[i]
		node := &g.Nodes[id]
		p, err := pl.plan(node, takesPointer(plans, node.Callees))
		if err != nil {
			errs[id] = err
			continue
		}
		Unspill(p)
		plans[id] = p
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return plans, nil
}

func takesPointer(plans []*Plan, callees []ir.FuncID) bool {
	for _, c := range callees {
		if plans[c] == nil {
			continue
		}
		if _, ok := plans[c].SpillPointer(); ok {
			return true
		}
	}
	return false
}

func slotIndex(i int) uint32 {
	idx, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("slot index overflow: %w", err))
	}
	return idx
}
