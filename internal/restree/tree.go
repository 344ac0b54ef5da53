package restree

import (
	"fmt"

	"fortio.org/safecast"
)

// Tree is the immutable resource mapping of one pipeline. Nodes are stored
// in tree order: sets ascending, bindings ascending, children after their
// table, push-constant ranges last.
type Tree struct {
	nodes  []Node
	top    []NodeID
	leaves []NodeID
	rank   []int
	byRef  map[Ref]NodeID
	sets   []uint32
	pushes []NodeID
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Node returns the node with the given id, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if t == nil || !id.IsValid() || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Lookup resolves a reference.
func (t *Tree) Lookup(r Ref) (NodeID, bool) {
	if t == nil {
		return NoNodeID, false
	}
	id, ok := t.byRef[r]
	return id, ok
}

// Top returns top-level nodes in tree order.
func (t *Tree) Top() []NodeID {
	if t == nil {
		return nil
	}
	return t.top
}

// Leaves returns every leaf in tree order.
func (t *Tree) Leaves() []NodeID {
	if t == nil {
		return nil
	}
	return t.leaves
}

// Sets returns the declared set indices, ascending.
func (t *Tree) Sets() []uint32 {
	if t == nil {
		return nil
	}
	return t.sets
}

// PushConstants returns the push-constant ranges in index order.
func (t *Tree) PushConstants() []NodeID {
	if t == nil {
		return nil
	}
	return t.pushes
}

// Rank returns the tree-order position of a leaf, or -1.
func (t *Tree) Rank(id NodeID) int {
	if t == nil || !id.IsValid() || int(id) >= len(t.rank) {
		return -1
	}
	return t.rank[id]
}

// LeavesVisibleTo returns leaves whose visibility intersects mask, in tree order.
func (t *Tree) LeavesVisibleTo(mask StageMask) []NodeID {
	if t == nil {
		return nil
	}
	out := make([]NodeID, 0, len(t.leaves))
	for _, id := range t.leaves {
		if t.nodes[id].Visibility&mask != 0 {
			out = append(out, id)
		}
	}
	return out
}

// TotalWords returns the summed size of every leaf.
func (t *Tree) TotalWords() uint32 {
	var total uint32
	for _, id := range t.Leaves() {
		total += t.nodes[id].SizeInWords
	}
	return total
}

// Describe renders a node for diagnostics.
func (t *Tree) Describe(id NodeID) string {
	n := t.Node(id)
	if n == nil {
		return fmt.Sprintf("node#%d", id)
	}
	return fmt.Sprintf("%s(%s, %dw)", n.Ref(), n.Kind, n.SizeInWords)
}

func nodeID(i int) NodeID {
	id, err := safecast.Conv[NodeID](i)
	if err != nil || id == NoNodeID {
		panic(fmt.Errorf("resource node id overflow: %d", i))
	}
	return id
}
