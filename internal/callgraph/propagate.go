package callgraph

import (
	"fmt"
	"slices"

	"pipelayout/internal/diag"
	"pipelayout/internal/ir"
	"pipelayout/internal/restree"
	"pipelayout/internal/target"
	"pipelayout/internal/usage"
)

// Propagate resolves the stage and profile of every node, then computes
// observed and effective usage bottom-up. direct is indexed by FuncID.
// Recoverable findings go to r; r may be nil.
func Propagate(g *Graph, tree *restree.Tree, tgt *target.Target, direct []*usage.Mask, r diag.Reporter) error {
	if len(direct) != len(g.Nodes) {
		return fmt.Errorf("usage masks for %d functions, graph has %d", len(direct), len(g.Nodes))
	}

	for _, id := range g.Order {
		if err := g.resolveStage(id, tgt, r); err != nil {
			return err
		}
	}

	for i := len(g.Order) - 1; i >= 0; i-- {
		node := &g.Nodes[g.Order[i]]
		observed := direct[g.Order[i]].Clone()
		for _, callee := range node.Callees {
			observed.Union(g.Nodes[callee].Effective)
		}
		for _, e := range observed.Specials() {
			if !node.Profile.Provides(e.Special) {
				observed.Remove(e.Key)
			}
		}
		node.Direct = direct[g.Order[i]]
		node.Observed = observed

		lib, ok := node.Role.(Library)
		if !ok {
			node.Effective = observed
			continue
		}
		node.Effective = widen(tree, node.Profile, lib.Reach, observed)
		if r == nil {
			continue
		}
		have, want := Words(tree, observed), Words(tree, node.Effective)
		if have < want {
			diag.ReportInfo(r, diag.CgrInconsistentLibraryUsage, diag.Site{Func: node.Func.Name},
				fmt.Sprintf("library observes %d words of data, its shape carries %d", have, want)).Emit()
		}
		for _, e := range observed.Leaves(tree) {
			if !InReach(tree, lib.Reach, e.Leaf) {
				diag.ReportWarning(r, diag.CgrLibraryOutsideReach, diag.Site{Func: node.Func.Name},
					fmt.Sprintf("%s is not visible to %s; it stays in the spill table", tree.Describe(e.Leaf), lib.Reach)).Emit()
			}
		}
	}
	return nil
}

func (g *Graph) resolveStage(id ir.FuncID, tgt *target.Target, r diag.Reporter) error {
	node := &g.Nodes[id]
	f := node.Func
	switch role := node.Role.(type) {
	case Library:
		node.Reach = role.Reach
	default:
		node.Reach = stageBit(f.Stage)
		if node.Reach == 0 {
			for _, caller := range node.Callers {
				node.Reach |= g.Nodes[caller].Reach
			}
		}
	}
	if node.Reach == 0 && !f.Dispatch && r != nil {
		diag.ReportInfo(r, diag.CgrUnreachableFunction, diag.Site{Func: f.Name},
			"function is not reachable from any stage; planned for the generic profile").Emit()
	}

	node.Stage = f.Stage
	if stageBit(node.Stage) == 0 {
		node.Stage = restree.StageGeneric
		if stages := node.Reach.Stages(); len(stages) == 1 {
			node.Stage = stages[0]
		}
	}

	var (
		prof target.StageProfile
		err  error
	)
	if f.Dispatch {
		prof, err = tgt.Profile(node.Stage)
	} else {
		prof, err = tgt.ProfileFor(node.Reach)
		prof = prof.AsCallee()
	}
	if err != nil {
		return fmt.Errorf("function %s: %w", f.Name, err)
	}
	node.Profile = prof
	return nil
}

// widen builds the declared superset of a library: every leaf visible to its
// reach stages and every special value its profile can supply. Observed
// entries only add their access flags, or leaves outside the reach, which the
// planner never gives a register.
func widen(tree *restree.Tree, prof target.StageProfile, reach restree.StageMask, observed *usage.Mask) *usage.Mask {
	out := usage.NewMask()
	for _, leaf := range tree.LeavesVisibleTo(reachOrAll(reach)) {
		out.Add(usage.Entry{Key: usage.LeafKey(leaf)})
	}
	for _, v := range prof.MayNeed {
		out.Add(usage.Entry{Key: usage.SpecialKey(v)})
	}
	out.Union(observed)
	return out
}

// InReach reports whether a library reachable from reach may take leaf in a
// register. A zero reach stands for every stage.
func InReach(tree *restree.Tree, reach restree.StageMask, leaf restree.NodeID) bool {
	return tree.Node(leaf).Visibility&reachOrAll(reach) != 0
}

func reachOrAll(reach restree.StageMask) restree.StageMask {
	if reach == 0 {
		return restree.AllStages
	}
	return reach
}

// Words counts the register words a mask needs when nothing is spilled.
func Words(tree *restree.Tree, m *usage.Mask) uint32 {
	total := m.LeafWords(tree)
	for _, e := range m.Specials() {
		total += e.Special.Words()
	}
	return total
}

// Libraries returns library nodes in id order.
func (g *Graph) Libraries() []*Node {
	var out []*Node
	for i := range g.Nodes {
		if IsLibrary(g.Nodes[i].Role) {
			out = append(out, &g.Nodes[i])
		}
	}
	return out
}

// Dispatches returns dispatch nodes ordered by stage.
func (g *Graph) Dispatches() []*Node {
	var out []*Node
	for i := range g.Nodes {
		if g.Nodes[i].Func.Dispatch {
			out = append(out, &g.Nodes[i])
		}
	}
	slices.SortFunc(out, func(a, b *Node) int { return int(a.Stage) - int(b.Stage) })
	return out
}
