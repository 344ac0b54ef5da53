package callgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"pipelayout/internal/ir"
	"pipelayout/internal/restree"
	"pipelayout/internal/target"
	"pipelayout/internal/usage"
)

// Node is the call-graph view of one function. Build fills the identity and
// edges; Propagate fills the rest. After Propagate the node is read-only.
type Node struct {
	Func    *ir.Func
	Role    Role
	Stage   restree.StageKind
	Reach   restree.StageMask
	Profile target.StageProfile

	Direct *usage.Mask
	// Observed is direct usage plus everything callees observe, restricted to
	// what Stage can provide. Callers union this, never a callee's widening.
	Observed *usage.Mask
	// Effective is what the planner places: Observed, widened to the declared
	// superset for libraries.
	Effective *usage.Mask

	Callees []ir.FuncID
	Callers []ir.FuncID
}

// Graph indexes nodes by FuncID.
type Graph struct {
	Nodes []Node
	// Order lists functions callers first.
	Order []ir.FuncID
	// Batches groups Order into waves with no edges inside a wave.
	Batches [][]ir.FuncID
}

// Node returns the node of id, or nil.
func (g *Graph) Node(id ir.FuncID) *Node {
	if g == nil || id < 0 || int(id) >= len(g.Nodes) {
		return nil
	}
	return &g.Nodes[id]
}

// Build records caller to callee edges and orders the program. A cycle,
// including a function calling itself, yields *CycleError.
func Build(p *ir.Program) (*Graph, error) {
	n := len(p.Funcs)
	g := &Graph{Nodes: make([]Node, n)}
	indeg := make([]int, n)

	for i, f := range p.Funcs {
		node := &g.Nodes[i]
		node.Func = f
		if f.Linkage == ir.LinkExternal {
			node.Role = Library{Reach: f.Reach | stageBit(f.Stage)}
		} else {
			node.Role = EntryPoint{}
		}

		seen := make(map[ir.FuncID]struct{})
		var err error
		f.Walk(func(_ ir.BlockID, in *ir.Instr) {
			if in.Kind != ir.InstrCall || err != nil {
				return
			}
			to := in.Call.Callee
			if p.Func(to) == nil {
				err = &CalleeError{Caller: f.Name, Callee: int(to)}
				return
			}
			if _, dup := seen[to]; dup {
				return
			}
			seen[to] = struct{}{}
			node.Callees = append(node.Callees, to)
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(node.Callees)
	}
	for i := range g.Nodes {
		from := funcID(i)
		for _, to := range g.Nodes[i].Callees {
			indeg[to]++
			g.Nodes[to].Callers = append(g.Nodes[to].Callers, from)
		}
	}

	if err := g.toposort(indeg); err != nil {
		return nil, err
	}
	return g, nil
}

// toposort is Kahn's algorithm in waves; ties resolve by ascending id.
func (g *Graph) toposort(indeg []int) error {
	n := len(g.Nodes)
	g.Order = make([]ir.FuncID, 0, n)
	current := make([]ir.FuncID, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			current = append(current, funcID(i))
		}
	}

	for len(current) > 0 {
		batch := slices.Clone(current)
		g.Batches = append(g.Batches, batch)

		next := make([]ir.FuncID, 0)
		for _, id := range batch {
			g.Order = append(g.Order, id)
			for _, to := range g.Nodes[id].Callees {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(g.Order) == n {
		return nil
	}
	cyc := &CycleError{}
	for i := 0; i < n; i++ {
		if indeg[i] > 0 {
			cyc.Funcs = append(cyc.Funcs, g.Nodes[i].Func.Name)
		}
	}
	return cyc
}

func stageBit(s restree.StageKind) restree.StageMask {
	if s == restree.StageUnknown || s == restree.StageGeneric {
		return 0
	}
	return restree.MaskOf(s)
}

func funcID(i int) ir.FuncID {
	id, err := safecast.Conv[ir.FuncID](i)
	if err != nil {
		panic(fmt.Errorf("function id overflow: %w", err))
	}
	return id
}
