package testkit

import (
	"strings"
	"testing"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/ir"
	"pipelayout/internal/layout"
	"pipelayout/internal/plan"
	"pipelayout/internal/restree"
	"pipelayout/internal/target"
	"pipelayout/internal/usage"
)

// spilledPlan returns a compute plan with one leaf in registers, one spilled
// and the spill pointer last.
func spilledPlan(t *testing.T) (*plan.Plan, *callgraph.Node) {
	t.Helper()
	tree, err := restree.NewBuilder().
		Add(restree.Decl{Kind: restree.KindBuffer, Binding: 0, SizeInWords: 2}).
		Add(restree.Decl{Kind: restree.KindBuffer, Binding: 1, SizeInWords: 4}).
		Build()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	prog := ir.NewProgram()
	b := ir.NewFunc("main").Stage(restree.StageCompute).Dispatch()
	b.Load(restree.Ref{Binding: 0}, 0, 2)
	b.Load(restree.Ref{Binding: 1}, 0, 4)
	if _, err := prog.Add(b.Return(ir.Operand{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	tgt := &target.Target{Name: "test", WordBytes: 4, Stages: []target.StageProfile{{Stage: restree.StageCompute, Budget: 4}}}

	region, err := layout.New().RegionOf(tree)
	if err != nil {
		t.Fatalf("region: %v", err)
	}
	masks, err := usage.CollectProgram(tree, prog)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	g, err := callgraph.Build(prog)
	if err != nil {
		t.Fatalf("callgraph: %v", err)
	}
	if err := callgraph.Propagate(g, tree, tgt, masks, nil); err != nil {
		t.Fatalf("propagate: %v", err)
	}
	plans, err := (&plan.Planner{Tree: tree, Region: region}).All(g)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plans[0].Slots) != 3 || len(plans[0].Spilled) != 1 {
		t.Fatalf("fixture changed: %+v", plans[0].Slots)
	}
	return plans[0], g.Node(0)
}

func TestCheckPlanInvariantsAcceptsPlannerOutput(t *testing.T) {
	p, node := spilledPlan(t)
	if err := CheckPlanInvariants(p, node); err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
}

func TestCheckPlanInvariantsReportsViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *plan.Plan)
		want   string
	}{
		{"over budget", func(p *plan.Plan) { p.Budget = 2 }, "exceed budget"},
		{"bad index", func(p *plan.Plan) { p.Slots[1].Index = 7 }, "carries index 7"},
		{"split value", func(p *plan.Plan) { p.Slots = append(p.Slots[:1], p.Slots[2:]...) }, "expected word 1"},
		{"lost leaf", func(p *plan.Plan) { p.Spilled = nil }, "placed 0 times"},
		{"moved offset", func(p *plan.Plan) { p.Spilled[0].ByteOffset += 4 }, "disagrees with region"},
		{"no pointer", func(p *plan.Plan) { p.Slots = p.Slots[:2] }, "without a spill pointer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, node := spilledPlan(t)
			tc.mutate(p)
			err := CheckPlanInvariants(p, node)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestCheckPlanInvariantsNil(t *testing.T) {
	if err := CheckPlanInvariants(nil, nil); err == nil {
		t.Fatalf("nil plan accepted")
	}
}
