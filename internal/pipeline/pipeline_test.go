package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/diag"
	"pipelayout/internal/ir"
	"pipelayout/internal/metadata"
	"pipelayout/internal/plan"
	"pipelayout/internal/restree"
	"pipelayout/internal/target"
	"pipelayout/internal/usage"
)

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) OnEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordSink) forJob(name string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Job == name {
			out = append(out, e)
		}
	}
	return out
}

// forwardRequest mirrors a small forward-shading pipeline: a vertex and a
// fragment dispatch sharing a tree, and an external shading library.
func forwardRequest(t *testing.T, name string) Request {
	t.Helper()
	tree, err := restree.NewBuilder().
		Add(restree.Decl{Kind: restree.KindBuffer, Set: 0, Binding: 0, SizeInWords: 4, Root: true}).
		Add(restree.Decl{Kind: restree.KindDescriptorTable, Set: 0, Binding: 1, Children: []restree.Decl{
			{Kind: restree.KindSampler, Binding: 2, SizeInWords: 4},
			{Kind: restree.KindCombinedTextureSampler, Binding: 3, SizeInWords: 8},
		}}).
		AddPushConstant(4, 0).
		Build()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	prog := ir.NewProgram()
	sb := ir.NewFunc("shade").External(restree.MaskOf(restree.StageFragment))
	sb.Load(restree.Ref{Set: 0, Binding: 3}, 0, 8)
	shade := mustAdd(t, prog, sb.Return(ir.Operand{}))

	vb := ir.NewFunc("vs_main").Stage(restree.StageVertex).Dispatch()
	vb.Load(restree.Ref{Set: 0, Binding: 0}, 0, 4)
	vb.Special(restree.SpecialDrawIndex)
	mustAdd(t, prog, vb.Return(ir.Operand{}))

	fb := ir.NewFunc("fs_main").Stage(restree.StageFragment).Dispatch()
	fb.Load(restree.PushRef(0), 0, 4)
	idx := fb.Op("index")
	fb.Addr(restree.Ref{Set: 0, Binding: 2}, ir.Local(idx))
	fb.Call(shade)
	mustAdd(t, prog, fb.Return(ir.Operand{}))

	return Request{Name: name, Target: target.Gfx10(), Tree: tree, Program: prog}
}

func mustAdd(t *testing.T, p *ir.Program, f *ir.Func) ir.FuncID {
	t.Helper()
	id, err := p.Add(f)
	if err != nil {
		t.Fatalf("add %s: %v", f.Name, err)
	}
	return id
}

// overflowRequest asks a two-register compute stage for a two-word special
// next to a fixed one.
func overflowRequest(t *testing.T, name string) Request {
	t.Helper()
	tree, err := restree.NewBuilder().
		Add(restree.Decl{Kind: restree.KindBuffer, Binding: 0, SizeInWords: 1}).
		Build()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	prog := ir.NewProgram()
	b := ir.NewFunc("main").Stage(restree.StageCompute).Dispatch()
	b.Special(restree.SpecialWorkgroupCount)
	mustAdd(t, prog, b.Return(ir.Operand{}))
	tgt := &target.Target{Name: "tiny", WordBytes: 4, Stages: []target.StageProfile{{
		Stage:   restree.StageCompute,
		Budget:  2,
		Fixed:   []target.FixedSpecial{{Value: restree.SpecialInternalTables, Slot: 0}},
		MayNeed: []restree.SpecialValue{restree.SpecialWorkgroupCount},
	}}}
	return Request{Name: name, Target: tgt, Tree: tree, Program: prog}
}

func TestRunForward(t *testing.T) {
	sink := &recordSink{}
	res, err := Run(context.Background(), forwardRequest(t, "forward"), Options{Check: true, Sink: sink})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Rewritten != 3 || len(res.Plans) != 3 {
		t.Fatalf("rewritten %d of %d plans", res.Rewritten, len(res.Plans))
	}
	if res.Blob == nil || len(res.Blob.Stages) != 2 || len(res.Blob.Libraries) != 1 {
		t.Fatalf("blob = %+v", res.Blob)
	}
	if res.Blob.Stages[0].Stage != "vertex" || res.Blob.Stages[1].Entry != "fs_main" {
		t.Fatalf("stages = %+v", res.Blob.Stages)
	}
	if res.Bag.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", res.Bag.Short())
	}
	for _, f := range res.Graph.Nodes {
		if f.Func.LayoutSig != res.Plans[f.Func.ID].Fingerprint() {
			t.Fatalf("%s not rewritten to its plan", f.Func.Name)
		}
	}
	fs := res.Plans[2]
	if !fs.NeedsMemory {
		t.Fatalf("address-taken sampler did not keep the spill table reachable")
	}
	if _, ok := fs.SpillPointer(); !ok {
		t.Fatalf("fs_main has no spill pointer")
	}

	events := sink.forJob("forward")
	if len(events) != len(Passes)+1 {
		t.Fatalf("got %d events, want one per pass plus done", len(events))
	}
	for i, p := range Passes {
		if events[i].Pass != p || events[i].Status != StatusWorking {
			t.Fatalf("event %d = %+v, want %s working", i, events[i], p)
		}
	}
	if last := events[len(events)-1]; last.Status != StatusDone {
		t.Fatalf("last event = %+v", last)
	}

	phases := res.Timer.Report().Phases
	if len(phases) != len(Passes) || phases[5].Name != string(PassCheck) {
		t.Fatalf("timer phases = %+v", phases)
	}
}

// libraryCallerRequest has a compute dispatch that only calls an external
// library, over three one-word buffers and a six-register stage.
func libraryCallerRequest(t *testing.T, name string) Request {
	t.Helper()
	tree, err := restree.NewBuilder().
		Add(restree.Decl{Kind: restree.KindBuffer, Binding: 0, SizeInWords: 1}).
		Add(restree.Decl{Kind: restree.KindBuffer, Binding: 1, SizeInWords: 1}).
		Add(restree.Decl{Kind: restree.KindBuffer, Binding: 2, SizeInWords: 1}).
		Build()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	prog := ir.NewProgram()
	lib := mustAdd(t, prog, ir.NewFunc("lib").External(restree.MaskOf(restree.StageCompute)).Return(ir.Operand{}))
	mb := ir.NewFunc("main").Stage(restree.StageCompute).Dispatch()
	mb.Call(lib)
	mustAdd(t, prog, mb.Return(ir.Operand{}))
	tgt := &target.Target{Name: "small", WordBytes: 4, Stages: []target.StageProfile{{
		Stage:   restree.StageCompute,
		Budget:  6,
		Fixed:   []target.FixedSpecial{{Value: restree.SpecialInternalTables, Slot: 0}},
		MayNeed: []restree.SpecialValue{restree.SpecialWorkgroupCount},
	}}}
	return Request{Name: name, Target: tgt, Tree: tree, Program: prog}
}

func TestRunLibraryCallerSuppliesShape(t *testing.T) {
	req := libraryCallerRequest(t, "libcall")
	res, err := Run(context.Background(), req, Options{Check: true})
	if err != nil {
		t.Fatalf("run: %v\n%s", err, res.Bag.Short())
	}

	mainID, _ := req.Program.Lookup("main")
	var buf bytes.Buffer
	if err := ir.DumpFunc(&buf, req.Program, req.Program.Func(mainID)); err != nil {
		t.Fatalf("dump: %v", err)
	}
	for _, bad := range []string{"undef", "spill_table_addr"} {
		if strings.Contains(buf.String(), bad) {
			t.Fatalf("main passes %s to lib:\n%s", bad, buf.String())
		}
	}

	st, ok := res.Blob.Stage("compute")
	if !ok {
		t.Fatalf("no compute stage in %+v", res.Blob.Stages)
	}
	wc := metadata.SpecialTag(restree.SpecialWorkgroupCount)
	want := []uint32{metadata.SpecialTag(restree.SpecialInternalTables), wc, wc, metadata.LeafTag(0), metadata.LeafTag(1), metadata.TagSpillTable}
	if fmt.Sprint(want) != fmt.Sprint(st.UserDataRegMap) {
		t.Fatalf("stage regmap = %v, want %v", st.UserDataRegMap, want)
	}
	if st.SpillThreshold != 2 || st.UserDataLimit != 3 {
		t.Fatalf("threshold = %d limit = %d, want 2 and 3", st.SpillThreshold, st.UserDataLimit)
	}

	if len(res.Blob.Libraries) != 1 {
		t.Fatalf("libraries = %+v", res.Blob.Libraries)
	}
	for _, tag := range res.Blob.Libraries[0].UserDataRegMap {
		if kind, off := metadata.ClassifyTag(tag); kind == metadata.TagKindLeaf && off >= st.UserDataLimit {
			t.Fatalf("library leaf dword %d beyond stage limit %d", off, st.UserDataLimit)
		}
	}
}

func TestRunSkipsCheckByDefault(t *testing.T) {
	res, err := Run(context.Background(), forwardRequest(t, "forward"), Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, p := range res.Timer.Report().Phases {
		if p.Name == string(PassCheck) {
			t.Fatalf("check pass ran without Options.Check")
		}
	}
}

func TestRunOverflowExposesNoLayout(t *testing.T) {
	res, err := Run(context.Background(), overflowRequest(t, "tiny"), Options{})
	var pe *PassError
	if !errors.As(err, &pe) || pe.Pass != PassPlan {
		t.Fatalf("error = %v, want plan pass error", err)
	}
	var oe *plan.OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want overflow", err)
	}
	if res.Plans != nil || res.Blob != nil || res.Graph != nil || res.Region != nil {
		t.Fatalf("failed job exposes a partial layout")
	}
	items := res.Bag.Items()
	if len(items) != 1 {
		t.Fatalf("diagnostics:\n%s", res.Bag.Short())
	}
	d := items[0]
	want := diag.Site{Pipeline: "tiny", Stage: "compute", Func: "main"}
	if d.Code != diag.PlnConfigurationOverflow || d.Severity != diag.SevError || d.Primary != want {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestRunReportsCycles(t *testing.T) {
	tree, err := restree.NewBuilder().Add(restree.Decl{Kind: restree.KindBuffer, SizeInWords: 1}).Build()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	prog := ir.NewProgram()
	a := ir.NewFunc("a")
	a.Call(1)
	mustAdd(t, prog, a.Return(ir.Operand{}))
	b := ir.NewFunc("b")
	b.Call(0)
	mustAdd(t, prog, b.Return(ir.Operand{}))

	res, err := Run(context.Background(), Request{Name: "loop", Target: target.Gfx11(), Tree: tree, Program: prog}, Options{})
	var ce *callgraph.CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want cycle", err)
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.CgrCycle || len(items[0].Notes) != 2 {
		t.Fatalf("diagnostics = %+v", items)
	}
}

func TestRunNeedsInputs(t *testing.T) {
	_, err := Run(context.Background(), Request{Name: "empty"}, Options{})
	var pe *PassError
	if !errors.As(err, &pe) || pe.Pass != PassValidate {
		t.Fatalf("error = %v", err)
	}
}

func TestRunJobsIsolatesFailures(t *testing.T) {
	sink := &recordSink{}
	reqs := []Request{overflowRequest(t, "tiny"), forwardRequest(t, "forward"), forwardRequest(t, "forward2")}
	results, err := RunJobs(context.Background(), reqs, Options{Jobs: 2, Sink: sink, Check: true})
	if err != nil {
		t.Fatalf("RunJobs: %v", err)
	}
	if results[0].Err == nil {
		t.Fatalf("overflowing job succeeded")
	}
	for _, res := range results[1:] {
		if res.Err != nil || res.Blob == nil {
			t.Fatalf("%s: %v", res.Name, res.Err)
		}
	}
	for _, r := range reqs {
		events := sink.forJob(r.Name)
		if len(events) == 0 || events[0].Status != StatusQueued {
			t.Fatalf("%s: first event = %+v", r.Name, events)
		}
	}
}

func TestRunJobsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reqs := []Request{forwardRequest(t, "a"), forwardRequest(t, "b")}
	results, err := RunJobs(ctx, reqs, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	for _, res := range results {
		if !errors.Is(res.Err, context.Canceled) || res.Blob != nil {
			t.Fatalf("%s: err = %v", res.Name, res.Err)
		}
	}
}

func TestDiagnose(t *testing.T) {
	joined := &PassError{Job: "p", Pass: PassUsage, Err: errors.Join(
		&usage.RefError{Kind: usage.RefErrOutOfRange, Func: "f", Ref: restree.Ref{Binding: 1}},
		&usage.RefError{Kind: usage.RefErrSpecial, Func: "g", Special: 99},
	)}
	got := Diagnose(joined)
	if len(got) != 2 {
		t.Fatalf("got %d diagnostics", len(got))
	}
	if got[0].Code != diag.TreReadOutOfRange || got[0].Primary != (diag.Site{Pipeline: "p", Func: "f", Ref: "set0/b1"}) {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Code != diag.TreUnknownSpecial || got[1].Primary.Ref != "" {
		t.Fatalf("second = %+v", got[1])
	}

	cases := []struct {
		pass Pass
		want diag.Code
	}{
		{PassValidate, diag.CfgInvalidProgram},
		{PassCheck, diag.PlnInvariant},
		{PassCallGraph, diag.CfgBadTarget},
		{PassRewrite, diag.UnknownCode},
	}
	for _, tc := range cases {
		d := Diagnose(&PassError{Job: "p", Pass: tc.pass, Err: fmt.Errorf("boom")})
		if len(d) != 1 || d[0].Code != tc.want {
			t.Fatalf("%s: %+v", tc.pass, d)
		}
	}
	if Diagnose(nil) != nil {
		t.Fatalf("nil error produced diagnostics")
	}
}
