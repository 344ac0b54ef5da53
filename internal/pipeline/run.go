package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/diag"
	"pipelayout/internal/ir"
	"pipelayout/internal/layout"
	"pipelayout/internal/metadata"
	"pipelayout/internal/observ"
	"pipelayout/internal/plan"
	"pipelayout/internal/restree"
	"pipelayout/internal/rewrite"
	"pipelayout/internal/target"
	"pipelayout/internal/testkit"
	"pipelayout/internal/trace"
	"pipelayout/internal/usage"
)

// Request is one pipeline compilation job.
type Request struct {
	Name    string
	Target  *target.Target
	Tree    *restree.Tree
	Program *ir.Program
}

// Options tune a run. The zero value is usable.
type Options struct {
	// MaxDiagnostics bounds each job's bag; 0 means unlimited.
	MaxDiagnostics int
	// Check verifies every plan with testkit.CheckPlanInvariants.
	Check bool
	// Jobs bounds RunJobs concurrency; <= 0 means GOMAXPROCS.
	Jobs int
	Sink ProgressSink
	// Engine shares spill regions between jobs over the same tree.
	Engine *layout.Engine
}

// Result is the outcome of a job. On a fatal error only Bag, Err and Timer
// are meaningful: no partial layout is ever exposed.
type Result struct {
	Name      string
	Region    *layout.Region
	Graph     *callgraph.Graph
	Plans     []*plan.Plan
	Blob      *metadata.Blob
	Rewritten int
	Bag       *diag.Bag
	Timer     *observ.Timer
	Err       error
}

type job struct {
	ctx   context.Context
	req   Request
	opts  Options
	sink  ProgressSink
	res   *Result
	start time.Time
}

// Run executes every pass of one job in order. The program is rewritten in
// place. Cancellation is only observed before the job starts.
func Run(ctx context.Context, req Request, opts Options) (*Result, error) {
	res := &Result{Name: req.Name, Bag: diag.NewBag(opts.MaxDiagnostics), Timer: observ.NewTimer()}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res, err
	}
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	ctx, span := trace.Start(ctx, trace.ScopeJob, "job:"+req.Name)
	j := &job{ctx: ctx, req: req, opts: opts, sink: sink, res: res, start: time.Now()}

	err := j.run()
	if err != nil {
		res.Err = err
		for _, d := range Diagnose(err) {
			res.Bag.Add(d)
		}
		res.Region, res.Graph, res.Plans, res.Blob = nil, nil, nil, nil
		sink.OnEvent(Event{Job: req.Name, Status: StatusError, Err: err, Elapsed: time.Since(j.start)})
		span.End("failed")
	} else {
		sink.OnEvent(Event{Job: req.Name, Status: StatusDone, Elapsed: time.Since(j.start)})
		span.WithExtra("functions", strconv.Itoa(len(res.Plans))).End("ok")
	}
	res.Bag.Dedup()
	res.Bag.Sort()
	return res, err
}

func (j *job) run() error {
	req, res := j.req, j.res
	if req.Tree == nil || req.Program == nil || req.Target == nil {
		return &PassError{Job: req.Name, Pass: PassValidate, Err: fmt.Errorf("job needs a target, a resource tree and a program")}
	}
	reporter := pipelineReporter{next: diag.BagReporter{Bag: res.Bag}, name: req.Name}

	if err := j.pass(PassValidate, func() (string, error) {
		if err := req.Target.Validate(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d functions", len(req.Program.Funcs)), ir.Validate(req.Program)
	}); err != nil {
		return err
	}

	if err := j.pass(PassRegion, func() (string, error) {
		var err error
		res.Region, err = j.opts.Engine.RegionOf(req.Tree)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d leaves, %d bytes", len(res.Region.Entries), res.Region.SizeBytes), nil
	}); err != nil {
		return err
	}

	var masks []*usage.Mask
	if err := j.pass(PassUsage, func() (string, error) {
		var err error
		masks, err = usage.CollectProgram(req.Tree, req.Program)
		return "", err
	}); err != nil {
		return err
	}

	if err := j.pass(PassCallGraph, func() (string, error) {
		g, err := callgraph.Build(req.Program)
		if err != nil {
			return "", err
		}
		if err := callgraph.Propagate(g, req.Tree, req.Target, masks, reporter); err != nil {
			return "", err
		}
		res.Graph = g
		return fmt.Sprintf("%d waves", len(g.Batches)), nil
	}); err != nil {
		return err
	}

	if err := j.pass(PassPlan, func() (string, error) {
		pl := &plan.Planner{Tree: req.Tree, Region: res.Region}
		plans, err := pl.All(res.Graph)
		if err != nil {
			return "", err
		}
		res.Plans = plans
		spilled := 0
		for _, p := range plans {
			j.notePlan(p, reporter)
			if len(p.Spilled) > 0 {
				spilled++
			}
		}
		return fmt.Sprintf("%d plans, %d with spills", len(plans), spilled), nil
	}); err != nil {
		return err
	}

	if j.opts.Check {
		if err := j.pass(PassCheck, func() (string, error) {
			for i, p := range res.Plans {
				if err := testkit.CheckPlanInvariants(p, res.Graph.Node(ir.FuncID(i))); err != nil {
					return "", err
				}
			}
			return "", nil
		}); err != nil {
			return err
		}
	}

	if err := j.pass(PassRewrite, func() (string, error) {
		n, err := rewrite.Program(req.Program, res.Plans)
		res.Rewritten = n
		return fmt.Sprintf("%d functions", n), err
	}); err != nil {
		return err
	}

	return j.pass(PassMetadata, func() (string, error) {
		blob, err := metadata.Emit(metadata.Input{
			Pipeline: req.Name,
			Target:   req.Target.Name,
			Tree:     req.Tree,
			Region:   res.Region,
			Graph:    res.Graph,
			Plans:    res.Plans,
		})
		if err != nil {
			return "", err
		}
		res.Blob = blob
		return fmt.Sprintf("%d stages, %d libraries", len(blob.Stages), len(blob.Libraries)), nil
	})
}

// pass runs fn under a timer phase, a trace span and progress events.
func (j *job) pass(p Pass, fn func() (string, error)) error {
	j.sink.OnEvent(Event{Job: j.req.Name, Pass: p, Status: StatusWorking, Elapsed: time.Since(j.start)})
	idx := j.res.Timer.Begin(string(p))
	_, span := trace.Start(j.ctx, trace.ScopePass, string(p))
	note, err := fn()
	if err != nil {
		note = err.Error()
	}
	j.res.Timer.End(idx, note)
	span.End(note)
	if err != nil {
		return &PassError{Job: j.req.Name, Pass: p, Err: err}
	}
	return nil
}

func (j *job) notePlan(p *plan.Plan, r diag.Reporter) {
	site := diag.Site{Pipeline: j.req.Name, Stage: p.Stage.String(), Func: p.Name}
	if len(p.Promoted) > 0 {
		diag.ReportInfo(r, diag.PlnUnspilled, site,
			fmt.Sprintf("%d spilled entries promoted to registers", len(p.Promoted))).Emit()
	}
	if len(p.Spilled) > 0 {
		diag.ReportInfo(r, diag.PlnSpilled, site,
			fmt.Sprintf("%d entries read from the spill table", len(p.Spilled))).Emit()
	}
	trace.Point(trace.FromContext(j.ctx), trace.ScopeFunc, "plan:"+p.Name, p.Role.String(), trace.ParentID(j.ctx), map[string]string{
		"stage":    p.Stage.String(),
		"slots":    strconv.Itoa(len(p.Slots)),
		"budget":   strconv.Itoa(p.Budget),
		"spilled":  strconv.Itoa(len(p.Spilled)),
		"promoted": strconv.Itoa(len(p.Promoted)),
	})
}

// pipelineReporter stamps the job name on every site.
type pipelineReporter struct {
	next diag.Reporter
	name string
}

func (r pipelineReporter) Report(code diag.Code, sev diag.Severity, primary diag.Site, msg string, notes []diag.Note) {
	if primary.Pipeline == "" {
		primary.Pipeline = r.name
	}
	r.next.Report(code, sev, primary, msg, notes)
}
