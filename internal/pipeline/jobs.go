package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"pipelayout/internal/diag"
	"pipelayout/internal/layout"
	"pipelayout/internal/observ"
	"pipelayout/internal/trace"
)

// RunJobs runs independent jobs concurrently. Jobs share nothing mutable
// except the layout engine cache. A failing job does not stop the others;
// its Result carries the error. Cancelling ctx abandons jobs that have not
// started yet; running jobs finish. The returned error is ctx's error, if any.
func RunJobs(ctx context.Context, reqs []Request, opts Options) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}
	if opts.Engine == nil {
		opts.Engine = layout.New()
	}
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	for _, req := range reqs {
		sink.OnEvent(Event{Job: req.Name, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "jobs")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(reqs)))
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = &Result{Name: req.Name, Bag: diag.NewBag(0), Timer: observ.NewTimer(), Err: err}
				sink.OnEvent(Event{Job: req.Name, Status: StatusError, Err: err})
				return err
			}
			results[i], _ = Run(gctx, req, opts)
			return nil
		})
	}
	err := g.Wait()
	span.End("")
	return results, err
}
