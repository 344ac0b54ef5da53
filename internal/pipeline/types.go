package pipeline

import (
	"fmt"
	"time"
)

// Pass names one step of a job.
type Pass string

const (
	PassValidate  Pass = "validate"
	PassRegion    Pass = "region"
	PassUsage     Pass = "usage"
	PassCallGraph Pass = "callgraph"
	PassPlan      Pass = "plan"
	PassCheck     Pass = "check"
	PassRewrite   Pass = "rewrite"
	PassMetadata  Pass = "metadata"
)

// Passes lists the passes of a job in execution order.
var Passes = []Pass{PassValidate, PassRegion, PassUsage, PassCallGraph, PassPlan, PassCheck, PassRewrite, PassMetadata}

// Status captures progress within a pass.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress of one job, or of the whole run when Job is empty.
type Event struct {
	Job     string
	Pass    Pass
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent jobs.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}

// PassError ties a fatal error to the job and pass that raised it.
type PassError struct {
	Job  string
	Pass Pass
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Job, e.Pass, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}
