package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pipelayout/internal/pipeline"
	"pipelayout/internal/ui"
)

type jobsOutcome struct {
	results []*pipeline.Result
	err     error
}

func runJobsWithUI(ctx context.Context, title string, reqs []pipeline.Request, opts pipeline.Options) ([]*pipeline.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan jobsOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Sink = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.RunJobs(ctx, reqs, optsCopy)
		outcomeCh <- jobsOutcome{results: res, err: err}
		close(events)
	}()

	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.Name
	}
	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// drain so RunJobs never blocks on a full channel
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
