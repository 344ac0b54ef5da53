package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"pipelayout/internal/pipeline"
)

// progressView selects how job progress is shown while pipelines are planned.
type progressView uint8

const (
	viewNone progressView = iota
	viewLines
	viewTUI
)

// readProgressView resolves the --ui flag. auto picks the TUI when several
// pipelines run on a terminal and stays quiet otherwise; lines writes one line
// per pass and job.
func readProgressView(value string, jobs int, tty bool) (progressView, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		if tty && jobs > 1 {
			return viewTUI, nil
		}
		return viewNone, nil
	case "on", "tui":
		return viewTUI, nil
	case "lines":
		return viewLines, nil
	case "off":
		return viewNone, nil
	}
	return viewNone, fmt.Errorf("invalid --ui value %q (expected auto|on|lines|off)", value)
}

// lineSink prints pass transitions as "job: pass status".
type lineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *lineSink) OnEvent(evt pipeline.Event) {
	if evt.Job == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch evt.Status {
	case pipeline.StatusWorking:
		fmt.Fprintf(s.w, "%s: %s\n", evt.Job, evt.Pass)
	case pipeline.StatusDone:
		fmt.Fprintf(s.w, "%s: done in %s\n", evt.Job, evt.Elapsed.Round(time.Microsecond))
	case pipeline.StatusError:
		fmt.Fprintf(s.w, "%s: failed: %v\n", evt.Job, evt.Err)
	}
}
