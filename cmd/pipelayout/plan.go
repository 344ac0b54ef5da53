package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pipelayout/internal/ir"
	"pipelayout/internal/pipeline"
)

var planCmd = &cobra.Command{
	Use:   "plan [flags] <pipeline.toml>...",
	Short: "Plan argument layouts and print them",
	Long:  "Plan the argument register layout of every function of each pipeline description and print the result.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  planExecution,
}

func init() {
	planCmd.Flags().Bool("check", false, "verify every plan against the layout invariants")
	planCmd.Flags().Int("jobs", 0, "pipelines planned in parallel (0 = GOMAXPROCS)")
	planCmd.Flags().String("ui", "auto", "progress view (auto|on|lines|off)")
	planCmd.Flags().Bool("dump-ir", false, "print the rewritten program")
	planCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json)")
}

func planExecution(cmd *cobra.Command, args []string) error {
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	dumpIR, err := cmd.Flags().GetBool("dump-ir")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	maxDiag, err := maxDiagnostics(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	reqs, loadBag := loadRequests(args, maxDiag)
	if err := printDiagnostics(cmd.ErrOrStderr(), loadBag, format, maxDiag); err != nil {
		return err
	}

	view, err := readProgressView(uiValue, len(reqs), isTerminal(os.Stdout))
	if err != nil {
		return err
	}
	opts := pipeline.Options{MaxDiagnostics: maxDiag, Check: check, Jobs: jobs}
	var results []*pipeline.Result
	switch {
	case view == viewTUI && len(reqs) > 0:
		results, err = runJobsWithUI(cmd.Context(), "pipelayout plan", reqs, opts)
	case view == viewLines:
		opts.Sink = &lineSink{w: cmd.ErrOrStderr()}
		results, err = pipeline.RunJobs(cmd.Context(), reqs, opts)
	default:
		results, err = pipeline.RunJobs(cmd.Context(), reqs, opts)
	}
	if err != nil {
		return err
	}

	st := newStyles(!color.NoColor)
	failed := len(args) - len(reqs)
	for i, res := range results {
		if res.Err == nil {
			if err := renderResult(out, res, st); err != nil {
				return err
			}
			if dumpIR {
				if err := ir.DumpProgram(out, reqs[i].Program); err != nil {
					return err
				}
			}
		} else {
			failed++
		}
		if err := printDiagnostics(cmd.ErrOrStderr(), res.Bag, format, maxDiag); err != nil {
			return err
		}
	}
	if timings {
		if err := printTimings(out, results); err != nil {
			return err
		}
	}

	if failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d pipelines failed\n", failed, len(args))
		return errReported
	}
	return nil
}
