package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pipelayout/internal/diag"
	"pipelayout/internal/metadata"
	"pipelayout/internal/pipeline"
)

var emitCmd = &cobra.Command{
	Use:   "emit [flags] <pipeline.toml>",
	Short: "Plan a pipeline and write its loader metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  emitExecution,
}

func init() {
	emitCmd.Flags().StringP("output", "o", "", "output file (default: <pipeline>.mpk)")
	emitCmd.Flags().Bool("check", false, "verify every plan against the layout invariants")
	emitCmd.Flags().Bool("print", false, "also print the emitted metadata")
}

func emitExecution(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	show, err := cmd.Flags().GetBool("print")
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

	path := args[0]
	reqs, bag := loadRequests([]string{path}, maxDiag)
	if len(reqs) == 0 {
		if err := printDiagnostics(cmd.ErrOrStderr(), bag, "pretty", maxDiag); err != nil {
			return err
		}
		return errReported
	}

	res, runErr := pipeline.Run(cmd.Context(), reqs[0], pipeline.Options{MaxDiagnostics: maxDiag, Check: check})
	if err := printDiagnostics(cmd.ErrOrStderr(), res.Bag, "pretty", maxDiag); err != nil {
		return err
	}
	if timings {
		if err := printTimings(cmd.OutOrStdout(), []*pipeline.Result{res}); err != nil {
			return err
		}
	}
	if runErr != nil {
		return errReported
	}

	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + ".mpk"
	}
	if err := metadata.WriteFile(output, res.Blob); err != nil {
		d := diag.NewError(diag.IOWriteError, diag.Site{Pipeline: res.Name}, err.Error())
		fmt.Fprintln(cmd.ErrOrStderr(), d.Short())
		return errReported
	}
	if show {
		if err := renderBlob(cmd.OutOrStdout(), res.Blob, newStyles(!color.NoColor)); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
	return err
}
