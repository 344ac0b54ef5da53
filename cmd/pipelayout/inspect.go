package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pipelayout/internal/diag"
	"pipelayout/internal/metadata"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <file.mpk>",
	Short: "Decode loader metadata the way the runtime loader sees it",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectExecution,
}

func init() {
	inspectCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func inspectExecution(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	blob, err := metadata.ReadFile(args[0])
	if err != nil {
		bag := diag.NewBag(0)
		bag.Add(fileDiagnostic(args[0], err))
		if perr := printDiagnostics(cmd.ErrOrStderr(), bag, "pretty", 0); perr != nil {
			return perr
		}
		return errReported
	}
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(blob)
	}
	return renderBlob(cmd.OutOrStdout(), blob, newStyles(!color.NoColor))
}
