package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pipelayout/internal/config"
	"pipelayout/internal/diag"
	"pipelayout/internal/diagfmt"
	"pipelayout/internal/metadata"
	"pipelayout/internal/pipeline"
)

var errReported = errors.New("errors reported")

func maxDiagnostics(cmd *cobra.Command) (int, error) {
	n, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return 0, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return n, nil
}

func printDiagnostics(w io.Writer, bag *diag.Bag, format string, max int) error {
	if bag == nil || bag.Len() == 0 {
		return nil
	}
	switch format {
	case "json":
		return diagfmt.JSON(w, bag, diagfmt.JSONOpts{Max: max, IncludeNotes: true})
	default:
		return diagfmt.Pretty(w, bag, diagfmt.PrettyOpts{Color: !color.NoColor, ShowNotes: true, Max: max})
	}
}

// loadRequests reads every description. Problems land in the returned bag;
// only loadable files produce requests.
func loadRequests(paths []string, max int) ([]pipeline.Request, *diag.Bag) {
	bag := diag.NewBag(max)
	reqs := make([]pipeline.Request, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		req, err := config.LoadFile(path)
		if err != nil {
			bag.Add(fileDiagnostic(path, err))
			continue
		}
		if prev, dup := seen[req.Name]; dup {
			bag.Add(diag.NewError(diag.CfgDuplicateFunc, diag.Site{Pipeline: req.Name},
				fmt.Sprintf("pipeline name used by both %s and %s", prev, path)))
			continue
		}
		seen[req.Name] = path
		reqs = append(reqs, req)
	}
	bag.Sort()
	return reqs, bag
}

func fileDiagnostic(path string, err error) diag.Diagnostic {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return cfgErr.Diagnostic()
	}
	var metaErr *metadata.MetadataError
	if errors.As(err, &metaErr) {
		if ds := pipeline.Diagnose(err); len(ds) > 0 {
			d := ds[0]
			d.Primary.Pipeline = path
			return d
		}
	}
	return diag.NewError(diag.IOLoadFileError, diag.Site{Pipeline: path}, err.Error())
}
