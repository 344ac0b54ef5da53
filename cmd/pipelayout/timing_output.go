package main

import (
	"fmt"
	"io"

	"pipelayout/internal/pipeline"
)

func printTimings(out io.Writer, results []*pipeline.Result) error {
	for _, res := range results {
		if res == nil || res.Timer == nil {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s ", res.Name); err != nil {
			return err
		}
		if _, err := io.WriteString(out, res.Timer.Summary()); err != nil {
			return err
		}
	}
	return nil
}
