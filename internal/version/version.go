package version

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"

	"pipelayout/internal/metadata"
)

// Build information, overridable with -ldflags "-X pipelayout/internal/version.Version=...".
var (
	Version   = "0.3.0-dev"
	GitCommit = ""
	BuildDate = ""
)

var (
	nameColor    = color.New(color.FgCyan, color.Bold)
	versionColor = color.New(color.FgGreen, color.Bold)
	faintColor   = color.New(color.Faint)
)

// String renders the one-line version banner. Color follows color.NoColor.
func String() string {
	s := nameColor.Sprint("pipelayout") + " " + versionColor.Sprint(Version)
	if GitCommit != "" {
		commit := GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		s += " " + faintColor.Sprintf("(%s)", commit)
	}
	return s
}

// Details renders the multi-line form printed by "pipelayout version".
func Details() string {
	out := String() + "\n"
	if BuildDate != "" {
		out += fmt.Sprintf("built:    %s\n", BuildDate)
	}
	out += fmt.Sprintf("go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	out += fmt.Sprintf("metadata: %d.%d\n", metadata.VersionMajor, metadata.VersionMinor)
	return out
}
