package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestStringWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version = "1.2.3"
	GitCommit = ""
	if got := String(); got != "pipelayout 1.2.3" {
		t.Fatalf("unexpected banner %q", got)
	}

	GitCommit = "1234567890abcdef1234"
	if got := String(); got != "pipelayout 1.2.3 (1234567890ab)" {
		t.Fatalf("unexpected banner with commit %q", got)
	}
}

func TestDetailsMentionsMetadataVersion(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	if d := Details(); !strings.Contains(d, "metadata: 1.1") {
		t.Fatalf("details missing metadata version:\n%s", d)
	}
}
