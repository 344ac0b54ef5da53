package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Label is the lowercase form used in short output.
func (s Severity) Label() string {
	return strings.ToLower(s.String())
}

// Site locates a diagnostic inside a pipeline: stage, function and, when
// relevant, the resource reference involved. Empty fields are omitted.
type Site struct {
	Pipeline string
	Stage    string
	Func     string
	Ref      string
}

// IsZero reports whether no field is set.
func (s Site) IsZero() bool {
	return s == Site{}
}

func (s Site) String() string {
	parts := make([]string, 0, 4)
	if s.Pipeline != "" {
		parts = append(parts, s.Pipeline)
	}
	if s.Stage != "" {
		parts = append(parts, "stage "+s.Stage)
	}
	if s.Func != "" {
		parts = append(parts, "fn "+s.Func)
	}
	if s.Ref != "" {
		parts = append(parts, s.Ref)
	}
	if len(parts) == 0 {
		return "<pipeline>"
	}
	return strings.Join(parts, ": ")
}

type Note struct {
	Site Site
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Site
	Notes    []Note
}

func New(sev Severity, code Code, primary Site, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
		Notes:    nil,
	}
}

func NewError(code Code, primary Site, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(site Site, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Site: site, Msg: msg})
	return d
}

// Short renders the diagnostic on a single line: "error PLN4001 site: message".
func (d Diagnostic) Short() string {
	msg := strings.ReplaceAll(d.Message, "\r\n", "\n")
	msg = strings.TrimSpace(strings.ReplaceAll(msg, "\n", " "))
	return fmt.Sprintf("%s %s %s: %s", d.Severity.Label(), d.Code.ID(), d.Primary, msg)
}
