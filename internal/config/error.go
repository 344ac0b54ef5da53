package config

import (
	"fmt"

	"pipelayout/internal/diag"
)

// ErrorKind classifies pipeline description problems.
type ErrorKind uint8

const (
	ErrParse ErrorKind = iota + 1
	ErrUnknownKey
	ErrUnknownTarget
	ErrBadStage
	ErrBadValue
	ErrDuplicateFunc
	ErrUnknownCallee
	ErrBadTarget
	ErrMissing
)

// Error reports a problem in a pipeline description file.
type Error struct {
	Kind ErrorKind
	Path string
	// Key is the dotted TOML key, when known.
	Key  string
	Func string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	loc := e.Path
	if e.Key != "" {
		loc += ": " + e.Key
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the diagnostic code for the error kind.
func (e *Error) Code() diag.Code {
	switch e.Kind {
	case ErrParse:
		return diag.CfgParse
	case ErrUnknownKey:
		return diag.CfgUnknownKey
	case ErrUnknownTarget:
		return diag.CfgUnknownTarget
	case ErrBadStage:
		return diag.CfgBadStage
	case ErrDuplicateFunc:
		return diag.CfgDuplicateFunc
	case ErrUnknownCallee:
		return diag.CfgUnknownCallee
	case ErrBadTarget:
		return diag.CfgBadTarget
	default:
		return diag.CfgBadValue
	}
}

// Diagnostic converts the error into a SevError diagnostic.
func (e *Error) Diagnostic() diag.Diagnostic {
	return diag.NewError(e.Code(), diag.Site{Pipeline: e.Path, Func: e.Func}, e.Error())
}
