package pipeline

import (
	"errors"
	"fmt"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/diag"
	"pipelayout/internal/layout"
	"pipelayout/internal/metadata"
	"pipelayout/internal/plan"
	"pipelayout/internal/restree"
	"pipelayout/internal/rewrite"
	"pipelayout/internal/usage"
)

// Diagnose converts a fatal job error into SevError diagnostics, one per
// joined cause.
func Diagnose(err error) []diag.Diagnostic {
	if err == nil {
		return nil
	}
	site := diag.Site{}
	pass := Pass("")
	var pe *PassError
	if errors.As(err, &pe) {
		site.Pipeline = pe.Job
		pass = pe.Pass
		err = pe.Err
	}
	var out []diag.Diagnostic
	for _, cause := range flatten(err) {
		out = append(out, diagnoseOne(site, pass, cause))
	}
	return out
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

func diagnoseOne(site diag.Site, pass Pass, err error) diag.Diagnostic {
	var (
		refErr      *usage.RefError
		treeErr     *restree.TreeError
		regionErr   *layout.RegionError
		cycleErr    *callgraph.CycleError
		calleeErr   *callgraph.CalleeError
		overflowErr *plan.OverflowError
		missingErr  *rewrite.MissingPlanError
		unresErr    *rewrite.UnresolvedError
		metaErr     *metadata.MetadataError
	)
	switch {
	case errors.As(err, &refErr):
		site.Func, site.Ref = refErr.Func, refErr.Ref.String()
		code := diag.TreUnknownReference
		switch refErr.Kind {
		case usage.RefErrTable:
			code = diag.TreTableReference
		case usage.RefErrOutOfRange:
			code = diag.TreReadOutOfRange
		case usage.RefErrSpecial:
			code, site.Ref = diag.TreUnknownSpecial, ""
		}
		return diag.NewError(code, site, refErr.Error())
	case errors.As(err, &treeErr):
		site.Ref = treeErr.Ref.String()
		return diag.NewError(diag.TreMalformed, site, treeErr.Error())
	case errors.As(err, &regionErr):
		return diag.NewError(diag.TreSpillTableTooLarge, site, regionErr.Error())
	case errors.As(err, &cycleErr):
		d := diag.NewError(diag.CgrCycle, site, cycleErr.Error())
		for _, fn := range cycleErr.Funcs {
			d = d.WithNote(diag.Site{Pipeline: site.Pipeline, Func: fn}, "part of the cycle")
		}
		return d
	case errors.As(err, &calleeErr):
		site.Func = calleeErr.Caller
		return diag.NewError(diag.CgrUnknownCallee, site, calleeErr.Error())
	case errors.As(err, &overflowErr):
		site.Stage, site.Func = overflowErr.Stage.String(), overflowErr.Func
		return diag.NewError(diag.PlnConfigurationOverflow, site, overflowErr.Error())
	case errors.As(err, &missingErr):
		site.Func = missingErr.Func
		return diag.NewError(diag.RwrMissingPlan, site, missingErr.Error())
	case errors.As(err, &unresErr):
		site.Func, site.Ref = unresErr.Func, unresErr.Ref.String()
		return diag.NewError(diag.RwrMissingPlan, site, unresErr.Error())
	case errors.As(err, &metaErr):
		code := diag.MtaEncode
		switch metaErr.Kind {
		case metadata.MetaErrVersion:
			code = diag.MtaBadVersion
		case metadata.MetaErrCorrupt, metadata.MetaErrDecode:
			code = diag.MtaCorrupt
		}
		return diag.NewError(code, site, metaErr.Error())
	}

	code := diag.UnknownCode
	switch pass {
	case PassValidate:
		code = diag.CfgInvalidProgram
	case PassCheck:
		code = diag.PlnInvariant
	case PassCallGraph:
		code = diag.CfgBadTarget
	}
	return diag.NewError(code, site, fmt.Sprint(err))
}
