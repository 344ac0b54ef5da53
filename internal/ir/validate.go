package ir

import (
	"errors"
	"fmt"

	"pipelayout/internal/restree"
)

// Validate checks program invariants the layout passes rely on.
func Validate(p *Program) error {
	if p == nil {
		return nil
	}
	var errs []error
	dispatched := make(map[restree.StageKind]string)
	for _, f := range p.Funcs {
		if f == nil {
			continue
		}
		if f.Dispatch {
			if prev, ok := dispatched[f.Stage]; ok {
				errs = append(errs, fmt.Errorf("functions %s and %s both dispatch stage %s", prev, f.Name, f.Stage))
			} else {
				dispatched[f.Stage] = f.Name
			}
		}
		if err := validateFunc(p, f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(p *Program, f *Func) error {
	var errs []error

	// 1. Signature shape
	if f.Dispatch {
		if f.Linkage == LinkExternal {
			errs = append(errs, errors.New("dispatch function cannot have external linkage"))
		}
		if f.Stage == restree.StageUnknown || f.Stage == restree.StageGeneric {
			errs = append(errs, errors.New("dispatch function needs a hardware stage"))
		}
	}
	if f.Linkage == LinkExternal && f.Reach == 0 && f.Stage == restree.StageUnknown {
		errs = append(errs, errors.New("external function declares neither stage nor reach"))
	}
	if len(f.Blocks) == 0 {
		errs = append(errs, errors.New("function has no blocks"))
		return errors.Join(errs...)
	}

	// 2. Blocks
	blockExists := func(id BlockID) bool {
		return id >= 0 && int(id) < len(f.Blocks)
	}
	if !blockExists(f.Entry) {
		errs = append(errs, fmt.Errorf("entry bb%d does not exist", f.Entry))
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if bb.ID != BlockID(i) {
			errs = append(errs, fmt.Errorf("bb%d: id mismatch (%d)", i, bb.ID))
		}
		switch bb.Term.Kind {
		case TermNone:
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		case TermGoto:
			if !blockExists(bb.Term.Target) {
				errs = append(errs, fmt.Errorf("bb%d: goto target bb%d does not exist", i, bb.Term.Target))
			}
		case TermIf:
			if !blockExists(bb.Term.Target) || !blockExists(bb.Term.Else) {
				errs = append(errs, fmt.Errorf("bb%d: if targets bb%d/bb%d out of range", i, bb.Term.Target, bb.Term.Else))
			}
		}
	}

	// 3. Instructions
	localOK := func(o Operand) bool {
		return o.Kind != OperandLocal || (o.Local >= 0 && int(o.Local) < f.Locals)
	}
	f.Walk(func(bb BlockID, in *Instr) {
		if in.Dst != NoLocalID && (in.Dst < 0 || int(in.Dst) >= f.Locals) {
			errs = append(errs, fmt.Errorf("bb%d: result l%d out of range", bb, in.Dst))
		}
		for _, o := range in.Operands() {
			if !localOK(o) {
				errs = append(errs, fmt.Errorf("bb%d: operand l%d out of range", bb, o.Local))
			}
		}
		switch in.Kind {
		case InstrLoad:
			if in.Load.Words == 0 {
				errs = append(errs, fmt.Errorf("bb%d: load of zero words from %s", bb, in.Load.Ref))
			}
		case InstrSpecial:
			if !in.Special.Value.IsValid() {
				errs = append(errs, fmt.Errorf("bb%d: unknown special value %d", bb, in.Special.Value))
			}
		case InstrCall:
			callee := p.Func(in.Call.Callee)
			if callee == nil {
				errs = append(errs, fmt.Errorf("bb%d: call to unknown function #%d", bb, in.Call.Callee))
			} else if callee.Dispatch {
				errs = append(errs, fmt.Errorf("bb%d: call to dispatch function %s", bb, callee.Name))
			}
		}
	})
	for _, t := range f.Blocks {
		for _, o := range []Operand{t.Term.Value, t.Term.Cond} {
			if !localOK(o) {
				errs = append(errs, fmt.Errorf("bb%d: terminator operand l%d out of range", t.ID, o.Local))
			}
		}
	}
	return errors.Join(errs...)
}
