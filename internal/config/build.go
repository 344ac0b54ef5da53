package config

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"pipelayout/internal/ir"
	"pipelayout/internal/pipeline"
	"pipelayout/internal/restree"
	"pipelayout/internal/target"
)

// Request builds the target, resource tree and program described by f.
func (f *File) Request(path string) (pipeline.Request, error) {
	tgt, err := f.buildTarget(path)
	if err != nil {
		return pipeline.Request{}, err
	}
	tree, err := f.buildTree(path)
	if err != nil {
		return pipeline.Request{}, err
	}
	prog, err := f.buildProgram(path)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{Name: f.Name, Target: tgt, Tree: tree, Program: prog}, nil
}

func (f *File) buildTarget(path string) (*target.Target, error) {
	tgt, err := target.Lookup(f.Target.Name)
	if err != nil {
		return nil, &Error{Kind: ErrUnknownTarget, Path: path, Key: "target.name", Msg: "unknown target", Err: err}
	}
	if f.Target.Budget > 0 {
		for i := range tgt.Stages {
			tgt.Stages[i].Budget = f.Target.Budget
		}
	}
	for _, sc := range f.Stages {
		stage, err := parseHardwareStage(sc.Stage)
		if err != nil {
			return nil, &Error{Kind: ErrBadStage, Path: path, Key: "stage.stage", Msg: "invalid stage", Err: err}
		}
		idx := slices.IndexFunc(tgt.Stages, func(p target.StageProfile) bool { return p.Stage == stage })
		if idx < 0 {
			tgt.Stages = append(tgt.Stages, target.StageProfile{Stage: stage, Budget: tgt.Stages[0].Budget})
			idx = len(tgt.Stages) - 1
		}
		p := &tgt.Stages[idx]
		if sc.Budget != 0 {
			p.Budget = sc.Budget
		}
		if sc.Fixed != nil {
			p.Fixed = p.Fixed[:0:0]
			for _, fc := range sc.Fixed {
				v, err := restree.ParseSpecial(fc.Value)
				if err != nil {
					return nil, &Error{Kind: ErrBadValue, Path: path, Key: "stage.fixed.value", Msg: "invalid special value", Err: err}
				}
				p.Fixed = append(p.Fixed, target.FixedSpecial{Value: v, Slot: fc.Slot})
			}
		}
		if sc.MayNeed != nil {
			p.MayNeed = p.MayNeed[:0:0]
			for _, name := range sc.MayNeed {
				v, err := restree.ParseSpecial(name)
				if err != nil {
					return nil, &Error{Kind: ErrBadValue, Path: path, Key: "stage.may_need", Msg: "invalid special value", Err: err}
				}
				p.MayNeed = append(p.MayNeed, v)
			}
		}
	}
	if err := tgt.Validate(); err != nil {
		return nil, &Error{Kind: ErrBadTarget, Path: path, Key: "stage", Msg: "inconsistent target", Err: err}
	}
	return tgt, nil
}

func (f *File) buildTree(path string) (*restree.Tree, error) {
	b := restree.NewBuilder()
	for _, set := range f.Sets {
		for _, bc := range set.Bindings {
			d, err := bindingDecl(bc, set.Index)
			if err != nil {
				return nil, &Error{Kind: ErrBadValue, Path: path, Key: "set.binding", Msg: fmt.Sprintf("set %d", set.Index), Err: err}
			}
			b.Add(d)
		}
	}
	for i, pc := range f.Push {
		vis, err := parseStages(pc.Stages)
		if err != nil {
			return nil, &Error{Kind: ErrBadStage, Path: path, Key: "push_constant.stages", Msg: fmt.Sprintf("push constant %d", i), Err: err}
		}
		b.AddPushConstant(pc.Words, vis)
	}
	tree, err := b.Build()
	if err != nil {
		return nil, &Error{Kind: ErrBadValue, Path: path, Key: "set", Msg: "invalid resource tree", Err: err}
	}
	return tree, nil
}

func bindingDecl(bc BindingConfig, set uint32) (restree.Decl, error) {
	kind, err := restree.ParseKind(bc.Kind)
	if err != nil {
		return restree.Decl{}, err
	}
	vis, err := parseStages(bc.Stages)
	if err != nil {
		return restree.Decl{}, err
	}
	d := restree.Decl{
		Kind:        kind,
		Set:         set,
		Binding:     bc.Binding,
		SizeInWords: bc.Words,
		Visibility:  vis,
		Root:        bc.Root,
	}
	for _, cc := range bc.Children {
		child, err := bindingDecl(cc, set)
		if err != nil {
			return restree.Decl{}, fmt.Errorf("binding %d: %w", bc.Binding, err)
		}
		d.Children = append(d.Children, child)
	}
	return d, nil
}

func (f *File) buildProgram(path string) (*ir.Program, error) {
	ids := make(map[string]ir.FuncID, len(f.Function))
	for i, fc := range f.Function {
		if _, dup := ids[fc.Name]; dup {
			return nil, &Error{Kind: ErrDuplicateFunc, Path: path, Func: fc.Name, Msg: fmt.Sprintf("duplicate function %q", fc.Name)}
		}
		id, err := safecast.Conv[ir.FuncID](i)
		if err != nil {
			return nil, &Error{Kind: ErrBadValue, Path: path, Key: "function", Msg: "too many functions", Err: err}
		}
		ids[fc.Name] = id
	}

	prog := ir.NewProgram()
	for _, fc := range f.Function {
		fn, err := buildFunc(fc, ids)
		if err != nil {
			if ce, ok := err.(*Error); ok {
				ce.Path = path
				return nil, ce
			}
			return nil, &Error{Kind: ErrBadValue, Path: path, Func: fc.Name, Msg: "invalid function", Err: err}
		}
		if _, err := prog.Add(fn); err != nil {
			return nil, &Error{Kind: ErrDuplicateFunc, Path: path, Func: fc.Name, Msg: "cannot add function", Err: err}
		}
	}
	return prog, nil
}

func buildFunc(fc FunctionConfig, ids map[string]ir.FuncID) (*ir.Func, error) {
	b := ir.NewFunc(fc.Name)
	if fc.Stage != "" {
		stage, err := restree.ParseStage(fc.Stage)
		if err != nil {
			return nil, &Error{Kind: ErrBadStage, Func: fc.Name, Key: "function.stage", Msg: "invalid stage", Err: err}
		}
		b.Stage(stage)
	}
	if fc.Dispatch {
		b.Dispatch()
	}
	if fc.External {
		reach, err := parseStages(fc.Reach)
		if err != nil {
			return nil, &Error{Kind: ErrBadStage, Func: fc.Name, Key: "function.reach", Msg: "invalid reach", Err: err}
		}
		b.External(reach)
	} else if len(fc.Reach) > 0 {
		return nil, &Error{Kind: ErrBadValue, Func: fc.Name, Key: "function.reach", Msg: "reach requires external = true"}
	}

	last := ir.Operand{}
	for i, op := range fc.Ops {
		dst, err := emitOp(b, op, last, ids)
		if err != nil {
			if ce, ok := err.(*Error); ok {
				ce.Func = fc.Name
				return nil, ce
			}
			return nil, &Error{Kind: ErrBadValue, Func: fc.Name, Key: fmt.Sprintf("function.op[%d]", i), Msg: "invalid op", Err: err}
		}
		last = ir.Local(dst)
	}
	return b.Return(last), nil
}

func emitOp(b *ir.FuncBuilder, op OpConfig, prev ir.Operand, ids map[string]ir.FuncID) (ir.LocalID, error) {
	args := []ir.Operand{}
	if !prev.IsNone() {
		args = append(args, prev)
	}
	switch op.Kind {
	case "load":
		ref, err := restree.ParseRef(op.Ref)
		if err != nil {
			return 0, err
		}
		words := op.Words
		if words == 0 {
			words = 1
		}
		if op.Dynamic {
			return b.LoadIndexed(ref, words, ir.Local(b.Op("index"))), nil
		}
		return b.Load(ref, op.Offset, words), nil
	case "addr":
		ref, err := restree.ParseRef(op.Ref)
		if err != nil {
			return 0, err
		}
		index := ir.Operand{}
		switch {
		case op.Dynamic:
			index = ir.Local(b.Op("index"))
		case op.Index != nil:
			if *op.Index < 0 {
				return 0, fmt.Errorf("negative index %d", *op.Index)
			}
			index = ir.Const(uint64(*op.Index))
		}
		return b.Addr(ref, index), nil
	case "special":
		v, err := restree.ParseSpecial(op.Special)
		if err != nil {
			return 0, err
		}
		return b.Special(v), nil
	case "call":
		id, ok := ids[op.Callee]
		if !ok {
			return 0, &Error{Kind: ErrUnknownCallee, Key: "function.op.callee", Msg: fmt.Sprintf("unknown callee %q", op.Callee)}
		}
		return b.Call(id, args...), nil
	case "op":
		name := op.Name
		if name == "" {
			name = "op"
		}
		return b.Op(name, args...), nil
	default:
		return 0, fmt.Errorf("unknown op kind %q (expected load|addr|special|call|op)", op.Kind)
	}
}

func parseHardwareStage(s string) (restree.StageKind, error) {
	stage, err := restree.ParseStage(s)
	if err != nil {
		return restree.StageUnknown, err
	}
	if !slices.Contains(restree.HardwareStages(), stage) {
		return restree.StageUnknown, fmt.Errorf("%s is not a hardware stage", stage)
	}
	return stage, nil
}

func parseStages(names []string) (restree.StageMask, error) {
	var mask restree.StageMask
	for _, name := range names {
		stage, err := parseHardwareStage(name)
		if err != nil {
			return 0, err
		}
		mask |= restree.MaskOf(stage)
	}
	return mask, nil
}
