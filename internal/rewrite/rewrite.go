package rewrite

import (
	"slices"

	"pipelayout/internal/ir"
	"pipelayout/internal/layout"
	"pipelayout/internal/plan"
	"pipelayout/internal/restree"
)

// Program replaces every function signature with its plan's slots and lowers
// resource and special reads into parameter reads or spill table loads. Call
// sites receive layout arguments matching the callee's slots. plans is
// indexed by FuncID and must be complete: a missing plan is reported before
// any function changes. Functions are lowered into copies and committed only
// once every function succeeded, so a failed rewrite leaves prog untouched.
// Functions whose LayoutSig already matches their plan are left alone.
// Returns the number of rewritten functions.
func Program(prog *ir.Program, plans []*plan.Plan) (int, error) {
	for i, f := range prog.Funcs {
		if i >= len(plans) || plans[i] == nil {
			return 0, &MissingPlanError{Func: f.Name}
		}
	}
	lowered := make([]*ir.Func, len(prog.Funcs))
	for i, f := range prog.Funcs {
		p := plans[i]
		sig := p.Fingerprint()
		if f.LayoutSig == sig && len(f.Params) == len(p.Slots) {
			continue
		}
		work := *f
		work.Blocks = slices.Clone(f.Blocks)
		rw := &funcRewriter{prog: prog, plans: plans, f: &work, p: p}
		if err := rw.run(); err != nil {
			return 0, err
		}
		work.Params = params(p)
		work.LayoutSig = sig
		lowered[i] = &work
	}

	changed := 0
	for i, w := range lowered {
		if w != nil {
			*prog.Funcs[i] = *w
			changed++
		}
	}
	return changed, nil
}

func params(p *plan.Plan) []ir.Param {
	out := make([]ir.Param, len(p.Slots))
	for i, s := range p.Slots {
		prm := ir.Param{Index: s.Index, Leaf: s.Leaf, Word: s.Word, Special: s.Special}
		switch s.Kind {
		case plan.SlotLeaf:
			prm.Kind = ir.ParamLeaf
		case plan.SlotSpecial:
			prm.Kind = ir.ParamSpecial
		case plan.SlotSpillPointer:
			prm.Kind = ir.ParamSpillPointer
		default:
			prm.Kind = ir.ParamPadding
		}
		out[i] = prm
	}
	return out
}

type funcRewriter struct {
	prog  *ir.Program
	plans []*plan.Plan
	f     *ir.Func
	p     *plan.Plan

	// ptr is the local holding the spill table address, materialized at the
	// top of the entry block on first use.
	ptr     ir.LocalID
	ptrInit *ir.Instr
	out     []ir.Instr
}

func (rw *funcRewriter) run() error {
	rw.ptr = ir.NoLocalID
	for bi := range rw.f.Blocks {
		bb := &rw.f.Blocks[bi]
		rw.out = make([]ir.Instr, 0, len(bb.Instrs))
		for _, in := range bb.Instrs {
			if err := rw.instr(in); err != nil {
				return err
			}
		}
		bb.Instrs = rw.out
	}
	if rw.ptrInit != nil {
		entry := rw.f.Block(rw.f.Entry)
		entry.Instrs = slices.Insert(entry.Instrs, 0, *rw.ptrInit)
	}
	return nil
}

func (rw *funcRewriter) instr(in ir.Instr) error {
	switch in.Kind {
	case ir.InstrLoad:
		return rw.load(in)
	case ir.InstrAddr:
		leaf, err := rw.leaf(in.Addr.Ref)
		if err != nil {
			return err
		}
		rw.out = append(rw.out, ir.Instr{Kind: ir.InstrAddrSpill, Dst: in.Dst, AddrSpill: ir.AddrSpillInstr{
			Ptr:        rw.spillPtr(),
			ByteOffset: rw.p.Region.Offset(leaf),
			Index:      in.Addr.Index,
		}})
	case ir.InstrSpecial:
		if first, ok := rw.p.SpecialSlot(in.Special.Value); ok {
			rw.out = append(rw.out, argsInstr(in.Dst, first, in.Special.Value.Words()))
		} else {
			rw.out = append(rw.out, ir.Instr{Kind: ir.InstrUndef, Dst: in.Dst})
		}
	case ir.InstrCall:
		rw.call(in)
	default:
		rw.out = append(rw.out, in)
	}
	return nil
}

func (rw *funcRewriter) load(in ir.Instr) error {
	ld := in.Load
	leaf, err := rw.leaf(ld.Ref)
	if err != nil {
		return err
	}
	if first, ok := rw.p.LeafSlot(leaf); ok && !ld.Index.IsDynamic() {
		rw.out = append(rw.out, argsInstr(in.Dst, first+ld.WordOffset, ld.Words))
		return nil
	}
	rw.out = append(rw.out, ir.Instr{Kind: ir.InstrLoadSpill, Dst: in.Dst, LoadSpill: ir.LoadSpillInstr{
		Ptr:        rw.spillPtr(),
		ByteOffset: rw.p.Region.Offset(leaf) + ld.WordOffset*layout.WordBytes,
		Words:      ld.Words,
		Index:      ld.Index,
	}})
	return nil
}

// call fills LayoutArgs with one operand per callee slot: forwarded
// parameters, spill table loads, the spill pointer, or undef.
func (rw *funcRewriter) call(in ir.Instr) {
	cp := rw.plans[in.Call.Callee]
	args := make([]ir.Operand, 0, len(cp.Slots))
	for _, s := range cp.Slots {
		switch s.Kind {
		case plan.SlotLeaf:
			if first, ok := rw.p.LeafSlot(s.Leaf); ok {
				args = append(args, rw.emit(argsInstr(rw.f.NewLocal(), first+s.Word, 1)))
				continue
			}
			args = append(args, rw.emit(ir.Instr{Kind: ir.InstrLoadSpill, Dst: rw.f.NewLocal(), LoadSpill: ir.LoadSpillInstr{
				Ptr:        rw.spillPtr(),
				ByteOffset: rw.p.Region.Offset(s.Leaf) + s.Word*layout.WordBytes,
				Words:      1,
			}}))
		case plan.SlotSpecial:
			if first, ok := rw.p.SpecialSlot(s.Special); ok {
				args = append(args, rw.emit(argsInstr(rw.f.NewLocal(), first+s.Word, 1)))
				continue
			}
			args = append(args, rw.emit(ir.Instr{Kind: ir.InstrUndef, Dst: rw.f.NewLocal()}))
		case plan.SlotSpillPointer:
			args = append(args, rw.spillPtr())
		default:
			args = append(args, rw.emit(ir.Instr{Kind: ir.InstrUndef, Dst: rw.f.NewLocal()}))
		}
	}
	in.Call.LayoutArgs = args
	rw.out = append(rw.out, in)
}

func (rw *funcRewriter) emit(in ir.Instr) ir.Operand {
	rw.out = append(rw.out, in)
	return ir.Local(in.Dst)
}

// spillPtr forwards the spill pointer parameter, or synthesizes the table
// address when this function has none.
func (rw *funcRewriter) spillPtr() ir.Operand {
	if rw.ptr != ir.NoLocalID {
		return ir.Local(rw.ptr)
	}
	rw.ptr = rw.f.NewLocal()
	if idx, ok := rw.p.SpillPointer(); ok {
		init := argsInstr(rw.ptr, idx, 1)
		rw.ptrInit = &init
	} else {
		rw.ptrInit = &ir.Instr{Kind: ir.InstrSpillTableAddr, Dst: rw.ptr}
	}
	return ir.Local(rw.ptr)
}

func (rw *funcRewriter) leaf(ref restree.Ref) (restree.NodeID, error) {
	id, ok := rw.p.Tree.Lookup(ref)
	if !ok || !rw.p.Tree.Node(id).IsLeaf() {
		return restree.NoNodeID, &UnresolvedError{Func: rw.f.Name, Ref: ref}
	}
	if _, ok := rw.p.Region.Lookup(id); !ok {
		return restree.NoNodeID, &UnresolvedError{Func: rw.f.Name, Ref: ref}
	}
	return id, nil
}

func argsInstr(dst ir.LocalID, first, words uint32) ir.Instr {
	prm := make([]uint32, words)
	for i := range prm {
		prm[i] = first + uint32(i)
	}
	return ir.Instr{Kind: ir.InstrArgs, Dst: dst, Args: ir.ArgsInstr{Params: prm}}
}
