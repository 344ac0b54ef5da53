package ir

import "pipelayout/internal/restree"

// FuncBuilder appends instructions to a straight-line function.
type FuncBuilder struct {
	f   *Func
	cur BlockID
}

// NewFunc starts a function with one empty entry block.
func NewFunc(name string) *FuncBuilder {
	return &FuncBuilder{f: &Func{
		ID:     NoFuncID,
		Name:   name,
		Blocks: []Block{{ID: 0}},
	}}
}

// Stage sets the declared stage.
func (b *FuncBuilder) Stage(s restree.StageKind) *FuncBuilder {
	b.f.Stage = s
	return b
}

// Dispatch marks the function as the stage's dispatch function.
func (b *FuncBuilder) Dispatch() *FuncBuilder {
	b.f.Dispatch = true
	return b
}

// External gives the function external linkage, callable from reach stages.
func (b *FuncBuilder) External(reach restree.StageMask) *FuncBuilder {
	b.f.Linkage = LinkExternal
	b.f.Reach = reach
	return b
}

func (b *FuncBuilder) emit(in Instr) LocalID {
	bb := &b.f.Blocks[b.cur]
	bb.Instrs = append(bb.Instrs, in)
	return in.Dst
}

// Load emits a raw load of words starting at off.
func (b *FuncBuilder) Load(ref restree.Ref, off, words uint32) LocalID {
	return b.emit(Instr{Kind: InstrLoad, Dst: b.f.NewLocal(), Load: LoadInstr{Ref: ref, WordOffset: off, Words: words}})
}

// LoadIndexed emits a dynamically indexed load.
func (b *FuncBuilder) LoadIndexed(ref restree.Ref, words uint32, index Operand) LocalID {
	return b.emit(Instr{Kind: InstrLoad, Dst: b.f.NewLocal(), Load: LoadInstr{Ref: ref, Words: words, Index: index}})
}

// Addr emits an address computation.
func (b *FuncBuilder) Addr(ref restree.Ref, index Operand) LocalID {
	return b.emit(Instr{Kind: InstrAddr, Dst: b.f.NewLocal(), Addr: AddrInstr{Ref: ref, Index: index}})
}

// Special emits a special value read.
func (b *FuncBuilder) Special(v restree.SpecialValue) LocalID {
	return b.emit(Instr{Kind: InstrSpecial, Dst: b.f.NewLocal(), Special: SpecialInstr{Value: v}})
}

// Call emits a call.
func (b *FuncBuilder) Call(callee FuncID, args ...Operand) LocalID {
	return b.emit(Instr{Kind: InstrCall, Dst: b.f.NewLocal(), Call: CallInstr{Callee: callee, Args: args}})
}

// Op emits an opaque computation.
func (b *FuncBuilder) Op(name string, args ...Operand) LocalID {
	return b.emit(Instr{Kind: InstrOp, Dst: b.f.NewLocal(), Op: OpInstr{Name: name, Args: args}})
}

// Return terminates the current block and yields the function.
func (b *FuncBuilder) Return(v Operand) *Func {
	b.f.Blocks[b.cur].Term = Terminator{Kind: TermReturn, Value: v}
	return b.f
}
