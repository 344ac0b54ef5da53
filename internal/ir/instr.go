package ir

import "pipelayout/internal/restree"

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrLoad loads Words raw words of a resource leaf.
	InstrLoad InstrKind = iota
	// InstrAddr computes the address of a resource leaf.
	InstrAddr
	// InstrSpecial reads a stage-supplied special value.
	InstrSpecial
	// InstrCall calls another function of the program.
	InstrCall
	// InstrOp is an opaque computation the layout passes do not inspect.
	InstrOp

	// InstrArgs reads layout parameters. Produced by the rewriter.
	InstrArgs
	// InstrLoadSpill loads words from the spill table. Produced by the rewriter.
	InstrLoadSpill
	// InstrAddrSpill computes an address inside the spill table. Produced by the rewriter.
	InstrAddrSpill
	// InstrSpillTableAddr materializes the spill table base without a parameter.
	InstrSpillTableAddr
	// InstrUndef produces an undefined value.
	InstrUndef
)

// Instr is one instruction. Only the payload matching Kind is meaningful.
type Instr struct {
	Kind InstrKind
	Dst  LocalID

	Load      LoadInstr
	Addr      AddrInstr
	Special   SpecialInstr
	Call      CallInstr
	Op        OpInstr
	Args      ArgsInstr
	LoadSpill LoadSpillInstr
	AddrSpill AddrSpillInstr
}

// LoadInstr reads words [WordOffset, WordOffset+Words) of a leaf. A non-empty
// Index makes the load dynamically indexed.
type LoadInstr struct {
	Ref        restree.Ref
	WordOffset uint32
	Words      uint32
	Index      Operand
}

// AddrInstr takes the address of a leaf, optionally offset by Index words.
type AddrInstr struct {
	Ref   restree.Ref
	Index Operand
}

// SpecialInstr reads a special value.
type SpecialInstr struct {
	Value restree.SpecialValue
}

// CallInstr calls Callee with explicit Args. LayoutArgs is filled by the
// rewriter and matches the callee's Params.
type CallInstr struct {
	Callee     FuncID
	Args       []Operand
	LayoutArgs []Operand
}

// OpInstr is an opaque computation.
type OpInstr struct {
	Name string
	Args []Operand
}

// ArgsInstr gathers layout parameters into one value.
type ArgsInstr struct {
	Params []uint32
}

// LoadSpillInstr loads Words words at Ptr+ByteOffset(+Index*4).
type LoadSpillInstr struct {
	Ptr        Operand
	ByteOffset uint32
	Words      uint32
	Index      Operand
}

// AddrSpillInstr computes Ptr+ByteOffset(+Index*4).
type AddrSpillInstr struct {
	Ptr        Operand
	ByteOffset uint32
	Index      Operand
}

// OperandKind distinguishes operand kinds.
type OperandKind uint8

const (
	// OperandNone is the absent operand.
	OperandNone OperandKind = iota
	OperandLocal
	OperandConst
)

// Operand is an instruction input.
type Operand struct {
	Kind  OperandKind
	Local LocalID
	Const uint64
}

// Local builds a local operand.
func Local(id LocalID) Operand {
	return Operand{Kind: OperandLocal, Local: id}
}

// Const builds a constant operand.
func Const(v uint64) Operand {
	return Operand{Kind: OperandConst, Const: v}
}

// IsNone reports whether the operand is absent.
func (o Operand) IsNone() bool {
	return o.Kind == OperandNone
}

// IsDynamic reports whether o is a non-constant value.
func (o Operand) IsDynamic() bool {
	return o.Kind == OperandLocal
}

// Operands returns the inputs of an instruction.
func (in *Instr) Operands() []Operand {
	var out []Operand
	add := func(ops ...Operand) {
		for _, o := range ops {
			if !o.IsNone() {
				out = append(out, o)
			}
		}
	}
	switch in.Kind {
	case InstrLoad:
		add(in.Load.Index)
	case InstrAddr:
		add(in.Addr.Index)
	case InstrCall:
		add(in.Call.Args...)
		add(in.Call.LayoutArgs...)
	case InstrOp:
		add(in.Op.Args...)
	case InstrLoadSpill:
		add(in.LoadSpill.Ptr, in.LoadSpill.Index)
	case InstrAddrSpill:
		add(in.AddrSpill.Ptr, in.AddrSpill.Index)
	}
	return out
}

// IsLowered reports whether the instruction is in post-rewrite form, i.e. it
// holds no implicit reference to resources or special values.
func (in *Instr) IsLowered() bool {
	switch in.Kind {
	case InstrLoad, InstrAddr, InstrSpecial:
		return false
	}
	return true
}
