package ir

// Block is a basic block.
type Block struct {
	ID     BlockID
	Instrs []Instr
	Term   Terminator
}

// Terminated reports whether the block has a terminator.
func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// TermKind enumerates terminators.
type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermIf
)

// Terminator ends a block.
type Terminator struct {
	Kind   TermKind
	Value  Operand // TermReturn
	Cond   Operand // TermIf
	Target BlockID // TermGoto, TermIf then
	Else   BlockID // TermIf
}
