package ir

import (
	"fmt"

	"pipelayout/internal/restree"
)

// Linkage tells whether every call site of a function is visible.
type Linkage uint8

const (
	// LinkInternal functions are only called from this program.
	LinkInternal Linkage = iota
	// LinkExternal functions may be called by separately compiled code.
	LinkExternal
)

func (l Linkage) String() string {
	if l == LinkExternal {
		return "external"
	}
	return "internal"
}

// ParamKind tags the content of a layout parameter.
type ParamKind uint8

const (
	ParamLeaf ParamKind = iota + 1
	ParamSpecial
	ParamSpillPointer
	ParamPadding
)

// Param is one argument register of a rewritten function.
type Param struct {
	Index   uint32
	Kind    ParamKind
	Leaf    restree.NodeID
	Word    uint32
	Special restree.SpecialValue
}

func (p Param) String() string {
	switch p.Kind {
	case ParamLeaf:
		return fmt.Sprintf("r%d=node#%d[%d]", p.Index, p.Leaf, p.Word)
	case ParamSpecial:
		return fmt.Sprintf("r%d=%s[%d]", p.Index, p.Special, p.Word)
	case ParamSpillPointer:
		return fmt.Sprintf("r%d=spill_table", p.Index)
	default:
		return fmt.Sprintf("r%d=pad", p.Index)
	}
}

// Func is one function of a pipeline program.
type Func struct {
	ID   FuncID
	Name string

	// Stage is the declared stage; helpers may leave it unknown.
	Stage restree.StageKind
	// Dispatch marks the function the pipeline launches for its stage.
	Dispatch bool
	Linkage  Linkage
	// Reach lists the stages whose code may call an external function.
	Reach restree.StageMask

	// Params and LayoutSig are set by the signature rewriter.
	Params    []Param
	LayoutSig uint64

	Locals int
	Blocks []Block
	Entry  BlockID
}

// NewLocal allocates a fresh local.
func (f *Func) NewLocal() LocalID {
	id := LocalID(f.Locals)
	f.Locals++
	return id
}

// Block returns the block with the given id, or nil.
func (f *Func) Block(id BlockID) *Block {
	if f == nil || id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

// Walk visits every instruction in block order.
func (f *Func) Walk(fn func(bb BlockID, in *Instr)) {
	if f == nil {
		return
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for j := range bb.Instrs {
			fn(bb.ID, &bb.Instrs[j])
		}
	}
}
