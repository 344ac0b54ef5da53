package usage

import (
	"errors"

	"pipelayout/internal/ir"
	"pipelayout/internal/restree"
)

// Collect scans the body of f and returns its direct usage. Raw loads of
// constant word ranges record a plain use; address computations set
// AddressTaken and dynamic indices set DynamicallyIndexed.
func Collect(tree *restree.Tree, f *ir.Func) (*Mask, error) {
	m := NewMask()
	if f == nil {
		return m, nil
	}
	var errs []error
	f.Walk(func(_ ir.BlockID, in *ir.Instr) {
		switch in.Kind {
		case ir.InstrLoad:
			id, err := resolve(tree, f.Name, in.Load.Ref)
			if err != nil {
				errs = append(errs, err)
				return
			}
			size := tree.Node(id).SizeInWords
			dynamic := in.Load.Index.IsDynamic()
			if !dynamic && uint64(in.Load.WordOffset)+uint64(in.Load.Words) > uint64(size) {
				errs = append(errs, &RefError{
					Kind: RefErrOutOfRange, Func: f.Name, Ref: in.Load.Ref,
					WordOffset: in.Load.WordOffset, Words: in.Load.Words, Size: size,
				})
				return
			}
			m.Add(Entry{Key: LeafKey(id), DynamicallyIndexed: dynamic})
		case ir.InstrAddr:
			id, err := resolve(tree, f.Name, in.Addr.Ref)
			if err != nil {
				errs = append(errs, err)
				return
			}
			m.Add(Entry{Key: LeafKey(id), AddressTaken: true, DynamicallyIndexed: in.Addr.Index.IsDynamic()})
		case ir.InstrSpecial:
			if !in.Special.Value.IsValid() {
				errs = append(errs, &RefError{Kind: RefErrSpecial, Func: f.Name, Special: in.Special.Value})
				return
			}
			m.Add(Entry{Key: SpecialKey(in.Special.Value)})
		}
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// CollectProgram returns the direct usage of every function, indexed by id.
func CollectProgram(tree *restree.Tree, p *ir.Program) ([]*Mask, error) {
	out := make([]*Mask, len(p.Funcs))
	var errs []error
	for i, f := range p.Funcs {
		m, err := Collect(tree, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[i] = m
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func resolve(tree *restree.Tree, fn string, ref restree.Ref) (restree.NodeID, error) {
	id, ok := tree.Lookup(ref)
	if !ok {
		return restree.NoNodeID, &RefError{Kind: RefErrUnknown, Func: fn, Ref: ref}
	}
	if !tree.Node(id).IsLeaf() {
		return restree.NoNodeID, &RefError{Kind: RefErrTable, Func: fn, Ref: ref}
	}
	return id, nil
}
