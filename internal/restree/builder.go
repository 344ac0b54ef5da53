package restree

import (
	"slices"

	"fortio.org/safecast"
)

// Decl describes one node handed to a Builder. Children inherit the set of
// their table.
type Decl struct {
	Kind        NodeKind
	Set         uint32
	Binding     uint32
	SizeInWords uint32
	Visibility  StageMask
	Root        bool
	Children    []Decl
}

// Builder assembles a Tree from declarations in any order.
type Builder struct {
	decls  []Decl
	pushes []Decl
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add declares a descriptor-set node.
func (b *Builder) Add(d Decl) *Builder {
	b.decls = append(b.decls, d)
	return b
}

// AddPushConstant declares the next push-constant range.
func (b *Builder) AddPushConstant(words uint32, vis StageMask) *Builder {
	idx, err := safecast.Conv[uint32](len(b.pushes))
	if err != nil {
		panic(err)
	}
	b.pushes = append(b.pushes, Decl{
		Kind:        KindPushConstant,
		Set:         PushConstSet,
		Binding:     idx,
		SizeInWords: words,
		Visibility:  vis,
		Root:        true,
	})
	return b
}

// Build validates the declarations and produces an immutable Tree.
func (b *Builder) Build() (*Tree, error) {
	top := slices.Clone(b.decls)
	slices.SortStableFunc(top, func(x, y Decl) int {
		if x.Set != y.Set {
			if x.Set < y.Set {
				return -1
			}
			return 1
		}
		if x.Binding < y.Binding {
			return -1
		}
		if x.Binding > y.Binding {
			return 1
		}
		return 0
	})

	t := &Tree{byRef: make(map[Ref]NodeID, len(top)+len(b.pushes))}
	for _, d := range top {
		if d.Kind == KindPushConstant || d.Set == PushConstSet {
			return nil, &TreeError{Kind: TreeErrBadKind, Ref: Ref{Set: d.Set, Binding: d.Binding}}
		}
		if n := len(t.sets); n == 0 || t.sets[n-1] != d.Set {
			t.sets = append(t.sets, d.Set)
		}
		id, err := t.insert(d, d.Set, NoNodeID)
		if err != nil {
			return nil, err
		}
		t.top = append(t.top, id)
	}
	for _, d := range b.pushes {
		if d.Kind != KindPushConstant {
			return nil, &TreeError{Kind: TreeErrBadKind, Ref: Ref{Set: d.Set, Binding: d.Binding}}
		}
		id, err := t.insert(d, PushConstSet, NoNodeID)
		if err != nil {
			return nil, err
		}
		t.top = append(t.top, id)
		t.pushes = append(t.pushes, id)
	}

	t.rank = make([]int, len(t.nodes))
	for i := range t.nodes {
		t.rank[i] = -1
		if t.nodes[i].IsLeaf() {
			t.rank[i] = len(t.leaves)
			t.leaves = append(t.leaves, nodeID(i))
		}
	}
	return t, nil
}

func (t *Tree) insert(d Decl, set uint32, parent NodeID) (NodeID, error) {
	ref := Ref{Set: set, Binding: d.Binding}
	if _, dup := t.byRef[ref]; dup {
		return NoNodeID, &TreeError{Kind: TreeErrDuplicateBinding, Ref: ref}
	}
	if d.Kind == KindPushConstant && set != PushConstSet {
		return NoNodeID, &TreeError{Kind: TreeErrBadKind, Ref: ref}
	}
	vis := d.Visibility
	if vis == 0 {
		vis = AllStages
	}
	id := nodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		Kind:        d.Kind,
		Set:         set,
		Binding:     d.Binding,
		SizeInWords: d.SizeInWords,
		Visibility:  vis,
		Root:        d.Root || d.Kind == KindPushConstant,
		Parent:      parent,
	})
	t.byRef[ref] = id

	if !d.Kind.IsTable() {
		if len(d.Children) != 0 {
			return NoNodeID, &TreeError{Kind: TreeErrBadKind, Ref: ref}
		}
		if d.SizeInWords == 0 {
			return NoNodeID, &TreeError{Kind: TreeErrEmptyNode, Ref: ref}
		}
		return id, nil
	}

	if len(d.Children) == 0 {
		return NoNodeID, &TreeError{Kind: TreeErrEmptyTable, Ref: ref}
	}
	var sum uint32
	children := make([]NodeID, 0, len(d.Children))
	for _, c := range d.Children {
		if c.Visibility == 0 {
			c.Visibility = vis
		}
		cid, err := t.insert(c, set, id)
		if err != nil {
			return NoNodeID, err
		}
		children = append(children, cid)
		sum += t.nodes[cid].SizeInWords
	}
	if d.SizeInWords != 0 && d.SizeInWords != sum {
		return NoNodeID, &TreeError{Kind: TreeErrTableSize, Ref: ref, Want: sum, Got: d.SizeInWords}
	}
	t.nodes[id].SizeInWords = sum
	t.nodes[id].Children = children
	return id, nil
}
