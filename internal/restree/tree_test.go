package restree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildSample(t *testing.T) *Tree {
	t.Helper()
	tree, err := NewBuilder().
		Add(Decl{Kind: KindBuffer, Set: 1, Binding: 0, SizeInWords: 2}).
		Add(Decl{Kind: KindDescriptorTable, Set: 0, Binding: 1, Visibility: MaskOf(StageFragment), Children: []Decl{
			{Kind: KindSampler, Binding: 2, SizeInWords: 4},
			{Kind: KindCombinedTextureSampler, Binding: 3, SizeInWords: 8, Visibility: MaskOf(StageCompute)},
		}}).
		Add(Decl{Kind: KindInlineBuffer, Set: 0, Binding: 0, SizeInWords: 1, Root: true}).
		AddPushConstant(4, MaskOf(StageVertex)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tree
}

func refsOf(tree *Tree, ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = tree.Node(id).Ref().String()
	}
	return out
}

func TestBuildTreeOrder(t *testing.T) {
	tree := buildSample(t)

	if diff := cmp.Diff([]string{"set0/b0", "set0/b1", "set1/b0", "push0"}, refsOf(tree, tree.Top())); diff != "" {
		t.Fatalf("top order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"set0/b0", "set0/b2", "set0/b3", "set1/b0", "push0"}, refsOf(tree, tree.Leaves())); diff != "" {
		t.Fatalf("leaf order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{0, 1}, tree.Sets()); diff != "" {
		t.Fatalf("sets (-want +got):\n%s", diff)
	}
	if got := tree.TotalWords(); got != 19 {
		t.Fatalf("total words = %d, want 19", got)
	}

	table, _ := tree.Lookup(Ref{Set: 0, Binding: 1})
	if n := tree.Node(table); n.SizeInWords != 12 || n.IsLeaf() {
		t.Fatalf("table = %+v", n)
	}
	if tree.Rank(table) != -1 {
		t.Fatalf("table has a leaf rank")
	}
	sampler, _ := tree.Lookup(Ref{Set: 0, Binding: 2})
	if n := tree.Node(sampler); n.Parent != table || n.Visibility != MaskOf(StageFragment) {
		t.Fatalf("sampler = %+v", n)
	}
	if tree.Rank(sampler) != 1 {
		t.Fatalf("sampler rank = %d", tree.Rank(sampler))
	}
	push, _ := tree.Lookup(PushRef(0))
	if n := tree.Node(push); !n.Root || n.Kind != KindPushConstant {
		t.Fatalf("push = %+v", n)
	}
}

func TestLeavesVisibleTo(t *testing.T) {
	tree := buildSample(t)
	got := refsOf(tree, tree.LeavesVisibleTo(MaskOf(StageFragment)))
	if diff := cmp.Diff([]string{"set0/b0", "set0/b2", "set1/b0"}, got); diff != "" {
		t.Fatalf("fragment leaves (-want +got):\n%s", diff)
	}
	got = refsOf(tree, tree.LeavesVisibleTo(MaskOf(StageVertex, StageCompute)))
	if diff := cmp.Diff([]string{"set0/b0", "set0/b3", "set1/b0", "push0"}, got); diff != "" {
		t.Fatalf("vertex|compute leaves (-want +got):\n%s", diff)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		b    *Builder
		kind TreeErrorKind
	}{
		{"duplicate", NewBuilder().
			Add(Decl{Kind: KindBuffer, Binding: 0, SizeInWords: 1}).
			Add(Decl{Kind: KindSampler, Binding: 0, SizeInWords: 4}), TreeErrDuplicateBinding},
		{"duplicate child", NewBuilder().
			Add(Decl{Kind: KindBuffer, Binding: 0, SizeInWords: 1}).
			Add(Decl{Kind: KindDescriptorTable, Binding: 1, Children: []Decl{{Kind: KindBuffer, Binding: 0, SizeInWords: 1}}}), TreeErrDuplicateBinding},
		{"table size", NewBuilder().
			Add(Decl{Kind: KindDescriptorTable, Binding: 0, SizeInWords: 3, Children: []Decl{{Kind: KindBuffer, Binding: 1, SizeInWords: 4}}}), TreeErrTableSize},
		{"zero size", NewBuilder().Add(Decl{Kind: KindBuffer, Binding: 0}), TreeErrEmptyNode},
		{"empty table", NewBuilder().Add(Decl{Kind: KindDescriptorTable, Binding: 0}), TreeErrEmptyTable},
		{"push in set", NewBuilder().Add(Decl{Kind: KindPushConstant, Binding: 0, SizeInWords: 1}), TreeErrBadKind},
		{"leaf children", NewBuilder().
			Add(Decl{Kind: KindBuffer, Binding: 0, SizeInWords: 1, Children: []Decl{{Kind: KindBuffer, Binding: 1, SizeInWords: 1}}}), TreeErrBadKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.b.Build()
			var te *TreeError
			if !errors.As(err, &te) || te.Kind != tc.kind {
				t.Fatalf("error = %v, want kind %d", err, tc.kind)
			}
		})
	}
}

func TestParseRef(t *testing.T) {
	cases := []struct {
		in   string
		want Ref
		err  bool
	}{
		{in: "set0/b2", want: Ref{Set: 0, Binding: 2}},
		{in: " set12/b7 ", want: Ref{Set: 12, Binding: 7}},
		{in: "push3", want: PushRef(3)},
		{in: "set0", err: true},
		{in: "s0/b1", err: true},
		{in: "set0/1", err: true},
		{in: "pushx", err: true},
		{in: "set4294967295/b0", err: true},
	}
	for _, tc := range cases {
		got, err := ParseRef(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("ParseRef(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseRef(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if back, _ := ParseRef(got.String()); back != got {
			t.Fatalf("round trip of %v gave %v", got, back)
		}
	}
}

func TestSpecialsAndStages(t *testing.T) {
	for _, v := range AllSpecials() {
		got, err := ParseSpecial(v.String())
		if err != nil || got != v {
			t.Fatalf("ParseSpecial(%q) = %v, %v", v, got, err)
		}
	}
	if SpecialWorkgroupCount.Words() != 2 || SpecialViewIndex.Words() != 1 {
		t.Fatalf("unexpected special widths")
	}
	if SpecialValue(0).IsValid() {
		t.Fatalf("zero special reported valid")
	}
	if _, err := ParseStage("unknown"); err == nil {
		t.Fatalf("unknown stage parsed")
	}
	m := MaskOf(StageVertex, StageFragment)
	if m.String() != "vertex|fragment" || !m.Has(StageFragment) || m.Has(StageCompute) {
		t.Fatalf("mask = %s", m)
	}
	if StageMask(0).String() != "none" {
		t.Fatalf("empty mask string")
	}
	if len(AllStages.Stages()) != len(HardwareStages()) {
		t.Fatalf("AllStages does not cover every hardware stage")
	}
}
