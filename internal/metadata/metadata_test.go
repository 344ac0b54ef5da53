package metadata_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/ir"
	"pipelayout/internal/layout"
	"pipelayout/internal/metadata"
	"pipelayout/internal/plan"
	"pipelayout/internal/restree"
	"pipelayout/internal/target"
	"pipelayout/internal/usage"
)

func sampleInput(t *testing.T) metadata.Input {
	t.Helper()
	tree, err := restree.NewBuilder().
		Add(restree.Decl{Kind: restree.KindBuffer, Binding: 0, SizeInWords: 1}).
		Add(restree.Decl{Kind: restree.KindBuffer, Binding: 1, SizeInWords: 4}).
		AddPushConstant(2, 0).
		Build()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	prog := ir.NewProgram()
	mb := ir.NewFunc("main").Stage(restree.StageCompute).Dispatch()
	mb.Special(restree.SpecialWorkgroupCount)
	mb.Load(restree.Ref{Binding: 0}, 0, 1)
	mb.Load(restree.Ref{Binding: 1}, 0, 4)
	mb.Load(restree.PushRef(0), 0, 2)
	if _, err := prog.Add(mb.Return(ir.Operand{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := prog.Add(ir.NewFunc("lib").External(restree.MaskOf(restree.StageCompute)).Return(ir.Operand{})); err != nil {
		t.Fatalf("add: %v", err)
	}

	tgt := &target.Target{Name: "test", WordBytes: 4, Stages: []target.StageProfile{
		{Stage: restree.StageCompute, Budget: 6, MayNeed: []restree.SpecialValue{restree.SpecialWorkgroupCount}},
	}}
	region, err := layout.New().RegionOf(tree)
	if err != nil {
		t.Fatalf("region: %v", err)
	}
	masks, err := usage.CollectProgram(tree, prog)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	g, err := callgraph.Build(prog)
	if err != nil {
		t.Fatalf("callgraph: %v", err)
	}
	if err := callgraph.Propagate(g, tree, tgt, masks, nil); err != nil {
		t.Fatalf("propagate: %v", err)
	}
	plans, err := (&plan.Planner{Tree: tree, Region: region}).All(g)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	return metadata.Input{Pipeline: "sample", Target: tgt.Name, Tree: tree, Region: region, Graph: g, Plans: plans}
}

func TestEmit(t *testing.T) {
	b, err := metadata.Emit(sampleInput(t))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	wc := metadata.SpecialTag(restree.SpecialWorkgroupCount)
	want := &metadata.Blob{
		Version:  metadata.Version{Major: 1, Minor: 1},
		Pipeline: "sample",
		Target:   "test",
		Stages: []metadata.StageLayout{{
			Stage:          "compute",
			Entry:          "main",
			UserDataLimit:  7,
			SpillThreshold: 1,
			UserDataRegMap: []uint32{wc, wc, 0, 5, 6, metadata.TagSpillTable},
		}},
		SpillTable: metadata.SpillTable{SizeBytes: 28, Entries: []metadata.SpillEntry{
			{Ref: "set0/b0", ByteOffset: 0, SizeInWords: 1},
			{Ref: "set0/b1", ByteOffset: 4, SizeInWords: 4},
			{Ref: "push0", ByteOffset: 20, SizeInWords: 2},
		}},
	}
	if diff := cmp.Diff(want, b, cmpopts.IgnoreFields(metadata.Blob{}, "Libraries")); diff != "" {
		t.Fatalf("blob (-want +got):\n%s", diff)
	}

	if len(b.Libraries) != 1 {
		t.Fatalf("libraries = %+v", b.Libraries)
	}
	lib := b.Libraries[0]
	wantMap := []uint32{wc, wc, 0, metadata.TagPadding, metadata.TagPadding, metadata.TagSpillTable}
	if lib.Name != "lib" || lib.Reach != "compute" || !cmp.Equal(wantMap, lib.UserDataRegMap) {
		t.Fatalf("library shape = %+v", lib)
	}
	if lib.Fingerprint == 0 {
		t.Fatalf("library fingerprint missing")
	}
}

func TestEmitMissingPlan(t *testing.T) {
	in := sampleInput(t)
	in.Plans = in.Plans[:1]
	_, err := metadata.Emit(in)
	var me *metadata.MetadataError
	if !errors.As(err, &me) || me.Kind != metadata.MetaErrMissingPlan || me.Detail != "lib" {
		t.Fatalf("error = %v, want missing plan for lib", err)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	b, err := metadata.Emit(sampleInput(t))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	first, err := metadata.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b2, err := metadata.Emit(sampleInput(t))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	second, err := metadata.Marshal(b2)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("equal pipelines encoded differently")
	}
	back, err := metadata.Unmarshal(first)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(b, back, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("decoded blob (-emitted +decoded):\n%s", diff)
	}
}

func TestUnmarshalDerivesSizesForOldBlobs(t *testing.T) {
	old := &metadata.Blob{
		Version:  metadata.Version{Major: 1, Minor: 0},
		Pipeline: "old",
		Stages: []metadata.StageLayout{{
			Stage: "compute", Entry: "main", SpillThreshold: metadata.NoSpill,
			UserDataRegMap: []uint32{6, metadata.TagSpillTable},
		}},
		SpillTable: metadata.SpillTable{SizeBytes: 28, Entries: []metadata.SpillEntry{
			{Ref: "push0", ByteOffset: 20},
			{Ref: "set0/b0", ByteOffset: 0},
			{Ref: "set0/b1", ByteOffset: 4},
		}},
	}
	data, err := metadata.Marshal(old)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := metadata.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var sizes []uint32
	for _, e := range b.SpillTable.Entries {
		sizes = append(sizes, e.SizeInWords)
	}
	if diff := cmp.Diff([]uint32{2, 1, 4}, sizes); diff != "" {
		t.Fatalf("sizes (-want +got):\n%s", diff)
	}
	if got := b.ResolveTag(6); got != "push0[1]" {
		t.Fatalf("ResolveTag(6) = %q", got)
	}
}

func TestUnmarshalRejects(t *testing.T) {
	valid := func() *metadata.Blob {
		return &metadata.Blob{
			Version: metadata.Version{Major: 1, Minor: 1},
			SpillTable: metadata.SpillTable{SizeBytes: 8, Entries: []metadata.SpillEntry{
				{Ref: "set0/b0", ByteOffset: 0, SizeInWords: 2},
			}},
			Stages: []metadata.StageLayout{{Stage: "compute", UserDataRegMap: []uint32{0, 1}}},
		}
	}
	cases := []struct {
		name   string
		mutate func(b *metadata.Blob)
		kind   metadata.MetaErrorKind
	}{
		{"future major", func(b *metadata.Blob) { b.Version.Major = 2 }, metadata.MetaErrVersion},
		{"entry past table", func(b *metadata.Blob) { b.SpillTable.SizeBytes = 4 }, metadata.MetaErrCorrupt},
		{"unaligned entry", func(b *metadata.Blob) { b.SpillTable.Entries[0].ByteOffset = 2 }, metadata.MetaErrCorrupt},
		{"tag past table", func(b *metadata.Blob) { b.Stages[0].UserDataRegMap[1] = 2 }, metadata.MetaErrCorrupt},
		{"unknown tag", func(b *metadata.Blob) { b.Stages[0].UserDataRegMap[0] = 0x20000000 }, metadata.MetaErrCorrupt},
		{"old blob without room", func(b *metadata.Blob) {
			b.Version.Minor = 0
			b.SpillTable.Entries = append(b.SpillTable.Entries, metadata.SpillEntry{Ref: "set0/b1", ByteOffset: 8})
		}, metadata.MetaErrCorrupt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := valid()
			tc.mutate(b)
			data, err := metadata.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			_, err = metadata.Unmarshal(data)
			var me *metadata.MetadataError
			if !errors.As(err, &me) || me.Kind != tc.kind {
				t.Fatalf("error = %v, want kind %d", err, tc.kind)
			}
		})
	}

	_, err := metadata.Unmarshal([]byte{0xc1})
	var me *metadata.MetadataError
	if !errors.As(err, &me) || me.Kind != metadata.MetaErrDecode {
		t.Fatalf("garbage: error = %v", err)
	}
}

func TestWriteAndReadFile(t *testing.T) {
	b, err := metadata.Emit(sampleInput(t))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out", "sample.mpk")
	if err := metadata.WriteFile(path, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := metadata.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if back.Pipeline != "sample" || len(back.Stages) != 1 {
		t.Fatalf("read back %+v", back)
	}
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".pipelayout-*"))
	if err != nil || len(matches) != 0 {
		t.Fatalf("temp files left behind: %v %v", matches, err)
	}
}

func TestTags(t *testing.T) {
	cases := []struct {
		tag  uint32
		kind metadata.TagKind
		text string
	}{
		{5, metadata.TagKindLeaf, "dword 5"},
		{metadata.SpecialTag(restree.SpecialDrawIndex), metadata.TagKindSpecial, "draw_index"},
		{metadata.TagSpillTable, metadata.TagKindSpillTable, "spill_table"},
		{metadata.TagPadding, metadata.TagKindPadding, "padding"},
		{metadata.TagSpecialBase | 0x1e, metadata.TagKindInvalid, "invalid(0x1000001e)"},
	}
	for _, tc := range cases {
		kind, _ := metadata.ClassifyTag(tc.tag)
		if kind != tc.kind {
			t.Fatalf("ClassifyTag(%#x) = %d, want %d", tc.tag, kind, tc.kind)
		}
		if got := metadata.FormatTag(tc.tag); got != tc.text {
			t.Fatalf("FormatTag(%#x) = %q, want %q", tc.tag, got, tc.text)
		}
	}
}
