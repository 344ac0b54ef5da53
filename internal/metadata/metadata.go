package metadata

import (
	"cmp"
	"fmt"
	"slices"

	"pipelayout/internal/callgraph"
	"pipelayout/internal/ir"
	"pipelayout/internal/layout"
	"pipelayout/internal/plan"
	"pipelayout/internal/restree"
)

// Current format version. Readers accept every 1.x; 1.0 blobs carry no
// per-leaf sizes and no library shapes.
const (
	VersionMajor uint32 = 1
	VersionMinor uint32 = 1
)

type Version struct {
	Major uint32 `msgpack:"major"`
	Minor uint32 `msgpack:"minor"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Blob is the side table the runtime loader reads.
type Blob struct {
	Version    Version        `msgpack:"version"`
	Pipeline   string         `msgpack:"pipeline"`
	Target     string         `msgpack:"target"`
	Stages     []StageLayout  `msgpack:"stages"`
	SpillTable SpillTable     `msgpack:"spill_table"`
	Libraries  []LibraryShape `msgpack:"library_shapes,omitempty"`
}

// StageLayout is the register setup of one dispatched stage.
type StageLayout struct {
	Stage string `msgpack:"stage"`
	Entry string `msgpack:"entry"`
	// UserDataLimit is one past the highest spill table dword the stage
	// supplies, either in a register or through the spill pointer.
	UserDataLimit uint32 `msgpack:"user_data_limit"`
	// SpillThreshold is the lowest dword the entry or any function it calls
	// reads from memory, or NoSpill.
	SpillThreshold uint32   `msgpack:"spill_threshold"`
	UserDataRegMap []uint32 `msgpack:"user_data_reg_map"`
}

// SpillTable describes the memory layout the loader fills once per pipeline.
type SpillTable struct {
	SizeBytes uint32       `msgpack:"size_bytes"`
	Entries   []SpillEntry `msgpack:"entries"`
}

type SpillEntry struct {
	Ref         string `msgpack:"ref"`
	ByteOffset  uint32 `msgpack:"byte_offset"`
	SizeInWords uint32 `msgpack:"size_in_words,omitempty"`
}

// LibraryShape lets separately linked callers check they agree with the
// register shape a library was compiled against.
type LibraryShape struct {
	Name           string   `msgpack:"name"`
	Reach          string   `msgpack:"reach"`
	UserDataRegMap []uint32 `msgpack:"user_data_reg_map"`
	Fingerprint    uint64   `msgpack:"fingerprint"`
}

// Input is everything Emit reads. Nothing is modified.
type Input struct {
	Pipeline string
	Target   string
	Tree     *restree.Tree
	Region   *layout.Region
	Graph    *callgraph.Graph
	Plans    []*plan.Plan
}

// Emit builds the metadata of a fully planned pipeline.
func Emit(in Input) (*Blob, error) {
	b := &Blob{
		Version:  Version{Major: VersionMajor, Minor: VersionMinor},
		Pipeline: in.Pipeline,
		Target:   in.Target,
		SpillTable: SpillTable{
			SizeBytes: in.Region.SizeBytes,
			Entries:   make([]SpillEntry, 0, len(in.Region.Entries)),
		},
	}
	for _, e := range in.Region.Entries {
		b.SpillTable.Entries = append(b.SpillTable.Entries, SpillEntry{
			Ref:         in.Tree.Node(e.Leaf).Ref().String(),
			ByteOffset:  e.ByteOffset,
			SizeInWords: e.SizeInWords,
		})
	}

	for _, node := range in.Graph.Dispatches() {
		p, err := planOf(in.Plans, node)
		if err != nil {
			return nil, err
		}
		st, err := stageLayout(in, node, p)
		if err != nil {
			return nil, err
		}
		b.Stages = append(b.Stages, st)
	}
	for _, node := range in.Graph.Libraries() {
		p, err := planOf(in.Plans, node)
		if err != nil {
			return nil, err
		}
		b.Libraries = append(b.Libraries, LibraryShape{
			Name:           p.Name,
			Reach:          node.Reach.String(),
			UserDataRegMap: regMap(p),
			Fingerprint:    p.Fingerprint(),
		})
	}
	slices.SortFunc(b.Libraries, func(x, y LibraryShape) int { return cmp.Compare(x.Name, y.Name) })
	return b, nil
}

func planOf(plans []*plan.Plan, node *callgraph.Node) (*plan.Plan, error) {
	id := node.Func.ID
	if int(id) >= len(plans) || plans[id] == nil {
		return nil, &MetadataError{Kind: MetaErrMissingPlan, Detail: node.Func.Name}
	}
	return plans[id], nil
}

func stageLayout(in Input, node *callgraph.Node, p *plan.Plan) (StageLayout, error) {
	st := StageLayout{
		Stage:          p.Stage.String(),
		Entry:          p.Name,
		SpillThreshold: NoSpill,
		UserDataRegMap: regMap(p),
	}
	for _, s := range p.Slots {
		if s.Kind == plan.SlotLeaf {
			st.UserDataLimit = max(st.UserDataLimit, p.Region.Offset(s.Leaf)/layout.WordBytes+s.Word+1)
		}
	}
	reads, err := memoryReads(in, node)
	if err != nil {
		return StageLayout{}, err
	}
	for _, leaf := range reads {
		re, ok := in.Region.Lookup(leaf)
		if !ok {
			continue
		}
		off := re.ByteOffset / layout.WordBytes
		st.SpillThreshold = min(st.SpillThreshold, off)
		st.UserDataLimit = max(st.UserDataLimit, off+re.SizeInWords)
	}
	return st, nil
}

// memoryReads lists the leaves the entry or any function it reaches may load
// through the spill pointer: spilled leaves and leaves accessed by address or
// dynamic index.
func memoryReads(in Input, root *callgraph.Node) ([]restree.NodeID, error) {
	seen := make(map[ir.FuncID]bool)
	leaves := make(map[restree.NodeID]bool)
	stack := []*callgraph.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[node.Func.ID] {
			continue
		}
		seen[node.Func.ID] = true

		p, err := planOf(in.Plans, node)
		if err != nil {
			return nil, err
		}
		for _, e := range p.Spilled {
			leaves[e.Leaf] = true
		}
		for _, e := range node.Direct.Leaves(in.Tree) {
			if e.NeedsMemory() {
				leaves[e.Leaf] = true
			}
		}
		for _, c := range node.Callees {
			stack = append(stack, in.Graph.Node(c))
		}
	}
	out := make([]restree.NodeID, 0, len(leaves))
	for leaf := range leaves {
		out = append(out, leaf)
	}
	slices.Sort(out)
	return out, nil
}

func regMap(p *plan.Plan) []uint32 {
	out := make([]uint32, len(p.Slots))
	for i, s := range p.Slots {
		switch s.Kind {
		case plan.SlotLeaf:
			out[i] = LeafTag(p.Region.Offset(s.Leaf)/layout.WordBytes + s.Word)
		case plan.SlotSpecial:
			out[i] = SpecialTag(s.Special)
		case plan.SlotSpillPointer:
			out[i] = TagSpillTable
		default:
			out[i] = TagPadding
		}
	}
	return out
}

// Stage returns the layout of a stage by name.
func (b *Blob) Stage(name string) (StageLayout, bool) {
	for _, st := range b.Stages {
		if st.Stage == name {
			return st, true
		}
	}
	return StageLayout{}, false
}

// ResolveTag renders a tag, naming the leaf a dword offset falls into.
func (b *Blob) ResolveTag(tag uint32) string {
	kind, off := ClassifyTag(tag)
	if kind != TagKindLeaf {
		return FormatTag(tag)
	}
	for _, e := range b.SpillTable.Entries {
		start := e.ByteOffset / layout.WordBytes
		if off >= start && off < start+e.SizeInWords {
			if e.SizeInWords > 1 {
				return fmt.Sprintf("%s[%d]", e.Ref, off-start)
			}
			return e.Ref
		}
	}
	return FormatTag(tag)
}
