package restree

import "fmt"

// NodeID indexes a node inside a Tree arena.
type NodeID uint32

// NoNodeID marks an absent node.
const NoNodeID NodeID = ^NodeID(0)

// IsValid reports whether id refers to a node.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// NodeKind tags the variant of a resource node.
type NodeKind uint8

const (
	KindDescriptorTable NodeKind = iota + 1
	KindBuffer
	KindBufferCompact
	KindSampler
	KindCombinedTextureSampler
	KindInlineBuffer
	KindPushConstant
	KindIndirectTablePointer
	KindStreamOutTable
)

var kindNames = map[NodeKind]string{
	KindDescriptorTable:        "descriptor_table",
	KindBuffer:                 "buffer",
	KindBufferCompact:          "buffer_compact",
	KindSampler:                "sampler",
	KindCombinedTextureSampler: "combined_texture_sampler",
	KindInlineBuffer:           "inline_buffer",
	KindPushConstant:           "push_constant",
	KindIndirectTablePointer:   "indirect_table_pointer",
	KindStreamOutTable:         "stream_out_table",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts the textual kind used in pipeline descriptions.
func ParseKind(s string) (NodeKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

// IsTable reports whether nodes of this kind own children.
func (k NodeKind) IsTable() bool {
	return k == KindDescriptorTable
}

// PushConstSet is the pseudo set index used by push-constant ranges.
const PushConstSet = ^uint32(0)

// Node is one entry of the resource tree.
type Node struct {
	Kind        NodeKind
	Set         uint32
	Binding     uint32
	SizeInWords uint32
	Visibility  StageMask

	// Root marks a descriptor whose words may be supplied directly in registers.
	Root bool

	Parent   NodeID
	Children []NodeID
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n != nil && len(n.Children) == 0
}

// Ref returns the reference naming n.
func (n *Node) Ref() Ref {
	return Ref{Set: n.Set, Binding: n.Binding}
}
