package restree

import (
	"fmt"
	"strings"
)

// SpecialValue enumerates stage-supplied values that are not part of the tree.
type SpecialValue uint8

const (
	SpecialInternalTables SpecialValue = iota + 1
	SpecialBaseVertex
	SpecialBaseInstance
	SpecialDrawIndex
	SpecialViewIndex
	SpecialWorkgroupCount
	SpecialStreamOutTable
	SpecialMeshDispatchDims

	specialCount
)

var specialNames = [...]string{
	SpecialInternalTables:   "internal_tables",
	SpecialBaseVertex:       "base_vertex",
	SpecialBaseInstance:     "base_instance",
	SpecialDrawIndex:        "draw_index",
	SpecialViewIndex:        "view_index",
	SpecialWorkgroupCount:   "workgroup_count",
	SpecialStreamOutTable:   "stream_out_table",
	SpecialMeshDispatchDims: "mesh_dispatch_dims",
}

// AllSpecials lists every special value in enum order.
func AllSpecials() []SpecialValue {
	out := make([]SpecialValue, 0, int(specialCount)-1)
	for v := SpecialInternalTables; v < specialCount; v++ {
		out = append(out, v)
	}
	return out
}

func (v SpecialValue) String() string {
	if v > 0 && v < specialCount {
		return specialNames[v]
	}
	return fmt.Sprintf("special(%d)", uint8(v))
}

// IsValid reports whether v is a known special value.
func (v SpecialValue) IsValid() bool {
	return v > 0 && v < specialCount
}

// Words returns the natural width of v in register words.
func (v SpecialValue) Words() uint32 {
	switch v {
	case SpecialWorkgroupCount, SpecialMeshDispatchDims:
		return 2
	default:
		return 1
	}
}

// ParseSpecial converts a textual special value name.
func ParseSpecial(s string) (SpecialValue, error) {
	for v := SpecialInternalTables; v < specialCount; v++ {
		if specialNames[v] == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown special value %q", s)
}

// StageKind identifies a pipeline stage.
type StageKind uint8

const (
	StageUnknown StageKind = iota
	StageVertex
	StageGeometry
	StageFragment
	StageCompute
	StageTask
	StageMesh

	// StageGeneric is used for helpers reachable from several stages.
	StageGeneric
)

var stageNames = [...]string{
	StageUnknown:  "unknown",
	StageVertex:   "vertex",
	StageGeometry: "geometry",
	StageFragment: "fragment",
	StageCompute:  "compute",
	StageTask:     "task",
	StageMesh:     "mesh",
	StageGeneric:  "generic",
}

func (s StageKind) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// HardwareStages lists the stages a pipeline can dispatch.
func HardwareStages() []StageKind {
	return []StageKind{StageVertex, StageGeometry, StageFragment, StageCompute, StageTask, StageMesh}
}

// ParseStage converts a textual stage name.
func ParseStage(s string) (StageKind, error) {
	for i, name := range stageNames {
		if name == s && StageKind(i) != StageUnknown {
			return StageKind(i), nil
		}
	}
	return StageUnknown, fmt.Errorf("unknown stage %q", s)
}

// StageMask is a set of hardware stages.
type StageMask uint16

// AllStages contains every hardware stage.
const AllStages StageMask = 1<<StageVertex | 1<<StageGeometry | 1<<StageFragment |
	1<<StageCompute | 1<<StageTask | 1<<StageMesh

// MaskOf builds a mask from stages.
func MaskOf(stages ...StageKind) StageMask {
	var m StageMask
	for _, s := range stages {
		m |= 1 << s
	}
	return m
}

// Has reports whether s is in m.
func (m StageMask) Has(s StageKind) bool {
	return m&(1<<s) != 0
}

// Stages lists the members of m in enum order.
func (m StageMask) Stages() []StageKind {
	var out []StageKind
	for _, s := range HardwareStages() {
		if m.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

func (m StageMask) String() string {
	stages := m.Stages()
	if len(stages) == 0 {
		return "none"
	}
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, "|")
}
