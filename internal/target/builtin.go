package target

import (
	"fmt"
	"strings"

	"pipelayout/internal/restree"
)

func profiles(budget int) []StageProfile {
	tables := FixedSpecial{Value: restree.SpecialInternalTables, Slot: 0}
	return []StageProfile{
		{
			Stage:  restree.StageVertex,
			Budget: budget,
			Fixed: []FixedSpecial{
				tables,
				{Value: restree.SpecialBaseVertex, Slot: 1},
				{Value: restree.SpecialBaseInstance, Slot: 2},
			},
			MayNeed: []restree.SpecialValue{restree.SpecialDrawIndex, restree.SpecialViewIndex, restree.SpecialStreamOutTable},
		},
		{
			Stage:   restree.StageGeometry,
			Budget:  budget,
			Fixed:   []FixedSpecial{tables},
			MayNeed: []restree.SpecialValue{restree.SpecialViewIndex, restree.SpecialStreamOutTable},
		},
		{
			Stage:   restree.StageFragment,
			Budget:  budget,
			Fixed:   []FixedSpecial{tables},
			MayNeed: []restree.SpecialValue{restree.SpecialViewIndex},
		},
		{
			Stage:   restree.StageCompute,
			Budget:  budget,
			Fixed:   []FixedSpecial{tables},
			MayNeed: []restree.SpecialValue{restree.SpecialWorkgroupCount},
		},
		{
			Stage:   restree.StageTask,
			Budget:  budget,
			Fixed:   []FixedSpecial{tables},
			MayNeed: []restree.SpecialValue{restree.SpecialWorkgroupCount, restree.SpecialDrawIndex},
		},
		{
			Stage:   restree.StageMesh,
			Budget:  budget,
			Fixed:   []FixedSpecial{tables},
			MayNeed: []restree.SpecialValue{restree.SpecialMeshDispatchDims, restree.SpecialDrawIndex, restree.SpecialViewIndex},
		},
	}
}

// Gfx10 returns a target with 16 argument registers per stage.
func Gfx10() *Target {
	return &Target{Name: "gfx10", WordBytes: 4, Stages: profiles(16)}
}

// Gfx11 returns a target with 32 argument registers per stage.
func Gfx11() *Target {
	return &Target{Name: "gfx11", WordBytes: 4, Stages: profiles(32)}
}

// Lookup returns a built-in target by name.
func Lookup(name string) (*Target, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gfx10":
		return Gfx10(), nil
	case "gfx11", "":
		return Gfx11(), nil
	default:
		return nil, fmt.Errorf("unknown target %q (expected gfx10|gfx11)", name)
	}
}
