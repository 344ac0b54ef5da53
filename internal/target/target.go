package target

import (
	"fmt"
	"slices"

	"pipelayout/internal/restree"
)

// FixedSpecial pins a special value to a hardware-mandated register slot.
type FixedSpecial struct {
	Value restree.SpecialValue
	Slot  uint32
}

// StageProfile describes the argument registers available to one stage kind.
type StageProfile struct {
	Stage  restree.StageKind
	Budget int
	// Fixed values are set up by hardware before the body runs, whether used or not.
	Fixed []FixedSpecial
	// MayNeed lists the non-fixed special values this stage can provide.
	MayNeed []restree.SpecialValue
}

// Provides reports whether the stage can supply v.
func (p StageProfile) Provides(v restree.SpecialValue) bool {
	if _, ok := p.FixedSlot(v); ok {
		return true
	}
	return slices.Contains(p.MayNeed, v)
}

// FixedSlot returns the mandated slot of v, if any.
func (p StageProfile) FixedSlot(v restree.SpecialValue) (uint32, bool) {
	for _, f := range p.Fixed {
		if f.Value == v {
			return f.Slot, true
		}
	}
	return 0, false
}

// FixedWords returns the number of registers covered by fixed values,
// counting gaps below the highest fixed slot.
func (p StageProfile) FixedWords() int {
	end := 0
	for _, f := range p.Fixed {
		if e := int(f.Slot) + int(f.Value.Words()); e > end {
			end = e
		}
	}
	return end
}

// AsCallee returns the profile seen by a function that is called rather than
// dispatched: nothing is pinned, fixed values become ordinary providable values.
func (p StageProfile) AsCallee() StageProfile {
	out := StageProfile{Stage: p.Stage, Budget: p.Budget}
	out.MayNeed = make([]restree.SpecialValue, 0, len(p.Fixed)+len(p.MayNeed))
	for _, f := range p.Fixed {
		out.MayNeed = append(out.MayNeed, f.Value)
	}
	for _, v := range p.MayNeed {
		if !slices.Contains(out.MayNeed, v) {
			out.MayNeed = append(out.MayNeed, v)
		}
	}
	slices.Sort(out.MayNeed)
	return out
}

// Target describes a hardware generation.
type Target struct {
	Name      string
	WordBytes uint32
	Stages    []StageProfile
}

// Profile returns the profile for stage. StageGeneric yields a synthesized
// profile with no fixed slots, the smallest budget and every providable value.
func (t *Target) Profile(stage restree.StageKind) (StageProfile, error) {
	if t == nil {
		return StageProfile{}, fmt.Errorf("no target")
	}
	if stage == restree.StageGeneric {
		return t.genericProfile(), nil
	}
	for _, p := range t.Stages {
		if p.Stage == stage {
			return p, nil
		}
	}
	return StageProfile{}, fmt.Errorf("target %s has no profile for stage %s", t.Name, stage)
}

// ProfileFor merges the profiles of several stages: a single stage keeps its
// own profile, more than one becomes generic over those stages.
func (t *Target) ProfileFor(mask restree.StageMask) (StageProfile, error) {
	stages := mask.Stages()
	switch len(stages) {
	case 0:
		return t.Profile(restree.StageGeneric)
	case 1:
		return t.Profile(stages[0])
	}
	out := StageProfile{Stage: restree.StageGeneric}
	for _, s := range stages {
		p, err := t.Profile(s)
		if err != nil {
			return StageProfile{}, err
		}
		mergeInto(&out, p)
	}
	return out, nil
}

func (t *Target) genericProfile() StageProfile {
	out := StageProfile{Stage: restree.StageGeneric}
	for _, p := range t.Stages {
		mergeInto(&out, p)
	}
	return out
}

func mergeInto(out *StageProfile, p StageProfile) {
	if out.Budget == 0 || p.Budget < out.Budget {
		out.Budget = p.Budget
	}
	add := func(v restree.SpecialValue) {
		if !slices.Contains(out.MayNeed, v) {
			out.MayNeed = append(out.MayNeed, v)
		}
	}
	for _, f := range p.Fixed {
		add(f.Value)
	}
	for _, v := range p.MayNeed {
		add(v)
	}
	slices.Sort(out.MayNeed)
}

// Validate checks that fixed slots do not overlap and fit the budget.
func (t *Target) Validate() error {
	seen := make(map[restree.StageKind]bool, len(t.Stages))
	for _, p := range t.Stages {
		if seen[p.Stage] {
			return fmt.Errorf("target %s: duplicate profile for stage %s", t.Name, p.Stage)
		}
		seen[p.Stage] = true
		if p.Budget <= 0 {
			return fmt.Errorf("target %s: stage %s has no register budget", t.Name, p.Stage)
		}
		used := make(map[uint32]restree.SpecialValue)
		for _, f := range p.Fixed {
			for w := uint32(0); w < f.Value.Words(); w++ {
				if prev, ok := used[f.Slot+w]; ok {
					return fmt.Errorf("target %s: stage %s: %s overlaps %s at slot %d", t.Name, p.Stage, f.Value, prev, f.Slot+w)
				}
				used[f.Slot+w] = f.Value
			}
		}
	}
	return nil
}
