package restree

import (
	"fmt"
	"strconv"
	"strings"
)

// Ref names a node by (set, binding). Push-constant ranges use PushConstSet
// and the range index as binding.
type Ref struct {
	Set     uint32
	Binding uint32
}

// PushRef names push-constant range idx.
func PushRef(idx uint32) Ref {
	return Ref{Set: PushConstSet, Binding: idx}
}

// IsPush reports whether r names a push-constant range.
func (r Ref) IsPush() bool {
	return r.Set == PushConstSet
}

func (r Ref) String() string {
	if r.IsPush() {
		return fmt.Sprintf("push%d", r.Binding)
	}
	return fmt.Sprintf("set%d/b%d", r.Set, r.Binding)
}

// ParseRef parses "set<S>/b<B>" or "push<N>".
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "push"); ok {
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return Ref{}, fmt.Errorf("invalid push-constant reference %q", s)
		}
		return PushRef(uint32(n)), nil
	}
	setPart, bindPart, ok := strings.Cut(s, "/")
	if !ok {
		return Ref{}, fmt.Errorf("invalid resource reference %q (expected set<S>/b<B> or push<N>)", s)
	}
	setStr, ok := strings.CutPrefix(setPart, "set")
	if !ok {
		return Ref{}, fmt.Errorf("invalid resource reference %q: missing set prefix", s)
	}
	bindStr, ok := strings.CutPrefix(bindPart, "b")
	if !ok {
		return Ref{}, fmt.Errorf("invalid resource reference %q: missing binding prefix", s)
	}
	set, err := strconv.ParseUint(setStr, 10, 32)
	if err != nil || uint32(set) == PushConstSet {
		return Ref{}, fmt.Errorf("invalid set index in %q", s)
	}
	binding, err := strconv.ParseUint(bindStr, 10, 32)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid binding index in %q", s)
	}
	return Ref{Set: uint32(set), Binding: uint32(binding)}, nil
}
