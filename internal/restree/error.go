package restree

import "fmt"

// TreeErrorKind enumerates resource tree validation failures.
type TreeErrorKind uint8

const (
	TreeErrDuplicateBinding TreeErrorKind = iota + 1
	TreeErrTableSize
	TreeErrEmptyNode
	TreeErrEmptyTable
	TreeErrBadKind
)

// TreeError reports a malformed resource tree description.
type TreeError struct {
	Kind TreeErrorKind
	Ref  Ref
	Want uint32 // for TreeErrTableSize: sum of children
	Got  uint32 // for TreeErrTableSize: declared size
}

func (e *TreeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case TreeErrDuplicateBinding:
		return fmt.Sprintf("duplicate binding %s", e.Ref)
	case TreeErrTableSize:
		return fmt.Sprintf("table %s declares %d words but its children sum to %d", e.Ref, e.Got, e.Want)
	case TreeErrEmptyNode:
		return fmt.Sprintf("resource %s has zero size", e.Ref)
	case TreeErrEmptyTable:
		return fmt.Sprintf("descriptor table %s has no children", e.Ref)
	case TreeErrBadKind:
		return fmt.Sprintf("resource %s has a kind not allowed at this position", e.Ref)
	default:
		return fmt.Sprintf("resource tree error kind=%d at %s", e.Kind, e.Ref)
	}
}
