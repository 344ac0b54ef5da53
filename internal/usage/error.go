package usage

import (
	"fmt"

	"pipelayout/internal/restree"
)

// RefErrorKind enumerates unresolvable references.
type RefErrorKind uint8

const (
	// RefErrUnknown names a set/binding or push range absent from the tree.
	RefErrUnknown RefErrorKind = iota + 1
	// RefErrTable names a descriptor table instead of one of its leaves.
	RefErrTable
	// RefErrOutOfRange reads past the end of the leaf.
	RefErrOutOfRange
	// RefErrSpecial names an unknown special value.
	RefErrSpecial
)

// RefError reports a reference the resource tree cannot satisfy.
type RefError struct {
	Kind       RefErrorKind
	Func       string
	Ref        restree.Ref
	Special    restree.SpecialValue
	WordOffset uint32
	Words      uint32
	Size       uint32
}

func (e *RefError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case RefErrUnknown:
		return fmt.Sprintf("function %s references %s, which the resource tree does not declare", e.Func, e.Ref)
	case RefErrTable:
		return fmt.Sprintf("function %s references descriptor table %s instead of one of its entries", e.Func, e.Ref)
	case RefErrOutOfRange:
		return fmt.Sprintf("function %s reads words %d..%d of %s, which has %d words",
			e.Func, e.WordOffset, e.WordOffset+e.Words, e.Ref, e.Size)
	case RefErrSpecial:
		return fmt.Sprintf("function %s reads unknown special value %d", e.Func, e.Special)
	default:
		return fmt.Sprintf("function %s: bad reference %s (kind=%d)", e.Func, e.Ref, e.Kind)
	}
}
