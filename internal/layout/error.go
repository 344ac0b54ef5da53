package layout

import (
	"fmt"

	"pipelayout/internal/restree"
)

// RegionErrorKind enumerates spill region failures.
type RegionErrorKind uint8

const (
	// RegionErrTooLarge indicates the table does not fit a 32-bit byte offset.
	RegionErrTooLarge RegionErrorKind = iota + 1
	RegionErrUnknownLeaf
)

// RegionError represents an error while laying out the spill table.
type RegionError struct {
	Kind RegionErrorKind
	Leaf restree.NodeID
	Err  error
}

func (e *RegionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case RegionErrTooLarge:
		if e.Err != nil {
			return fmt.Sprintf("spill table exceeds 4 GiB at node#%d: %v", e.Leaf, e.Err)
		}
		return fmt.Sprintf("spill table exceeds 4 GiB at node#%d", e.Leaf)
	case RegionErrUnknownLeaf:
		return fmt.Sprintf("node#%d has no spill table entry", e.Leaf)
	default:
		return fmt.Sprintf("spill region error kind=%d node#%d", e.Kind, e.Leaf)
	}
}

func (e *RegionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
