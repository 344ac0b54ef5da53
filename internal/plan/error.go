package plan

import (
	"fmt"

	"pipelayout/internal/restree"
)

// OverflowError reports a stage whose mandatory registers and spill pointer
// alone exceed the hardware budget.
type OverflowError struct {
	Func   string
	Stage  restree.StageKind
	Needed int
	Budget int
}

func (e *OverflowError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("stage %s: function %s needs %d argument registers for fixed values, specials and the spill pointer, budget is %d",
		e.Stage, e.Func, e.Needed, e.Budget)
}
