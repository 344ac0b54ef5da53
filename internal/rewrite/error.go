package rewrite

import (
	"fmt"

	"pipelayout/internal/restree"
)

// MissingPlanError reports a function without a final layout plan.
type MissingPlanError struct {
	Func string
}

func (e *MissingPlanError) Error() string {
	return fmt.Sprintf("function %s has no layout plan; every plan must be final before rewriting", e.Func)
}

// UnresolvedError reports a reference the plan cannot serve. It only occurs
// when the program changed after usage collection.
type UnresolvedError struct {
	Func string
	Ref  restree.Ref
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("function %s: %s is neither in its tree nor in its plan", e.Func, e.Ref)
}
