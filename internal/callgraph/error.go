package callgraph

import (
	"fmt"
	"strings"
)

// CycleError reports functions that take part in (or depend on) a call cycle.
type CycleError struct {
	Funcs []string
}

func (e *CycleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("call graph cycle among %s", strings.Join(e.Funcs, " -> "))
}

// CalleeError reports a call to a function id the program does not contain.
type CalleeError struct {
	Caller string
	Callee int
}

func (e *CalleeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("function %s calls unknown function #%d", e.Caller, e.Callee)
}
