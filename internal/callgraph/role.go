package callgraph

import "pipelayout/internal/restree"

// Role classifies how much of a function's calling context is known.
// The set of roles is closed: EntryPoint and Library are the only
// implementations.
type Role interface {
	isRole()
	String() string
}

// EntryPoint functions have every call site visible: the pipeline dispatch
// itself and internal helpers called only from this program.
type EntryPoint struct{}

// Library functions may be called by separately compiled code from any of the
// Reach stages. Their shape is the maximal superset, never the observed usage.
type Library struct {
	Reach restree.StageMask
}

func (EntryPoint) isRole() {}
func (Library) isRole()    {}

func (EntryPoint) String() string { return "entry" }
func (l Library) String() string  { return "library(" + l.Reach.String() + ")" }

// IsLibrary reports whether r is a Library role.
func IsLibrary(r Role) bool {
	_, ok := r.(Library)
	return ok
}
