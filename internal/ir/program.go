package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// Program is one pipeline compilation unit.
type Program struct {
	Funcs  []*Func
	byName map[string]FuncID
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{byName: make(map[string]FuncID)}
}

// Add appends f and assigns its id.
func (p *Program) Add(f *Func) (FuncID, error) {
	if f == nil {
		return NoFuncID, fmt.Errorf("nil function")
	}
	if p.byName == nil {
		p.byName = make(map[string]FuncID, len(p.Funcs))
	}
	if _, dup := p.byName[f.Name]; dup {
		return NoFuncID, fmt.Errorf("duplicate function %q", f.Name)
	}
	id, err := safecast.Conv[FuncID](len(p.Funcs))
	if err != nil {
		return NoFuncID, fmt.Errorf("function id overflow: %w", err)
	}
	f.ID = id
	p.Funcs = append(p.Funcs, f)
	p.byName[f.Name] = id
	return id, nil
}

// Func returns the function with the given id, or nil.
func (p *Program) Func(id FuncID) *Func {
	if p == nil || id < 0 || int(id) >= len(p.Funcs) {
		return nil
	}
	return p.Funcs[id]
}

// Lookup finds a function by name.
func (p *Program) Lookup(name string) (FuncID, bool) {
	if p == nil {
		return NoFuncID, false
	}
	id, ok := p.byName[name]
	return id, ok
}
