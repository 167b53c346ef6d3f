package taint

import (
	"fmt"

	"github.com/yourbasic/graph"

	"github.com/lcalzada-xor/jstaint/pkg/syntax"
)

// UnnamedScope names a scope that has not entered a function yet.
const UnnamedScope = "scope@-1"

// Scope holds the variables of one function.
type Scope struct {
	Name   string
	vars   []*Variable
	byName map[string]*Variable
}

// NewScope creates an empty scope.
func NewScope(name string) *Scope {
	if name == "" {
		name = UnnamedScope
	}
	return &Scope{Name: name, byName: make(map[string]*Variable)}
}

// ScopeName returns the report key of a function: `<name>@<line>`.
func ScopeName(fn *syntax.Function) string {
	return fmt.Sprintf("%s@%d", fn.Name, fn.Line())
}

// Lookup returns the variable registered under name.
func (s *Scope) Lookup(name string) (*Variable, bool) {
	v, ok := s.byName[name]
	return v, ok
}

// FindOrCreate returns the variable registered under name, registering a
// fresh one at line if there is none. created reports which happened.
func (s *Scope) FindOrCreate(name string, line int) (v *Variable, created bool) {
	if v, ok := s.byName[name]; ok {
		return v, false
	}
	v = newVariable(name, line)
	s.add(v)
	return v, true
}

func (s *Scope) add(v *Variable) {
	s.byName[v.Name] = v
	s.vars = append(s.vars, v)
}

// Definitions returns every variable in registration order.
func (s *Scope) Definitions() []*Variable {
	return append([]*Variable(nil), s.vars...)
}

// Len returns the number of registered variables.
func (s *Scope) Len() int {
	return len(s.vars)
}

func (s *Scope) stamp(r Reachable) {
	for _, v := range s.vars {
		v.Reachable = r
	}
}

// Acyclic reports whether the dependency relation has no cycles.
func (s *Scope) Acyclic() bool {
	index := make(map[*Variable]int, len(s.vars))
	for i, v := range s.vars {
		index[v] = i
	}
	g := graph.New(len(s.vars))
	for i, v := range s.vars {
		for _, d := range v.dependent {
			if j, ok := index[d]; ok {
				g.Add(j, i)
			}
		}
	}
	return graph.Acyclic(g)
}
