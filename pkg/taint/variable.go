package taint

import "fmt"

// Taint is the verdict recorded at sink sites. Ordered None < May < Must.
type Taint int

const (
	TaintNone Taint = iota
	TaintMay
	TaintMust
)

func (t Taint) String() string {
	switch t {
	case TaintMay:
		return "may"
	case TaintMust:
		return "must"
	default:
		return "none"
	}
}

// Reachable classifies whether a program point executes. Ordered
// Always < Maybe < Never.
type Reachable int

const (
	Always Reachable = iota
	Maybe
	Never
)

func (r Reachable) String() string {
	switch r {
	case Maybe:
		return "maybe"
	case Never:
		return "never"
	default:
		return "always"
	}
}

// Meet combines two classifications: Never absorbs, Maybe beats Always.
func Meet(a, b Reachable) Reachable {
	if a > b {
		return a
	}
	return b
}

// Either is the class of a point reached when at least one of two conditions
// holds.
func Either(a, b Reachable) Reachable {
	if a < b {
		return a
	}
	return b
}

// Negate swaps Always and Never.
func (r Reachable) Negate() Reachable {
	switch r {
	case Always:
		return Never
	case Never:
		return Always
	}
	return Maybe
}

// Taint maps a reachability class to the taint it confers at a sink.
func (r Reachable) Taint() Taint {
	switch r {
	case Always:
		return TaintMust
	case Maybe:
		return TaintMay
	}
	return TaintNone
}

// Variable is one lexical variable of a function scope.
type Variable struct {
	Name string
	// Line is where the variable was first registered.
	Line      int
	Source    bool
	Taint     Taint
	Reachable Reachable
	// Escaped is set when the name is not declared by the function itself.
	Escaped bool

	dependent []*Variable
	seen      map[*Variable]struct{}
}

func newVariable(name string, line int) *Variable {
	return &Variable{Name: name, Line: line, seen: make(map[*Variable]struct{})}
}

// ID returns the report identifier `<name>@<line>`.
func (v *Variable) ID() string {
	return fmt.Sprintf("%s@%d", v.Name, v.Line)
}

func (v *Variable) String() string {
	return fmt.Sprintf("%s[source=%t taint=%s reachable=%s deps=%d]", v.ID(), v.Source, v.Taint, v.Reachable, len(v.dependent))
}

// Dependents returns the variables v depends on in insertion order.
func (v *Variable) Dependents() []*Variable {
	return append([]*Variable(nil), v.dependent...)
}

// AddDependency records that v may derive from other. Dependents of other are
// absorbed instead of other itself, keeping the set flat; a source is kept as
// well since it is a taint origin on its own.
func (v *Variable) AddDependency(other *Variable) {
	if other == nil || other == v {
		return
	}
	if len(other.dependent) == 0 {
		v.addDependent(other)
		return
	}
	for _, d := range other.dependent {
		v.addDependent(d)
	}
	if other.Source {
		v.addDependent(other)
	}
}

func (v *Variable) addDependent(d *Variable) bool {
	if d == v {
		return false
	}
	if _, ok := v.seen[d]; ok {
		return false
	}
	v.seen[d] = struct{}{}
	v.dependent = append(v.dependent, d)
	return true
}

// promote raises the taint to what r confers. Taint never decreases.
func (v *Variable) promote(r Reachable) bool {
	if t := r.Taint(); t > v.Taint {
		v.Taint = t
		return true
	}
	return false
}
