// Package syntax holds the tree the taint engine walks. It is a closed set of
// node categories lowered from goja's JavaScript AST; anything the engine has
// no rule for becomes an Other node that only exposes its children.
package syntax

// Node is implemented by every case of the tree.
type Node interface {
	// Line is the 1-based source line the node starts on.
	Line() int
	// Children returns the direct sub-nodes in source order.
	Children() []Node
	node()
}

type pos struct {
	line int
}

func (p pos) Line() int { return p.line }
func (pos) node()       {}

// DeclKind is the declaring keyword.
type DeclKind int

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
)

func (k DeclKind) String() string {
	switch k {
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	default:
		return "var"
	}
}

// CondKind distinguishes the statements lowered to Conditional.
type CondKind int

const (
	CondIf CondKind = iota
	CondFor
	CondForIn
	CondForOf
	CondWhile
)

func (k CondKind) String() string {
	switch k {
	case CondFor:
		return "for"
	case CondForIn:
		return "for-in"
	case CondForOf:
		return "for-of"
	case CondWhile:
		return "while"
	default:
		return "if"
	}
}

// LiteralKind is the type of a constant.
type LiteralKind int

const (
	LitBool LiteralKind = iota
	LitNumber
	LitString
	LitNull
	LitRegExp
)

// Program is a parsed script. Functions lists every function in pre-order.
type Program struct {
	Filename  string
	Body      []Node
	Functions []*Function
}

// Function is a function body boundary. Locals holds the names declared
// directly in it (parameters included), not in nested functions.
type Function struct {
	pos
	Name   string
	Params []Node
	Body   []Node
	Locals NameSet
}

func (f *Function) Children() []Node { return concat(f.Params, f.Body) }

// Declared reports whether name is declared in the function itself.
func (f *Function) Declared(name string) bool { return f.Locals.Declared(name) }

// Declaration is a var, let or const statement.
type Declaration struct {
	pos
	Kind     DeclKind
	Bindings []*Binding
}

func (d *Declaration) Children() []Node {
	out := make([]Node, 0, len(d.Bindings))
	for _, b := range d.Bindings {
		out = append(out, b)
	}
	return out
}

// Binding pairs a target (*Name or *Pattern) with an optional initializer.
type Binding struct {
	pos
	Target Node
	Init   Node
}

func (b *Binding) Children() []Node { return compact(b.Target, b.Init) }

// Assignment is any assignment operator applied to Target.
type Assignment struct {
	pos
	Operator string
	Target   Node
	Value    Node
}

func (a *Assignment) Children() []Node { return compact(a.Target, a.Value) }

// Name is an identifier reference.
type Name struct {
	pos
	Ident string
}

func (*Name) Children() []Node { return nil }

// Pattern is a destructuring target flattened to the names it binds.
type Pattern struct {
	pos
	Names    []*Name
	Defaults []Node
}

func (p *Pattern) Children() []Node {
	out := make([]Node, 0, len(p.Names)+len(p.Defaults))
	for _, n := range p.Names {
		out = append(out, n)
	}
	return append(out, p.Defaults...)
}

// This is the `this` keyword.
type This struct {
	pos
}

func (*This) Children() []Node { return nil }

// Call is a call or `new` expression.
type Call struct {
	pos
	Callee Node
	Args   []Node
	New    bool
}

func (c *Call) Children() []Node { return concat([]Node{c.Callee}, c.Args) }

// CalleeName returns the identifier when the callee is a plain name.
func (c *Call) CalleeName() (string, bool) {
	if n, ok := c.Callee.(*Name); ok {
		return n.Ident, true
	}
	return "", false
}

// Member is `obj.prop` or `obj[expr]`. Property is set only when Computed.
type Member struct {
	pos
	Object   Node
	Property Node
	PropName string
	Computed bool
}

func (m *Member) Children() []Node { return compact(m.Object, m.Property) }

// Root returns the name at the base of a member chain (`a` in `a.b[c].d`).
// A chain that loops back on itself has no root.
func (m *Member) Root() (*Name, bool) {
	seen := make(map[*Member]struct{})
	var cur Node = m
	for {
		switch n := cur.(type) {
		case *Member:
			if _, ok := seen[n]; ok {
				return nil, false
			}
			seen[n] = struct{}{}
			cur = n.Object
		case *Name:
			return n, true
		default:
			return nil, false
		}
	}
}

// Conditional covers if, for, for-in, for-of and while. Init and Update are
// set for `for` loops, Each for for-in/for-of (target bound from the iterated
// expression), Else for `if`.
type Conditional struct {
	pos
	Kind   CondKind
	Init   Node
	Test   Node
	Update Node
	Each   *Binding
	Body   Node
	Else   Node
}

func (c *Conditional) Children() []Node {
	var each Node
	if c.Each != nil {
		each = c.Each
	}
	return compact(c.Init, c.Test, each, c.Body, c.Update, c.Else)
}

// Switch is a switch statement.
type Switch struct {
	pos
	Discriminant Node
	Cases        []*Case
}

func (s *Switch) Children() []Node {
	out := compact(s.Discriminant)
	for _, c := range s.Cases {
		out = append(out, c)
	}
	return out
}

// Case is one clause of a switch; Test is nil for default.
type Case struct {
	pos
	Test Node
	Body []Node
}

func (c *Case) Children() []Node { return concat(compact(c.Test), c.Body) }

// Literal is a constant value.
type Literal struct {
	pos
	Kind   LiteralKind
	Raw    string
	Truthy bool
}

func (*Literal) Children() []Node { return nil }

// Composite is an object or array literal; Elements are the values (and
// computed keys) in source order.
type Composite struct {
	pos
	Array    bool
	Elements []Node
}

func (c *Composite) Children() []Node { return c.Elements }

// Operation is a unary, binary, logical or update operator application.
type Operation struct {
	pos
	Operator string
	Operands []Node
}

func (o *Operation) Children() []Node { return o.Operands }

// Other is any construct without a dedicated rule (blocks, returns, try,
// ternaries, templates...). Kind is informational.
type Other struct {
	pos
	Kind  string
	Nodes []Node
}

func (o *Other) Children() []Node { return o.Nodes }

// NameSet is a set of declared identifiers.
type NameSet map[string]struct{}

// Add inserts names into the set.
func (s NameSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Declared reports membership.
func (s NameSet) Declared(name string) bool {
	_, ok := s[name]
	return ok
}

// TargetNames returns the names bound by a *Name or *Pattern target.
func TargetNames(target Node) []*Name {
	switch t := target.(type) {
	case *Name:
		return []*Name{t}
	case *Pattern:
		return t.Names
	}
	return nil
}

func compact(nodes ...Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func concat(a, b []Node) []Node {
	out := make([]Node, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
