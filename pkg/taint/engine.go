package taint

import (
	"github.com/lcalzada-xor/jstaint/pkg/logger"
	"github.com/lcalzada-xor/jstaint/pkg/syntax"
)

const (
	// DefaultSourceName is the callee whose result is a taint origin.
	DefaultSourceName = "retSource"
	// DefaultSinkName is the callee whose argument is checked.
	DefaultSinkName = "sink"
)

// Declarations is a pre-resolved set of names local to a function.
type Declarations interface {
	Declared(name string) bool
}

// Config selects the recognized identifiers.
type Config struct {
	SourceName string
	SinkName   string
	Logger     *logger.Logger
}

// Analyzer runs the taint analysis over functions.
// It is stateless and safe for concurrent use.
type Analyzer struct {
	config Config
}

// New creates an Analyzer, filling defaults for empty fields.
func New(config Config) *Analyzer {
	if config.SourceName == "" {
		config.SourceName = DefaultSourceName
	}
	if config.SinkName == "" {
		config.SinkName = DefaultSinkName
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	return &Analyzer{config: config}
}

// AnalyzeFunction analyses one function body in its own scope. decls may be
// nil, in which case no variable is flagged as escaped.
func (a *Analyzer) AnalyzeFunction(fn *syntax.Function, decls Declarations) (*Scope, error) {
	ctx := a.newContext(decls)
	if err := ctx.Walk(fn); err != nil {
		return nil, err
	}
	return ctx.scope, nil
}

// AnalyzeProgram analyses every function of prog in pre-order. The top-level
// program itself is skipped since its variables are global.
func (a *Analyzer) AnalyzeProgram(prog *syntax.Program) ([]*Scope, error) {
	if prog == nil {
		return nil, malformed(UnnamedScope, 0, "nil program")
	}
	scopes := make([]*Scope, 0, len(prog.Functions))
	for _, fn := range prog.Functions {
		s, err := a.AnalyzeFunction(fn, fn)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

// Context is the traversal state of one scope.
type Context struct {
	config Config
	log    *logger.Logger
	scope  *Scope
	decls  Declarations

	varContext *Variable
	condition  Reachable
	consts     map[string]*syntax.Literal

	path map[syntax.Node]struct{}
	err  error
}

func (a *Analyzer) newContext(decls Declarations) *Context {
	return &Context{
		config:    a.config,
		log:       a.config.Logger,
		scope:     NewScope(UnnamedScope),
		decls:     decls,
		condition: Always,
		consts:    make(map[string]*syntax.Literal),
		path:      make(map[syntax.Node]struct{}),
	}
}

// Walk analyses a function root. Nested functions are not entered.
func (c *Context) Walk(fn *syntax.Function) error {
	if fn == nil {
		return malformed(c.scope.Name, 0, "nil function")
	}
	c.scope.Name = ScopeName(fn)
	c.log = c.config.Logger.With("scope", c.scope.Name)
	c.log.Section("Scope " + c.scope.Name)

	c.path[fn] = struct{}{}
	c.walkAll(fn.Params)
	c.walkAll(fn.Body)
	delete(c.path, fn)
	if c.err != nil {
		return c.err
	}

	if c.log.IsVeryVerbose() {
		for _, v := range c.scope.vars {
			c.log.Detail("%s", v)
		}
		if !c.scope.Acyclic() {
			c.log.VV("dependency cycle in %s", c.scope.Name)
		}
	}
	return nil
}

func (c *Context) walkAll(nodes []syntax.Node) {
	for _, n := range nodes {
		c.walk(n)
	}
}

func (c *Context) walk(node syntax.Node) {
	if node == nil || c.err != nil {
		return
	}
	if !c.push(node) {
		return
	}
	defer c.pop(node)

	switch n := node.(type) {
	case *syntax.Function:
		// analysed as a scope of its own
	case *syntax.Declaration:
		c.declaration(n)
	case *syntax.Binding:
		c.assign(n.Target, n.Init)
	case *syntax.Assignment:
		outer := c.varContext
		if v := c.assign(n.Target, n.Value); v != nil && outer != nil {
			// a = b = value
			outer.AddDependency(v)
		}
	case *syntax.Name:
		if c.varContext != nil {
			c.varContext.AddDependency(c.lookup(n))
		}
	case *syntax.Call:
		c.call(n)
	case *syntax.Conditional:
		c.conditional(n)
	case *syntax.Switch:
		c.switchStatement(n)
	default:
		c.walkAll(node.Children())
	}
}

// push marks node as being on the current path. A node met again below
// itself makes the tree cyclic, which is recorded as the walk error.
func (c *Context) push(node syntax.Node) bool {
	if _, ok := c.path[node]; ok {
		c.err = malformed(c.scope.Name, node.Line(), "cyclic syntax tree")
		return false
	}
	c.path[node] = struct{}{}
	return true
}

func (c *Context) pop(node syntax.Node) {
	delete(c.path, node)
}

// lookup resolves a name, registering it in the current context if unseen.
func (c *Context) lookup(n *syntax.Name) *Variable {
	v, created := c.scope.FindOrCreate(n.Ident, n.Line())
	if created {
		v.Reachable = c.condition
		if c.decls != nil {
			v.Escaped = !c.decls.Declared(n.Ident)
		}
		c.log.VV("register %s", v.ID())
	}
	return v
}

// route walks expr with v as the variable being defined.
func (c *Context) route(v *Variable, expr syntax.Node) {
	outer := c.varContext
	c.varContext = v
	c.walk(expr)
	c.varContext = outer
}

func (c *Context) declaration(d *syntax.Declaration) {
	for _, b := range d.Bindings {
		c.walk(b)
		if d.Kind == syntax.DeclConst {
			if name, ok := b.Target.(*syntax.Name); ok {
				if lit, ok := b.Init.(*syntax.Literal); ok {
					c.consts[name.Ident] = lit
				}
			}
		}
	}
}

// bind resolves the variable receiving a value. Any rebinding of a name
// ends its constant folding, shadowing in an inner block included.
func (c *Context) bind(n *syntax.Name) *Variable {
	delete(c.consts, n.Ident)
	return c.lookup(n)
}

// assign binds value to target and returns the variable that received it.
func (c *Context) assign(target, value syntax.Node) *Variable {
	switch t := target.(type) {
	case *syntax.Name:
		v := c.bind(t)
		c.route(v, value)
		return v
	case *syntax.Pattern:
		if len(t.Names) == 0 {
			c.route(nil, value)
		}
		for _, n := range t.Names {
			c.route(c.bind(n), value)
		}
		for _, d := range t.Defaults {
			c.route(nil, d)
		}
		return nil
	case *syntax.Member:
		root, ok := t.Root()
		if !ok {
			c.walk(t)
			c.walk(value)
			return nil
		}
		obj := c.lookup(root)
		if t.Computed {
			c.route(nil, t.Property)
		}
		if n, ok := value.(*syntax.Name); ok {
			obj.AddDependency(c.lookup(n))
		} else {
			c.route(obj, value)
		}
		return obj
	default:
		c.walk(target)
		c.walk(value)
		return nil
	}
}

func (c *Context) call(n *syntax.Call) {
	if name, ok := n.CalleeName(); ok && !n.New {
		switch name {
		case c.config.SourceName:
			// only the argument-less form is a source
			if len(n.Args) == 0 && c.varContext != nil {
				c.varContext.Source = true
				c.log.Detail("source %s at line %d", c.varContext.ID(), n.Line())
			}
			return
		case c.config.SinkName:
			if len(n.Args) == 1 {
				if arg, ok := n.Args[0].(*syntax.Name); ok {
					c.sink(c.lookup(arg), n.Line())
				}
			}
			return
		}
		c.walkAll(n.Args)
		return
	}

	if m, ok := n.Callee.(*syntax.Member); ok {
		if root, ok := m.Root(); ok {
			obj := c.lookup(root)
			for _, arg := range n.Args {
				if an, ok := arg.(*syntax.Name); ok {
					obj.AddDependency(c.lookup(an))
				}
			}
		}
	}
	c.walk(n.Callee)
	c.walkAll(n.Args)
}

func (c *Context) sink(v *Variable, line int) {
	r := v.Reachable
	if v.Source && v.promote(r) {
		c.log.Detail("sink at line %d: %s is %s", line, v.ID(), v.Taint)
	}
	for _, d := range v.dependent {
		if d.Source && d.Reachable == r && d.promote(r) {
			c.log.Detail("sink at line %d: %s is %s through %s", line, d.ID(), d.Taint, v.ID())
		}
	}
}

// enter sets the ambient class and stamps every known variable with it.
func (c *Context) enter(r Reachable) {
	c.condition = r
	c.scope.stamp(r)
}

func (c *Context) conditional(n *syntax.Conditional) {
	if n.Kind == syntax.CondFor {
		c.walk(n.Init)
	}
	outer := c.condition

	var class Reachable
	switch n.Kind {
	case syntax.CondForIn, syntax.CondForOf:
		class = Maybe
	default:
		class = c.classify(n.Test)
	}
	c.log.VV("%s at line %d is %s", n.Kind, n.Line(), class)

	inner := Meet(outer, class)
	c.enter(inner)
	if inner != Never {
		if n.Each != nil {
			c.walk(n.Each)
		}
		c.walk(n.Body)
		c.walk(n.Update)
	}
	c.enter(outer)

	if n.Else != nil {
		inner = Meet(outer, class.Negate())
		c.enter(inner)
		if inner != Never {
			c.walk(n.Else)
		}
		c.enter(outer)
	}
}

func (c *Context) switchStatement(n *syntax.Switch) {
	outer := c.condition
	c.enter(Meet(outer, Maybe))
	for _, cs := range n.Cases {
		c.walkAll(cs.Body)
	}
	c.enter(outer)
}
