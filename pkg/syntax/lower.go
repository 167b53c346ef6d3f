package syntax

import (
	"math"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/token"
)

// AnonymousName names functions that have no identifier of their own.
const AnonymousName = "anonymous"

type lowerer struct {
	file *file.File
	prog *Program
	fn   *Function
}

// Lower converts a goja program into the analysis tree.
func Lower(program *ast.Program) *Program {
	l := &lowerer{file: program.File, prog: &Program{}}
	l.prog.Body = l.stmts(program.Body)
	return l.prog
}

func (l *lowerer) pos(idx file.Idx) pos {
	if l.file == nil {
		return pos{}
	}
	return pos{line: l.file.Position(int(idx) - l.file.Base()).Line}
}

func (l *lowerer) at(n ast.Node) pos {
	return l.pos(n.Idx0())
}

// declare records names as locals of the function being lowered. Names
// declared at program level are not tracked.
func (l *lowerer) declare(names ...*Name) {
	if l.fn == nil {
		return
	}
	for _, n := range names {
		l.fn.Locals.Add(n.Ident)
	}
}

func (l *lowerer) stmts(list []ast.Statement) []Node {
	out := make([]Node, 0, len(list))
	for _, s := range list {
		if n := l.stmt(s); n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (l *lowerer) block(b *ast.BlockStatement) Node {
	if b == nil {
		return nil
	}
	return &Other{pos: l.at(b), Kind: "block", Nodes: l.stmts(b.List)}
}

func (l *lowerer) stmt(s ast.Statement) Node {
	switch s := s.(type) {
	case nil:
		return nil
	case *ast.BlockStatement:
		return l.block(s)
	case *ast.ExpressionStatement:
		return l.expr(s.Expression)
	case *ast.VariableStatement:
		return l.decl(l.at(s), DeclVar, s.List)
	case *ast.LexicalDeclaration:
		return l.lexical(s)
	case *ast.FunctionDeclaration:
		if s.Function.Name != nil {
			l.declare(&Name{Ident: s.Function.Name.Name.String()})
		}
		return l.function(s.Function, AnonymousName)
	case *ast.ClassDeclaration:
		if s.Class.Name != nil {
			l.declare(&Name{Ident: s.Class.Name.Name.String()})
		}
		return l.class(s.Class)
	case *ast.IfStatement:
		// goja leaves IfStatement.If unset, the test carries the position
		return &Conditional{
			pos:  l.at(s.Test),
			Kind: CondIf,
			Test: l.expr(s.Test),
			Body: l.stmt(s.Consequent),
			Else: l.stmt(s.Alternate),
		}
	case *ast.ForStatement:
		return &Conditional{
			pos:    l.at(s),
			Kind:   CondFor,
			Init:   l.forInit(s.Initializer),
			Test:   l.expr(s.Test),
			Update: l.expr(s.Update),
			Body:   l.stmt(s.Body),
		}
	case *ast.ForInStatement:
		return &Conditional{
			pos:  l.at(s),
			Kind: CondForIn,
			Each: l.forInto(s.Into, s.Source),
			Body: l.stmt(s.Body),
		}
	case *ast.ForOfStatement:
		return &Conditional{
			pos:  l.at(s),
			Kind: CondForOf,
			Each: l.forInto(s.Into, s.Source),
			Body: l.stmt(s.Body),
		}
	case *ast.WhileStatement:
		return &Conditional{
			pos:  l.at(s),
			Kind: CondWhile,
			Test: l.expr(s.Test),
			Body: l.stmt(s.Body),
		}
	case *ast.DoWhileStatement:
		// the body runs at least once, so it stays in the enclosing context
		return &Other{pos: l.at(s), Kind: "do-while", Nodes: compact(l.stmt(s.Body), l.expr(s.Test))}
	case *ast.SwitchStatement:
		sw := &Switch{pos: l.at(s), Discriminant: l.expr(s.Discriminant)}
		for _, c := range s.Body {
			sw.Cases = append(sw.Cases, &Case{
				pos:  l.at(c),
				Test: l.expr(c.Test),
				Body: l.stmts(c.Consequent),
			})
		}
		return sw
	case *ast.ReturnStatement:
		return &Other{pos: l.at(s), Kind: "return", Nodes: compact(l.expr(s.Argument))}
	case *ast.ThrowStatement:
		return &Other{pos: l.at(s), Kind: "throw", Nodes: compact(l.expr(s.Argument))}
	case *ast.TryStatement:
		var catch Node
		if s.Catch != nil {
			var param Node
			if s.Catch.Parameter != nil {
				target := l.bindingTarget(s.Catch.Parameter)
				l.declare(TargetNames(target)...)
				if target != nil {
					param = &Binding{pos: l.at(s.Catch.Parameter), Target: target}
				}
			}
			catch = &Other{pos: l.at(s.Catch), Kind: "catch", Nodes: compact(param, l.block(s.Catch.Body))}
		}
		return &Other{pos: l.at(s), Kind: "try", Nodes: compact(l.block(s.Body), catch, l.block(s.Finally))}
	case *ast.LabelledStatement:
		return l.stmt(s.Statement)
	case *ast.WithStatement:
		return &Other{pos: l.at(s), Kind: "with", Nodes: compact(l.expr(s.Object), l.stmt(s.Body))}
	default:
		// empty, break/continue, debugger
		return nil
	}
}

func (l *lowerer) lexical(s *ast.LexicalDeclaration) *Declaration {
	kind := DeclLet
	if s.Token == token.CONST {
		kind = DeclConst
	}
	return l.decl(l.at(s), kind, s.List)
}

func (l *lowerer) decl(p pos, kind DeclKind, list []*ast.Binding) *Declaration {
	d := &Declaration{pos: p, Kind: kind}
	for _, b := range list {
		d.Bindings = append(d.Bindings, l.binding(b))
	}
	return d
}

func (l *lowerer) binding(b *ast.Binding) *Binding {
	target := l.bindingTarget(b.Target)
	l.declare(TargetNames(target)...)
	return &Binding{pos: l.at(b.Target), Target: target, Init: l.value(b.Initializer, targetName(target))}
}

func (l *lowerer) bindingTarget(t ast.BindingTarget) Node {
	switch t := t.(type) {
	case *ast.Identifier:
		return l.name(t)
	case *ast.ObjectPattern, *ast.ArrayPattern:
		return l.pattern(t)
	}
	return nil
}

func (l *lowerer) forInit(init ast.ForLoopInitializer) Node {
	switch i := init.(type) {
	case *ast.ForLoopInitializerExpression:
		return l.expr(i.Expression)
	case *ast.ForLoopInitializerVarDeclList:
		return l.decl(l.pos(i.Var), DeclVar, i.List)
	case *ast.ForLoopInitializerLexicalDecl:
		return l.lexical(&i.LexicalDeclaration)
	}
	return nil
}

func (l *lowerer) forInto(into ast.ForInto, source ast.Expression) *Binding {
	var target Node
	switch i := into.(type) {
	case *ast.ForIntoVar:
		target = l.bindingTarget(i.Binding.Target)
		l.declare(TargetNames(target)...)
	case *ast.ForDeclaration:
		target = l.bindingTarget(i.Target)
		l.declare(TargetNames(target)...)
	case *ast.ForIntoExpression:
		target = l.target(i.Expression)
	}
	return &Binding{pos: l.at(source), Target: target, Init: l.expr(source)}
}

func (l *lowerer) name(id *ast.Identifier) *Name {
	return &Name{pos: l.at(id), Ident: id.Name.String()}
}

// target lowers the left-hand side of an assignment.
func (l *lowerer) target(e ast.Expression) Node {
	switch e := e.(type) {
	case *ast.ObjectPattern, *ast.ArrayPattern:
		return l.pattern(e)
	}
	return l.expr(e)
}

func (l *lowerer) pattern(e ast.Expression) *Pattern {
	p := &Pattern{pos: l.at(e)}
	l.collect(e, p)
	return p
}

func (l *lowerer) collect(e ast.Expression, p *Pattern) {
	switch e := e.(type) {
	case *ast.Identifier:
		p.Names = append(p.Names, l.name(e))
	case *ast.AssignExpression:
		// default value: `{a = 1}` or `[b = 2]`
		l.collect(e.Left, p)
		if d := l.expr(e.Right); d != nil {
			p.Defaults = append(p.Defaults, d)
		}
	case *ast.ObjectPattern:
		for _, prop := range e.Properties {
			switch pr := prop.(type) {
			case *ast.PropertyShort:
				p.Names = append(p.Names, l.name(&pr.Name))
				if d := l.expr(pr.Initializer); d != nil {
					p.Defaults = append(p.Defaults, d)
				}
			case *ast.PropertyKeyed:
				l.collect(pr.Value, p)
			}
		}
		l.collect(e.Rest, p)
	case *ast.ArrayPattern:
		for _, el := range e.Elements {
			l.collect(el, p)
		}
		l.collect(e.Rest, p)
	}
}

func (l *lowerer) exprs(list []ast.Expression) []Node {
	out := make([]Node, 0, len(list))
	for _, e := range list {
		if n := l.expr(e); n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (l *lowerer) expr(e ast.Expression) Node {
	switch e := e.(type) {
	case nil:
		return nil
	case *ast.Identifier:
		return l.name(e)
	case *ast.ThisExpression:
		return &This{pos: l.at(e)}
	case *ast.BooleanLiteral:
		return &Literal{pos: l.at(e), Kind: LitBool, Raw: e.Literal, Truthy: e.Value}
	case *ast.NumberLiteral:
		return &Literal{pos: l.at(e), Kind: LitNumber, Raw: e.Literal, Truthy: numberTruthy(e.Value)}
	case *ast.StringLiteral:
		return &Literal{pos: l.at(e), Kind: LitString, Raw: e.Literal, Truthy: len(e.Value) > 0}
	case *ast.NullLiteral:
		return &Literal{pos: l.at(e), Kind: LitNull, Raw: "null"}
	case *ast.RegExpLiteral:
		return &Literal{pos: l.at(e), Kind: LitRegExp, Raw: e.Literal, Truthy: true}
	case *ast.TemplateLiteral:
		if e.Tag == nil && len(e.Expressions) == 0 {
			truthy := false
			for _, el := range e.Elements {
				if el.Literal != "" {
					truthy = true
				}
			}
			return &Literal{pos: l.at(e), Kind: LitString, Truthy: truthy}
		}
		return &Other{pos: l.at(e), Kind: "template", Nodes: concat(compact(l.expr(e.Tag)), l.exprs(e.Expressions))}
	case *ast.ArrayLiteral:
		return &Composite{pos: l.at(e), Array: true, Elements: l.exprs(e.Value)}
	case *ast.ObjectLiteral:
		c := &Composite{pos: l.at(e)}
		for _, prop := range e.Value {
			c.Elements = append(c.Elements, l.property(prop)...)
		}
		return c
	case *ast.AssignExpression:
		target := l.target(e.Left)
		return &Assignment{
			pos:      l.at(e),
			Operator: e.Operator.String(),
			Target:   target,
			Value:    l.value(e.Right, targetName(target)),
		}
	case *ast.BinaryExpression:
		return &Operation{pos: l.at(e), Operator: e.Operator.String(), Operands: compact(l.expr(e.Left), l.expr(e.Right))}
	case *ast.UnaryExpression:
		return &Operation{pos: l.at(e), Operator: e.Operator.String(), Operands: compact(l.expr(e.Operand))}
	case *ast.CallExpression:
		return &Call{pos: l.at(e), Callee: l.expr(e.Callee), Args: l.exprs(e.ArgumentList)}
	case *ast.NewExpression:
		return &Call{pos: l.at(e), Callee: l.expr(e.Callee), Args: l.exprs(e.ArgumentList), New: true}
	case *ast.DotExpression:
		return &Member{pos: l.at(e), Object: l.expr(e.Left), PropName: e.Identifier.Name.String()}
	case *ast.BracketExpression:
		return &Member{pos: l.at(e), Object: l.expr(e.Left), Property: l.expr(e.Member), Computed: true}
	case *ast.ConditionalExpression:
		return &Other{pos: l.at(e), Kind: "ternary", Nodes: compact(l.expr(e.Test), l.expr(e.Consequent), l.expr(e.Alternate))}
	case *ast.SequenceExpression:
		return &Other{pos: l.at(e), Kind: "sequence", Nodes: l.exprs(e.Sequence)}
	case *ast.FunctionLiteral:
		return l.function(e, AnonymousName)
	case *ast.ArrowFunctionLiteral:
		return l.arrow(e, AnonymousName)
	case *ast.ClassLiteral:
		return l.class(e)
	case *ast.SpreadElement:
		return l.expr(e.Expression)
	case *ast.AwaitExpression:
		return &Other{pos: l.at(e), Kind: "await", Nodes: compact(l.expr(e.Argument))}
	case *ast.YieldExpression:
		return &Other{pos: l.at(e), Kind: "yield", Nodes: compact(l.expr(e.Argument))}
	case *ast.OptionalChain:
		return l.expr(e.Expression)
	case *ast.Optional:
		return l.expr(e.Expression)
	case *ast.ObjectPattern, *ast.ArrayPattern:
		return l.pattern(e)
	default:
		return &Other{pos: l.at(e), Kind: "expression"}
	}
}

func (l *lowerer) property(prop ast.Property) []Node {
	switch p := prop.(type) {
	case *ast.PropertyKeyed:
		var key Node
		if p.Computed {
			key = l.expr(p.Key)
		}
		return compact(key, l.value(p.Value, keyName(p.Key)))
	case *ast.PropertyShort:
		return compact(l.name(&p.Name), l.expr(p.Initializer))
	case *ast.SpreadElement:
		return compact(l.expr(p.Expression))
	}
	return nil
}

// value lowers e, naming an unnamed function or arrow after the binding that
// receives it (`var g = function() {}` is g).
func (l *lowerer) value(e ast.Expression, name string) Node {
	switch e := e.(type) {
	case *ast.FunctionLiteral:
		return l.function(e, name)
	case *ast.ArrowFunctionLiteral:
		return l.arrow(e, name)
	}
	return l.expr(e)
}

// targetName is the identifier a value is bound to: the name itself, or the
// property of a member target.
func targetName(target Node) string {
	switch t := target.(type) {
	case *Name:
		return t.Ident
	case *Member:
		if !t.Computed && t.PropName != "" {
			return t.PropName
		}
	}
	return AnonymousName
}

func keyName(key ast.Expression) string {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name.String()
	case *ast.StringLiteral:
		return k.Value.String()
	case *ast.NumberLiteral:
		return k.Literal
	}
	return AnonymousName
}

func (l *lowerer) function(fl *ast.FunctionLiteral, fallback string) *Function {
	name := fallback
	if fl.Name != nil {
		name = fl.Name.Name.String()
	}
	fn := &Function{pos: l.at(fl), Name: name, Locals: NameSet{}}
	l.prog.Functions = append(l.prog.Functions, fn)

	outer := l.fn
	l.fn = fn
	fn.Params = l.params(fl.ParameterList)
	if fl.Body != nil {
		fn.Body = l.stmts(fl.Body.List)
	}
	l.fn = outer
	return fn
}

func (l *lowerer) arrow(al *ast.ArrowFunctionLiteral, name string) *Function {
	fn := &Function{pos: l.at(al), Name: name, Locals: NameSet{}}
	l.prog.Functions = append(l.prog.Functions, fn)

	outer := l.fn
	l.fn = fn
	fn.Params = l.params(al.ParameterList)
	switch body := al.Body.(type) {
	case *ast.BlockStatement:
		fn.Body = l.stmts(body.List)
	case *ast.ExpressionBody:
		fn.Body = compact(&Other{pos: l.at(body.Expression), Kind: "return", Nodes: compact(l.expr(body.Expression))})
	}
	l.fn = outer
	return fn
}

func (l *lowerer) params(pl *ast.ParameterList) []Node {
	if pl == nil {
		return nil
	}
	out := make([]Node, 0, len(pl.List)+1)
	for _, b := range pl.List {
		out = append(out, l.binding(b))
	}
	if pl.Rest != nil {
		rest := l.target(pl.Rest)
		l.declare(TargetNames(rest)...)
		out = append(out, &Binding{pos: l.at(pl.Rest), Target: rest})
	}
	return out
}

func (l *lowerer) class(cl *ast.ClassLiteral) Node {
	c := &Other{pos: l.at(cl), Kind: "class"}
	if cl.SuperClass != nil {
		c.Nodes = append(c.Nodes, l.expr(cl.SuperClass))
	}
	for _, el := range cl.Body {
		switch m := el.(type) {
		case *ast.MethodDefinition:
			c.Nodes = append(c.Nodes, l.function(m.Body, keyName(m.Key)))
		case *ast.FieldDefinition:
			if v := l.value(m.Initializer, keyName(m.Key)); v != nil {
				c.Nodes = append(c.Nodes, v)
			}
		}
	}
	return c
}

func numberTruthy(v interface{}) bool {
	switch n := v.(type) {
	case int64:
		return n != 0
	case float64:
		return n != 0 && !math.IsNaN(n)
	}
	return true
}
