package taint

import "github.com/lcalzada-xor/jstaint/pkg/syntax"

// classify returns the reachability class of a branch guarded by cond.
// Constants are evaluated for truthiness; logical operators fold their
// operands; anything else is classified by its operands.
func (c *Context) classify(cond syntax.Node) Reachable {
	if cond == nil {
		return Always
	}
	if !c.push(cond) {
		return Never
	}
	defer c.pop(cond)
	if truthy, ok := c.constant(cond); ok {
		if truthy {
			return Always
		}
		return Never
	}
	switch n := cond.(type) {
	case *syntax.Name, *syntax.This:
		return Maybe
	case *syntax.Operation:
		switch {
		case n.Operator == "!" && len(n.Operands) == 1:
			return c.classify(n.Operands[0]).Negate()
		case n.Operator == "&&" && len(n.Operands) == 2:
			return Meet(c.classify(n.Operands[0]), c.classify(n.Operands[1]))
		case (n.Operator == "||" || n.Operator == "??") && len(n.Operands) == 2:
			return Either(c.classify(n.Operands[0]), c.classify(n.Operands[1]))
		}
	case *syntax.Other:
		// (a, b) takes the last operand
		if n.Kind == "sequence" && len(n.Nodes) > 0 {
			return c.classify(n.Nodes[len(n.Nodes)-1])
		}
	}
	return c.fold(cond)
}

// fold combines the operand classes of n, starting from Always.
func (c *Context) fold(n syntax.Node) Reachable {
	r := Always
	for _, child := range n.Children() {
		r = Meet(r, c.operand(child))
		if r == Never {
			break
		}
	}
	return r
}

// operand classifies a sub-expression of a non-boolean condition such as
// `x == 0`: constants are known values, names are unknown.
func (c *Context) operand(n syntax.Node) Reachable {
	if n == nil {
		return Always
	}
	if _, ok := c.constant(n); ok {
		return Always
	}
	switch n.(type) {
	case *syntax.Name, *syntax.This:
		return Maybe
	}
	if !c.push(n) {
		return Never
	}
	defer c.pop(n)
	return c.fold(n)
}

// constant reports the truthiness of literals and of const names bound to a
// literal.
func (c *Context) constant(n syntax.Node) (truthy bool, ok bool) {
	switch n := n.(type) {
	case *syntax.Literal:
		return n.Truthy, true
	case *syntax.Name:
		if lit, ok := c.consts[n.Ident]; ok {
			return lit.Truthy, true
		}
	case *syntax.Function:
		return true, true
	}
	return false, false
}
