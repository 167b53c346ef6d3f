package taint

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/simple"
)

// GraphNode is a variable in a dependency graph.
type GraphNode struct {
	id  int64
	Var *Variable
}

func (n GraphNode) ID() int64 { return n.id }

// DOTID names the node in DOT output.
func (n GraphNode) DOTID() string { return fmt.Sprintf("v%d", n.id) }

// Attributes renders sources as boxes and colours tainted variables.
func (n GraphNode) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: n.Var.ID()}}
	if n.Var.Source {
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "box"})
	}
	switch n.Var.Taint {
	case TaintMust:
		attrs = append(attrs, encoding.Attribute{Key: "color", Value: "red"})
	case TaintMay:
		attrs = append(attrs, encoding.Attribute{Key: "color", Value: "orange"})
	}
	return attrs
}

// DependencyGraph builds a directed graph with an edge from each dependency
// to the variable that depends on it. Node ids follow registration order.
func DependencyGraph(s *Scope) graph.Directed {
	g := simple.NewDirectedGraph()
	nodes := make(map[*Variable]GraphNode, len(s.vars))
	for i, v := range s.vars {
		n := GraphNode{id: int64(i), Var: v}
		nodes[v] = n
		g.AddNode(n)
	}
	for _, v := range s.vars {
		for _, d := range v.dependent {
			from, ok := nodes[d]
			if !ok {
				continue
			}
			g.SetEdge(g.NewEdge(from, nodes[v]))
		}
	}
	return g
}
