// Package callgraph provides method dispatch and call-graph construction.
//
// Two resolution strategies are exposed behind Resolve: class-hierarchy
// analysis (no points-to information, used for the initial coarse graph)
// and concrete-receiver dispatch (used by the pointer analysis once it
// discovers receiver objects).
package callgraph

import (
	"fmt"

	"github.com/oopta/oopta/pkg/ir"
)

// Edge is one context-insensitive call edge.
type Edge struct {
	Kind   ir.CallKind
	Site   *ir.Invoke
	Callee *ir.Method
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -%s-> %s", e.Site, e.Kind, e.Callee)
}

// Graph is a context-insensitive call graph: entry methods, the monotone
// set of reachable methods, and typed edges from call sites to resolved
// methods.
type Graph struct {
	entries   []*ir.Method
	reachable []*ir.Method
	reachSet  map[*ir.Method]bool

	edges    []Edge
	edgeSet  map[Edge]bool
	bySite   map[*ir.Invoke][]*ir.Method
	byCallee map[*ir.Method][]Edge
}

func NewGraph() *Graph {
	return &Graph{
		reachSet: make(map[*ir.Method]bool),
		edgeSet:  make(map[Edge]bool),
		bySite:   make(map[*ir.Invoke][]*ir.Method),
		byCallee: make(map[*ir.Method][]Edge),
	}
}

// AddEntry registers an entry method and marks it reachable.
func (g *Graph) AddEntry(m *ir.Method) {
	g.entries = append(g.entries, m)
	g.AddReachable(m)
}

// AddReachable marks m reachable. It returns true the first time m is
// added.
func (g *Graph) AddReachable(m *ir.Method) bool {
	if g.reachSet[m] {
		return false
	}
	g.reachSet[m] = true
	g.reachable = append(g.reachable, m)
	return true
}

// AddEdge inserts a call edge, returning true iff it was not present.
// The callee is marked reachable.
func (g *Graph) AddEdge(e Edge) bool {
	if g.edgeSet[e] {
		return false
	}
	g.edgeSet[e] = true
	g.edges = append(g.edges, e)
	g.bySite[e.Site] = append(g.bySite[e.Site], e.Callee)
	g.byCallee[e.Callee] = append(g.byCallee[e.Callee], e)
	g.AddReachable(e.Callee)
	return true
}

// Entries returns the entry methods.
func (g *Graph) Entries() []*ir.Method { return g.entries }

// Reachable returns the reachable methods in discovery order.
func (g *Graph) Reachable() []*ir.Method { return g.reachable }

// Contains reports whether m is reachable.
func (g *Graph) Contains(m *ir.Method) bool { return g.reachSet[m] }

// Edges iterates over all call edges in insertion order.
func (g *Graph) Edges(f func(Edge)) {
	for _, e := range g.edges {
		f(e)
	}
}

// CalleesOf returns the resolved callees of a call site.
func (g *Graph) CalleesOf(site *ir.Invoke) []*ir.Method { return g.bySite[site] }

// CallersOf returns the edges targeting the given method.
func (g *Graph) CallersOf(m *ir.Method) []Edge { return g.byCallee[m] }
