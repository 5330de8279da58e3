// Package dataflow provides the interprocedural control-flow graph and
// a generic forward worklist solver over it. Concrete analyses plug in
// through the Analysis interface; the solver also accepts external
// re-activation of nodes, which lets analyses react to facts arriving
// outside the graph (for example through heap aliasing).
package dataflow

import (
	"log/slog"

	"github.com/oopta/oopta/pkg/callgraph"
	"github.com/oopta/oopta/pkg/ir"
)

// EdgeKind classifies interprocedural control-flow edges.
type EdgeKind int

const (
	// EdgeNormal is an ordinary intraprocedural edge.
	EdgeNormal EdgeKind = iota
	// EdgeCallToReturn runs from a call site to its return site within
	// the caller, bypassing the callee.
	EdgeCallToReturn
	// EdgeCall runs from a call site to a callee's entry node.
	EdgeCall
	// EdgeReturn runs from a callee's exit node back to a return site of
	// one of its call sites.
	EdgeReturn
)

// Edge is one edge of the interprocedural CFG. CFG carries the
// underlying intraprocedural edge for Normal and CallToReturn edges;
// Site and Callee identify the call for Call and Return edges.
type Edge struct {
	Kind   EdgeKind
	Source ir.Stmt
	Target ir.Stmt

	CFG    *ir.CFGEdge
	Site   *ir.Invoke
	Callee *ir.Method
}

// ICFG is the interprocedural control-flow graph over the reachable
// methods of a program: the per-method CFGs stitched together at call
// sites resolved by a call graph.
type ICFG struct {
	prog *ir.Program
	cg   *callgraph.Graph

	nodes   []ir.Stmt
	succs   map[ir.Stmt][]*Edge
	preds   map[ir.Stmt][]*Edge
	entries []ir.Stmt
}

// BuildICFG stitches the CFGs of every method reachable in cg into one
// interprocedural graph. Call sites with at least one resolved callee
// get call, return and call-to-return edges; unresolved sites keep
// plain intraprocedural edges.
func BuildICFG(prog *ir.Program, cg *callgraph.Graph) *ICFG {
	g := &ICFG{
		prog:  prog,
		cg:    cg,
		succs: make(map[ir.Stmt][]*Edge),
		preds: make(map[ir.Stmt][]*Edge),
	}

	addEdge := func(e *Edge) {
		g.succs[e.Source] = append(g.succs[e.Source], e)
		g.preds[e.Target] = append(g.preds[e.Target], e)
	}

	for _, m := range cg.Reachable() {
		if m.IsAbstract {
			continue
		}
		cfg := m.CFG()
		cfg.Nodes(func(n ir.Stmt) {
			g.nodes = append(g.nodes, n)

			site, isCall := n.(*ir.Invoke)
			var callees []*ir.Method
			if isCall {
				callees = cg.CalleesOf(site)
			}

			for _, ce := range cfg.OutEdges(n) {
				kind := EdgeNormal
				if len(callees) > 0 {
					kind = EdgeCallToReturn
				}
				addEdge(&Edge{Kind: kind, Source: n, Target: ce.Target, CFG: ce, Site: site})
			}

			for _, callee := range callees {
				if callee.IsAbstract {
					continue
				}
				addEdge(&Edge{
					Kind:   EdgeCall,
					Source: n,
					Target: callee.CFG().Entry(),
					Site:   site,
					Callee: callee,
				})
				for _, ce := range cfg.OutEdges(n) {
					addEdge(&Edge{
						Kind:   EdgeReturn,
						Source: callee.CFG().Exit(),
						Target: ce.Target,
						Site:   site,
						Callee: callee,
					})
				}
			}
		})
	}

	for _, m := range cg.Entries() {
		g.entries = append(g.entries, m.CFG().Entry())
	}

	slog.Debug("interprocedural CFG built",
		"nodes", len(g.nodes), "entry_nodes", len(g.entries))
	return g
}

// Nodes returns every node in deterministic order: methods in reachable
// order, statements in method order. The slice must not be mutated.
func (g *ICFG) Nodes() []ir.Stmt { return g.nodes }

// EntryNodes returns the synthetic entry nodes of the program's entry
// methods.
func (g *ICFG) EntryNodes() []ir.Stmt { return g.entries }

func (g *ICFG) OutEdges(n ir.Stmt) []*Edge { return g.succs[n] }
func (g *ICFG) InEdges(n ir.Stmt) []*Edge  { return g.preds[n] }

// CalleesOf returns the resolved callees of a call site.
func (g *ICFG) CalleesOf(site *ir.Invoke) []*ir.Method { return g.cg.CalleesOf(site) }

// IsCallNode reports whether n is a call site with at least one
// resolved callee.
func (g *ICFG) IsCallNode(n ir.Stmt) bool {
	site, ok := n.(*ir.Invoke)
	return ok && len(g.cg.CalleesOf(site)) > 0
}
