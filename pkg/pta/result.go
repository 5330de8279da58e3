package pta

import (
	"github.com/oopta/oopta/pkg/callgraph"
	"github.com/oopta/oopta/pkg/ir"
)

// Result is the immutable outcome of a pointer-analysis run. It exposes
// per-context and context-merged points-to sets, the discovered call
// graph in both context-sensitive and context-erased form, and the
// abstract object table. Results are safe for concurrent readers.
type Result struct {
	prog     *ir.Program
	selector string

	ptrs *pointerPool
	heap *heapModel
	cg   *csCallGraph

	merged map[*ir.Var]*PointsToSet
	erased *callgraph.Graph
}

func newResult(s *Solver) *Result {
	r := &Result{
		prog:     s.prog,
		selector: s.selector.Name(),
		ptrs:     s.ptrs,
		heap:     s.heap,
		cg:       s.cg,
		merged:   make(map[*ir.Var]*PointsToSet),
	}

	// Context-merged variable sets: the union over every context the
	// variable was analyzed under.
	for _, csv := range s.ptrs.varOrder {
		set, ok := r.merged[csv.Var]
		if !ok {
			set = new(PointsToSet)
			r.merged[csv.Var] = set
		}
		set.UnionWith(csv.PointsTo())
	}

	// Context-erased call graph, for consumers that reason per method.
	g := callgraph.NewGraph()
	for _, e := range s.cg.entries {
		g.AddEntry(e.Method)
	}
	for _, m := range s.cg.reachable {
		g.AddReachable(m.Method)
	}
	for _, e := range s.cg.edges {
		g.AddEdge(callgraph.Edge{Kind: e.Kind, Site: e.Site.Site, Callee: e.Callee.Method})
	}
	r.erased = g
	return r
}

// Policy returns the name of the context policy the run used.
func (r *Result) Policy() string { return r.selector }

// PointsTo returns the context-merged points-to set of v. The returned
// set is never nil and must not be mutated.
func (r *Result) PointsTo(v *ir.Var) *PointsToSet {
	if set, ok := r.merged[v]; ok {
		return set
	}
	return &emptySet
}

// CSPointsTo returns the points-to set of v under one specific context,
// or the empty set when v was never analyzed under ctx.
func (r *Result) CSPointsTo(ctx *Context, v *ir.Var) *PointsToSet {
	if p, ok := r.ptrs.csVars[csVarKey{ctx: ctx, v: v}]; ok {
		return p.PointsTo()
	}
	return &emptySet
}

var emptySet PointsToSet

// StaticFieldPointsTo returns the points-to set of a static field slot.
func (r *Result) StaticFieldPointsTo(f *ir.Field) *PointsToSet {
	if p, ok := r.ptrs.statics[f]; ok {
		return p.PointsTo()
	}
	return &emptySet
}

// InstanceFieldPointsTo returns the points-to set of obj.f.
func (r *Result) InstanceFieldPointsTo(obj *Obj, f *ir.Field) *PointsToSet {
	if p, ok := r.ptrs.instances[instanceKey{obj: obj, field: f}]; ok {
		return p.PointsTo()
	}
	return &emptySet
}

// ArrayPointsTo returns the points-to set of obj's collapsed element
// slot.
func (r *Result) ArrayPointsTo(obj *Obj) *PointsToSet {
	if p, ok := r.ptrs.arrays[obj]; ok {
		return p.PointsTo()
	}
	return &emptySet
}

// Vars visits every variable that acquired a non-empty merged points-to
// set, in discovery order.
func (r *Result) Vars(visit func(v *ir.Var, pts *PointsToSet)) {
	seen := make(map[*ir.Var]bool)
	for _, csv := range r.ptrs.varOrder {
		if seen[csv.Var] {
			continue
		}
		seen[csv.Var] = true
		if set := r.merged[csv.Var]; !set.IsEmpty() {
			visit(csv.Var, set)
		}
	}
}

// Obj resolves an interned object id back to its object.
func (r *Result) Obj(id int) *Obj { return r.heap.obj(id) }

// Objects returns every abstract object the run created, in creation
// order. The slice must not be mutated.
func (r *Result) Objects() []*Obj { return r.heap.objs }

// CallGraph returns the context-erased call graph.
func (r *Result) CallGraph() *callgraph.Graph { return r.erased }

// CSReachable returns every context-sensitive method the run reached,
// in discovery order.
func (r *Result) CSReachable() []*CSMethod { return r.cg.reachable }

// CSEdges returns every context-sensitive call edge, in discovery order.
func (r *Result) CSEdges() []CSEdge { return r.cg.edges }
