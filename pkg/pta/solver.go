// Package pta implements a context-sensitive, whole-program pointer
// analysis: a worklist-driven fixed point over a pointer flow graph
// discovered incrementally while the call graph is built on the fly.
//
// The algorithm is Andersen-style with pluggable context sensitivity.
// Statements that only mention local state (allocations, copies, static
// field accesses, statically resolvable calls) are wired into the flow
// graph the first time their method becomes reachable in a context.
// Instance field and array accesses and virtual calls depend on the
// points-to set of their base variable, so they are deferred and
// replayed each time that set grows.
package pta

import (
	"log/slog"

	"github.com/oopta/oopta/internal/worklist"
	"github.com/oopta/oopta/pkg/callgraph"
	"github.com/oopta/oopta/pkg/ir"
)

// Solver holds the mutable state of one pointer-analysis run. All state
// is owned by the solver instance; two runs never share anything but the
// immutable program.
type Solver struct {
	prog     *ir.Program
	selector ContextSelector

	heap *heapModel
	ptrs *pointerPool
	pfg  *flowGraph
	cg   *csCallGraph

	work       worklist.Queue[workEntry]
	reachQueue worklist.Queue[*CSMethod]
	deltaSpace []int
}

// workEntry instructs the solver to propagate a set of objects into a
// pointer.
type workEntry struct {
	ptr Pointer
	pts *PointsToSet
}

// NewSolver prepares a solver for one run over prog.
func NewSolver(prog *ir.Program, selector ContextSelector) *Solver {
	return &Solver{
		prog:     prog,
		selector: selector,
		heap:     newHeapModel(),
		ptrs:     newPointerPool(),
		pfg:      newFlowGraph(),
		cg:       newCSCallGraph(),
	}
}

// Analyze runs a pointer analysis over prog under the named context
// policy and returns the result.
func Analyze(prog *ir.Program, policy string, k int) (*Result, error) {
	pool := NewContextPool()
	selector, err := NewSelector(policy, k, pool)
	if err != nil {
		return nil, err
	}
	return NewSolver(prog, selector).Solve(), nil
}

// Solve runs the fixed point to completion and returns the result. A
// solver must not be reused.
func (s *Solver) Solve() *Result {
	entry := s.cg.csMethod(s.selector.EmptyContext(), s.prog.Entry)
	s.cg.addEntry(entry)
	s.addReachable(entry)

	for {
		// Newly reachable methods are visited before further
		// propagation so their flow edges exist when deltas arrive.
		if !s.reachQueue.Empty() {
			s.visit(s.reachQueue.Pop())
			continue
		}
		if s.work.Empty() {
			break
		}
		e := s.work.Pop()
		delta := s.propagate(e.ptr, e.pts)
		if delta.IsEmpty() {
			continue
		}
		if csv, ok := e.ptr.(*CSVar); ok {
			s.deltaSpace = delta.AppendTo(s.deltaSpace)
			for _, id := range s.deltaSpace {
				s.processNewObject(csv, s.heap.obj(id))
			}
		}
	}

	slog.Debug("points-to fixed point reached",
		"policy", s.selector.Name(),
		"reachable", len(s.cg.reachable),
		"objects", len(s.heap.objs),
		"pfg_edges", s.pfg.numEdges(),
		"call_edges", len(s.cg.edges))
	return newResult(s)
}

// addReachable queues a context-sensitive method for statement
// visitation the first time it is discovered.
func (s *Solver) addReachable(csm *CSMethod) {
	if s.cg.addReachable(csm) {
		s.reachQueue.Push(csm)
	}
}

// visit wires the context-independent statements of a newly reachable
// method into the pointer flow graph. Runs exactly once per CSMethod.
func (s *Solver) visit(csm *CSMethod) {
	ctx := csm.Ctx
	for _, stmt := range csm.Method.Stmts {
		switch stmt := stmt.(type) {
		case *ir.New:
			hctx := s.selector.SelectHeap(ctx, stmt)
			obj := s.heap.objFor(stmt, hctx)
			one := new(PointsToSet)
			one.Add(obj)
			s.work.Push(workEntry{ptr: s.ptrs.csVar(ctx, stmt.Result), pts: one})

		case *ir.Copy:
			s.addPFGEdge(s.ptrs.csVar(ctx, stmt.Source), s.ptrs.csVar(ctx, stmt.Result))

		case *ir.LoadField:
			if stmt.IsStatic() {
				s.addPFGEdge(s.ptrs.staticField(stmt.Field), s.ptrs.csVar(ctx, stmt.Result))
			}

		case *ir.StoreField:
			if stmt.IsStatic() {
				s.addPFGEdge(s.ptrs.csVar(ctx, stmt.Value), s.ptrs.staticField(stmt.Field))
			}

		case *ir.Invoke:
			switch stmt.Kind {
			case ir.CallStatic, ir.CallSpecial:
				s.processResolvableCall(ctx, stmt)
			}
		}
	}
}

// processResolvableCall handles call sites that resolve without
// points-to information: static calls and special (constructor/super)
// calls, both dispatched against the declaring class.
func (s *Solver) processResolvableCall(ctx *Context, site *ir.Invoke) {
	callee := callgraph.Dispatch(site.Ref.Class, site.Ref.Name, site.Ref.Arity)
	if callee == nil {
		slog.Debug("call site resolves to no method", "site", site.String())
		return
	}
	ct := s.selector.SelectCall(ctx, site, nil, callee)
	csCallee := s.cg.csMethod(ct, callee)
	if site.Kind == ir.CallSpecial && callee.This != nil {
		// The receiver's objects flow into the callee's this.
		s.addPFGEdge(s.ptrs.csVar(ctx, site.Recv), s.ptrs.csVar(ct, callee.This))
	}
	s.addCallEdge(site.Kind, s.cg.csCallSite(ctx, site), csCallee)
}

// addPFGEdge inserts a flow edge and, when the edge is new and the
// source already points somewhere, schedules the source's whole set for
// propagation into the target. Skipping that catch-up would lose objects
// propagated before the edge existed.
func (s *Solver) addPFGEdge(src, dst Pointer) {
	if s.pfg.addEdge(src, dst) && !src.PointsTo().IsEmpty() {
		s.work.Push(workEntry{ptr: dst, pts: src.PointsTo()})
	}
}

// propagate folds an incoming set into ptr's set and forwards the delta
// (the objects ptr had not seen yet) to every flow successor. Returns
// the delta.
func (s *Solver) propagate(ptr Pointer, pts *PointsToSet) *PointsToSet {
	delta := new(PointsToSet)
	delta.DifferenceOf(pts, ptr.PointsTo())
	if delta.IsEmpty() {
		return delta
	}
	ptr.PointsTo().UnionWith(delta)
	for _, succ := range s.pfg.succsOf(ptr) {
		s.work.Push(workEntry{ptr: succ, pts: delta})
	}
	return delta
}

// processNewObject replays the deferred statements of a variable against
// one object newly added to its points-to set: instance field and array
// accesses are wired for that concrete object, and virtual or interface
// calls through the variable are dispatched against its concrete class.
func (s *Solver) processNewObject(csv *CSVar, obj *Obj) {
	v, ctx := csv.Var, csv.Ctx

	if obj.IsArray() {
		for _, stmt := range v.StoreArrays {
			s.addPFGEdge(s.ptrs.csVar(ctx, stmt.Value), s.ptrs.arrayIndex(obj))
		}
		for _, stmt := range v.LoadArrays {
			s.addPFGEdge(s.ptrs.arrayIndex(obj), s.ptrs.csVar(ctx, stmt.Result))
		}
		return
	}

	for _, stmt := range v.StoreFields {
		s.addPFGEdge(s.ptrs.csVar(ctx, stmt.Value), s.ptrs.instanceField(obj, stmt.Field))
	}
	for _, stmt := range v.LoadFields {
		s.addPFGEdge(s.ptrs.instanceField(obj, stmt.Field), s.ptrs.csVar(ctx, stmt.Result))
	}
	for _, site := range v.Invokes {
		if site.Kind == ir.CallVirtual || site.Kind == ir.CallInterface {
			s.processDynamicCall(csv, obj, site)
		}
	}
}

// processDynamicCall resolves a virtual or interface call for one
// concrete receiver object: a single dispatch against the object's
// class.
func (s *Solver) processDynamicCall(csv *CSVar, recv *Obj, site *ir.Invoke) {
	callee := callgraph.Dispatch(recv.Class(), site.Ref.Name, site.Ref.Arity)
	if callee == nil {
		slog.Debug("call site resolves to no method",
			"site", site.String(), "receiver", recv.Label())
		return
	}
	ct := s.selector.SelectCall(csv.Ctx, site, recv, callee)
	csCallee := s.cg.csMethod(ct, callee)

	if callee.This != nil {
		one := new(PointsToSet)
		one.Add(recv)
		s.work.Push(workEntry{ptr: s.ptrs.csVar(ct, callee.This), pts: one})
	}
	s.addCallEdge(site.Kind, s.cg.csCallSite(csv.Ctx, site), csCallee)
}

// addCallEdge records a call edge. A newly added edge marks the callee
// reachable and wires the parameter-passing and return-value flow edges.
func (s *Solver) addCallEdge(kind ir.CallKind, csSite *CSCallSite, csCallee *CSMethod) {
	if !s.cg.addEdge(CSEdge{Kind: kind, Site: csSite, Callee: csCallee}) {
		return
	}
	s.addReachable(csCallee)

	site, callee := csSite.Site, csCallee.Method
	c, ct := csSite.Ctx, csCallee.Ctx

	// Argument projection is skipped when the site's static signature
	// disagrees with the resolved callee.
	if site.Ref.MatchesSignature(callee) {
		for i, arg := range site.Args {
			s.addPFGEdge(s.ptrs.csVar(c, arg), s.ptrs.csVar(ct, callee.Params[i]))
		}
	}
	if site.Result != nil {
		for _, ret := range callee.ReturnVars {
			s.addPFGEdge(s.ptrs.csVar(ct, ret), s.ptrs.csVar(c, site.Result))
		}
	}
}
