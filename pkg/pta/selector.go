package pta

import (
	"fmt"

	"github.com/oopta/oopta/pkg/ir"
)

// ContextSelector decides context sensitivity. Implementations must be
// deterministic for identical inputs: the solver relies on referential
// transparency for pointer-flow-graph edge deduplication.
type ContextSelector interface {
	// Name identifies the policy, e.g. "2-call".
	Name() string
	// EmptyContext is the context of entry methods.
	EmptyContext() *Context
	// SelectCall derives the callee context for a resolved call edge.
	// recv is nil for static and special calls resolved without a
	// receiver object.
	SelectCall(caller *Context, site *ir.Invoke, recv *Obj, callee *ir.Method) *Context
	// SelectHeap derives the abstraction context for objects allocated
	// in a method analyzed under methodCtx.
	SelectHeap(methodCtx *Context, site *ir.New) *Context
}

// NewSelector returns the selector for a policy name: "ci" (context
// insensitive), "k-call" (k-limited call strings) or "k-obj" (k-limited
// object sensitivity), with k > 0.
func NewSelector(policy string, k int, pool *ContextPool) (ContextSelector, error) {
	switch policy {
	case "ci", "":
		return insensitive{pool: pool}, nil
	case "k-call", "call":
		if k < 1 {
			return nil, fmt.Errorf("k-call selector requires k >= 1, got %d", k)
		}
		return callSite{pool: pool, k: k}, nil
	case "k-obj", "obj":
		if k < 1 {
			return nil, fmt.Errorf("k-obj selector requires k >= 1, got %d", k)
		}
		return objSens{pool: pool, k: k}, nil
	}
	return nil, fmt.Errorf("unknown context policy %q", policy)
}

// insensitive assigns the empty context everywhere.
type insensitive struct {
	pool *ContextPool
}

func (s insensitive) Name() string           { return "ci" }
func (s insensitive) EmptyContext() *Context { return s.pool.Empty() }

func (s insensitive) SelectCall(*Context, *ir.Invoke, *Obj, *ir.Method) *Context {
	return s.pool.Empty()
}

func (s insensitive) SelectHeap(*Context, *ir.New) *Context { return s.pool.Empty() }

// callSite is k-limited call-string sensitivity: callees are analyzed
// under the newest k call sites, heap objects under the newest k-1.
type callSite struct {
	pool *ContextPool
	k    int
}

func (s callSite) Name() string           { return fmt.Sprintf("%d-call", s.k) }
func (s callSite) EmptyContext() *Context { return s.pool.Empty() }

func (s callSite) SelectCall(caller *Context, site *ir.Invoke, recv *Obj, callee *ir.Method) *Context {
	return s.pool.Append(caller, callSiteElem{site: site}, s.k)
}

func (s callSite) SelectHeap(methodCtx *Context, site *ir.New) *Context {
	return s.pool.Truncate(methodCtx, s.k-1)
}

// objSens is k-limited object sensitivity: instance calls are analyzed
// under the newest k receiver allocation sites, static and special calls
// inherit the caller's context.
type objSens struct {
	pool *ContextPool
	k    int
}

func (s objSens) Name() string           { return fmt.Sprintf("%d-obj", s.k) }
func (s objSens) EmptyContext() *Context { return s.pool.Empty() }

func (s objSens) SelectCall(caller *Context, site *ir.Invoke, recv *Obj, callee *ir.Method) *Context {
	if recv == nil {
		return caller
	}
	return s.pool.Append(recv.Ctx, recv, s.k)
}

func (s objSens) SelectHeap(methodCtx *Context, site *ir.New) *Context {
	return s.pool.Truncate(methodCtx, s.k-1)
}
