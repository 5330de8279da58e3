package callgraph

import (
	"log/slog"

	"github.com/oopta/oopta/internal/worklist"
	"github.com/oopta/oopta/pkg/ir"
)

// Dispatch looks up the concrete method a receiver of declared class c
// runs for the given signature: it searches the class's declared methods
// for a matching signature with a non-abstract body and otherwise walks
// up the superclass chain. Returns nil when the hierarchy is exhausted.
func Dispatch(c *ir.Class, name string, arity int) *ir.Method {
	for cur := c; cur != nil; cur = cur.Super {
		if m := cur.DeclaredMethod(name, arity); m != nil && !m.IsAbstract {
			return m
		}
	}
	return nil
}

// Resolve returns the possible callees of a call site. When recvClass is
// non-nil it names the concrete class of a receiver object discovered by
// the pointer analysis, and resolution is a single dispatch against it.
// When recvClass is nil, resolution falls back to class-hierarchy
// analysis: static and special calls dispatch against the declaring
// class, virtual and interface calls against the declaring class and
// every subclass, subinterface and implementor transitively below it.
//
// A call site no concrete method can serve resolves to the empty set and
// is simply absent from the call graph.
func Resolve(site *ir.Invoke, recvClass *ir.Class) []*ir.Method {
	ref := site.Ref
	if recvClass != nil {
		if m := Dispatch(recvClass, ref.Name, ref.Arity); m != nil {
			return []*ir.Method{m}
		}
		return nil
	}
	switch site.Kind {
	case ir.CallStatic, ir.CallSpecial:
		if m := Dispatch(ref.Class, ref.Name, ref.Arity); m != nil {
			return []*ir.Method{m}
		}
		return nil
	case ir.CallVirtual, ir.CallInterface:
		var res []*ir.Method
		seen := make(map[*ir.Method]bool)
		forHierarchy(ref.Class, func(c *ir.Class) {
			if m := Dispatch(c, ref.Name, ref.Arity); m != nil && !seen[m] {
				seen[m] = true
				res = append(res, m)
			}
		})
		return res
	}
	return nil
}

// forHierarchy visits c and every class transitively below it in the
// subclass / subinterface / implementor relation. The hierarchy is
// acyclic, but diamonds exist for interfaces, so visits are deduplicated.
func forHierarchy(c *ir.Class, f func(*ir.Class)) {
	visited := make(map[*ir.Class]bool)
	var queue worklist.Queue[*ir.Class]
	queue.Push(c)
	visited[c] = true
	for !queue.Empty() {
		cur := queue.Pop()
		f(cur)
		for _, group := range [][]*ir.Class{cur.Subclasses, cur.Subinterfaces, cur.Implementors} {
			for _, sub := range group {
				if !visited[sub] {
					visited[sub] = true
					queue.Push(sub)
				}
			}
		}
	}
}

// BuildCHA constructs a whole-program call graph from the entry method
// using class-hierarchy analysis only.
func BuildCHA(prog *ir.Program) *Graph {
	g := NewGraph()
	entry := prog.Entry
	g.entries = append(g.entries, entry)

	visited := make(map[*ir.Method]bool)
	var queue worklist.Queue[*ir.Method]
	queue.Push(entry)
	for !queue.Empty() {
		m := queue.Pop()
		if visited[m] {
			continue
		}
		visited[m] = true
		g.AddReachable(m)
		for _, s := range m.Stmts {
			site, ok := s.(*ir.Invoke)
			if !ok {
				continue
			}
			for _, callee := range Resolve(site, nil) {
				g.AddEdge(Edge{Kind: site.Kind, Site: site, Callee: callee})
				queue.Push(callee)
			}
		}
	}
	slog.Debug("CHA call graph built",
		"reachable", len(g.reachable), "edges", len(g.edges))
	return g
}
