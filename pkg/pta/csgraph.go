package pta

import (
	"fmt"

	"github.com/oopta/oopta/pkg/ir"
)

// CSMethod is a method analyzed under a calling context.
type CSMethod struct {
	Ctx    *Context
	Method *ir.Method
}

func (m *CSMethod) String() string { return fmt.Sprintf("%s%s", m.Method, m.Ctx) }

// CSCallSite is a call site in a calling context.
type CSCallSite struct {
	Ctx  *Context
	Site *ir.Invoke
}

func (s *CSCallSite) String() string { return fmt.Sprintf("%s%s", s.Site, s.Ctx) }

// CSEdge is a context-sensitive call edge.
type CSEdge struct {
	Kind   ir.CallKind
	Site   *CSCallSite
	Callee *CSMethod
}

// csCallGraph is the context-sensitive call graph discovered during
// solving: entry methods, the monotone reachable set, and call edges
// added at most once per (call-site-context, callee-context) pair.
type csCallGraph struct {
	entries   []*CSMethod
	reachable []*CSMethod
	reachSet  map[*CSMethod]bool

	edges   []CSEdge
	edgeSet map[CSEdge]bool

	methods map[csMethodKey]*CSMethod
	sites   map[csSiteKey]*CSCallSite
}

type csMethodKey struct {
	ctx *Context
	m   *ir.Method
}

type csSiteKey struct {
	ctx  *Context
	site *ir.Invoke
}

func newCSCallGraph() *csCallGraph {
	return &csCallGraph{
		reachSet: make(map[*CSMethod]bool),
		edgeSet:  make(map[CSEdge]bool),
		methods:  make(map[csMethodKey]*CSMethod),
		sites:    make(map[csSiteKey]*CSCallSite),
	}
}

func (g *csCallGraph) csMethod(ctx *Context, m *ir.Method) *CSMethod {
	key := csMethodKey{ctx: ctx, m: m}
	if cm, ok := g.methods[key]; ok {
		return cm
	}
	cm := &CSMethod{Ctx: ctx, Method: m}
	g.methods[key] = cm
	return cm
}

func (g *csCallGraph) csCallSite(ctx *Context, site *ir.Invoke) *CSCallSite {
	key := csSiteKey{ctx: ctx, site: site}
	if cs, ok := g.sites[key]; ok {
		return cs
	}
	cs := &CSCallSite{Ctx: ctx, Site: site}
	g.sites[key] = cs
	return cs
}

func (g *csCallGraph) addEntry(m *CSMethod) {
	g.entries = append(g.entries, m)
}

// addReachable marks m reachable, returning true the first time.
func (g *csCallGraph) addReachable(m *CSMethod) bool {
	if g.reachSet[m] {
		return false
	}
	g.reachSet[m] = true
	g.reachable = append(g.reachable, m)
	return true
}

// addEdge inserts a call edge, returning true iff it was not present.
func (g *csCallGraph) addEdge(e CSEdge) bool {
	if g.edgeSet[e] {
		return false
	}
	g.edgeSet[e] = true
	g.edges = append(g.edges, e)
	return true
}
