package pta

// flowGraph is the pointer flow graph: a directed edge source -> target
// means objects in source's points-to set propagate into target's.
// Edges are inserted at most once and never removed.
type flowGraph struct {
	succs map[Pointer][]Pointer
	edges map[pfgEdge]struct{}
}

type pfgEdge struct {
	src, dst Pointer
}

func newFlowGraph() *flowGraph {
	return &flowGraph{
		succs: make(map[Pointer][]Pointer),
		edges: make(map[pfgEdge]struct{}),
	}
}

// addEdge inserts the edge, reporting true iff it was newly inserted.
func (g *flowGraph) addEdge(src, dst Pointer) bool {
	e := pfgEdge{src: src, dst: dst}
	if _, ok := g.edges[e]; ok {
		return false
	}
	g.edges[e] = struct{}{}
	g.succs[src] = append(g.succs[src], dst)
	return true
}

// succsOf returns the propagation targets of p.
func (g *flowGraph) succsOf(p Pointer) []Pointer { return g.succs[p] }

func (g *flowGraph) numEdges() int { return len(g.edges) }
