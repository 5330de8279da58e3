package dataflow

import (
	"log/slog"

	"github.com/oopta/oopta/internal/worklist"
	"github.com/oopta/oopta/pkg/ir"
)

// Analysis is a forward dataflow analysis over the interprocedural CFG.
// F is the fact attached to each program point; implementations may use
// mutable fact types as long as TransferNode reports whether the out
// fact changed.
type Analysis[F any] interface {
	// NewBoundaryFact produces the fact holding at a program entry node.
	NewBoundaryFact(entry ir.Stmt) F
	// NewInitialFact produces the bottom fact for fresh program points.
	NewInitialFact() F
	// MeetInto merges fact into target in place.
	MeetInto(fact, target F)
	// TransferNode computes out from in for node n, reporting whether
	// out changed.
	TransferNode(n ir.Stmt, in, out F) bool
	// TransferEdge adapts the out fact of an edge's source while it
	// flows along the edge. Must not mutate out.
	TransferEdge(e *Edge, out F) F
}

// Solver runs a forward Analysis over an ICFG to a fixed point.
type Solver[F any] struct {
	icfg *ICFG
	a    Analysis[F]

	in, out  map[ir.Stmt]F
	boundary map[ir.Stmt]F
	work     worklist.DedupQueue[ir.Stmt]
}

// NewSolver prepares a solver for one run.
func NewSolver[F any](icfg *ICFG, a Analysis[F]) *Solver[F] {
	return &Solver[F]{
		icfg: icfg,
		a:    a,
		in:   make(map[ir.Stmt]F),
		out:  make(map[ir.Stmt]F),
	}
}

// Enqueue schedules a node for (re-)processing. Analyses call this from
// inside their transfer functions when a fact arrives outside the
// graph's edges, such as through a heap alias.
func (s *Solver[F]) Enqueue(n ir.Stmt) { s.work.Push(n) }

// Solve runs to a fixed point and returns the facts at every program
// point.
func (s *Solver[F]) Solve() *Result[F] {
	for _, n := range s.icfg.Nodes() {
		s.in[n] = s.a.NewInitialFact()
		s.out[n] = s.a.NewInitialFact()
		s.work.Push(n)
	}
	// Boundary facts live on the OUT of entry nodes.
	s.boundary = make(map[ir.Stmt]F, len(s.icfg.EntryNodes()))
	for _, entry := range s.icfg.EntryNodes() {
		s.boundary[entry] = s.a.NewBoundaryFact(entry)
		s.out[entry] = s.a.NewBoundaryFact(entry)
	}

	steps := 0
	for !s.work.Empty() {
		n := s.work.Pop()
		steps++

		if edges := s.icfg.InEdges(n); len(edges) > 0 {
			in := s.a.NewInitialFact()
			for _, e := range edges {
				s.a.MeetInto(s.a.TransferEdge(e, s.out[e.Source]), in)
			}
			// An entry method that is also a call target still models
			// unknown outside callers: its boundary fact meets into
			// whatever the call edges project.
			if b, ok := s.boundary[n]; ok {
				s.a.MeetInto(b, in)
			}
			s.in[n] = in
		} else if _, ok := s.boundary[n]; ok {
			// Keep the boundary fact; transferring from an empty IN
			// would erase it.
			continue
		}

		if s.a.TransferNode(n, s.in[n], s.out[n]) {
			for _, e := range s.icfg.OutEdges(n) {
				s.work.Push(e.Target)
			}
		}
	}

	slog.Debug("dataflow fixed point reached", "nodes", len(s.in), "steps", steps)
	return &Result[F]{in: s.in, out: s.out}
}

// Result holds the facts of a finished run.
type Result[F any] struct {
	in, out map[ir.Stmt]F
}

// In returns the fact holding immediately before n.
func (r *Result[F]) In(n ir.Stmt) F { return r.in[n] }

// Out returns the fact holding immediately after n.
func (r *Result[F]) Out(n ir.Stmt) F { return r.out[n] }
