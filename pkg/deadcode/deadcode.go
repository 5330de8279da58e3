// Package deadcode detects dead code within a method: statements no
// feasible execution reaches, and assignments whose result no feasible
// execution reads. Feasibility comes from constant propagation, which
// prunes branch edges whose condition is a known constant; liveness
// comes from live-variable analysis.
package deadcode

import (
	"sort"

	"github.com/oopta/oopta/internal/worklist"
	"github.com/oopta/oopta/pkg/constprop"
	"github.com/oopta/oopta/pkg/dataflow"
	"github.com/oopta/oopta/pkg/ir"
	"github.com/oopta/oopta/pkg/livevars"
)

// Detect returns the dead statements of m in body order: unreachable
// statements plus dead assignments. cp supplies the constant facts at
// each statement; live supplies the liveness of assignment targets.
func Detect(m *ir.Method, cp *dataflow.Result[constprop.CPFact], live *livevars.Result) []ir.Stmt {
	cfg := m.CFG()
	reached := traverse(cfg, cp)

	var dead []ir.Stmt
	for _, n := range m.Stmts {
		if !reached[n] {
			dead = append(dead, n)
			continue
		}
		if isDeadAssignment(n, live) {
			dead = append(dead, n)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].Index() < dead[j].Index() })
	return dead
}

// traverse walks the CFG from entry, taking only the branch edges the
// constant facts leave feasible.
func traverse(cfg *ir.CFG, cp *dataflow.Result[constprop.CPFact]) map[ir.Stmt]bool {
	reached := make(map[ir.Stmt]bool)
	var work worklist.DedupQueue[ir.Stmt]
	work.Push(cfg.Entry())

	for !work.Empty() {
		n := work.Pop()
		if reached[n] {
			continue
		}
		reached[n] = true
		for _, e := range feasibleEdges(cfg, n, cp) {
			work.Push(e.Target)
		}
	}
	return reached
}

// feasibleEdges returns the out-edges of n that some execution can
// take. Branches on a known constant keep only the matching edge.
func feasibleEdges(cfg *ir.CFG, n ir.Stmt, cp *dataflow.Result[constprop.CPFact]) []*ir.CFGEdge {
	all := cfg.OutEdges(n)
	switch n := n.(type) {
	case *ir.If:
		cond := constprop.Evaluate(n.Cond, cp.In(n))
		if !cond.IsConst() {
			return all
		}
		want := ir.EdgeIfFalse
		if cond.Const() != 0 {
			want = ir.EdgeIfTrue
		}
		return edgesOfKind(all, want, 0)

	case *ir.Switch:
		v := cp.In(n).Get(n.Var)
		if !v.IsConst() {
			return all
		}
		for _, c := range n.Cases {
			if c.Value == v.Const() {
				return edgesOfKind(all, ir.EdgeSwitchCase, c.Value)
			}
		}
		return edgesOfKind(all, ir.EdgeSwitchDefault, 0)
	}
	return all
}

func edgesOfKind(edges []*ir.CFGEdge, kind ir.EdgeKind, caseValue int64) []*ir.CFGEdge {
	var out []*ir.CFGEdge
	for _, e := range edges {
		if e.Kind != kind {
			continue
		}
		if kind == ir.EdgeSwitchCase && e.CaseValue != caseValue {
			continue
		}
		out = append(out, e)
	}
	return out
}

// isDeadAssignment reports whether n writes a variable nothing reads
// and has no observable effect of its own. Allocation, heap access and
// calls are kept regardless of liveness; so are DIV and REM, which can
// fault.
func isDeadAssignment(n ir.Stmt, live *livevars.Result) bool {
	switch n := n.(type) {
	case *ir.Copy:
		return !live.LiveAfter(n)[n.Result]
	case *ir.Assign:
		if b, ok := n.RHS.(*ir.Binary); ok && (b.Op == ir.OpDiv || b.Op == ir.OpRem) {
			return false
		}
		return !live.LiveAfter(n)[n.Result]
	}
	return false
}
