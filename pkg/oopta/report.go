package oopta

import (
	"github.com/oopta/oopta/pkg/callgraph"
	"github.com/oopta/oopta/pkg/constprop"
	"github.com/oopta/oopta/pkg/dataflow"
	"github.com/oopta/oopta/pkg/ir"
	"github.com/oopta/oopta/pkg/pta"
)

// Report is the JSON-ready summary of one analysis run. Entries appear
// in deterministic order: methods in reachability order, statements in
// body order.
type Report struct {
	Policy    string          `json:"policy"`
	Reachable []string        `json:"reachable"`
	CallEdges []CallEdge      `json:"call_edges"`
	PointsTo  []PointsToEntry `json:"points_to,omitempty"`
	Constants []ConstFact     `json:"constants,omitempty"`
	DeadCode  []DeadStmt      `json:"dead_code,omitempty"`
}

// CallEdge is one resolved call: the site label is
// "Class.method(...)#index".
type CallEdge struct {
	Kind   string `json:"kind"`
	Site   string `json:"site"`
	Callee string `json:"callee"`
}

// PointsToEntry lists the allocation sites a variable may point to.
type PointsToEntry struct {
	Var     string   `json:"var"`
	Objects []string `json:"objects"`
}

// ConstFact records a definition that produced a known constant.
type ConstFact struct {
	Method string `json:"method"`
	Stmt   int    `json:"stmt"`
	Var    string `json:"var"`
	Value  int64  `json:"value"`
}

// DeadStmt records one dead statement.
type DeadStmt struct {
	Method string `json:"method"`
	Stmt   int    `json:"stmt"`
	Text   string `json:"text"`
}

func (a *Analyzer) buildReport(
	ptaResult *pta.Result,
	cpResult *dataflow.Result[constprop.CPFact],
	reachable []*ir.Method,
	deadByMethod [][]ir.Stmt,
) *Report {
	r := &Report{Policy: ptaResult.Policy()}

	for _, m := range ptaResult.CallGraph().Reachable() {
		r.Reachable = append(r.Reachable, a.nameCache.Method(m))
	}

	ptaResult.CallGraph().Edges(func(e callgraph.Edge) {
		r.CallEdges = append(r.CallEdges, CallEdge{
			Kind:   e.Kind.String(),
			Site:   a.nameCache.Site(e.Site.Parent(), e.Site.Index()),
			Callee: a.nameCache.Method(e.Callee),
		})
	})

	var ids []int
	ptaResult.Vars(func(v *ir.Var, pts *pta.PointsToSet) {
		entry := PointsToEntry{Var: a.nameCache.Var(v)}
		ids = pts.AppendTo(ids)
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			obj := ptaResult.Obj(id)
			label := a.nameCache.Site(obj.Site.Parent(), obj.Site.Index())
			if !seen[label] {
				seen[label] = true
				entry.Objects = append(entry.Objects, label)
			}
		}
		r.PointsTo = append(r.PointsTo, entry)
	})

	for i, m := range reachable {
		mName := a.nameCache.Method(m)
		for _, n := range m.Stmts {
			def := definedVar(n)
			if def == nil || !constprop.CanHoldInt(def) {
				continue
			}
			if v := factAfter(cpResult, m, n).Get(def); v.IsConst() {
				r.Constants = append(r.Constants, ConstFact{
					Method: mName,
					Stmt:   n.Index(),
					Var:    def.Name,
					Value:  v.Const(),
				})
			}
		}
		for _, n := range deadByMethod[i] {
			r.DeadCode = append(r.DeadCode, DeadStmt{
				Method: mName,
				Stmt:   n.Index(),
				Text:   n.String(),
			})
		}
	}
	return r
}

// factAfter returns the fact describing a definition's value. For call
// sites the result arrives along the return edge, so it lives on the IN
// of the fall-through successor rather than on the site's own OUT.
func factAfter(
	cpResult *dataflow.Result[constprop.CPFact],
	m *ir.Method,
	n ir.Stmt,
) constprop.CPFact {
	if _, ok := n.(*ir.Invoke); ok {
		if edges := m.CFG().OutEdges(n); len(edges) > 0 {
			return cpResult.In(edges[0].Target)
		}
	}
	return cpResult.Out(n)
}

// definedVar returns the variable a statement defines, nil for none.
func definedVar(n ir.Stmt) *ir.Var {
	switch n := n.(type) {
	case *ir.Assign:
		return n.Result
	case *ir.Copy:
		return n.Result
	case *ir.LoadField:
		return n.Result
	case *ir.LoadArray:
		return n.Result
	case *ir.Invoke:
		return n.Result
	}
	return nil
}
