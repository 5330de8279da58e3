// Package livevars implements intraprocedural live-variable analysis: a
// backward may-analysis over a method's CFG. A variable is live at a
// point when some path from that point reads it before overwriting it.
package livevars

import (
	"github.com/oopta/oopta/internal/worklist"
	"github.com/oopta/oopta/pkg/ir"
)

// VarSet is a set of variables.
type VarSet map[*ir.Var]bool

func (s VarSet) add(v *ir.Var) bool {
	if v == nil || s[v] {
		return false
	}
	s[v] = true
	return true
}

// unionInto adds every member of s into target, reporting growth.
func (s VarSet) unionInto(target VarSet) bool {
	grew := false
	for v := range s {
		if !target[v] {
			target[v] = true
			grew = true
		}
	}
	return grew
}

// Result holds the live sets of a finished run.
type Result struct {
	in, out map[ir.Stmt]VarSet
}

// LiveBefore returns the variables live immediately before n.
func (r *Result) LiveBefore(n ir.Stmt) VarSet { return r.in[n] }

// LiveAfter returns the variables live immediately after n.
func (r *Result) LiveAfter(n ir.Stmt) VarSet { return r.out[n] }

// Analyze computes live variables for one method by backward iteration
// to a fixed point.
func Analyze(m *ir.Method) *Result {
	cfg := m.CFG()
	r := &Result{
		in:  make(map[ir.Stmt]VarSet),
		out: make(map[ir.Stmt]VarSet),
	}

	var work worklist.DedupQueue[ir.Stmt]
	var order []ir.Stmt
	cfg.Nodes(func(n ir.Stmt) {
		r.in[n] = make(VarSet)
		r.out[n] = make(VarSet)
		order = append(order, n)
	})
	// Seeding in reverse roughly follows the backward flow.
	for i := len(order) - 1; i >= 0; i-- {
		work.Push(order[i])
	}

	for !work.Empty() {
		n := work.Pop()

		out := r.out[n]
		cfg.Succs(n, func(succ ir.Stmt) {
			r.in[succ].unionInto(out)
		})

		in := make(VarSet)
		out.unionInto(in)
		def, uses := defUse(n)
		if def != nil {
			delete(in, def)
		}
		for _, u := range uses {
			in.add(u)
		}

		if in.unionInto(r.in[n]) {
			cfg.Preds(n, func(pred ir.Stmt) {
				work.Push(pred)
			})
		}
	}
	return r
}

// defUse returns the variable a statement defines (nil for none) and
// the variables it reads.
func defUse(n ir.Stmt) (def *ir.Var, uses []*ir.Var) {
	switch n := n.(type) {
	case *ir.New:
		return n.Result, nil
	case *ir.Copy:
		return n.Result, []*ir.Var{n.Source}
	case *ir.Assign:
		return n.Result, expUses(n.RHS)
	case *ir.LoadField:
		if n.IsStatic() {
			return n.Result, nil
		}
		return n.Result, []*ir.Var{n.Base}
	case *ir.StoreField:
		if n.IsStatic() {
			return nil, []*ir.Var{n.Value}
		}
		return nil, []*ir.Var{n.Base, n.Value}
	case *ir.LoadArray:
		return n.Result, []*ir.Var{n.Base, n.Idx}
	case *ir.StoreArray:
		return nil, []*ir.Var{n.Base, n.Idx, n.Value}
	case *ir.Invoke:
		uses = append(uses, n.Args...)
		if n.Recv != nil {
			uses = append(uses, n.Recv)
		}
		return n.Result, uses
	case *ir.If:
		return nil, []*ir.Var{n.Cond.X, n.Cond.Y}
	case *ir.Switch:
		return nil, []*ir.Var{n.Var}
	case *ir.Return:
		if n.Var != nil {
			return nil, []*ir.Var{n.Var}
		}
	}
	return nil, nil
}

func expUses(e ir.Exp) []*ir.Var {
	switch e := e.(type) {
	case *ir.Var:
		return []*ir.Var{e}
	case *ir.Binary:
		return []*ir.Var{e.X, e.Y}
	}
	return nil
}
