package constprop

import (
	"log/slog"

	"github.com/oopta/oopta/pkg/dataflow"
	"github.com/oopta/oopta/pkg/ir"
	"github.com/oopta/oopta/pkg/pta"
)

// InterCP is the interprocedural, alias-aware constant propagation. It
// plugs into the generic dataflow solver for the edge plumbing and
// keeps a separate abstract heap on the side: one lattice value per
// static field, per (object, field) slot and per (object, index) array
// slot, shared by all aliases the pointer analysis discovered. A store
// that raises a slot re-activates every load that may read it.
type InterCP struct {
	icfg *dataflow.ICFG
	pts  *pta.Result
	cp   CP

	enqueue func(ir.Stmt)

	// Loads indexed by the slots they may read, built once up front.
	staticLoads   map[*ir.Field][]*ir.LoadField
	instanceLoads map[instanceSlot][]*ir.LoadField
	arrayLoads    map[int][]*ir.LoadArray

	// The abstract heap. Values only climb the lattice.
	staticVals   map[*ir.Field]Value
	instanceVals map[instanceSlot]Value
	arrayVals    map[int]map[Value]Value

	idSpace []int
}

type instanceSlot struct {
	obj   int
	field *ir.Field
}

var _ dataflow.Analysis[CPFact] = (*InterCP)(nil)

// NewInterCP builds the analysis over an ICFG and a pointer-analysis
// result, indexing every reachable heap load by the slots it may read.
func NewInterCP(icfg *dataflow.ICFG, pts *pta.Result) *InterCP {
	a := &InterCP{
		icfg:          icfg,
		pts:           pts,
		staticLoads:   make(map[*ir.Field][]*ir.LoadField),
		instanceLoads: make(map[instanceSlot][]*ir.LoadField),
		arrayLoads:    make(map[int][]*ir.LoadArray),
		staticVals:    make(map[*ir.Field]Value),
		instanceVals:  make(map[instanceSlot]Value),
		arrayVals:     make(map[int]map[Value]Value),
	}
	a.cp.LoadValue = a.loadValue

	loads := 0
	for _, n := range icfg.Nodes() {
		switch n := n.(type) {
		case *ir.LoadField:
			if !CanHoldInt(n.Result) {
				continue
			}
			loads++
			if n.IsStatic() {
				a.staticLoads[n.Field] = append(a.staticLoads[n.Field], n)
				continue
			}
			a.idSpace = pts.PointsTo(n.Base).AppendTo(a.idSpace)
			for _, obj := range a.idSpace {
				slot := instanceSlot{obj: obj, field: n.Field}
				a.instanceLoads[slot] = append(a.instanceLoads[slot], n)
			}
		case *ir.LoadArray:
			if !CanHoldInt(n.Result) {
				continue
			}
			loads++
			a.idSpace = pts.PointsTo(n.Base).AppendTo(a.idSpace)
			for _, obj := range a.idSpace {
				a.arrayLoads[obj] = append(a.arrayLoads[obj], n)
			}
		}
	}
	slog.Debug("heap load index built", "loads", loads)
	return a
}

// Bind hands the analysis the solver's re-activation hook. Must be
// called before solving.
func (a *InterCP) Bind(enqueue func(ir.Stmt)) { a.enqueue = enqueue }

// NewBoundaryFact binds the entry method's trackable parameters to NAC.
func (a *InterCP) NewBoundaryFact(entry ir.Stmt) CPFact {
	return a.cp.NewBoundaryFact(entry.Parent())
}

func (a *InterCP) NewInitialFact() CPFact { return make(CPFact) }

func (a *InterCP) MeetInto(fact, target CPFact) { fact.MeetInto(target) }

// TransferNode dispatches on the node. Call sites with resolved callees
// are identity (their effect travels along call and return edges); heap
// stores update the abstract heap and re-activate affected loads; all
// other statements use the intraprocedural transfer, with heap loads
// reading the abstract heap.
func (a *InterCP) TransferNode(n ir.Stmt, in, out CPFact) bool {
	if a.icfg.IsCallNode(n) {
		return out.ReplaceWith(in)
	}
	switch n := n.(type) {
	case *ir.StoreField:
		a.storeField(n, in)
	case *ir.StoreArray:
		a.storeArray(n, in)
	}
	return a.cp.TransferStmt(n, in, out)
}

// TransferEdge adapts facts crossing interprocedural edges: identity on
// normal edges, result-kill on call-to-return edges, argument-to-
// parameter projection on call edges, and return-variable collection on
// return edges.
func (a *InterCP) TransferEdge(e *dataflow.Edge, out CPFact) CPFact {
	switch e.Kind {
	case dataflow.EdgeCallToReturn:
		if r := e.Site.Result; r != nil && CanHoldInt(r) {
			killed := out.Copy()
			killed.Remove(r)
			return killed
		}
		return out

	case dataflow.EdgeCall:
		fact := make(CPFact)
		if e.Site.Ref.MatchesSignature(e.Callee) {
			for i, arg := range e.Site.Args {
				p := e.Callee.Params[i]
				if CanHoldInt(p) && CanHoldInt(arg) {
					fact.Update(p, out.Get(arg))
				}
			}
		}
		return fact

	case dataflow.EdgeReturn:
		fact := make(CPFact)
		if r := e.Site.Result; r != nil && CanHoldInt(r) {
			v := Undef()
			for _, rv := range e.Callee.ReturnVars {
				if CanHoldInt(rv) {
					v = MeetValue(v, out.Get(rv))
				}
			}
			fact.Update(r, v)
		}
		return fact
	}
	return out
}

// storeField joins the stored value into the slots the store may write,
// re-activating the loads of every slot that climbed.
func (a *InterCP) storeField(n *ir.StoreField, in CPFact) {
	if !CanHoldInt(n.Value) {
		return
	}
	val := in.Get(n.Value)
	if n.IsStatic() {
		if merged := MeetValue(a.staticVals[n.Field], val); merged != a.staticVals[n.Field] {
			a.staticVals[n.Field] = merged
			a.requeueFieldLoads(a.staticLoads[n.Field])
		}
		return
	}
	a.idSpace = a.pts.PointsTo(n.Base).AppendTo(a.idSpace)
	for _, obj := range a.idSpace {
		slot := instanceSlot{obj: obj, field: n.Field}
		if merged := MeetValue(a.instanceVals[slot], val); merged != a.instanceVals[slot] {
			a.instanceVals[slot] = merged
			a.requeueFieldLoads(a.instanceLoads[slot])
		}
	}
}

// storeArray joins the stored value into the (object, index) slots the
// store may write. An Undef index means the store cannot execute yet,
// so it writes nothing.
func (a *InterCP) storeArray(n *ir.StoreArray, in CPFact) {
	if !CanHoldInt(n.Value) {
		return
	}
	idx := in.Get(n.Idx)
	if idx.IsUndef() {
		return
	}
	val := in.Get(n.Value)
	a.idSpace = a.pts.PointsTo(n.Base).AppendTo(a.idSpace)
	for _, obj := range a.idSpace {
		slots := a.arrayVals[obj]
		if slots == nil {
			slots = make(map[Value]Value)
			a.arrayVals[obj] = slots
		}
		if merged := MeetValue(slots[idx], val); merged != slots[idx] {
			slots[idx] = merged
			for _, load := range a.arrayLoads[obj] {
				a.enqueue(load)
			}
		}
	}
}

func (a *InterCP) requeueFieldLoads(loads []*ir.LoadField) {
	for _, load := range loads {
		a.enqueue(load)
	}
}

// loadValue reads the abstract heap for a field or array load.
func (a *InterCP) loadValue(n ir.Stmt, in CPFact) Value {
	switch n := n.(type) {
	case *ir.LoadField:
		if n.IsStatic() {
			return a.staticVals[n.Field]
		}
		v := Undef()
		a.idSpace = a.pts.PointsTo(n.Base).AppendTo(a.idSpace)
		for _, obj := range a.idSpace {
			v = MeetValue(v, a.instanceVals[instanceSlot{obj: obj, field: n.Field}])
		}
		return v

	case *ir.LoadArray:
		idx := in.Get(n.Idx)
		if idx.IsUndef() {
			return Undef()
		}
		v := Undef()
		a.idSpace = a.pts.PointsTo(n.Base).AppendTo(a.idSpace)
		for _, obj := range a.idSpace {
			slots := a.arrayVals[obj]
			if idx.IsNAC() {
				// An unknown index may read any slot.
				for _, sv := range slots {
					v = MeetValue(v, sv)
				}
				continue
			}
			v = MeetValue(v, slots[idx])
			v = MeetValue(v, slots[NAC()])
		}
		return v
	}
	return NAC()
}
