package pta

import (
	"fmt"

	"golang.org/x/tools/container/intsets"

	"github.com/oopta/oopta/pkg/ir"
)

// PointsToSet is a monotonically growing set of abstract objects,
// represented sparsely over interned object ids. The zero value is the
// empty set. PointsToSet must not be copied by value.
type PointsToSet struct {
	sparse intsets.Sparse
}

// Add inserts o, reporting whether the set grew.
func (s *PointsToSet) Add(o *Obj) bool { return s.sparse.Insert(o.id) }

// Contains reports membership of o.
func (s *PointsToSet) Contains(o *Obj) bool { return s.sparse.Has(o.id) }

func (s *PointsToSet) IsEmpty() bool { return s.sparse.IsEmpty() }

func (s *PointsToSet) Len() int { return s.sparse.Len() }

// UnionWith adds every object of t, reporting whether the set grew.
func (s *PointsToSet) UnionWith(t *PointsToSet) bool {
	return s.sparse.UnionWith(&t.sparse)
}

// DifferenceOf sets s to x − y.
func (s *PointsToSet) DifferenceOf(x, y *PointsToSet) {
	s.sparse.Difference(&x.sparse, &y.sparse)
}

// AppendTo overwrites space with the member object ids in ascending
// order, reusing its backing array. Ids resolve through Result.Obj.
func (s *PointsToSet) AppendTo(space []int) []int {
	return s.sparse.AppendTo(space[:0])
}

func (s *PointsToSet) String() string { return s.sparse.String() }

// Pointer is a node of the pointer flow graph. Each pointer owns exactly
// one points-to set that only grows during the run. The variants are
// context-sensitive local variables, static field slots, instance field
// slots and array-index slots.
type Pointer interface {
	PointsTo() *PointsToSet
	String() string
	pointer()
}

// CSVar is a local variable under a calling context.
type CSVar struct {
	Ctx *Context
	Var *ir.Var
	pts PointsToSet
}

func (p *CSVar) PointsTo() *PointsToSet { return &p.pts }
func (p *CSVar) pointer()               {}

func (p *CSVar) String() string {
	return fmt.Sprintf("%s:%s%s", p.Var.Method, p.Var.Name, p.Ctx)
}

// StaticFieldPtr is the single slot of a static field.
type StaticFieldPtr struct {
	Field *ir.Field
	pts   PointsToSet
}

func (p *StaticFieldPtr) PointsTo() *PointsToSet { return &p.pts }
func (p *StaticFieldPtr) pointer()               {}
func (p *StaticFieldPtr) String() string         { return p.Field.String() }

// InstanceFieldPtr is the field slot of one abstract object.
type InstanceFieldPtr struct {
	Obj   *Obj
	Field *ir.Field
	pts   PointsToSet
}

func (p *InstanceFieldPtr) PointsTo() *PointsToSet { return &p.pts }
func (p *InstanceFieldPtr) pointer()               {}

func (p *InstanceFieldPtr) String() string {
	return fmt.Sprintf("%s.%s", p.Obj.Label(), p.Field.Name)
}

// ArrayIndexPtr is the collapsed element slot of one abstract array
// object: all indexes share a single slot in the pointer analysis.
type ArrayIndexPtr struct {
	Obj *Obj
	pts PointsToSet
}

func (p *ArrayIndexPtr) PointsTo() *PointsToSet { return &p.pts }
func (p *ArrayIndexPtr) pointer()               {}
func (p *ArrayIndexPtr) String() string         { return p.Obj.Label() + "[*]" }

// pointerPool interns the pointer variants so each abstract slot has
// exactly one points-to set.
type pointerPool struct {
	csVars    map[csVarKey]*CSVar
	varOrder  []*CSVar // discovery order, for deterministic iteration
	statics   map[*ir.Field]*StaticFieldPtr
	instances map[instanceKey]*InstanceFieldPtr
	arrays    map[*Obj]*ArrayIndexPtr
}

type csVarKey struct {
	ctx *Context
	v   *ir.Var
}

type instanceKey struct {
	obj   *Obj
	field *ir.Field
}

func newPointerPool() *pointerPool {
	return &pointerPool{
		csVars:    make(map[csVarKey]*CSVar),
		statics:   make(map[*ir.Field]*StaticFieldPtr),
		instances: make(map[instanceKey]*InstanceFieldPtr),
		arrays:    make(map[*Obj]*ArrayIndexPtr),
	}
}

func (pp *pointerPool) csVar(ctx *Context, v *ir.Var) *CSVar {
	key := csVarKey{ctx: ctx, v: v}
	if p, ok := pp.csVars[key]; ok {
		return p
	}
	p := &CSVar{Ctx: ctx, Var: v}
	pp.csVars[key] = p
	pp.varOrder = append(pp.varOrder, p)
	return p
}

func (pp *pointerPool) staticField(f *ir.Field) *StaticFieldPtr {
	if p, ok := pp.statics[f]; ok {
		return p
	}
	p := &StaticFieldPtr{Field: f}
	pp.statics[f] = p
	return p
}

func (pp *pointerPool) instanceField(obj *Obj, f *ir.Field) *InstanceFieldPtr {
	key := instanceKey{obj: obj, field: f}
	if p, ok := pp.instances[key]; ok {
		return p
	}
	p := &InstanceFieldPtr{Obj: obj, Field: f}
	pp.instances[key] = p
	return p
}

func (pp *pointerPool) arrayIndex(obj *Obj) *ArrayIndexPtr {
	if p, ok := pp.arrays[obj]; ok {
		return p
	}
	p := &ArrayIndexPtr{Obj: obj}
	pp.arrays[obj] = p
	return p
}
