package pta

import (
	"fmt"

	"github.com/oopta/oopta/pkg/ir"
)

// Obj is an abstract heap object: an allocation site paired with the
// heap context the selector assigned it. Objects are interned per
// analysis session and immutable once created; ids index the sparse
// points-to sets.
type Obj struct {
	id   int
	Site *ir.New
	Ctx  *Context
}

// Class returns the declared class of the object, or nil for array
// objects.
func (o *Obj) Class() *ir.Class { return o.Site.AllocType.Class }

// IsArray reports whether the object is an array allocation.
func (o *Obj) IsArray() bool { return o.Site.AllocType.Kind == ir.KindArray }

// Label is a stable human-readable identity: "Method#index" plus the heap
// context when non-empty.
func (o *Obj) Label() string {
	base := fmt.Sprintf("%s#%d", o.Site.Parent(), o.Site.Index())
	if o.Ctx.Len() == 0 {
		return base
	}
	return base + "@" + o.Ctx.String()
}

func (o *Obj) String() string { return o.Label() }

// ContextKey makes objects usable as context elements (object
// sensitivity).
func (o *Obj) ContextKey() string { return o.Label() }

// heapModel is the session's flyweight cache of abstract objects.
type heapModel struct {
	objs   []*Obj
	bySite map[heapKey]*Obj
}

type heapKey struct {
	site *ir.New
	ctx  *Context
}

func newHeapModel() *heapModel {
	return &heapModel{bySite: make(map[heapKey]*Obj)}
}

// objFor returns the abstract object for an allocation site under the
// given heap context, creating it on first request.
func (h *heapModel) objFor(site *ir.New, ctx *Context) *Obj {
	key := heapKey{site: site, ctx: ctx}
	if o, ok := h.bySite[key]; ok {
		return o
	}
	o := &Obj{id: len(h.objs), Site: site, Ctx: ctx}
	h.objs = append(h.objs, o)
	h.bySite[key] = o
	return o
}

// obj returns the object with the given id.
func (h *heapModel) obj(id int) *Obj { return h.objs[id] }
