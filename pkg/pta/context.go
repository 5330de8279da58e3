package pta

import (
	"fmt"
	"strings"

	"github.com/oopta/oopta/pkg/ir"
)

// ContextElem is one element of an abstraction context: a call site or a
// receiver object, depending on the selector policy.
type ContextElem interface {
	ContextKey() string
}

// callSiteElem wraps an invoke statement as a context element.
type callSiteElem struct {
	site *ir.Invoke
}

func (e callSiteElem) ContextKey() string {
	return fmt.Sprintf("%s#%d", e.site.Parent(), e.site.Index())
}

// Context is an interned, bounded sequence of context elements, oldest
// first. The empty context is the zero-length sequence. Contexts are
// produced only by a ContextSelector and interned by a ContextPool, so
// pointer equality is structural equality.
type Context struct {
	elems []ContextElem
	key   string
}

// Len returns the number of elements in the context.
func (c *Context) Len() int { return len(c.elems) }

func (c *Context) String() string { return "[" + c.key + "]" }

// ContextPool interns contexts so identical element sequences share one
// *Context. Owned by a single analysis session.
type ContextPool struct {
	empty *Context
	byKey map[string]*Context
}

func NewContextPool() *ContextPool {
	empty := &Context{}
	return &ContextPool{
		empty: empty,
		byKey: map[string]*Context{"": empty},
	}
}

// Empty returns the empty context.
func (p *ContextPool) Empty() *Context { return p.empty }

// Append returns the interned context holding ctx's elements plus elem,
// truncated to the newest limit elements. A limit of zero yields the
// empty context.
func (p *ContextPool) Append(ctx *Context, elem ContextElem, limit int) *Context {
	if limit <= 0 {
		return p.empty
	}
	elems := append(append([]ContextElem{}, ctx.elems...), elem)
	if len(elems) > limit {
		elems = elems[len(elems)-limit:]
	}
	return p.intern(elems)
}

// Truncate returns the interned context holding the newest limit elements
// of ctx.
func (p *ContextPool) Truncate(ctx *Context, limit int) *Context {
	if limit <= 0 || len(ctx.elems) == 0 {
		return p.empty
	}
	if len(ctx.elems) <= limit {
		return ctx
	}
	return p.intern(ctx.elems[len(ctx.elems)-limit:])
}

func (p *ContextPool) intern(elems []ContextElem) *Context {
	keys := make([]string, len(elems))
	for i, e := range elems {
		keys[i] = e.ContextKey()
	}
	key := strings.Join(keys, ",")
	if c, ok := p.byKey[key]; ok {
		return c
	}
	c := &Context{elems: elems, key: key}
	p.byKey[key] = c
	return c
}
