// Package names caches the qualified names of IR elements. Name strings
// show up in reports, call-graph dumps and log lines; computing them is
// cheap but repetitive, and several analysis sessions may run concurrently
// over the same program, so the cache is safe for concurrent use.
package names

import (
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/oopta/oopta/pkg/ir"
)

// Cache provides interned qualified names for methods, fields and
// variables of a single program.
type Cache struct {
	methodCache *xsync.Map[*ir.Method, string]
	fieldCache  *xsync.Map[*ir.Field, string]
}

func NewCache() *Cache {
	return &Cache{
		methodCache: xsync.NewMap[*ir.Method, string](),
		fieldCache:  xsync.NewMap[*ir.Field, string](),
	}
}

// Method returns "Class.name(p0,p1)" for the given method.
func (c *Cache) Method(m *ir.Method) string {
	if m == nil {
		return ""
	}
	name, ok := c.methodCache.Load(m)
	if ok {
		return name
	}
	name = computeMethodName(m)
	c.methodCache.Store(m, name)
	return name
}

// Field returns "Class.name" for the given field.
func (c *Cache) Field(f *ir.Field) string {
	if f == nil {
		return ""
	}
	name, ok := c.fieldCache.Load(f)
	if ok {
		return name
	}
	name = f.Class.Name + "." + f.Name
	c.fieldCache.Store(f, name)
	return name
}

// Var returns "Class.method/var". Variables are not interned: the method
// part dominates the cost and is served from the cache.
func (c *Cache) Var(v *ir.Var) string {
	if v == nil {
		return ""
	}
	if v.Method == nil {
		return v.Name
	}
	return c.Method(v.Method) + "/" + v.Name
}

func computeMethodName(m *ir.Method) string {
	var sb strings.Builder
	sb.WriteString(m.Class.Name)
	sb.WriteByte('.')
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Site returns a stable label for an allocation or call site:
// "Class.method(...)#index".
func (c *Cache) Site(m *ir.Method, index int) string {
	return fmt.Sprintf("%s#%d", c.Method(m), index)
}
