package constprop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oopta/oopta/pkg/ir"
)

// CPFact maps variables to lattice values at one program point. Absent
// variables are Undef, so the empty map is the initial fact and facts
// stay sparse.
type CPFact map[*ir.Var]Value

// Get returns the value bound to v, Undef when unbound.
func (f CPFact) Get(v *ir.Var) Value { return f[v] }

// Update binds v to val, reporting whether the binding changed. Binding
// to Undef removes the entry, preserving the absence convention.
func (f CPFact) Update(v *ir.Var, val Value) bool {
	old, ok := f[v]
	if val.IsUndef() {
		if ok {
			delete(f, v)
		}
		return ok
	}
	if ok && old == val {
		return false
	}
	f[v] = val
	return true
}

// Remove drops the binding of v.
func (f CPFact) Remove(v *ir.Var) { delete(f, v) }

// Copy returns an independent copy of the fact.
func (f CPFact) Copy() CPFact {
	out := make(CPFact, len(f))
	for v, val := range f {
		out[v] = val
	}
	return out
}

// ReplaceWith makes f identical to other, reporting whether f changed.
func (f CPFact) ReplaceWith(other CPFact) bool {
	changed := false
	for v := range f {
		if _, ok := other[v]; !ok {
			delete(f, v)
			changed = true
		}
	}
	for v, val := range other {
		if f[v] != val {
			f[v] = val
			changed = true
		}
	}
	return changed
}

// MeetInto joins f into target in place.
func (f CPFact) MeetInto(target CPFact) {
	for v, val := range f {
		target.Update(v, MeetValue(val, target.Get(v)))
	}
}

func (f CPFact) String() string {
	entries := make([]string, 0, len(f))
	for v, val := range f {
		entries = append(entries, fmt.Sprintf("%s=%s", v.Name, val))
	}
	sort.Strings(entries)
	return "{" + strings.Join(entries, ", ") + "}"
}
