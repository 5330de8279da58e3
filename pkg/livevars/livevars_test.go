package livevars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oopta/oopta/pkg/ir"
)

func loadEntry(t *testing.T, src string) *ir.Method {
	t.Helper()
	prog, err := ir.Load([]byte(src))
	require.NoError(t, err)
	return prog.Entry
}

func local(m *ir.Method, name string) *ir.Var {
	var found *ir.Var
	m.Vars(func(v *ir.Var) {
		if v.Name == name {
			found = v
		}
	})
	return found
}

func TestStraightLineLiveness(t *testing.T) {
	m := loadEntry(t, `
entry: Main.main
classes:
  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: a, type: int}
          - {name: b, type: int}
          - {name: c, type: int}
        body:
          - {op: const, to: a, value: 1}
          - {op: copy, to: b, from: a}
          - {op: const, to: c, value: 2}
          - {op: return, var: b}
`)
	res := Analyze(m)
	a, b, c := local(m, "a"), local(m, "b"), local(m, "c")

	// a is read by the copy, then never again.
	assert.True(t, res.LiveAfter(m.Stmts[0])[a])
	assert.False(t, res.LiveAfter(m.Stmts[1])[a])

	// b survives to the return; c is never read.
	assert.True(t, res.LiveAfter(m.Stmts[1])[b])
	assert.True(t, res.LiveAfter(m.Stmts[2])[b])
	assert.False(t, res.LiveAfter(m.Stmts[2])[c])
}

func TestBranchMergesLiveness(t *testing.T) {
	m := loadEntry(t, `
entry: Main.main
classes:
  - name: Main
    methods:
      - name: main
        static: true
        params:
          - {name: p, type: int}
        locals:
          - {name: x, type: int}
          - {name: y, type: int}
        body:
          - {op: const, to: x, value: 1}
          - {op: const, to: y, value: 2}
          - {op: if, cmp: "<", left: p, right: x, goto: 4}
          - {op: return, var: x}
          - {op: return, var: y}
`)
	res := Analyze(m)
	x, y := local(m, "x"), local(m, "y")
	p := m.Params[0]

	// Both returns are reachable from the branch, so both x and y are
	// live after it.
	after := res.LiveAfter(m.Stmts[2])
	assert.True(t, after[x])
	assert.True(t, after[y])

	before := res.LiveBefore(m.Stmts[2])
	assert.True(t, before[p], "the condition reads p")
}

func TestRedefinitionKillsLiveness(t *testing.T) {
	m := loadEntry(t, `
entry: Main.main
classes:
  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: a, type: int}
        body:
          - {op: const, to: a, value: 1}
          - {op: const, to: a, value: 2}
          - {op: return, var: a}
`)
	res := Analyze(m)
	a := local(m, "a")

	// The first binding of a is overwritten before any read.
	assert.False(t, res.LiveAfter(m.Stmts[0])[a])
	assert.True(t, res.LiveAfter(m.Stmts[1])[a])
}

func TestHeapAndCallUses(t *testing.T) {
	m := loadEntry(t, `
entry: Main.main
classes:
  - name: Box
    fields:
      - {name: val, type: int}
    methods:
      - name: get
        locals:
          - {name: r, type: int}
        body:
          - {op: loadfield, to: r, base: this, field: val}
          - {op: return, var: r}
  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: b, type: Box}
          - {name: v, type: int}
          - {name: got, type: int}
        body:
          - {op: new, to: b, type: Box}
          - {op: const, to: v, value: 5}
          - {op: storefield, base: b, field: val, from: v}
          - {op: invoke, kind: virtual, recv: b, method: get, to: got}
          - {op: return}
`)
	res := Analyze(m)
	b, v, got := local(m, "b"), local(m, "v"), local(m, "got")

	// The store reads both base and value; the call reads its receiver.
	store := res.LiveBefore(m.Stmts[2])
	assert.True(t, store[b])
	assert.True(t, store[v])
	assert.True(t, res.LiveBefore(m.Stmts[3])[b])

	// Nothing reads the call result.
	assert.False(t, res.LiveAfter(m.Stmts[3])[got])
}
