package constprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oopta/oopta/pkg/dataflow"
	"github.com/oopta/oopta/pkg/ir"
	"github.com/oopta/oopta/pkg/pta"
)

// runInterCP wires the full pipeline over one program.
func runInterCP(t *testing.T, src string) (*ir.Program, *dataflow.Result[CPFact]) {
	t.Helper()
	prog, err := ir.Load([]byte(src))
	require.NoError(t, err)

	ptaRes, err := pta.Analyze(prog, "ci", 0)
	require.NoError(t, err)

	icfg := dataflow.BuildICFG(prog, ptaRes.CallGraph())
	a := NewInterCP(icfg, ptaRes)
	solver := dataflow.NewSolver[CPFact](icfg, a)
	a.Bind(solver.Enqueue)
	return prog, solver.Solve()
}

func stmtOut(res *dataflow.Result[CPFact], m *ir.Method, idx int) CPFact {
	return res.Out(m.Stmts[idx])
}

func localByName(m *ir.Method, name string) *ir.Var {
	var found *ir.Var
	m.Vars(func(v *ir.Var) {
		if v.Name == name {
			found = v
		}
	})
	return found
}

func TestConstantThroughCallAndReturn(t *testing.T) {
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Main
    methods:
      - name: double
        static: true
        params:
          - {name: p, type: int}
        locals:
          - {name: q, type: int}
        body:
          - {op: binop, to: q, operator: "+", left: p, right: p}
          - {op: return, var: q}
      - name: main
        static: true
        locals:
          - {name: a, type: int}
          - {name: b, type: int}
        body:
          - {op: const, to: a, value: 21}
          - {op: invoke, kind: static, class: Main, method: double, args: [a], to: b}
          - {op: return, var: b}
`)
	main := prog.Entry
	b := localByName(main, "b")
	// The call result arrives along the return edge, on the IN of the
	// return site.
	assert.Equal(t, ConstOf(42), res.In(main.Stmts[2]).Get(b))

	double := prog.ClassByName("Main").DeclaredMethod("double", 1)
	q := localByName(double, "q")
	assert.Equal(t, ConstOf(42), stmtOut(res, double, 0).Get(q))
}

func TestCallToReturnKillsResult(t *testing.T) {
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Main
    methods:
      - name: pick
        static: true
        params:
          - {name: c, type: int}
        locals:
          - {name: r, type: int}
        body:
          - {op: if, cmp: "==", left: c, right: c, goto: 2}
          - {op: nop}
          - {op: const, to: r, value: 1}
          - {op: return, var: r}
      - name: main
        static: true
        locals:
          - {name: x, type: int}
          - {name: y, type: int}
        body:
          - {op: const, to: x, value: 9}
          - {op: copy, to: y, from: x}
          - {op: invoke, kind: static, class: Main, method: pick, args: [x], to: y}
          - {op: return, var: y}
`)
	main := prog.Entry
	y := localByName(main, "y")
	// The stale y=9 from before the call must not survive alongside the
	// callee's return value.
	assert.Equal(t, ConstOf(1), res.In(main.Stmts[3]).Get(y))
}

func TestConflictingReturnsMeetToNAC(t *testing.T) {
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Main
    methods:
      - name: pick
        static: true
        params:
          - {name: c, type: int}
        locals:
          - {name: r1, type: int}
          - {name: r2, type: int}
        body:
          - {op: const, to: r1, value: 1}
          - {op: const, to: r2, value: 2}
          - {op: if, cmp: "==", left: c, right: r1, goto: 3}
          - {op: return, var: r1}
          - {op: return, var: r2}
        # target 3 is the first return; the fall-through returns r2
      - name: main
        static: true
        params:
          - {name: n, type: int}
        locals:
          - {name: x, type: int}
        body:
          - {op: invoke, kind: static, class: Main, method: pick, args: [n], to: x}
          - {op: return, var: x}
`)
	main := prog.Entry
	x := localByName(main, "x")
	assert.Equal(t, NAC(), res.In(main.Stmts[1]).Get(x))
}

func TestAliasedFieldStoreReachesLoad(t *testing.T) {
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Box
    fields:
      - {name: val, type: int}
  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: b1, type: Box}
          - {name: b2, type: Box}
          - {name: x, type: int}
          - {name: y, type: int}
        body:
          - {op: new, to: b1, type: Box}
          - {op: copy, to: b2, from: b1}
          - {op: const, to: x, value: 7}
          - {op: storefield, base: b1, field: val, from: x}
          - {op: loadfield, to: y, base: b2, field: val}
          - {op: return, var: y}
`)
	main := prog.Entry
	y := localByName(main, "y")
	assert.Equal(t, ConstOf(7), stmtOut(res, main, 4).Get(y))
}

func TestDistinctObjectsDoNotInterfere(t *testing.T) {
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Box
    fields:
      - {name: val, type: int}
  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: b1, type: Box}
          - {name: b2, type: Box}
          - {name: x1, type: int}
          - {name: x2, type: int}
          - {name: y, type: int}
        body:
          - {op: new, to: b1, type: Box}
          - {op: new, to: b2, type: Box}
          - {op: const, to: x1, value: 1}
          - {op: const, to: x2, value: 2}
          - {op: storefield, base: b1, field: val, from: x1}
          - {op: storefield, base: b2, field: val, from: x2}
          - {op: loadfield, to: y, base: b1, field: val}
          - {op: return, var: y}
`)
	main := prog.Entry
	y := localByName(main, "y")
	assert.Equal(t, ConstOf(1), stmtOut(res, main, 6).Get(y),
		"stores to a different object do not pollute the load")
}

func TestStaticFieldConstant(t *testing.T) {
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Config
    fields:
      - {name: limit, type: int, static: true}
  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: x, type: int}
          - {name: y, type: int}
        body:
          - {op: const, to: x, value: 64}
          - {op: storefield, field: Config.limit, from: x}
          - {op: loadfield, to: y, field: Config.limit}
          - {op: return, var: y}
`)
	main := prog.Entry
	y := localByName(main, "y")
	assert.Equal(t, ConstOf(64), stmtOut(res, main, 2).Get(y))
}

func TestUnresolvedCallResultIsNAC(t *testing.T) {
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Ghost
    abstract: true
    methods:
      - name: conjure
        abstract: true
  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: g, type: Ghost}
          - {name: x, type: int}
        body:
          - {op: const, to: x, value: 3}
          - {op: invoke, kind: virtual, recv: g, method: conjure, to: x}
          - {op: return, var: x}
`)
	main := prog.Entry
	x := localByName(main, "x")
	// g never points anywhere, the call has no callees: the result is
	// conservatively unknown.
	assert.Equal(t, NAC(), stmtOut(res, main, 1).Get(x))
}

func TestEntryBoundarySurvivesSolving(t *testing.T) {
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Main
    methods:
      - name: main
        static: true
        params:
          - {name: n, type: int}
        locals:
          - {name: x, type: int}
        body:
          - {op: copy, to: x, from: n}
          - {op: return, var: x}
`)
	main := prog.Entry
	x := localByName(main, "x")
	n := main.Params[0]
	assert.Equal(t, NAC(), stmtOut(res, main, 0).Get(x),
		"the entry parameter's NAC boundary fact reaches the body")
	assert.Equal(t, NAC(), res.In(main.Stmts[0]).Get(n))
}

func TestRecursiveEntryKeepsBoundary(t *testing.T) {
	// The entry method calls itself, so its entry node gains call
	// in-edges carrying the constant argument. The boundary fact must
	// still win: outside callers can pass anything.
	prog, res := runInterCP(t, `
entry: Main.main
classes:
  - name: Main
    methods:
      - name: main
        static: true
        params:
          - {name: n, type: int}
        locals:
          - {name: x, type: int}
          - {name: five, type: int}
        body:
          - {op: const, to: five, value: 5}
          - {op: copy, to: x, from: n}
          - {op: if, cmp: "==", left: n, right: five, goto: 4}
          - {op: invoke, kind: static, class: Main, method: main, args: [five]}
          - {op: return, var: x}
`)
	main := prog.Entry
	n := main.Params[0]
	x := localByName(main, "x")
	assert.Equal(t, NAC(), res.In(main.Stmts[0]).Get(n),
		"the recursive call's constant argument must meet with NAC, not replace it")
	assert.Equal(t, NAC(), stmtOut(res, main, 1).Get(x))
}

func TestSolvedFactsAreAFixedPoint(t *testing.T) {
	prog, err := ir.Load([]byte(`
entry: Main.main
classes:
  - name: Box
    fields:
      - {name: val, type: int}
  - name: Main
    methods:
      - name: bump
        static: true
        params:
          - {name: p, type: int}
        locals:
          - {name: q, type: int}
        body:
          - {op: binop, to: q, operator: "+", left: p, right: p}
          - {op: return, var: q}
      - name: main
        static: true
        locals:
          - {name: b, type: Box}
          - {name: c, type: int}
          - {name: r, type: int}
          - {name: y, type: int}
        body:
          - {op: new, to: b, type: Box}
          - {op: const, to: c, value: 7}
          - {op: storefield, base: b, field: val, from: c}
          - {op: invoke, kind: static, class: Main, method: bump, args: [c], to: r}
          - {op: loadfield, to: y, base: b, field: val}
          - {op: return, var: y}
`))
	require.NoError(t, err)

	ptaRes, err := pta.Analyze(prog, "ci", 0)
	require.NoError(t, err)
	icfg := dataflow.BuildICFG(prog, ptaRes.CallGraph())
	a := NewInterCP(icfg, ptaRes)
	solver := dataflow.NewSolver[CPFact](icfg, a)
	a.Bind(solver.Enqueue)
	res := solver.Solve()

	boundary := make(map[ir.Stmt]bool)
	for _, n := range icfg.EntryNodes() {
		boundary[n] = true
	}

	// Once the worklist drains, re-applying every transfer equation must
	// reproduce the stored facts exactly.
	for _, n := range icfg.Nodes() {
		edges := icfg.InEdges(n)
		if len(edges) > 0 {
			in := a.NewInitialFact()
			for _, e := range edges {
				a.MeetInto(a.TransferEdge(e, res.Out(e.Source)), in)
			}
			if boundary[n] {
				a.MeetInto(a.NewBoundaryFact(n), in)
			}
			assert.Equal(t, res.In(n), in, "IN drifted at %v", n)
		} else if boundary[n] {
			// Never transferred; OUT is the boundary fact itself.
			continue
		}
		out := a.NewInitialFact()
		a.TransferNode(n, res.In(n), out)
		assert.Equal(t, res.Out(n), out, "OUT drifted at %v", n)
	}
}
