package constprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oopta/oopta/pkg/ir"
)

func intVar(name string) *ir.Var {
	return &ir.Var{Name: name, Type: ir.IntType}
}

func TestEvaluateBinary(t *testing.T) {
	x, y := intVar("x"), intVar("y")
	bin := func(op ir.BinOp) *ir.Binary { return &ir.Binary{Op: op, X: x, Y: y} }

	tests := []struct {
		name string
		op   ir.BinOp
		xv   Value
		yv   Value
		want Value
	}{
		{"add", ir.OpAdd, ConstOf(2), ConstOf(3), ConstOf(5)},
		{"sub", ir.OpSub, ConstOf(2), ConstOf(3), ConstOf(-1)},
		{"mul", ir.OpMul, ConstOf(4), ConstOf(3), ConstOf(12)},
		{"div", ir.OpDiv, ConstOf(7), ConstOf(2), ConstOf(3)},
		{"rem", ir.OpRem, ConstOf(7), ConstOf(2), ConstOf(1)},
		{"div by const zero", ir.OpDiv, ConstOf(7), ConstOf(0), Undef()},
		{"rem by const zero", ir.OpRem, ConstOf(7), ConstOf(0), Undef()},
		{"nac dividend by const zero", ir.OpDiv, NAC(), ConstOf(0), Undef()},
		{"nac poisons add", ir.OpAdd, NAC(), ConstOf(1), NAC()},
		{"nac divisor", ir.OpDiv, ConstOf(4), NAC(), NAC()},
		{"undef operand", ir.OpAdd, Undef(), ConstOf(1), Undef()},
		{"undef dividend by const zero", ir.OpDiv, Undef(), ConstOf(0), Undef()},
		{"eq true", ir.OpEq, ConstOf(3), ConstOf(3), ConstOf(1)},
		{"lt false", ir.OpLt, ConstOf(5), ConstOf(3), ConstOf(0)},
		{"ge true", ir.OpGe, ConstOf(5), ConstOf(3), ConstOf(1)},
		{"shl", ir.OpShl, ConstOf(1), ConstOf(4), ConstOf(16)},
		{"shr", ir.OpShr, ConstOf(-8), ConstOf(1), ConstOf(-4)},
		{"ushr", ir.OpUshr, ConstOf(-1), ConstOf(60), ConstOf(15)},
		{"and", ir.OpAnd, ConstOf(6), ConstOf(3), ConstOf(2)},
		{"or", ir.OpOr, ConstOf(6), ConstOf(3), ConstOf(7)},
		{"xor", ir.OpXor, ConstOf(6), ConstOf(3), ConstOf(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := CPFact{}
			in.Update(x, tt.xv)
			in.Update(y, tt.yv)
			assert.Equal(t, tt.want, Evaluate(bin(tt.op), in))
		})
	}
}

func TestEvaluateLeaves(t *testing.T) {
	x := intVar("x")
	in := CPFact{x: ConstOf(9)}

	assert.Equal(t, ConstOf(9), Evaluate(x, in))
	assert.Equal(t, Undef(), Evaluate(intVar("unbound"), in))
	assert.Equal(t, ConstOf(42), Evaluate(ir.IntLiteral(42), in))

	ref := &ir.Var{Name: "obj", Type: ir.RefType(&ir.Class{Name: "Box"})}
	assert.Equal(t, NAC(), Evaluate(ref, in), "reference variables are not tracked")
}

func TestFactUpdate(t *testing.T) {
	x := intVar("x")
	f := CPFact{}

	assert.True(t, f.Update(x, ConstOf(1)))
	assert.False(t, f.Update(x, ConstOf(1)), "same binding is not a change")
	assert.True(t, f.Update(x, NAC()))

	// Binding back to Undef removes the entry.
	assert.True(t, f.Update(x, Undef()))
	assert.NotContains(t, f, x)
	assert.False(t, f.Update(x, Undef()))
}

func TestFactReplaceWith(t *testing.T) {
	x, y := intVar("x"), intVar("y")

	f := CPFact{x: ConstOf(1)}
	assert.True(t, f.ReplaceWith(CPFact{y: ConstOf(2)}))
	assert.Equal(t, CPFact{y: ConstOf(2)}, f)
	assert.False(t, f.ReplaceWith(CPFact{y: ConstOf(2)}))
}

func TestFactMeetInto(t *testing.T) {
	x, y := intVar("x"), intVar("y")

	target := CPFact{x: ConstOf(1)}
	CPFact{x: ConstOf(2), y: ConstOf(3)}.MeetInto(target)
	assert.Equal(t, NAC(), target.Get(x))
	assert.Equal(t, ConstOf(3), target.Get(y))
}

func TestTransferStmt(t *testing.T) {
	prog, err := ir.Load([]byte(`
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
          - {name: a, type: int}
          - {name: b, type: int}
          - {name: c, type: int}
          - {name: box, type: Box}
        body:
          - {op: const, to: a, value: 5}
          - {op: copy, to: b, from: a}
          - {op: binop, to: c, operator: "*", left: a, right: b}
          - {op: new, to: box, type: Box}
          - {op: loadfield, to: c, base: box, field: val}
          - {op: return}
`))
	require.NoError(t, err)

	cp := &CP{}
	m := prog.Entry
	fact := CPFact{}
	for _, n := range m.Stmts {
		out := CPFact{}
		cp.TransferStmt(n, fact, out)
		fact = out
	}

	a := m.Locals[0]
	c := m.Locals[2]
	assert.Equal(t, ConstOf(5), fact.Get(a))
	assert.Equal(t, NAC(), fact.Get(c), "heap loads default to NAC without an alias oracle")
}

func TestBoundaryFactMarksParamsNAC(t *testing.T) {
	prog, err := ir.Load([]byte(`
entry: Main.main
classes:
  - name: Box
  - name: Main
    methods:
      - name: main
        static: true
        params:
          - {name: n, type: int}
          - {name: b, type: Box}
        body:
          - {op: return}
`))
	require.NoError(t, err)

	cp := &CP{}
	fact := cp.NewBoundaryFact(prog.Entry)
	assert.Equal(t, NAC(), fact.Get(prog.Entry.Params[0]))
	assert.NotContains(t, fact, prog.Entry.Params[1], "reference params are not tracked")
}
