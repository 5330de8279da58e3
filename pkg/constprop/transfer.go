package constprop

import "github.com/oopta/oopta/pkg/ir"

// CanHoldInt reports whether constant propagation tracks v.
func CanHoldInt(v *ir.Var) bool { return v.Type.IntLike() }

// CP holds the intraprocedural transfer functions. LoadValue, when set,
// supplies the value read by an instance field or array load; unset,
// heap loads conservatively produce NAC.
type CP struct {
	LoadValue func(n ir.Stmt, in CPFact) Value
}

// NewBoundaryFact binds every trackable parameter of m to NAC: nothing
// is known about values arriving from outside the program.
func (cp *CP) NewBoundaryFact(m *ir.Method) CPFact {
	fact := make(CPFact)
	for _, p := range m.Params {
		if CanHoldInt(p) {
			fact[p] = NAC()
		}
	}
	return fact
}

// TransferStmt computes the out fact of one statement from its in fact,
// reporting whether out changed. Statements that do not define a
// trackable variable are identity.
func (cp *CP) TransferStmt(n ir.Stmt, in, out CPFact) bool {
	next := in.Copy()
	switch n := n.(type) {
	case *ir.Assign:
		if CanHoldInt(n.Result) {
			next.Update(n.Result, Evaluate(n.RHS, in))
		}
	case *ir.Copy:
		if CanHoldInt(n.Result) {
			if CanHoldInt(n.Source) {
				next.Update(n.Result, in.Get(n.Source))
			} else {
				next.Update(n.Result, NAC())
			}
		}
	case *ir.LoadField:
		if CanHoldInt(n.Result) {
			next.Update(n.Result, cp.loadValue(n, in))
		}
	case *ir.LoadArray:
		if CanHoldInt(n.Result) {
			next.Update(n.Result, cp.loadValue(n, in))
		}
	case *ir.Invoke:
		if n.Result != nil && CanHoldInt(n.Result) {
			next.Update(n.Result, NAC())
		}
	}
	return out.ReplaceWith(next)
}

func (cp *CP) loadValue(n ir.Stmt, in CPFact) Value {
	if cp.LoadValue != nil {
		return cp.LoadValue(n, in)
	}
	return NAC()
}

// Evaluate computes the lattice value of an expression under a fact.
// A divisor known to be zero makes DIV and REM evaluate to Undef: the
// statement cannot complete normally, so it contributes no value.
// Otherwise NAC operands poison the result, and an Undef operand means
// no evidence has arrived yet.
func Evaluate(e ir.Exp, in CPFact) Value {
	switch e := e.(type) {
	case *ir.Var:
		if !CanHoldInt(e) {
			return NAC()
		}
		return in.Get(e)
	case ir.IntLiteral:
		return ConstOf(int64(e))
	case *ir.Binary:
		x, y := Evaluate(e.X, in), Evaluate(e.Y, in)
		if (e.Op == ir.OpDiv || e.Op == ir.OpRem) && y.IsConst() && y.Const() == 0 {
			return Undef()
		}
		if x.IsNAC() || y.IsNAC() {
			return NAC()
		}
		if x.IsUndef() || y.IsUndef() {
			return Undef()
		}
		return ConstOf(fold(e.Op, x.Const(), y.Const()))
	}
	return NAC()
}

func fold(op ir.BinOp, x, y int64) int64 {
	switch op {
	case ir.OpAdd:
		return x + y
	case ir.OpSub:
		return x - y
	case ir.OpMul:
		return x * y
	case ir.OpDiv:
		return x / y
	case ir.OpRem:
		return x % y
	case ir.OpEq:
		return b2i(x == y)
	case ir.OpNe:
		return b2i(x != y)
	case ir.OpLt:
		return b2i(x < y)
	case ir.OpLe:
		return b2i(x <= y)
	case ir.OpGt:
		return b2i(x > y)
	case ir.OpGe:
		return b2i(x >= y)
	case ir.OpShl:
		return x << (uint64(y) & 63)
	case ir.OpShr:
		return x >> (uint64(y) & 63)
	case ir.OpUshr:
		return int64(uint64(x) >> (uint64(y) & 63))
	case ir.OpAnd:
		return x & y
	case ir.OpOr:
		return x | y
	case ir.OpXor:
		return x ^ y
	}
	return 0
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
