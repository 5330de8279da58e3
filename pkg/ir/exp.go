package ir

import "fmt"

// Exp is a right-hand-side expression. The constant-propagation transfer
// matches exhaustively on the variants: *Var, IntLiteral and *Binary.
// Field and array reads are statements, not expressions, in this IR.
type Exp interface {
	exp()
	String() string
}

// IntLiteral is an integer constant expression.
type IntLiteral int64

func (IntLiteral) exp() {}

func (l IntLiteral) String() string { return fmt.Sprintf("%d", int64(l)) }

// OpClass groups binary operators by their evaluation rules.
type OpClass int

const (
	OpClassArithmetic OpClass = iota
	OpClassCondition
	OpClassShift
	OpClassBitwise
)

// BinOp is a binary operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpShl
	OpShr
	OpUshr

	OpAnd
	OpOr
	OpXor
)

// Class returns the operator's evaluation class.
func (op BinOp) Class() OpClass {
	switch {
	case op <= OpRem:
		return OpClassArithmetic
	case op <= OpGe:
		return OpClassCondition
	case op <= OpUshr:
		return OpClassShift
	default:
		return OpClassBitwise
	}
}

var opNames = map[BinOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpShl: "<<", OpShr: ">>", OpUshr: ">>>",
	OpAnd: "&", OpOr: "|", OpXor: "^",
}

func (op BinOp) String() string { return opNames[op] }

// BinOpByName maps the loader's operator spelling to a BinOp.
var BinOpByName = func() map[string]BinOp {
	m := make(map[string]BinOp, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

// Binary is a binary expression over two variables.
type Binary struct {
	Op BinOp
	X  *Var
	Y  *Var
}

func (*Binary) exp() {}

func (b *Binary) String() string {
	return fmt.Sprintf("%s %s %s", b.X, b.Op, b.Y)
}
