// Package constprop implements constant propagation over integer
// variables: the classic intraprocedural transfer functions plus an
// interprocedural, alias-aware analysis that tracks constants flowing
// through fields, arrays and call edges using a pointer-analysis result.
package constprop

import "strconv"

type valueKind int8

const (
	kindUndef valueKind = iota
	kindConst
	kindNAC
)

// Value is a point in the constant lattice: Undef (no evidence yet),
// a single known constant, or NAC (conflicting evidence). Values are
// comparable with ==.
type Value struct {
	kind valueKind
	n    int64
}

// Undef is the lattice bottom: the variable has not been assigned on
// any path seen so far.
func Undef() Value { return Value{} }

// NAC is the lattice top: the variable holds conflicting values.
func NAC() Value { return Value{kind: kindNAC} }

// ConstOf is the lattice point for a single known constant.
func ConstOf(n int64) Value { return Value{kind: kindConst, n: n} }

func (v Value) IsUndef() bool { return v.kind == kindUndef }
func (v Value) IsConst() bool { return v.kind == kindConst }
func (v Value) IsNAC() bool   { return v.kind == kindNAC }

// Const returns the constant. Only meaningful when IsConst.
func (v Value) Const() int64 { return v.n }

func (v Value) String() string {
	switch v.kind {
	case kindConst:
		return strconv.FormatInt(v.n, 10)
	case kindNAC:
		return "NAC"
	}
	return "undef"
}

// MeetValue joins two lattice points: NAC absorbs everything, Undef is
// the identity, and two distinct constants conflict into NAC.
func MeetValue(a, b Value) Value {
	switch {
	case a.IsNAC() || b.IsNAC():
		return NAC()
	case a.IsUndef():
		return b
	case b.IsUndef():
		return a
	case a.n == b.n:
		return a
	default:
		return NAC()
	}
}
