package ir

// TypeKind discriminates the three type shapes the analyses care about:
// integer-like primitives, class references and arrays.
type TypeKind int

const (
	KindInt TypeKind = iota
	KindRef
	KindArray
)

// Type describes the declared type of a variable, field or array element.
// The analyses only need to distinguish integer-like values (tracked by
// constant propagation) from pointer-like values (tracked by the pointer
// analysis); richer primitive distinctions are collapsed into KindInt.
type Type struct {
	Kind  TypeKind
	Class *Class // declaring class for KindRef, nil otherwise
	Elem  *Type  // element type for KindArray, nil otherwise
}

// IntLike reports whether values of this type are tracked by constant
// propagation.
func (t Type) IntLike() bool { return t.Kind == KindInt }

// PointerLike reports whether variables of this type participate in the
// pointer flow graph.
func (t Type) PointerLike() bool { return t.Kind == KindRef || t.Kind == KindArray }

func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindRef:
		if t.Class != nil {
			return t.Class.Name
		}
		return "<ref>"
	case KindArray:
		if t.Elem != nil {
			return t.Elem.String() + "[]"
		}
		return "<array>"
	}
	return "<unknown>"
}

// IntType is the canonical integer-like type.
var IntType = Type{Kind: KindInt}

// RefType returns the reference type for the given class.
func RefType(c *Class) Type { return Type{Kind: KindRef, Class: c} }

// ArrayType returns the array type with the given element type.
func ArrayType(elem Type) Type {
	e := elem
	return Type{Kind: KindArray, Elem: &e}
}
