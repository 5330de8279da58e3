package ir

import (
	"fmt"
	"strings"
)

// Stmt is one statement of a method body. Solvers dispatch on the
// concrete type; the set of variants is closed.
type Stmt interface {
	// Index is the statement's position in its method body. The synthetic
	// Entry and Exit nodes use negative indexes.
	Index() int
	// Parent returns the method the statement belongs to.
	Parent() *Method
	String() string
	stmt()
}

type stmtBase struct {
	index  int
	method *Method
}

func (s *stmtBase) Index() int      { return s.index }
func (s *stmtBase) Parent() *Method { return s.method }
func (s *stmtBase) stmt()           {}

// Entry is the synthetic entry node of a method's CFG.
type Entry struct{ stmtBase }

func (e *Entry) String() string { return "<entry>" }

// Exit is the synthetic exit node of a method's CFG.
type Exit struct{ stmtBase }

func (e *Exit) String() string { return "<exit>" }

// New is an allocation site: x = new T or x = new T[].
type New struct {
	stmtBase
	Result    *Var
	AllocType Type // KindRef or KindArray
}

func (s *New) String() string {
	return fmt.Sprintf("%s = new %s", s.Result, s.AllocType)
}

// Copy is a variable-to-variable assignment: x = y.
type Copy struct {
	stmtBase
	Result *Var
	Source *Var
}

func (s *Copy) String() string { return fmt.Sprintf("%s = %s", s.Result, s.Source) }

// Assign binds a literal or binary expression to a variable: x = 5,
// x = a + b. Variable copies are Copy statements, not Assigns.
type Assign struct {
	stmtBase
	Result *Var
	RHS    Exp // IntLiteral or *Binary
}

func (s *Assign) String() string { return fmt.Sprintf("%s = %s", s.Result, s.RHS) }

// LoadField reads a field: x = y.f, or x = T.f when Base is nil.
type LoadField struct {
	stmtBase
	Result *Var
	Base   *Var // nil for static loads
	Field  *Field
}

func (s *LoadField) IsStatic() bool { return s.Base == nil }

func (s *LoadField) String() string {
	if s.IsStatic() {
		return fmt.Sprintf("%s = %s", s.Result, s.Field)
	}
	return fmt.Sprintf("%s = %s.%s", s.Result, s.Base, s.Field.Name)
}

// StoreField writes a field: y.f = x, or T.f = x when Base is nil.
type StoreField struct {
	stmtBase
	Base  *Var // nil for static stores
	Field *Field
	Value *Var
}

func (s *StoreField) IsStatic() bool { return s.Base == nil }

func (s *StoreField) String() string {
	if s.IsStatic() {
		return fmt.Sprintf("%s = %s", s.Field, s.Value)
	}
	return fmt.Sprintf("%s.%s = %s", s.Base, s.Field.Name, s.Value)
}

// LoadArray reads an array slot: x = a[i].
type LoadArray struct {
	stmtBase
	Result *Var
	Base   *Var
	Idx    *Var
}

func (s *LoadArray) String() string {
	return fmt.Sprintf("%s = %s[%s]", s.Result, s.Base, s.Idx)
}

// StoreArray writes an array slot: a[i] = x.
type StoreArray struct {
	stmtBase
	Base  *Var
	Idx   *Var
	Value *Var
}

func (s *StoreArray) String() string {
	return fmt.Sprintf("%s[%s] = %s", s.Base, s.Idx, s.Value)
}

// CallKind classifies call sites.
type CallKind int

const (
	CallStatic CallKind = iota
	CallSpecial
	CallVirtual
	CallInterface
)

func (k CallKind) String() string {
	switch k {
	case CallStatic:
		return "static"
	case CallSpecial:
		return "special"
	case CallVirtual:
		return "virtual"
	case CallInterface:
		return "interface"
	}
	return "unknown"
}

// Invoke is a call site: x = y.m(a, b) or T.m(a). Result is nil when the
// call's value is discarded; Recv is nil for static calls.
type Invoke struct {
	stmtBase
	Kind   CallKind
	Result *Var
	Recv   *Var
	Ref    MethodRef
	Args   []*Var
}

func (s *Invoke) IsStatic() bool { return s.Kind == CallStatic }

func (s *Invoke) String() string {
	var sb strings.Builder
	if s.Result != nil {
		fmt.Fprintf(&sb, "%s = ", s.Result)
	}
	if s.Recv != nil {
		fmt.Fprintf(&sb, "%s.%s(", s.Recv, s.Ref.Name)
	} else {
		fmt.Fprintf(&sb, "%s.%s(", s.Ref.Class.Name, s.Ref.Name)
	}
	for i, a := range s.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// If is a conditional branch: if x op y goto target, else fall through.
type If struct {
	stmtBase
	Cond   *Binary // condition-class operator
	Target int     // statement index taken when Cond holds
}

func (s *If) String() string { return fmt.Sprintf("if %s goto %d", s.Cond, s.Target) }

// Goto is an unconditional jump.
type Goto struct {
	stmtBase
	Target int
}

func (s *Goto) String() string { return fmt.Sprintf("goto %d", s.Target) }

// SwitchCase is one arm of a Switch.
type SwitchCase struct {
	Value  int64
	Target int
}

// Switch branches on an integer variable.
type Switch struct {
	stmtBase
	Var     *Var
	Cases   []SwitchCase
	Default int
}

func (s *Switch) String() string { return fmt.Sprintf("switch %s", s.Var) }

// Return leaves the method, optionally yielding a variable.
type Return struct {
	stmtBase
	Var *Var // nil for void returns
}

func (s *Return) String() string {
	if s.Var == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.Var)
}

// Nop does nothing. Used for padding and as a jump target.
type Nop struct{ stmtBase }

func (s *Nop) String() string { return "nop" }
