// Package ir defines the object-oriented intermediate representation the
// analyses run on: a program is a set of classes with fields and methods,
// each method body a list of statements over named local variables.
//
// The representation is deliberately small. It keeps exactly the queries
// the solvers need: class hierarchy navigation, per-method statement
// lists with control-flow graphs, and per-variable usage indexes (which
// statements store/load through a variable and which call through it).
// Programs are immutable once loaded; every analysis session may share
// one Program instance.
package ir

import "fmt"

// Program is a loaded, validated program.
type Program struct {
	Classes []*Class
	Entry   *Method // entry method the whole-program analyses start from

	byName map[string]*Class
}

// ClassByName returns the class with the given name, or nil.
func (p *Program) ClassByName(name string) *Class {
	return p.byName[name]
}

// Methods iterates over every declared method of every class.
func (p *Program) Methods(f func(*Method)) {
	for _, c := range p.Classes {
		for _, m := range c.Methods {
			f(m)
		}
	}
}

// Class is a class or interface declaration.
type Class struct {
	Name       string
	Super      *Class
	Interfaces []*Class // directly implemented (class) or extended (interface)
	IsAbstract bool
	IsIface    bool
	Fields     []*Field
	Methods    []*Method

	// Direct hierarchy children, precomputed at load time.
	Subclasses    []*Class // direct subclasses (for classes)
	Subinterfaces []*Class // direct subinterfaces (for interfaces)
	Implementors  []*Class // direct implementing classes (for interfaces)
}

// DeclaredField returns the field declared by this class with the given
// name, or nil.
func (c *Class) DeclaredField(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ResolveField resolves a field reference against this class, walking the
// superclass chain.
func (c *Class) ResolveField(name string) *Field {
	for cur := c; cur != nil; cur = cur.Super {
		if f := cur.DeclaredField(name); f != nil {
			return f
		}
	}
	return nil
}

// DeclaredMethod returns the method declared by this class matching the
// given signature, or nil. Abstract methods are included; dispatch is the
// caller's concern.
func (c *Class) DeclaredMethod(name string, arity int) *Method {
	for _, m := range c.Methods {
		if m.Name == name && len(m.Params) == arity {
			return m
		}
	}
	return nil
}

func (c *Class) String() string { return c.Name }

// Field is a static or instance field declaration.
type Field struct {
	Class    *Class
	Name     string
	Type     Type
	IsStatic bool
}

func (f *Field) String() string { return f.Class.Name + "." + f.Name }

// MethodRef is the static target of a call site: a declaring class and a
// signature. Signatures are (name, arity) pairs.
type MethodRef struct {
	Class *Class
	Name  string
	Arity int
}

// MatchesSignature reports whether the referenced signature agrees with
// the given method's declared signature.
func (r MethodRef) MatchesSignature(m *Method) bool {
	return m != nil && m.Name == r.Name && len(m.Params) == r.Arity
}

func (r MethodRef) String() string {
	return fmt.Sprintf("%s.%s/%d", r.Class.Name, r.Name, r.Arity)
}

// Method is a method declaration, possibly abstract (no body).
type Method struct {
	Class      *Class
	Name       string
	IsStatic   bool
	IsAbstract bool
	Params     []*Var
	This       *Var // nil for static methods
	Locals     []*Var
	Stmts      []Stmt
	ReturnVars []*Var // variables returned by Return statements

	cfg *CFG
}

// Ref returns the method's own signature reference.
func (m *Method) Ref() MethodRef {
	return MethodRef{Class: m.Class, Name: m.Name, Arity: len(m.Params)}
}

// Vars iterates over this, params and locals.
func (m *Method) Vars(f func(*Var)) {
	if m.This != nil {
		f(m.This)
	}
	for _, v := range m.Params {
		f(v)
	}
	for _, v := range m.Locals {
		f(v)
	}
}

func (m *Method) String() string {
	return fmt.Sprintf("%s.%s/%d", m.Class.Name, m.Name, len(m.Params))
}

// Var is a local variable, parameter or the receiver of a method.
//
// The usage-site indexes are populated at load time and drive the
// deferred statement processing of the pointer analysis and the
// alias-triggered reactivation of constant propagation.
type Var struct {
	Name   string
	Type   Type
	Method *Method

	StoreFields []*StoreField // v.f = x
	LoadFields  []*LoadField  // x = v.f
	StoreArrays []*StoreArray // v[i] = x
	LoadArrays  []*LoadArray  // x = v[i]
	Invokes     []*Invoke     // v.m(...)
}

func (v *Var) String() string { return v.Name }

// exp marker: a variable reference is also an expression.
func (v *Var) exp() {}
