package ir

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// The YAML program format. One document describes a whole program:
//
//	entry: Main.main
//	classes:
//	  - name: Main
//	    methods:
//	      - name: main
//	        static: true
//	        locals: [{name: x, type: int}]
//	        body:
//	          - {op: const, to: x, value: 5}
//	          - {op: return}
//
// Loading validates the program: every referenced class, field, method
// and branch target must exist, and call sites must be well formed
// (a static call must not carry a receiver). Validation failures are
// loader errors; the analyses assume well-formed input.

type yamlProgram struct {
	Entry   string      `yaml:"entry"`
	Classes []yamlClass `yaml:"classes"`
}

type yamlClass struct {
	Name       string       `yaml:"name"`
	Super      string       `yaml:"super,omitempty"`
	Interfaces []string     `yaml:"interfaces,omitempty"`
	Abstract   bool         `yaml:"abstract,omitempty"`
	Interface  bool         `yaml:"interface,omitempty"`
	Fields     []yamlVar    `yaml:"fields,omitempty"`
	Methods    []yamlMethod `yaml:"methods,omitempty"`
}

type yamlVar struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Static bool   `yaml:"static,omitempty"`
}

type yamlMethod struct {
	Name     string     `yaml:"name"`
	Static   bool       `yaml:"static,omitempty"`
	Abstract bool       `yaml:"abstract,omitempty"`
	Params   []yamlVar  `yaml:"params,omitempty"`
	Locals   []yamlVar  `yaml:"locals,omitempty"`
	Body     []yamlStmt `yaml:"body,omitempty"`
}

type yamlCase struct {
	Value  int64 `yaml:"value"`
	Goto   int   `yaml:"goto"`
}

type yamlStmt struct {
	Op string `yaml:"op"`

	To    string `yaml:"to,omitempty"`    // result variable
	From  string `yaml:"from,omitempty"`  // source variable
	Value int64  `yaml:"value,omitempty"` // integer literal

	Type string `yaml:"type,omitempty"` // allocation type for new

	Operator string `yaml:"operator,omitempty"` // binop
	Left     string `yaml:"left,omitempty"`
	Right    string `yaml:"right,omitempty"`

	Base  string `yaml:"base,omitempty"`  // field/array base variable
	Field string `yaml:"field,omitempty"` // "f" (instance) or "C.f" (static)
	Index string `yaml:"index,omitempty"` // array index variable

	Kind   string   `yaml:"kind,omitempty"` // invoke kind
	Recv   string   `yaml:"recv,omitempty"`
	Class  string   `yaml:"class,omitempty"`
	Method string   `yaml:"method,omitempty"`
	Args   []string `yaml:"args,omitempty"`

	Cmp     string     `yaml:"cmp,omitempty"` // if condition operator
	Goto    int        `yaml:"goto,omitempty"`
	On      string     `yaml:"on,omitempty"` // switch variable
	Cases   []yamlCase `yaml:"cases,omitempty"`
	Default int        `yaml:"default,omitempty"`

	Var string `yaml:"var,omitempty"` // return variable
}

// LoadFile parses and validates a YAML program file.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	p, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Load parses and validates a YAML program document.
func Load(data []byte) (*Program, error) {
	var yp yamlProgram
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}
	l := &loader{prog: &Program{byName: make(map[string]*Class)}}
	if err := l.load(&yp); err != nil {
		return nil, err
	}
	return l.prog, nil
}

type loader struct {
	prog *Program
}

func (l *loader) load(yp *yamlProgram) error {
	// Pass 1: declare classes so hierarchy and type references resolve.
	for _, yc := range yp.Classes {
		if l.prog.byName[yc.Name] != nil {
			return fmt.Errorf("duplicate class %q", yc.Name)
		}
		c := &Class{Name: yc.Name, IsAbstract: yc.Abstract, IsIface: yc.Interface}
		l.prog.Classes = append(l.prog.Classes, c)
		l.prog.byName[yc.Name] = c
	}

	// Pass 2: hierarchy, fields and method signatures.
	for i, yc := range yp.Classes {
		c := l.prog.Classes[i]
		if yc.Super != "" {
			super := l.prog.byName[yc.Super]
			if super == nil {
				return fmt.Errorf("class %s: unknown superclass %q", c.Name, yc.Super)
			}
			c.Super = super
			if super.IsIface {
				super.Subinterfaces = append(super.Subinterfaces, c)
			} else {
				super.Subclasses = append(super.Subclasses, c)
			}
		}
		for _, name := range yc.Interfaces {
			iface := l.prog.byName[name]
			if iface == nil {
				return fmt.Errorf("class %s: unknown interface %q", c.Name, name)
			}
			c.Interfaces = append(c.Interfaces, iface)
			if c.IsIface {
				iface.Subinterfaces = append(iface.Subinterfaces, c)
			} else {
				iface.Implementors = append(iface.Implementors, c)
			}
		}
		for _, yf := range yc.Fields {
			t, err := l.parseType(yf.Type)
			if err != nil {
				return fmt.Errorf("class %s: field %s: %w", c.Name, yf.Name, err)
			}
			c.Fields = append(c.Fields, &Field{Class: c, Name: yf.Name, Type: t, IsStatic: yf.Static})
		}
		for _, ym := range yc.Methods {
			m := &Method{Class: c, Name: ym.Name, IsStatic: ym.Static, IsAbstract: ym.Abstract}
			if !m.IsStatic {
				m.This = &Var{Name: "this", Type: RefType(c), Method: m}
			}
			for _, yv := range ym.Params {
				t, err := l.parseType(yv.Type)
				if err != nil {
					return fmt.Errorf("%s: param %s: %w", m, yv.Name, err)
				}
				m.Params = append(m.Params, &Var{Name: yv.Name, Type: t, Method: m})
			}
			for _, yv := range ym.Locals {
				t, err := l.parseType(yv.Type)
				if err != nil {
					return fmt.Errorf("%s: local %s: %w", m, yv.Name, err)
				}
				m.Locals = append(m.Locals, &Var{Name: yv.Name, Type: t, Method: m})
			}
			if c.DeclaredMethod(m.Name, len(m.Params)) != nil {
				return fmt.Errorf("%s: duplicate signature", m)
			}
			c.Methods = append(c.Methods, m)
		}
	}

	// Pass 3: method bodies.
	for i, yc := range yp.Classes {
		c := l.prog.Classes[i]
		for j, ym := range yc.Methods {
			m := c.Methods[j]
			if m.IsAbstract {
				if len(ym.Body) > 0 {
					return fmt.Errorf("%s: abstract method has a body", m)
				}
				continue
			}
			if err := l.loadBody(m, ym.Body); err != nil {
				return err
			}
		}
	}

	// Entry method.
	if yp.Entry == "" {
		return fmt.Errorf("program has no entry")
	}
	cls, name, ok := strings.Cut(yp.Entry, ".")
	if !ok {
		return fmt.Errorf("malformed entry %q, want Class.method", yp.Entry)
	}
	ec := l.prog.byName[cls]
	if ec == nil {
		return fmt.Errorf("entry: unknown class %q", cls)
	}
	for _, m := range ec.Methods {
		if m.Name == name {
			l.prog.Entry = m
			break
		}
	}
	if l.prog.Entry == nil {
		return fmt.Errorf("entry: class %s has no method %q", cls, name)
	}
	return nil
}

func (l *loader) parseType(s string) (Type, error) {
	if elem, ok := strings.CutSuffix(s, "[]"); ok {
		t, err := l.parseType(elem)
		if err != nil {
			return Type{}, err
		}
		return ArrayType(t), nil
	}
	switch s {
	case "int", "boolean", "byte", "short", "char":
		return IntType, nil
	case "":
		return Type{}, fmt.Errorf("missing type")
	}
	c := l.prog.byName[s]
	if c == nil {
		return Type{}, fmt.Errorf("unknown type %q", s)
	}
	return RefType(c), nil
}

type bodyLoader struct {
	l    *loader
	m    *Method
	vars map[string]*Var
}

func (l *loader) loadBody(m *Method, body []yamlStmt) error {
	b := &bodyLoader{l: l, m: m, vars: make(map[string]*Var)}
	m.Vars(func(v *Var) { b.vars[v.Name] = v })

	for i, ys := range body {
		s, err := b.loadStmt(i, ys)
		if err != nil {
			return fmt.Errorf("%s: stmt %d: %w", m, i, err)
		}
		m.Stmts = append(m.Stmts, s)
	}

	// Validate branch targets and build usage indexes.
	n := len(m.Stmts)
	checkTarget := func(t int) error {
		if t < 0 || t > n {
			return fmt.Errorf("branch target %d out of range [0, %d]", t, n)
		}
		return nil
	}
	for i, s := range m.Stmts {
		var err error
		switch s := s.(type) {
		case *Goto:
			err = checkTarget(s.Target)
		case *If:
			err = checkTarget(s.Target)
		case *Switch:
			for _, cse := range s.Cases {
				if err = checkTarget(cse.Target); err != nil {
					break
				}
			}
			if err == nil {
				err = checkTarget(s.Default)
			}
		case *Return:
			if s.Var != nil {
				m.ReturnVars = append(m.ReturnVars, s.Var)
			}
		case *StoreField:
			if s.Base != nil {
				s.Base.StoreFields = append(s.Base.StoreFields, s)
			}
		case *LoadField:
			if s.Base != nil {
				s.Base.LoadFields = append(s.Base.LoadFields, s)
			}
		case *StoreArray:
			s.Base.StoreArrays = append(s.Base.StoreArrays, s)
		case *LoadArray:
			s.Base.LoadArrays = append(s.Base.LoadArrays, s)
		case *Invoke:
			if s.Recv != nil {
				s.Recv.Invokes = append(s.Recv.Invokes, s)
			}
		}
		if err != nil {
			return fmt.Errorf("%s: stmt %d: %w", m, i, err)
		}
	}
	return nil
}

func (b *bodyLoader) v(name string) (*Var, error) {
	if name == "" {
		return nil, fmt.Errorf("missing variable name")
	}
	v := b.vars[name]
	if v == nil {
		return nil, fmt.Errorf("unknown variable %q", name)
	}
	return v, nil
}

// optV resolves an optional variable reference.
func (b *bodyLoader) optV(name string) (*Var, error) {
	if name == "" {
		return nil, nil
	}
	return b.v(name)
}

// field resolves "f" against base's declared class, or "C.f" as a static
// field reference.
func (b *bodyLoader) field(spec string, base *Var) (*Field, error) {
	if cls, name, ok := strings.Cut(spec, "."); ok {
		c := b.l.prog.byName[cls]
		if c == nil {
			return nil, fmt.Errorf("unknown class %q in field %q", cls, spec)
		}
		f := c.ResolveField(name)
		if f == nil {
			return nil, fmt.Errorf("class %s has no field %q", cls, name)
		}
		return f, nil
	}
	if base == nil {
		return nil, fmt.Errorf("instance field %q without base", spec)
	}
	if base.Type.Kind != KindRef {
		return nil, fmt.Errorf("field base %q is not a reference", base.Name)
	}
	f := base.Type.Class.ResolveField(spec)
	if f == nil {
		return nil, fmt.Errorf("class %s has no field %q", base.Type.Class.Name, spec)
	}
	return f, nil
}

func (b *bodyLoader) loadStmt(i int, ys yamlStmt) (Stmt, error) {
	base := stmtBase{index: i, method: b.m}
	switch ys.Op {
	case "new":
		to, err := b.v(ys.To)
		if err != nil {
			return nil, err
		}
		t, err := b.l.parseType(ys.Type)
		if err != nil {
			return nil, err
		}
		if !t.PointerLike() {
			return nil, fmt.Errorf("cannot allocate %s", t)
		}
		return &New{base, to, t}, nil

	case "copy":
		to, err := b.v(ys.To)
		if err != nil {
			return nil, err
		}
		from, err := b.v(ys.From)
		if err != nil {
			return nil, err
		}
		return &Copy{base, to, from}, nil

	case "const":
		to, err := b.v(ys.To)
		if err != nil {
			return nil, err
		}
		return &Assign{base, to, IntLiteral(ys.Value)}, nil

	case "binop":
		to, err := b.v(ys.To)
		if err != nil {
			return nil, err
		}
		op, ok := BinOpByName[ys.Operator]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", ys.Operator)
		}
		x, err := b.v(ys.Left)
		if err != nil {
			return nil, err
		}
		y, err := b.v(ys.Right)
		if err != nil {
			return nil, err
		}
		return &Assign{base, to, &Binary{Op: op, X: x, Y: y}}, nil

	case "loadfield":
		to, err := b.v(ys.To)
		if err != nil {
			return nil, err
		}
		bv, err := b.optV(ys.Base)
		if err != nil {
			return nil, err
		}
		f, err := b.field(ys.Field, bv)
		if err != nil {
			return nil, err
		}
		if bv == nil && !f.IsStatic {
			return nil, fmt.Errorf("field %s is not static", f)
		}
		return &LoadField{base, to, bv, f}, nil

	case "storefield":
		from, err := b.v(ys.From)
		if err != nil {
			return nil, err
		}
		bv, err := b.optV(ys.Base)
		if err != nil {
			return nil, err
		}
		f, err := b.field(ys.Field, bv)
		if err != nil {
			return nil, err
		}
		if bv == nil && !f.IsStatic {
			return nil, fmt.Errorf("field %s is not static", f)
		}
		return &StoreField{base, bv, f, from}, nil

	case "loadarray":
		to, err := b.v(ys.To)
		if err != nil {
			return nil, err
		}
		bv, err := b.v(ys.Base)
		if err != nil {
			return nil, err
		}
		idx, err := b.v(ys.Index)
		if err != nil {
			return nil, err
		}
		return &LoadArray{base, to, bv, idx}, nil

	case "storearray":
		from, err := b.v(ys.From)
		if err != nil {
			return nil, err
		}
		bv, err := b.v(ys.Base)
		if err != nil {
			return nil, err
		}
		idx, err := b.v(ys.Index)
		if err != nil {
			return nil, err
		}
		return &StoreArray{base, bv, idx, from}, nil

	case "invoke":
		return b.loadInvoke(base, ys)

	case "if":
		op, ok := BinOpByName[ys.Cmp]
		if !ok || op.Class() != OpClassCondition {
			return nil, fmt.Errorf("invalid condition operator %q", ys.Cmp)
		}
		x, err := b.v(ys.Left)
		if err != nil {
			return nil, err
		}
		y, err := b.v(ys.Right)
		if err != nil {
			return nil, err
		}
		return &If{base, &Binary{Op: op, X: x, Y: y}, ys.Goto}, nil

	case "goto":
		return &Goto{base, ys.Goto}, nil

	case "switch":
		on, err := b.v(ys.On)
		if err != nil {
			return nil, err
		}
		s := &Switch{stmtBase: base, Var: on, Default: ys.Default}
		for _, c := range ys.Cases {
			s.Cases = append(s.Cases, SwitchCase{Value: c.Value, Target: c.Goto})
		}
		return s, nil

	case "return":
		v, err := b.optV(ys.Var)
		if err != nil {
			return nil, err
		}
		return &Return{base, v}, nil

	case "nop":
		return &Nop{base}, nil
	}
	return nil, fmt.Errorf("unknown op %q", ys.Op)
}

func (b *bodyLoader) loadInvoke(base stmtBase, ys yamlStmt) (Stmt, error) {
	var kind CallKind
	switch ys.Kind {
	case "static":
		kind = CallStatic
	case "special":
		kind = CallSpecial
	case "virtual", "":
		kind = CallVirtual
	case "interface":
		kind = CallInterface
	default:
		return nil, fmt.Errorf("unknown call kind %q", ys.Kind)
	}

	result, err := b.optV(ys.To)
	if err != nil {
		return nil, err
	}
	recv, err := b.optV(ys.Recv)
	if err != nil {
		return nil, err
	}
	args := make([]*Var, 0, len(ys.Args))
	for _, a := range ys.Args {
		v, err := b.v(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	// A static call site with a receiver is malformed input, not an
	// analysis outcome.
	if kind == CallStatic && recv != nil {
		return nil, fmt.Errorf("static call with receiver %q", recv.Name)
	}
	if kind != CallStatic && recv == nil {
		return nil, fmt.Errorf("%s call without receiver", kind)
	}

	// The declaring class of the static target: explicit, or the
	// receiver's declared type.
	var declaring *Class
	if ys.Class != "" {
		declaring = b.l.prog.byName[ys.Class]
		if declaring == nil {
			return nil, fmt.Errorf("unknown class %q", ys.Class)
		}
	} else if recv != nil {
		if recv.Type.Kind != KindRef {
			return nil, fmt.Errorf("receiver %q is not a reference", recv.Name)
		}
		declaring = recv.Type.Class
	} else {
		return nil, fmt.Errorf("static call without class")
	}
	if ys.Method == "" {
		return nil, fmt.Errorf("call without method name")
	}

	ref := MethodRef{Class: declaring, Name: ys.Method, Arity: len(args)}
	return &Invoke{base, kind, result, recv, ref, args}, nil
}
