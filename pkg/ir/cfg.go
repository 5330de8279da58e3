package ir

import "fmt"

// EdgeKind classifies intraprocedural control-flow edges. Branch kinds
// carry enough information for downstream passes to decide feasibility
// from constant facts.
type EdgeKind int

const (
	EdgeEntry EdgeKind = iota // synthetic entry -> first statement
	EdgeFall                  // fall-through to the next statement
	EdgeGoto
	EdgeIfTrue
	EdgeIfFalse
	EdgeSwitchCase
	EdgeSwitchDefault
	EdgeReturn // return statement -> synthetic exit
)

// CFGEdge is a directed control-flow edge between two statements.
type CFGEdge struct {
	Kind      EdgeKind
	Source    Stmt
	Target    Stmt
	CaseValue int64 // meaningful only for EdgeSwitchCase
}

func (e *CFGEdge) String() string {
	return fmt.Sprintf("%v -[%d]-> %v", e.Source, e.Kind, e.Target)
}

// CFG is a per-method control-flow graph with synthetic entry and exit
// nodes. Built once per method and cached.
type CFG struct {
	method *Method
	entry  *Entry
	exit   *Exit
	succs  map[Stmt][]*CFGEdge
	preds  map[Stmt][]*CFGEdge
}

func (g *CFG) Method() *Method { return g.method }
func (g *CFG) Entry() Stmt     { return g.entry }
func (g *CFG) Exit() Stmt      { return g.exit }

// Nodes iterates over entry, all statements and exit, in order.
func (g *CFG) Nodes(f func(Stmt)) {
	f(g.entry)
	for _, s := range g.method.Stmts {
		f(s)
	}
	f(g.exit)
}

func (g *CFG) OutEdges(n Stmt) []*CFGEdge { return g.succs[n] }
func (g *CFG) InEdges(n Stmt) []*CFGEdge  { return g.preds[n] }

// Succs iterates over the successor statements of n.
func (g *CFG) Succs(n Stmt, f func(Stmt)) {
	for _, e := range g.succs[n] {
		f(e.Target)
	}
}

// Preds iterates over the predecessor statements of n.
func (g *CFG) Preds(n Stmt, f func(Stmt)) {
	for _, e := range g.preds[n] {
		f(e.Source)
	}
}

// CFG returns the method's control-flow graph, building it on first use.
// Abstract methods have no CFG.
func (m *Method) CFG() *CFG {
	if m.cfg == nil {
		m.cfg = buildCFG(m)
	}
	return m.cfg
}

func buildCFG(m *Method) *CFG {
	g := &CFG{
		method: m,
		entry:  &Entry{stmtBase{index: -1, method: m}},
		exit:   &Exit{stmtBase{index: -2, method: m}},
		succs:  make(map[Stmt][]*CFGEdge),
		preds:  make(map[Stmt][]*CFGEdge),
	}

	addEdge := func(kind EdgeKind, src, dst Stmt, caseValue int64) {
		e := &CFGEdge{Kind: kind, Source: src, Target: dst, CaseValue: caseValue}
		g.succs[src] = append(g.succs[src], e)
		g.preds[dst] = append(g.preds[dst], e)
	}

	// target returns the statement at index i, or exit when the index
	// points one past the last statement (a jump off the end).
	target := func(i int) Stmt {
		if i >= 0 && i < len(m.Stmts) {
			return m.Stmts[i]
		}
		return g.exit
	}

	if len(m.Stmts) == 0 {
		addEdge(EdgeEntry, g.entry, g.exit, 0)
		return g
	}
	addEdge(EdgeEntry, g.entry, m.Stmts[0], 0)

	for i, s := range m.Stmts {
		next := target(i + 1)
		switch s := s.(type) {
		case *Goto:
			addEdge(EdgeGoto, s, target(s.Target), 0)
		case *If:
			addEdge(EdgeIfTrue, s, target(s.Target), 0)
			addEdge(EdgeIfFalse, s, next, 0)
		case *Switch:
			for _, c := range s.Cases {
				addEdge(EdgeSwitchCase, s, target(c.Target), c.Value)
			}
			addEdge(EdgeSwitchDefault, s, target(s.Default), 0)
		case *Return:
			addEdge(EdgeReturn, s, g.exit, 0)
		default:
			addEdge(EdgeFall, s, next, 0)
		}
	}
	return g
}
