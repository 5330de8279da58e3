package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oopta/oopta/pkg/ir"
)

const hierarchyProgram = `
entry: Main.main
classes:
  - name: Shape
    interface: true
    methods:
      - name: area
        abstract: true

  - name: Polygon
    interface: true
    super: Shape

  - name: Circle
    interfaces: [Shape]
    methods:
      - name: area
        body:
          - {op: return}

  - name: Square
    interfaces: [Polygon]
    methods:
      - name: area
        body:
          - {op: return}

  - name: ColoredSquare
    super: Square

  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: s, type: Shape}
          - {name: c, type: Circle}
        body:
          - {op: new, to: c, type: Circle}
          - {op: copy, to: s, from: c}
          - {op: invoke, kind: interface, recv: s, method: area}
          - {op: return}
`

func loadProgram(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := ir.Load([]byte(src))
	require.NoError(t, err)
	return prog
}

func TestDispatchWalksSuperclassChain(t *testing.T) {
	prog := loadProgram(t, hierarchyProgram)

	colored := prog.ClassByName("ColoredSquare")
	square := prog.ClassByName("Square")

	m := Dispatch(colored, "area", 0)
	require.NotNil(t, m)
	assert.Equal(t, square, m.Class, "inherited method dispatches to the declaring class")

	assert.Nil(t, Dispatch(colored, "area", 1), "arity is part of the signature")
	assert.Nil(t, Dispatch(colored, "perimeter", 0))
}

func TestDispatchSkipsAbstract(t *testing.T) {
	prog := loadProgram(t, `
entry: Main.main
classes:
  - name: Base
    abstract: true
    methods:
      - name: run
        abstract: true
  - name: Impl
    super: Base
    methods:
      - name: run
        body:
          - {op: return}
  - name: Main
    methods:
      - name: main
        static: true
        body:
          - {op: return}
`)
	assert.Nil(t, Dispatch(prog.ClassByName("Base"), "run", 0))
	require.NotNil(t, Dispatch(prog.ClassByName("Impl"), "run", 0))
}

func TestResolveInterfaceCallCoversHierarchy(t *testing.T) {
	prog := loadProgram(t, hierarchyProgram)
	site := prog.Entry.Stmts[2].(*ir.Invoke)

	callees := Resolve(site, nil)
	var names []string
	for _, m := range callees {
		names = append(names, m.Class.Name+"."+m.Name)
	}
	// Square.area serves Square and ColoredSquare; dispatch results are
	// deduplicated.
	assert.ElementsMatch(t, []string{"Circle.area", "Square.area"}, names)
}

func TestResolveWithConcreteReceiver(t *testing.T) {
	prog := loadProgram(t, hierarchyProgram)
	site := prog.Entry.Stmts[2].(*ir.Invoke)

	callees := Resolve(site, prog.ClassByName("ColoredSquare"))
	require.Len(t, callees, 1)
	assert.Equal(t, "Square", callees[0].Class.Name)
}

func TestBuildCHA(t *testing.T) {
	prog := loadProgram(t, hierarchyProgram)
	g := BuildCHA(prog)

	assert.True(t, g.Contains(prog.Entry))

	site := prog.Entry.Stmts[2].(*ir.Invoke)
	callees := g.CalleesOf(site)
	assert.Len(t, callees, 2, "CHA keeps every hierarchy-feasible callee")
	for _, callee := range callees {
		assert.True(t, g.Contains(callee))
		edges := g.CallersOf(callee)
		require.Len(t, edges, 1)
		assert.Same(t, site, edges[0].Site)
	}
}

func TestGraphDeduplicatesEdges(t *testing.T) {
	prog := loadProgram(t, hierarchyProgram)
	site := prog.Entry.Stmts[2].(*ir.Invoke)
	callee := Dispatch(prog.ClassByName("Circle"), "area", 0)

	g := NewGraph()
	e := Edge{Kind: site.Kind, Site: site, Callee: callee}
	assert.True(t, g.AddEdge(e))
	assert.False(t, g.AddEdge(e))
	assert.True(t, g.Contains(callee), "adding an edge marks the callee reachable")
}
