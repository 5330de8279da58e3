package callgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oopta/oopta/pkg/callgraph"
	"github.com/oopta/oopta/pkg/ir"
	"github.com/oopta/oopta/pkg/pta"
)

// Without dynamic dispatch the two call-graph builders must agree: CHA
// has nothing to over-approximate and the pointer analysis nothing to
// refine.
func TestCHAMatchesPointsToOnStaticCalls(t *testing.T) {
	prog, err := ir.Load([]byte(`
entry: Main.main
classes:
  - name: Util
    methods:
      - name: helper
        static: true
        body:
          - {op: invoke, kind: static, class: Util, method: leaf}
          - {op: return}
      - name: leaf
        static: true
        body:
          - {op: return}
  - name: Main
    methods:
      - name: main
        static: true
        body:
          - {op: invoke, kind: static, class: Util, method: helper}
          - {op: invoke, kind: static, class: Util, method: leaf}
          - {op: return}
`))
	require.NoError(t, err)

	cha := callgraph.BuildCHA(prog)

	res, err := pta.Analyze(prog, "ci", 0)
	require.NoError(t, err)
	ptaGraph := res.CallGraph()

	edgeSet := func(g *callgraph.Graph) map[string]bool {
		set := make(map[string]bool)
		g.Edges(func(e callgraph.Edge) { set[e.String()] = true })
		return set
	}
	assert.Equal(t, edgeSet(cha), edgeSet(ptaGraph))
	assert.ElementsMatch(t, cha.Reachable(), ptaGraph.Reachable())
}
