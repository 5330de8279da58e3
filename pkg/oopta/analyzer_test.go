package oopta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oopta/oopta/pkg/ir"
)

const pipelineProgram = `
entry: Main.main
classes:
  - name: Animal
    abstract: true
    methods:
      - name: sound
        abstract: true
  - name: Dog
    super: Animal
    methods:
      - name: sound
        locals:
          - {name: s, type: int}
        body:
          - {op: const, to: s, value: 1}
          - {op: return, var: s}
  - name: Main
    methods:
      - name: main
        static: true
        locals:
          - {name: a, type: Animal}
          - {name: v, type: int}
          - {name: w, type: int}
        body:
          - {op: new, to: a, type: Dog}
          - {op: invoke, kind: virtual, recv: a, method: sound, to: v}
          - {op: copy, to: w, from: v}
          - {op: return, var: v}
`

func analyzeProgram(t *testing.T, opts AnalyzerOptions, src string) *Report {
	t.Helper()
	prog, err := ir.Load([]byte(src))
	require.NoError(t, err)
	report, err := NewAnalyzer(opts).Analyze(prog)
	require.NoError(t, err)
	return report
}

func TestAnalyzeEndToEnd(t *testing.T) {
	report := analyzeProgram(t, AnalyzerOptions{}, pipelineProgram)

	assert.Equal(t, "ci", report.Policy)
	assert.Contains(t, report.Reachable, "Main.main()")
	assert.Contains(t, report.Reachable, "Dog.sound()")

	assert.Contains(t, report.CallEdges, CallEdge{
		Kind:   "virtual",
		Site:   "Main.main()#1",
		Callee: "Dog.sound()",
	})

	// The dispatched call returns a constant, which flows into v; the
	// copy into w is dead.
	assert.Contains(t, report.Constants, ConstFact{
		Method: "Main.main()", Stmt: 1, Var: "v", Value: 1,
	})
	require.Len(t, report.DeadCode, 1)
	assert.Equal(t, 2, report.DeadCode[0].Stmt)
	assert.Equal(t, "Main.main()", report.DeadCode[0].Method)

	// a points at the single Dog allocation.
	var found bool
	for _, e := range report.PointsTo {
		if e.Var == "Main.main()/a" {
			found = true
			assert.Equal(t, []string{"Main.main()#0"}, e.Objects)
		}
	}
	assert.True(t, found, "points-to entry for a")
}

func TestAnalyzeDefaultsToContextInsensitive(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	assert.Equal(t, "ci", a.opts.ContextPolicy)
}

func TestAnalyzeRejectsUnknownPolicy(t *testing.T) {
	prog, err := ir.Load([]byte(pipelineProgram))
	require.NoError(t, err)

	_, err = NewAnalyzer(AnalyzerOptions{ContextPolicy: "3-cfa"}).Analyze(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown context policy")
}

func TestAnalyzeFileMissing(t *testing.T) {
	_, err := NewAnalyzer(AnalyzerOptions{}).AnalyzeFile("no/such/program.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load program")
}
