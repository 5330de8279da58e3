// Package oopta orchestrates the analysis pipeline: pointer analysis,
// call-graph construction, interprocedural constant propagation and the
// per-method consumer analyses, combined into one report.
package oopta

import (
	"fmt"
	"log/slog"
	goruntime "runtime"

	"golang.org/x/sync/errgroup"

	"github.com/oopta/oopta/internal/names"
	"github.com/oopta/oopta/pkg/constprop"
	"github.com/oopta/oopta/pkg/dataflow"
	"github.com/oopta/oopta/pkg/deadcode"
	"github.com/oopta/oopta/pkg/ir"
	"github.com/oopta/oopta/pkg/livevars"
	"github.com/oopta/oopta/pkg/pta"
)

// AnalyzerOptions holds configuration options for the analyzer.
type AnalyzerOptions struct {
	ContextPolicy string // "ci", "k-call" or "k-obj"
	K             int    // context depth for the k-limited policies
}

// Analyzer runs the full pipeline over one program.
type Analyzer struct {
	nameCache *names.Cache
	opts      AnalyzerOptions
}

// NewAnalyzer creates a new analyzer with the given options.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	if opts.ContextPolicy == "" {
		opts.ContextPolicy = "ci"
	}
	return &Analyzer{
		nameCache: names.NewCache(),
		opts:      opts,
	}
}

// AnalyzeFile loads a program and analyzes it.
func (a *Analyzer) AnalyzeFile(path string) (*Report, error) {
	prog, err := ir.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	return a.Analyze(prog)
}

// Analyze performs the full analysis of one program.
func (a *Analyzer) Analyze(prog *ir.Program) (*Report, error) {
	// Step 1: pointer analysis. Builds the call graph on the fly.
	ptaResult, err := pta.Analyze(prog, a.opts.ContextPolicy, a.opts.K)
	if err != nil {
		return nil, fmt.Errorf("pointer analysis: %w", err)
	}
	cg := ptaResult.CallGraph()

	// Step 2: interprocedural constant propagation over the ICFG.
	icfg := dataflow.BuildICFG(prog, cg)
	cp := constprop.NewInterCP(icfg, ptaResult)
	solver := dataflow.NewSolver[constprop.CPFact](icfg, cp)
	cp.Bind(solver.Enqueue)
	cpResult := solver.Solve()

	// Step 3: per-method liveness and dead code, fanned out across
	// methods. Each goroutine writes only its own slice index.
	reachable := concreteMethods(cg.Reachable())
	deadByMethod := make([][]ir.Stmt, len(reachable))

	var wg errgroup.Group
	wg.SetLimit(goruntime.NumCPU())
	for idx, m := range reachable {
		wg.Go(func() error {
			live := livevars.Analyze(m)
			deadByMethod[idx] = deadcode.Detect(m, cpResult, live)
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	report := a.buildReport(ptaResult, cpResult, reachable, deadByMethod)
	slog.Info("analysis complete",
		"policy", report.Policy,
		"reachable", len(report.Reachable),
		"call_edges", len(report.CallEdges),
		"constants", len(report.Constants),
		"dead_stmts", len(report.DeadCode))
	return report, nil
}

// concreteMethods drops abstract methods, which have no body to analyze.
func concreteMethods(ms []*ir.Method) []*ir.Method {
	out := make([]*ir.Method, 0, len(ms))
	for _, m := range ms {
		if !m.IsAbstract {
			out = append(out, m)
		}
	}
	return out
}
