// Package main implements the CLI driver for the oopta analyzer.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	goruntime "runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oopta/oopta/pkg/oopta"
)

// Config holds all command-line configuration options for the analyzer.
type Config struct {
	Programs []string // program files to analyze
	Policy   string   // context-sensitivity policy
	K        int      // context depth for k-limited policies
	Verbose  bool     // enables detailed output and statistics
	JSON     bool     // enables JSON output format
	Profile  bool     // enables CPU and memory profiling
}

const (
	exitDeadFound = 1
	exitError     = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "oopta [programs...]",
		Short: "Pointer analysis and constant propagation for OO programs",
		Long: `oopta analyzes whole programs in a simple object-oriented IR.

It computes:
- Context-sensitive points-to sets and a call graph
- Interprocedural, alias-aware integer constant propagation
- Dead code: unreachable statements and dead assignments`,
		Example: `  oopta prog.yaml                    # Analyze one program
  oopta --policy k-obj -k 2 p.yaml   # 2-object-sensitive analysis
  oopta -json prog.yaml > out.json   # JSON output to file
  oopta -v prog.yaml                 # Verbose output`,
		Args:               cobra.MinimumNArgs(1),
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	// Set custom version template to include build info.
	rootCmd.SetVersionTemplate(fmt.Sprintf("oopta version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	// Define flags.
	rootCmd.PersistentFlags().StringVar(&cfg.Policy, "policy", "ci", "Context policy: ci, k-call or k-obj")
	rootCmd.PersistentFlags().IntVarP(&cfg.K, "k", "k", 1, "Context depth for the k-limited policies")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg.Programs = args

	slog.Info("starting analysis", "programs", cfg.Programs, "policy", cfg.Policy, "k", cfg.K)

	results, err := runAnalysis(&cfg)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeResults(results, &cfg); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}

	for _, r := range results {
		if len(r.Report.DeadCode) > 0 {
			return errWithCode(nil, exitDeadFound)
		}
	}
	return nil
}

// Result pairs one program's report with its source path.
type Result struct {
	Program string        `json:"program"`
	Report  *oopta.Report `json:"report"`
}

func runAnalysis(cfg *Config) ([]Result, error) {
	start := time.Now()

	// Programs are independent; analyze them concurrently. Each
	// goroutine writes only its own slice index.
	results := make([]Result, len(cfg.Programs))

	var wg errgroup.Group
	wg.SetLimit(goruntime.NumCPU())
	for idx, path := range cfg.Programs {
		wg.Go(func() error {
			analyzer := oopta.NewAnalyzer(oopta.AnalyzerOptions{
				ContextPolicy: cfg.Policy,
				K:             cfg.K,
			})
			report, err := analyzer.AnalyzeFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[idx] = Result{Program: path, Report: report}
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	slog.Info("analysis completed", "programs", len(results), "dur", time.Since(start))
	return results, nil
}

func writeResults(results []Result, cfg *Config) error {
	if cfg.JSON {
		data, err := json.MarshalIndent(jOutput{
			Results:   results,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling json output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(formatTextOutput(results, cfg))
	return nil
}

func formatTextOutput(results []Result, cfg *Config) string {
	var output strings.Builder

	for _, r := range results {
		rep := r.Report
		if len(results) > 1 || cfg.Verbose {
			fmt.Fprintf(&output, "%s:\n", r.Program)
		}
		if cfg.Verbose {
			slog.Info("program summary",
				"program", r.Program,
				"reachable", len(rep.Reachable),
				"call_edges", len(rep.CallEdges),
				"constants", len(rep.Constants),
				"dead_stmts", len(rep.DeadCode))
		}

		for _, c := range rep.Constants {
			// Format: method#stmt var = value
			fmt.Fprintf(&output, "const %s#%d %s = %d\n", c.Method, c.Stmt, c.Var, c.Value)
		}
		for _, d := range rep.DeadCode {
			fmt.Fprintf(&output, "dead  %s#%d %s\n", d.Method, d.Stmt, d.Text)
		}
		if cfg.Verbose {
			for _, e := range rep.CallEdges {
				fmt.Fprintf(&output, "call  %s -> %s (%s)\n", e.Site, e.Callee, e.Kind)
			}
		}
	}
	return output.String()
}

type jOutput struct {
	Results   []Result `json:"results"`
	Version   string   `json:"version"`
	Timestamp string   `json:"timestamp"`
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		logger := slog.New(handler)
		slog.SetDefault(logger)
	}

	if !cfg.Profile {
		return nil
	}

	// Start CPU profiling.
	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	// Stop CPU profiling and close file.
	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	// Write memory profile.
	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	goruntime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}
