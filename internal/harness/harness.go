// Package harness provides testing utilities for validating the
// analyzer against the scenario programs under testdata. Each scenario
// directory holds a program and an expected.yaml describing the facts
// the analysis must produce under one or more context configurations.
package harness

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oopta/oopta/pkg/oopta"
)

// AnalysisConfiguration is a single context configuration to test.
type AnalysisConfiguration struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name"`

	// Policy is the context-sensitivity policy: ci, k-call or k-obj.
	Policy string `yaml:"policy"`

	// K is the context depth for the k-limited policies.
	K int `yaml:"k,omitempty"`

	// ExpectedConstants lists the constant definitions the analysis
	// must report for this configuration.
	ExpectedConstants []ExpectedConst `yaml:"expected_constants"`

	// ExpectedDead lists the statements that must be reported dead.
	ExpectedDead []ExpectedDead `yaml:"expected_dead"`

	// ExpectedCallEdges lists call edges the call graph must contain.
	ExpectedCallEdges []ExpectedEdge `yaml:"expected_call_edges"`

	// ExpectedPointsTo lists points-to facts that must hold.
	ExpectedPointsTo []ExpectedPointsTo `yaml:"expected_points_to"`

	// ExpectedErrors lists any expected error messages.
	ExpectedErrors []string `yaml:"expected_errors"`
}

// TestCase represents a single test scenario.
type TestCase struct {
	// Dir is the directory containing the scenario, relative to the
	// harness root.
	Dir string `yaml:"-"`

	// Program is the program file name within Dir. Defaults to
	// "program.yaml".
	Program string `yaml:"program,omitempty"`

	// Configurations defines the context configurations to test.
	Configurations []AnalysisConfiguration `yaml:"configurations"`
}

// ExpectedConst is a constant fact: the definition at Stmt in Method
// must bind Var to Value.
type ExpectedConst struct {
	Method string `yaml:"method"`
	Stmt   int    `yaml:"stmt"`
	Var    string `yaml:"var"`
	Value  int64  `yaml:"value"`
}

// ExpectedDead is a statement that must be reported dead.
type ExpectedDead struct {
	Method string `yaml:"method"`
	Stmt   int    `yaml:"stmt"`
}

// ExpectedEdge is a call edge the call graph must contain.
type ExpectedEdge struct {
	Site   string `yaml:"site"`
	Callee string `yaml:"callee"`
}

// ExpectedPointsTo requires Var's points-to set to be exactly Objects,
// named by allocation-site label.
type ExpectedPointsTo struct {
	Var     string   `yaml:"var"`
	Objects []string `yaml:"objects"`
}

// TestHarness manages test execution.
type TestHarness struct {
	// root is the root directory for test data.
	root string
}

// NewHarness creates a new test harness.
func NewHarness(root string) *TestHarness {
	return &TestHarness{root: root}
}

// Run executes a test case with all its configurations.
func (h *TestHarness) Run(t *testing.T, tc *TestCase) *TestResult {
	t.Helper()
	require.NotEmpty(t, tc.Configurations, "test case has no configurations")

	var results []ConfigurationResult
	allSuccess := true

	for _, cfg := range tc.Configurations {
		cfgResult := h.runConfiguration(t, tc, cfg)
		results = append(results, *cfgResult)
		if !cfgResult.Success {
			allSuccess = false
		}
	}

	var resultMsg string
	if allSuccess {
		resultMsg = fmt.Sprintf("All %d configurations passed", len(tc.Configurations))
	} else {
		failedCount := 0
		var msgs []string
		for _, cr := range results {
			if !cr.Success {
				failedCount++
				msgs = append(msgs, fmt.Sprintf("[%s] %s:\n  %s",
					cr.Configuration.Name, cr.Message, strings.Join(cr.Details, "\n")))
			}
		}
		resultMsg = fmt.Sprintf("%d/%d configurations failed:\n%s",
			failedCount, len(tc.Configurations), strings.Join(msgs, "\n"))
	}

	return &TestResult{
		TestCase:             tc,
		ConfigurationResults: results,
		Success:              allSuccess,
		Message:              resultMsg,
	}
}

// runConfiguration executes analysis for a single configuration.
func (h *TestHarness) runConfiguration(t *testing.T, tc *TestCase, cfg AnalysisConfiguration) *ConfigurationResult {
	t.Helper()

	analyzer := oopta.NewAnalyzer(oopta.AnalyzerOptions{
		ContextPolicy: cfg.Policy,
		K:             cfg.K,
	})
	report, err := analyzer.AnalyzeFile(h.programPath(tc))
	if err != nil {
		// Check if this error was expected.
		for _, expectedErr := range cfg.ExpectedErrors {
			if strings.Contains(err.Error(), expectedErr) {
				return &ConfigurationResult{
					Configuration: cfg,
					Success:       true,
					Message:       fmt.Sprintf("Got expected error: %v", err),
				}
			}
		}
		require.NoError(t, err)
	}
	if len(cfg.ExpectedErrors) > 0 {
		return &ConfigurationResult{
			Configuration: cfg,
			Success:       false,
			Message:       "Expected an error, analysis succeeded",
		}
	}
	return validateConfigurationResults(cfg, report)
}

// validateConfigurationResults compares actual results with expected
// for a specific configuration.
func validateConfigurationResults(cfg AnalysisConfiguration, report *oopta.Report) *ConfigurationResult {
	cfgResult := ConfigurationResult{
		Configuration: cfg,
		Report:        report,
	}

	var details []string
	success := true
	fail := func(format string, args ...any) {
		details = append(details, fmt.Sprintf(format, args...))
		success = false
	}

	// Constants must match exactly: every expected fact present, no
	// extra constant facts reported.
	expectedConsts := make(map[string]int64)
	for _, e := range cfg.ExpectedConstants {
		expectedConsts[fmt.Sprintf("%s#%d/%s", e.Method, e.Stmt, e.Var)] = e.Value
	}
	actualConsts := make(map[string]int64)
	for _, c := range report.Constants {
		actualConsts[fmt.Sprintf("%s#%d/%s", c.Method, c.Stmt, c.Var)] = c.Value
	}
	for key, want := range expectedConsts {
		got, found := actualConsts[key]
		switch {
		case !found:
			fail("Missing constant: %s = %d", key, want)
		case got != want:
			fail("Wrong constant: %s = %d, want %d", key, got, want)
		}
	}
	for key, got := range actualConsts {
		if _, found := expectedConsts[key]; !found {
			fail("Unexpected constant: %s = %d", key, got)
		}
	}

	// Dead code must match exactly.
	expectedDead := make(map[string]bool)
	for _, e := range cfg.ExpectedDead {
		expectedDead[fmt.Sprintf("%s#%d", e.Method, e.Stmt)] = true
	}
	actualDead := make(map[string]bool)
	for _, d := range report.DeadCode {
		actualDead[fmt.Sprintf("%s#%d", d.Method, d.Stmt)] = true
	}
	for key := range expectedDead {
		if !actualDead[key] {
			fail("Should have been marked dead: %s", key)
		}
	}
	for key := range actualDead {
		if !expectedDead[key] {
			fail("Should have been marked live: %s", key)
		}
	}

	// Call edges are a subset check: scenarios name the edges they care
	// about.
	actualEdges := make(map[string]bool)
	for _, e := range report.CallEdges {
		actualEdges[e.Site+" -> "+e.Callee] = true
	}
	for _, e := range cfg.ExpectedCallEdges {
		if !actualEdges[e.Site+" -> "+e.Callee] {
			fail("Missing call edge: %s -> %s", e.Site, e.Callee)
		}
	}

	// Points-to facts compare the named variables exactly.
	actualPointsTo := make(map[string][]string)
	for _, p := range report.PointsTo {
		actualPointsTo[p.Var] = p.Objects
	}
	for _, e := range cfg.ExpectedPointsTo {
		got := append([]string(nil), actualPointsTo[e.Var]...)
		want := append([]string(nil), e.Objects...)
		sort.Strings(got)
		sort.Strings(want)
		if !equalStrings(got, want) {
			fail("Points-to mismatch for %s: got %v, want %v", e.Var, got, want)
		}
	}

	sort.Strings(details)
	cfgResult.Success = success
	cfgResult.Details = details
	if success {
		cfgResult.Message = "All expectations met"
	} else {
		cfgResult.Message = fmt.Sprintf("Test failed: %d mismatches", len(details))
	}
	return &cfgResult
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ConfigurationResult represents the result of running a single
// configuration.
type ConfigurationResult struct {
	// Configuration is the configuration that was run.
	Configuration AnalysisConfiguration

	// Report is the raw result from the analyzer.
	Report *oopta.Report

	// Success indicates if this configuration passed.
	Success bool

	// Message provides a summary of the result for this configuration.
	Message string

	// Details provides detailed information about failures.
	Details []string
}

// TestResult represents the result of running a test case.
type TestResult struct {
	// TestCase is the test case that was run.
	TestCase *TestCase

	// ConfigurationResults contains results for each configuration.
	ConfigurationResults []ConfigurationResult

	// Success indicates if the test passed (all configurations passed).
	Success bool

	// Message provides a summary of the result.
	Message string
}
