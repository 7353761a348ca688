package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/taskpilot-cli/taskpilot/internal/integration"
	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// typeErrorMarker is the fixed substring counted in type-checker output to
// estimate the error count.
const typeErrorMarker = "error TS"

// maxRetainedOutput caps the raw tool output retained for display.
const maxRetainedOutput = 2000

// Gate runs the configured validation checks and aggregates a readiness
// verdict. Each check is individually opt-in: an empty command means the
// check passes automatically.
type Gate interface {
	Run() (*models.ValidationReport, error)
}

type gate struct {
	dir string
	cfg models.ValidationConfig
	git integration.GitPort
	run integration.CommandRunner
}

// NewGate creates a Gate executing the configured commands in dir. git may
// be nil; the uncommitted-changes warning is skipped in that case.
func NewGate(dir string, cfg models.ValidationConfig, git integration.GitPort, run integration.CommandRunner) Gate {
	return &gate{dir: dir, cfg: cfg, git: git, run: run}
}

// Run executes every configured check. Individual tool failures never abort
// the run; they become failed checks or warnings in the report.
func (g *gate) Run() (*models.ValidationReport, error) {
	report := &models.ValidationReport{}

	if g.git != nil {
		if dirty, err := g.git.HasUncommittedChanges(); err == nil && dirty {
			report.Warnings = append(report.Warnings, "working tree has uncommitted changes")
		}
	}

	report.TypeCheck = g.runTypeCheck()
	report.Lint = g.runLint()
	report.Tests = g.runTests()
	report.UnusedCode = g.runUnusedCode(report)

	return report, nil
}

// runTypeCheck runs the configured type checker and counts errors via the
// fixed marker substring.
func (g *gate) runTypeCheck() *models.CheckResult {
	if g.cfg.TypeCheckCommand == "" {
		return nil
	}
	output, err := integration.RunShell(g.run, g.dir, g.cfg.TypeCheckCommand)
	if err == nil {
		return &models.CheckResult{Passed: true}
	}

	count := strings.Count(output, typeErrorMarker)
	if count == 0 {
		count = 1 // Non-zero exit with no marker still counts as one failure.
	}
	return &models.CheckResult{
		Passed: false,
		Count:  count,
		Output: capOutput(output),
	}
}

// runLint optionally auto-fixes first (best effort), then runs the check
// command and parses its output with the tool-specific parser.
func (g *gate) runLint() *models.CheckResult {
	if g.cfg.LintCommand == "" {
		return nil
	}
	if g.cfg.LintFixCommand != "" {
		// Best effort: a failing fix pass never aborts the flow.
		_, _ = integration.RunShell(g.run, g.dir, g.cfg.LintFixCommand)
	}

	output, err := integration.RunShell(g.run, g.dir, g.cfg.LintCommand)
	if err == nil {
		return &models.CheckResult{Passed: true}
	}

	parsed := ParserForTool(g.cfg.LintTool).Parse(output, "")
	return &models.CheckResult{
		Passed: false,
		Count:  parsed.IssueCount,
		Issues: parsed.Issues,
		Output: capOutput(output),
	}
}

// runTests skips entirely when no test command is configured. Otherwise it
// runs once for the exit code and, only on failure, re-runs to capture
// output for a failure count and the failing test lines.
func (g *gate) runTests() *models.CheckResult {
	if g.cfg.TestCommand == "" {
		return nil
	}
	if _, err := integration.RunShell(g.run, g.dir, g.cfg.TestCommand); err == nil {
		return &models.CheckResult{Passed: true}
	}

	output, _ := integration.RunShell(g.run, g.dir, g.cfg.TestCommand)
	failures := failingTestLines(output)
	count := len(failures)
	if count == 0 {
		count = 1
	}
	return &models.CheckResult{
		Passed: false,
		Count:  count,
		Issues: capIssues(failures),
		Output: capOutput(output),
	}
}

// failingTestLines extracts the lines naming failed tests.
func failingTestLines(output string) []string {
	var lines []string
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.Contains(line, "FAIL") || strings.Contains(line, "✗") || strings.Contains(line, "✕") {
			lines = append(lines, line)
		}
	}
	return lines
}

var (
	unusedFilesPattern   = regexp.MustCompile(`Unused files \((\d+)\)`)
	unusedExportsPattern = regexp.MustCompile(`Unused exports \((\d+)\)`)
	unusedDepsPattern    = regexp.MustCompile(`Unused dependencies \((\d+)\)`)
)

// runUnusedCode parses unused file/export/dependency counts from the scan
// tool's output. Findings surface as warnings only and never block
// completion.
func (g *gate) runUnusedCode(report *models.ValidationReport) *models.UnusedCodeResult {
	if g.cfg.UnusedCodeCommand == "" {
		return nil
	}
	// The scan tool exits non-zero when it finds anything; parse either way.
	output, _ := integration.RunShell(g.run, g.dir, g.cfg.UnusedCodeCommand)

	result := &models.UnusedCodeResult{
		UnusedFiles:   parseCount(unusedFilesPattern, output),
		UnusedExports: parseCount(unusedExportsPattern, output),
		UnusedDeps:    parseCount(unusedDepsPattern, output),
	}
	result.Passed = result.UnusedFiles == 0 && result.UnusedExports == 0 && result.UnusedDeps == 0

	if !result.Passed {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"unused code: %d files, %d exports, %d dependencies",
			result.UnusedFiles, result.UnusedExports, result.UnusedDeps))
	}
	return result
}

func parseCount(pattern *regexp.Regexp, output string) int {
	m := pattern.FindStringSubmatch(output)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func capOutput(output string) string {
	if len(output) > maxRetainedOutput {
		return output[:maxRetainedOutput] + "\n... [output truncated] ..."
	}
	return output
}
