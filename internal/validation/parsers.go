// Package validation runs the configured readiness checks (type check, lint,
// tests, unused-code scan) and aggregates them into a completion verdict.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxIssueLines caps the per-check issue list; anything beyond it collapses
// into a single "and more" sentinel entry.
const maxIssueLines = 20

// LintResult is the parsed outcome of a lint tool run.
type LintResult struct {
	IssueCount int
	Issues     []string
}

// LintParser extracts an issue count and a capped list of findings from a
// lint tool's output, optionally filtered to a single file.
type LintParser interface {
	Parse(output, fileFilter string) LintResult
}

// ParserForTool selects the parser for the configured lint tool name.
// Unknown names fall back to the generic parser.
func ParserForTool(tool string) LintParser {
	switch strings.ToLower(tool) {
	case "biome":
		return biomeParser{}
	case "eslint":
		return eslintParser{}
	default:
		return genericParser{}
	}
}

// capIssues truncates issues to maxIssueLines, appending a sentinel naming
// how many were dropped.
func capIssues(issues []string) []string {
	if len(issues) <= maxIssueLines {
		return issues
	}
	capped := make([]string, maxIssueLines, maxIssueLines+1)
	copy(capped, issues[:maxIssueLines])
	return append(capped, fmt.Sprintf("...and %d more", len(issues)-maxIssueLines))
}

// --- Biome ---

var (
	biomeSummaryPattern = regexp.MustCompile(`Found (\d+) (?:diagnostics|errors|warnings)`)
	biomeIssuePattern   = regexp.MustCompile(`^(\S+?):(\d+):(\d+)\s+(.+)$`)
)

type biomeParser struct{}

// Parse reads Biome output. The issue count comes from the "Found N
// diagnostics." summary; individual findings from path:line:col lines.
func (biomeParser) Parse(output, fileFilter string) LintResult {
	var issues []string
	for _, line := range strings.Split(output, "\n") {
		m := biomeIssuePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if fileFilter != "" && !strings.Contains(m[1], fileFilter) {
			continue
		}
		issues = append(issues, fmt.Sprintf("Line %s: %s", m[2], m[4]))
	}

	count := len(issues)
	if fileFilter == "" {
		if m := biomeSummaryPattern.FindStringSubmatch(output); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				count = n
			}
		}
	}
	return LintResult{IssueCount: count, Issues: capIssues(issues)}
}

// --- ESLint (stylish format) ---

var (
	eslintSummaryPattern = regexp.MustCompile(`(\d+) problems?`)
	eslintIssuePattern   = regexp.MustCompile(`^(\d+):(\d+)\s+(?:error|warning)\s+(.+?)(?:\s{2,}\S+)?$`)
)

type eslintParser struct{}

// Parse reads ESLint stylish output: a file path header followed by indented
// "line:col  severity  message  rule" rows.
func (eslintParser) Parse(output, fileFilter string) LintResult {
	var issues []string
	currentFile := ""
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := eslintIssuePattern.FindStringSubmatch(line); m != nil {
			if fileFilter != "" && !strings.Contains(currentFile, fileFilter) {
				continue
			}
			issues = append(issues, fmt.Sprintf("Line %s: %s", m[1], strings.TrimSpace(m[3])))
			continue
		}
		// Non-issue, non-summary lines are file path headers.
		if !strings.HasPrefix(line, "✖") {
			currentFile = line
		}
	}

	count := len(issues)
	if fileFilter == "" {
		if m := eslintSummaryPattern.FindStringSubmatch(output); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				count = n
			}
		}
	}
	return LintResult{IssueCount: count, Issues: capIssues(issues)}
}

// --- Generic fallback ---

var genericIssuePattern = regexp.MustCompile(`^(\S+?):(\d+)(?::\d+)?[:\s]+(.+)$`)

type genericParser struct{}

// Parse treats any "path:line[:col] message" line as a finding.
func (genericParser) Parse(output, fileFilter string) LintResult {
	var issues []string
	for _, raw := range strings.Split(output, "\n") {
		m := genericIssuePattern.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}
		if fileFilter != "" && !strings.Contains(m[1], fileFilter) {
			continue
		}
		issues = append(issues, fmt.Sprintf("Line %s: %s", m[2], m[3]))
	}
	return LintResult{IssueCount: len(issues), Issues: capIssues(issues)}
}
