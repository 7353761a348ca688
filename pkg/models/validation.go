package models

// CheckResult holds the outcome of one validation check.
type CheckResult struct {
	Passed bool
	// Count is the parsed error/issue/failure count for the check.
	Count int
	// Issues is a capped, human-readable list of findings.
	Issues []string
	// Output is the capped raw tool output retained for display.
	Output string
}

// UnusedCodeResult holds the outcome of the unused-code scan. Findings are
// warnings only and never block completion.
type UnusedCodeResult struct {
	Passed        bool
	UnusedFiles   int
	UnusedExports int
	UnusedDeps    int
}

// ValidationReport aggregates all configured checks for one completion
// attempt. Nil check fields mean the check was not configured (automatic
// pass). The report is computed per attempt and not persisted.
type ValidationReport struct {
	TypeCheck  *CheckResult
	Lint       *CheckResult
	Tests      *CheckResult
	UnusedCode *UnusedCodeResult
	Warnings   []string
}

// ReadyForCompletion reports whether the task may be completed: type check,
// lint and tests must all pass. Unconfigured checks pass automatically and
// unused-code findings are warnings only.
func (r ValidationReport) ReadyForCompletion() bool {
	if r.TypeCheck != nil && !r.TypeCheck.Passed {
		return false
	}
	if r.Lint != nil && !r.Lint.Passed {
		return false
	}
	if r.Tests != nil && !r.Tests.Passed {
		return false
	}
	return true
}

// FailingChecks names each blocking check that failed, in display order.
func (r ValidationReport) FailingChecks() []string {
	var failing []string
	if r.TypeCheck != nil && !r.TypeCheck.Passed {
		failing = append(failing, "type check")
	}
	if r.Lint != nil && !r.Lint.Passed {
		failing = append(failing, "lint")
	}
	if r.Tests != nil && !r.Tests.Passed {
		failing = append(failing, "tests")
	}
	return failing
}
