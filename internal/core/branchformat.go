package core

import (
	"fmt"
	"regexp"
	"strings"
)

// unsafeBranchChars matches characters that are not safe in git branch names.
var unsafeBranchChars = regexp.MustCompile(`[^a-zA-Z0-9._/-]`)

// collapseDashes collapses consecutive dashes into a single dash.
var collapseDashes = regexp.MustCompile(`-{2,}`)

// FallbackBranchName is the deterministic branch name used when the analysis
// engine cannot generate one.
func FallbackBranchName(taskID string) string {
	return fmt.Sprintf("feature/task-%s", taskID)
}

// SanitizeBranchName lowercases a candidate branch name and replaces unsafe
// characters so the result is a valid git branch name. An empty result after
// sanitizing falls back to the deterministic pattern.
func SanitizeBranchName(candidate, taskID string) string {
	s := strings.ToLower(strings.TrimSpace(candidate))
	s = unsafeBranchChars.ReplaceAllString(s, "-")
	s = collapseDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-/")
	if s == "" {
		return FallbackBranchName(taskID)
	}
	if !strings.Contains(s, "/") {
		s = "feature/" + s
	}
	return s
}
