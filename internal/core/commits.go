// Package core contains the business logic for taskpilot: commit
// classification, diff bounding, the checkpoint review engine, and the task
// lifecycle orchestrator.
package core

import (
	"regexp"
	"strings"
)

// WIPMarker is the literal subject-line marker that distinguishes automatic
// checkpoint commits from deliberate ones.
const WIPMarker = "[wip]"

// wipPrefixPattern matches a conventional-commit-style "wip:" prefix at the
// start of the subject or preceded by whitespace (e.g. "chore: wip: cleanup").
var wipPrefixPattern = regexp.MustCompile(`(?i)(^|\s)wip:`)

// taskRefPattern matches a task-reference token like TASK_007.
var taskRefPattern = regexp.MustCompile(`TASK_\d+`)

// IsWIPCommit reports whether a commit subject line marks an automatic
// checkpoint commit.
func IsWIPCommit(subject string) bool {
	if strings.Contains(subject, WIPMarker) {
		return true
	}
	return wipPrefixPattern.MatchString(subject)
}

// HasTaskReference reports whether a commit subject contains a task-reference
// token.
func HasTaskReference(subject string) bool {
	return taskRefPattern.MatchString(subject)
}

// CountConsecutiveNonTaskCommits walks the given subjects from the most
// recent commit backward and counts how many in a row carry no task
// reference, stopping at the first subject that does (or at list end).
//
// The count is a nudge toward planning mode after repeated untracked commits,
// never a hard gate.
func CountConsecutiveNonTaskCommits(recentSubjects []string) int {
	count := 0
	for _, subject := range recentSubjects {
		if HasTaskReference(subject) {
			break
		}
		count++
	}
	return count
}
