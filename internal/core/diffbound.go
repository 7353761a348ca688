package core

import (
	"fmt"
	"regexp"
	"strings"
)

// markerReserve is the byte budget reserved for the appended truncation marker.
const markerReserve = 100

// fileSectionPattern marks the start of a per-file section in git diff output.
var fileSectionPattern = regexp.MustCompile(`(?m)^diff --git a/.+ b/.+$`)

// BoundedDiff is the result of bounding a diff to a size budget.
type BoundedDiff struct {
	Diff          string
	Truncated     bool
	OriginalSize  int
	TruncatedSize int
	FilesOmitted  int
	LinesOmitted  int
}

// BoundDiff truncates a git diff to fit maxSize while preserving file
// boundaries: whole file sections are included greedily in original order and
// a section is only ever cut mid-way when it is the sole content (a raw
// unified diff with no file headers, or a first section that alone exceeds
// the budget). The analysis engine therefore sees complete, syntactically
// coherent file diffs whenever possible.
func BoundDiff(diff string, maxSize int) BoundedDiff {
	if len(diff) <= maxSize {
		return BoundedDiff{
			Diff:          diff,
			Truncated:     false,
			OriginalSize:  len(diff),
			TruncatedSize: len(diff),
		}
	}

	budget := maxSize - markerReserve
	if budget < 0 {
		budget = 0
	}

	starts := sectionStarts(diff)
	if len(starts) == 0 {
		// Raw unified diff with no file headers: cut at a character offset.
		kept := diff[:budget]
		out := kept + "... [diff truncated due to size limit] ..."
		return BoundedDiff{
			Diff:          out,
			Truncated:     true,
			OriginalSize:  len(diff),
			TruncatedSize: len(out),
			LinesOmitted:  strings.Count(diff, "\n") - strings.Count(kept, "\n"),
		}
	}

	sections := splitSections(diff, starts)

	// Greedily include whole sections while the cumulative size fits.
	kept := 0
	size := 0
	for kept < len(sections) && size+len(sections[kept]) <= budget {
		size += len(sections[kept])
		kept++
	}

	if kept == 0 {
		// First section alone exceeds the budget: cut it mid-way.
		text := sections[0]
		if len(text) > budget {
			text = text[:budget]
		}
		out := text + "... [file truncated due to size limit] ..."
		return BoundedDiff{
			Diff:          out,
			Truncated:     true,
			OriginalSize:  len(diff),
			TruncatedSize: len(out),
			FilesOmitted:  len(sections) - 1,
			LinesOmitted:  strings.Count(diff, "\n") - strings.Count(text, "\n"),
		}
	}

	omitted := strings.Join(sections[kept:], "")
	omittedLines := strings.Count(omitted, "\n")
	out := strings.Join(sections[:kept], "") +
		fmt.Sprintf("... [%d files omitted due to size limit (%d lines)] ...", len(sections)-kept, omittedLines)
	return BoundedDiff{
		Diff:          out,
		Truncated:     true,
		OriginalSize:  len(diff),
		TruncatedSize: len(out),
		FilesOmitted:  len(sections) - kept,
		LinesOmitted:  omittedLines,
	}
}

// sectionStarts returns the byte offsets of every file section marker.
func sectionStarts(diff string) []int {
	matches := fileSectionPattern.FindAllStringIndex(diff, -1)
	starts := make([]int, 0, len(matches))
	for _, m := range matches {
		starts = append(starts, m[0])
	}
	return starts
}

// splitSections cuts the diff into per-file sections. Every marker starts a
// new section and the last section runs to end of input. Any preamble before
// the first marker is folded into the first section.
func splitSections(diff string, starts []int) []string {
	sections := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(diff)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if i == 0 {
			start = 0
		}
		sections = append(sections, diff[start:end])
	}
	return sections
}
