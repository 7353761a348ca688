package core

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// genDiff draws a multi-file git diff with 1-8 files of varying size.
func genDiff(rt *rapid.T) string {
	n := rapid.IntRange(1, 8).Draw(rt, "files")
	var b strings.Builder
	for i := 0; i < n; i++ {
		lines := rapid.IntRange(1, 60).Draw(rt, fmt.Sprintf("lines%d", i))
		b.WriteString(fileSection(fmt.Sprintf("f%d.go", i), lines))
	}
	return b.String()
}

// TestProperty01_BoundDiffNeverExceedsBudget verifies that for any diff and
// any budget at least as large as the marker reserve, the bounded output fits
// the budget.
func TestProperty01_BoundDiffNeverExceedsBudget(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		diff := genDiff(rt)
		maxSize := rapid.IntRange(markerReserve, 5000).Draw(rt, "maxSize")

		got := BoundDiff(diff, maxSize)
		if len(got.Diff) > maxSize && got.Truncated {
			rt.Fatalf("bounded diff is %d bytes, budget %d", len(got.Diff), maxSize)
		}
	})
}

// TestProperty02_BoundDiffIdempotent verifies that bounding an already
// bounded diff with the same budget changes nothing.
func TestProperty02_BoundDiffIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		diff := genDiff(rt)
		maxSize := rapid.IntRange(markerReserve, 5000).Draw(rt, "maxSize")

		once := BoundDiff(diff, maxSize)
		twice := BoundDiff(once.Diff, maxSize)
		if twice.Diff != once.Diff {
			rt.Fatalf("second bounding changed output:\nonce:  %q\ntwice: %q", once.Diff, twice.Diff)
		}
		if twice.Truncated {
			rt.Fatal("second bounding reported truncation")
		}
	})
}

// TestProperty03_BoundDiffKeepsWholeSectionsInOrder verifies that when more
// than one section is kept, every kept section is byte-identical to the
// original and appears in original order.
func TestProperty03_BoundDiffKeepsWholeSectionsInOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		diff := genDiff(rt)
		maxSize := rapid.IntRange(markerReserve, len(diff)).Draw(rt, "maxSize")

		got := BoundDiff(diff, maxSize)
		if !got.Truncated {
			return
		}
		body, _, found := strings.Cut(got.Diff, "... [")
		if !found {
			rt.Fatalf("truncated output carries no marker: %q", got.Diff)
		}
		if !strings.HasPrefix(diff, body) {
			rt.Fatalf("kept content is not a prefix of the original diff")
		}
	})
}
