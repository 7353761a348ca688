package hooks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestChangeTracker_AppendAndRead(t *testing.T) {
	tracker := NewChangeTracker(t.TempDir())

	entries := []ChangeEntry{
		{Timestamp: 100, Tool: "Edit", FilePath: "src/a.go"},
		{Timestamp: 200, Tool: "Write", FilePath: "src/b.go"},
	}
	for _, e := range entries {
		if err := tracker.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := tracker.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestChangeTracker_ReadMissingFile(t *testing.T) {
	tracker := NewChangeTracker(t.TempDir())
	entries, err := tracker.Read()
	if err != nil || entries != nil {
		t.Errorf("Read on missing log = (%v, %v), want (nil, nil)", entries, err)
	}
}

func TestChangeTracker_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := "100|Edit|src/a.go\nnot a valid line\nbadts|Edit|src/b.go\n\n200|Write|src/c.go\n"
	if err := os.WriteFile(filepath.Join(dir, sessionChangesFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := NewChangeTracker(dir).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("len = %d, want 2 (malformed lines skipped)", len(entries))
	}
}

func TestChangeTracker_TouchedFilesUniqueOldestFirst(t *testing.T) {
	tracker := NewChangeTracker(t.TempDir())
	for _, e := range []ChangeEntry{
		{Timestamp: 1, Tool: "Edit", FilePath: "src/a.go"},
		{Timestamp: 2, Tool: "Edit", FilePath: "src/b.go"},
		{Timestamp: 3, Tool: "Write", FilePath: "src/a.go"},
	} {
		if err := tracker.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	files, err := tracker.TouchedFiles()
	if err != nil {
		t.Fatalf("TouchedFiles: %v", err)
	}
	if len(files) != 2 || files[0] != "src/a.go" || files[1] != "src/b.go" {
		t.Errorf("files = %v, want unique paths oldest first", files)
	}
}

func TestChangeTracker_CleanupIdempotent(t *testing.T) {
	tracker := NewChangeTracker(t.TempDir())
	if err := tracker.Append(ChangeEntry{Timestamp: 1, Tool: "Edit", FilePath: "a"}); err != nil {
		t.Fatal(err)
	}

	if err := tracker.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if err := tracker.Cleanup(); err != nil {
		t.Fatalf("second Cleanup must not fail: %v", err)
	}

	entries, err := tracker.Read()
	if err != nil || entries != nil {
		t.Errorf("Read after cleanup = (%v, %v), want (nil, nil)", entries, err)
	}
}
