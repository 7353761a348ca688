package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

func testTask(id, title string) *models.Task {
	return &models.Task{
		ID:           id,
		Title:        title,
		Status:       models.StatusPlanning,
		BranchName:   "feature/" + id,
		Requirements: []string{"first requirement", "second requirement"},
		CreatedAt:    time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestTaskStore_NextID(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStore(dir)

	id, err := store.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id != "001" {
		t.Errorf("first id = %q, want 001", id)
	}

	for _, existing := range []string{"001", "002", "005"} {
		if err := store.CreateTask(testTask(existing, "task "+existing)); err != nil {
			t.Fatalf("CreateTask(%s): %v", existing, err)
		}
	}

	id, err = store.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id != "006" {
		t.Errorf("next id = %q, want 006 (1 + highest, gaps ignored)", id)
	}
}

func TestTaskStore_NextID_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStore(dir)
	if err := os.MkdirAll(filepath.Join(dir, "tasks"), 0o750); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"README.md", "notes.txt", "ACTIVE_TASK"} {
		if err := os.WriteFile(filepath.Join(dir, "tasks", name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	id, err := store.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id != "001" {
		t.Errorf("id = %q, want 001 with only foreign files present", id)
	}
}

func TestTaskStore_CreateAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStore(dir)

	task := testTask("007", "Implement the JSON parser")
	task.ExternalIssueRef = "EX-42"
	if err := store.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if !strings.HasSuffix(task.FilePath, "007-implement-the-json-parser.md") {
		t.Errorf("FilePath = %q", task.FilePath)
	}

	loaded, err := store.LoadTask("007")
	if err != nil {
		t.Fatalf("LoadTask: %v", err)
	}
	if loaded.Title != task.Title {
		t.Errorf("Title = %q, want %q", loaded.Title, task.Title)
	}
	if loaded.Status != models.StatusPlanning {
		t.Errorf("Status = %q", loaded.Status)
	}
	if loaded.BranchName != "feature/007" {
		t.Errorf("BranchName = %q", loaded.BranchName)
	}
	if loaded.ExternalIssueRef != "EX-42" {
		t.Errorf("ExternalIssueRef = %q", loaded.ExternalIssueRef)
	}
	if len(loaded.Requirements) != 2 || loaded.Requirements[0] != "first requirement" {
		t.Errorf("Requirements = %v", loaded.Requirements)
	}
	if !loaded.CreatedAt.Equal(task.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", loaded.CreatedAt, task.CreatedAt)
	}
}

func TestTaskStore_CreateTask_DuplicateRejected(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStore(dir)

	if err := store.CreateTask(testTask("001", "same title")); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := store.CreateTask(testTask("001", "same title")); err == nil {
		t.Error("duplicate record must be rejected")
	}
}

func TestTaskStore_UpdateStatus(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStore(dir)
	task := testTask("001", "some work")
	if err := store.CreateTask(task); err != nil {
		t.Fatal(err)
	}

	completedAt := time.Date(2026, 8, 22, 9, 30, 0, 0, time.UTC)
	if err := store.UpdateStatus("001", models.StatusCompleted, &completedAt); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	loaded, err := store.LoadTask("001")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want completed", loaded.Status)
	}
	if loaded.CompletedAt == nil || !loaded.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt = %v, want %v", loaded.CompletedAt, completedAt)
	}

	// The rest of the record must survive the rewrite.
	if loaded.Title != "some work" || len(loaded.Requirements) != 2 {
		t.Errorf("rewrite damaged the record: %+v", loaded)
	}
}

func TestTaskStore_ActivePointer(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStore(dir)

	// Absent pointer resolves to no active task.
	task, err := store.ActiveTask()
	if err != nil || task != nil {
		t.Fatalf("ActiveTask on empty store = (%v, %v), want (nil, nil)", task, err)
	}

	if err := store.CreateTask(testTask("001", "first")); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateTask(testTask("002", "second")); err != nil {
		t.Fatal(err)
	}

	if err := store.SetActiveTask("001"); err != nil {
		t.Fatalf("SetActiveTask: %v", err)
	}
	if err := store.SetActiveTask("002"); err != nil {
		t.Fatalf("SetActiveTask: %v", err)
	}

	// The pointer names at most one task; the second set replaced the first.
	task, err = store.ActiveTask()
	if err != nil {
		t.Fatalf("ActiveTask: %v", err)
	}
	if task == nil || task.ID != "002" {
		t.Errorf("active task = %+v, want 002", task)
	}

	if err := store.ClearActiveTask(); err != nil {
		t.Fatalf("ClearActiveTask: %v", err)
	}
	task, err = store.ActiveTask()
	if err != nil || task != nil {
		t.Errorf("cleared pointer = (%v, %v), want (nil, nil)", task, err)
	}
}

func TestTaskStore_SetActiveTask_UnknownID(t *testing.T) {
	store := NewTaskStore(t.TempDir())
	if err := store.SetActiveTask("099"); err == nil {
		t.Error("pointing at a nonexistent task must fail")
	}
}

func TestTaskStore_SavePlan(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStore(dir)

	plan := models.Plan{
		ID:         "003",
		CapturedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		RawText:    "# The plan\n- do the thing\n",
	}
	if err := store.SavePlan(plan); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "plans", "003-plan.yaml"))
	if err != nil {
		t.Fatalf("reading plan record: %v", err)
	}
	if !strings.Contains(string(data), "do the thing") {
		t.Errorf("plan record must carry the raw text, got %q", data)
	}

	if err := store.SavePlan(plan); err == nil {
		t.Error("plans are immutable; overwriting must fail")
	}
}

func TestTaskStore_ListTasks(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStore(dir)

	for _, id := range []string{"002", "001", "003"} {
		if err := store.CreateTask(testTask(id, "task "+id)); err != nil {
			t.Fatal(err)
		}
	}

	tasks, err := store.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}
	for i, want := range []string{"001", "002", "003"} {
		if tasks[i].ID != want {
			t.Errorf("tasks[%d].ID = %q, want %q", i, tasks[i].ID, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Implement the JSON parser", "implement-the-json-parser"},
		{"Fix: crash!! (#42)", "fix-crash-42"},
		{"", "task"},
		{"???", "task"},
		{strings.Repeat("long-title ", 10), "long-title-long-title-long-title-long-ti"},
	}
	for _, tt := range tests {
		if got := slugify(tt.title); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
