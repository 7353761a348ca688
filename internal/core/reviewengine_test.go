package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// --- Test fakes ---

type fakeGit struct {
	repo    bool
	branch  string
	dirty   bool
	diff    string
	diffErr error
	commits []models.Commit

	commitErr  error
	committed  []string
	created    []string
	checkedOut []string
	merged     []string
	resetTo    []string
	treeHash   string
	mergeErr   error
}

func (g *fakeGit) IsRepository() bool                    { return g.repo }
func (g *fakeGit) CurrentBranch() (string, error)        { return g.branch, nil }
func (g *fakeGit) HasUncommittedChanges() (bool, error)  { return g.dirty, nil }
func (g *fakeGit) DiffHEAD() (string, error)             { return g.diff, g.diffErr }
func (g *fakeGit) RecentCommits(n int) ([]models.Commit, error) {
	if n > len(g.commits) {
		n = len(g.commits)
	}
	return g.commits[:n], nil
}
func (g *fakeGit) CreateBranch(name string) error { g.created = append(g.created, name); return nil }
func (g *fakeGit) Checkout(name string) error     { g.checkedOut = append(g.checkedOut, name); return nil }
func (g *fakeGit) CommitAll(message string) error {
	if g.commitErr != nil {
		return g.commitErr
	}
	g.committed = append(g.committed, message)
	g.commits = append([]models.Commit{{Hash: "new", Subject: message}}, g.commits...)
	return nil
}
func (g *fakeGit) Merge(branch, message string) error {
	if g.mergeErr != nil {
		return g.mergeErr
	}
	g.merged = append(g.merged, message)
	return nil
}
func (g *fakeGit) CommitTree(tree, parent, message string) (string, error) {
	if g.treeHash == "" {
		return "", errors.New("commit-tree not configured")
	}
	g.commits = []models.Commit{{Hash: g.treeHash, Subject: message}}
	return g.treeHash, nil
}
func (g *fakeGit) ResetHard(ref string) error { g.resetTo = append(g.resetTo, ref); return nil }

type fakeAnalyzer struct {
	verdict     *models.ReviewVerdict
	reviewErr   error
	reviewCalls int
	lastReq     models.AnalysisRequest

	text    string
	textErr error
}

func (a *fakeAnalyzer) Review(_ context.Context, req models.AnalysisRequest) (*models.ReviewVerdict, error) {
	a.reviewCalls++
	a.lastReq = req
	if a.reviewErr != nil {
		return nil, a.reviewErr
	}
	return a.verdict, nil
}

func (a *fakeAnalyzer) GenerateText(_ context.Context, _ string) (string, error) {
	return a.text, a.textErr
}

type fakeTasks struct {
	active    *models.Task
	activeErr error
	nextID    string

	createdTasks  []*models.Task
	savedPlans    []models.Plan
	statusUpdates []models.TaskStatus
	pointerSet    []string
	cleared       bool
}

func (s *fakeTasks) NextID() (string, error)            { return s.nextID, nil }
func (s *fakeTasks) CreateTask(task *models.Task) error { s.createdTasks = append(s.createdTasks, task); return nil }
func (s *fakeTasks) SavePlan(plan models.Plan) error    { s.savedPlans = append(s.savedPlans, plan); return nil }
func (s *fakeTasks) UpdateStatus(id string, status models.TaskStatus, completedAt *time.Time) error {
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}
func (s *fakeTasks) SetActiveTask(id string) error { s.pointerSet = append(s.pointerSet, id); return nil }
func (s *fakeTasks) ClearActiveTask() error        { s.cleared = true; return nil }
func (s *fakeTasks) ActiveTask() (*models.Task, error) {
	return s.active, s.activeErr
}

type fakeContext struct {
	text string
	err  error
}

func (c *fakeContext) RecentContext(_ string, _, _ int) (string, error) { return c.text, c.err }

type recordedEvent struct {
	eventType string
	message   string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (r *fakeRecorder) Record(eventType, message string, _ map[string]any) {
	r.events = append(r.events, recordedEvent{eventType, message})
}

func testReviewConfig() models.ReviewConfig {
	return models.ReviewConfig{
		MaxDiffBytes:         30000,
		SkipDiffBytes:        200000,
		MaxRequirementsChars: 4000,
		MaxContextChars:      3000,
		TranscriptTurns:      6,
		StreakAdvisory:       true,
	}
}

func activeTestTask() *models.Task {
	return &models.Task{
		ID:           "007",
		Title:        "Implement parser",
		Status:       models.StatusInProgress,
		BranchName:   "feature/implement-parser",
		Requirements: []string{"parse headers", "reject malformed input"},
	}
}

func newTestEngine(git *fakeGit, analyzer *fakeAnalyzer, tasks *fakeTasks) ReviewEngine {
	return NewReviewEngine(git, analyzer, tasks, &fakeContext{}, nil, testReviewConfig())
}

// --- Checkpoint tests ---

func TestCheckpoint_NotARepository(t *testing.T) {
	git := &fakeGit{repo: false}
	engine := newTestEngine(git, &fakeAnalyzer{}, &fakeTasks{})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if !decision.AllowStop {
		t.Error("outside a repository the stop must be allowed")
	}
	if decision.Committed {
		t.Error("no commit must happen outside a repository")
	}
}

func TestCheckpoint_EmptyDiffAllowsStop(t *testing.T) {
	git := &fakeGit{repo: true, diff: "  \n"}
	engine := newTestEngine(git, &fakeAnalyzer{}, &fakeTasks{active: activeTestTask()})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if !decision.AllowStop {
		t.Error("empty diff must allow the stop")
	}
	if len(git.committed) != 0 {
		t.Errorf("empty diff must not commit, got %v", git.committed)
	}
}

func TestCheckpoint_OnTrackCommitsAndAllows(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{verdict: &models.ReviewVerdict{
		Status:        models.VerdictOnTrack,
		Message:       "progressing",
		CommitMessage: "[wip] TASK_007 parse headers",
	}}
	tasks := &fakeTasks{active: activeTestTask()}
	engine := newTestEngine(git, analyzer, tasks)

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if !decision.AllowStop {
		t.Error("on_track must allow the stop")
	}
	if !decision.Committed || decision.CommitMessage != "[wip] TASK_007 parse headers" {
		t.Errorf("expected commit with verdict message, got committed=%v message=%q",
			decision.Committed, decision.CommitMessage)
	}
	if len(git.committed) != 1 {
		t.Fatalf("expected exactly one commit, got %d", len(git.committed))
	}
}

func TestCheckpoint_DeviationBlocks(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{verdict: &models.ReviewVerdict{
		Status:        models.VerdictDeviation,
		Message:       "work drifted from the plan",
		CommitMessage: "[wip] TASK_007 checkpoint",
	}}
	engine := newTestEngine(git, analyzer, &fakeTasks{active: activeTestTask()})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if decision.AllowStop {
		t.Error("deviation must block the stop")
	}
	// The checkpoint commit still happens so no work is lost.
	if !decision.Committed {
		t.Error("deviation must still commit the work")
	}
}

func TestCheckpoint_ForcedContinuationNeverBlocks(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{verdict: &models.ReviewVerdict{
		Status:        models.VerdictDeviation,
		Message:       "still drifting",
		CommitMessage: "[wip] TASK_007 checkpoint",
	}}
	engine := newTestEngine(git, analyzer, &fakeTasks{active: activeTestTask()})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{ForcedContinuation: true})
	if !decision.AllowStop {
		t.Error("forced continuation must always allow the stop")
	}
	found := false
	for _, n := range decision.Notices {
		if strings.Contains(n, "still drifting") {
			found = true
		}
	}
	if !found {
		t.Errorf("blocked finding must surface as a notice, got %v", decision.Notices)
	}
}

func TestCheckpoint_ReviewErrorFallsBackToWIPCommit(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{reviewErr: errors.New("analysis timed out")}
	engine := newTestEngine(git, analyzer, &fakeTasks{active: activeTestTask()})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if !decision.AllowStop {
		t.Error("review failure must never block the host")
	}
	if !decision.Committed || decision.CommitMessage != FallbackWIPMessage {
		t.Errorf("expected fallback commit %q, got committed=%v message=%q",
			FallbackWIPMessage, decision.Committed, decision.CommitMessage)
	}
	if len(decision.Notices) == 0 {
		t.Error("review failure must surface a notice")
	}
}

func TestCheckpoint_OversizedDiffSkipsReview(t *testing.T) {
	cfg := testReviewConfig()
	cfg.SkipDiffBytes = 100
	git := &fakeGit{repo: true, diff: fileSection("a.go", 50)}
	analyzer := &fakeAnalyzer{}
	engine := NewReviewEngine(git, analyzer, &fakeTasks{active: activeTestTask()}, &fakeContext{}, nil, cfg)

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if analyzer.reviewCalls != 0 {
		t.Error("oversized diff must not reach the analysis engine")
	}
	if !decision.Committed || decision.CommitMessage != FallbackWIPMessage {
		t.Errorf("oversized diff must fall back to %q, got %q", FallbackWIPMessage, decision.CommitMessage)
	}
	if !decision.AllowStop {
		t.Error("oversized diff must not block the stop")
	}
	if !strings.Contains(decision.Verdict.Message, ErrDiffTooLarge.Error()) {
		t.Errorf("verdict message = %q, must name the size failure", decision.Verdict.Message)
	}
}

func TestCheckpoint_CriticalFailureAllowsWithNotice(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{verdict: &models.ReviewVerdict{
		Status:  models.VerdictCriticalFailure,
		Message: "tests deleted wholesale",
	}}
	engine := newTestEngine(git, analyzer, &fakeTasks{active: activeTestTask()})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if !decision.AllowStop {
		t.Error("critical failure must allow the stop")
	}
	found := false
	for _, n := range decision.Notices {
		if strings.HasPrefix(n, "CRITICAL: ") {
			found = true
		}
	}
	if !found {
		t.Errorf("critical verdict must surface a CRITICAL notice, got %v", decision.Notices)
	}
	if len(git.committed) != 0 {
		t.Error("critical verdict without a commit message must not commit")
	}
}

func TestCheckpoint_NoActiveTaskSynthesizesMessage(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{text: "feat: sketch parser"}
	engine := newTestEngine(git, analyzer, &fakeTasks{})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if !decision.AllowStop {
		t.Error("task-less checkpoint must never block")
	}
	want := "[wip] feat: sketch parser"
	if decision.CommitMessage != want {
		t.Errorf("commit message = %q, want %q", decision.CommitMessage, want)
	}
}

func TestCheckpoint_NoActiveTaskGeneratorFailureUsesFallback(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{textErr: errors.New("engine unavailable")}
	engine := newTestEngine(git, analyzer, &fakeTasks{})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	if decision.CommitMessage != exploratoryFallbackMessage {
		t.Errorf("commit message = %q, want %q", decision.CommitMessage, exploratoryFallbackMessage)
	}
}

func TestCheckpoint_StreakAdvisory(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3), commits: []models.Commit{
		{Hash: "b", Subject: "[wip] untracked two"},
		{Hash: "c", Subject: "misc fix"},
		{Hash: "d", Subject: "TASK_001 earlier work"},
	}}
	analyzer := &fakeAnalyzer{text: "more exploration"}
	engine := newTestEngine(git, analyzer, &fakeTasks{})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	found := false
	for _, n := range decision.Notices {
		if n == planningAdvisory {
			found = true
		}
	}
	if !found {
		t.Errorf("third consecutive untracked commit must surface the planning advisory, got %v", decision.Notices)
	}
}

func TestCheckpoint_NoAdvisoryBelowThreshold(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3), commits: []models.Commit{
		{Hash: "b", Subject: "TASK_001 tracked work"},
	}}
	analyzer := &fakeAnalyzer{text: "small tweak"}
	engine := newTestEngine(git, analyzer, &fakeTasks{})

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	for _, n := range decision.Notices {
		if n == planningAdvisory {
			t.Error("advisory must not fire below the streak threshold")
		}
	}
}

func TestCheckpoint_StreakAdvisoryDisabledByConfig(t *testing.T) {
	cfg := testReviewConfig()
	cfg.StreakAdvisory = false
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3), commits: []models.Commit{
		{Hash: "b", Subject: "[wip] untracked two"},
		{Hash: "c", Subject: "misc fix"},
		{Hash: "d", Subject: "TASK_001 earlier work"},
	}}
	analyzer := &fakeAnalyzer{text: "more exploration"}
	engine := NewReviewEngine(git, analyzer, &fakeTasks{}, &fakeContext{}, nil, cfg)

	decision := engine.Checkpoint(context.Background(), CheckpointRequest{})
	for _, n := range decision.Notices {
		if n == planningAdvisory {
			t.Error("disabled toggle must suppress the advisory even over the threshold")
		}
	}
}

func TestCheckpoint_FirstCommitMovesTaskToInProgress(t *testing.T) {
	task := activeTestTask()
	task.Status = models.StatusPlanning
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{verdict: &models.ReviewVerdict{
		Status:        models.VerdictOnTrack,
		Message:       "fine",
		CommitMessage: "[wip] TASK_007 first checkpoint",
	}}
	tasks := &fakeTasks{active: task}
	engine := newTestEngine(git, analyzer, tasks)

	engine.Checkpoint(context.Background(), CheckpointRequest{})
	if len(tasks.statusUpdates) != 1 || tasks.statusUpdates[0] != models.StatusInProgress {
		t.Errorf("first checkpoint commit must move planning to in_progress, got %v", tasks.statusUpdates)
	}
}

func TestCheckpoint_RequirementsCappedInPrompt(t *testing.T) {
	cfg := testReviewConfig()
	cfg.MaxRequirementsChars = 20
	task := activeTestTask()
	task.Requirements = []string{strings.Repeat("x", 100)}
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{verdict: &models.ReviewVerdict{Status: models.VerdictOnTrack}}
	engine := NewReviewEngine(git, analyzer, &fakeTasks{active: task}, &fakeContext{}, nil, cfg)

	engine.Checkpoint(context.Background(), CheckpointRequest{})
	if len(analyzer.lastReq.TaskRequirements) != 20 {
		t.Errorf("requirements length = %d, want capped at 20", len(analyzer.lastReq.TaskRequirements))
	}
}

func TestCheckpoint_RecordsVerdictEvent(t *testing.T) {
	git := &fakeGit{repo: true, diff: fileSection("a.go", 3)}
	analyzer := &fakeAnalyzer{verdict: &models.ReviewVerdict{
		Status:        models.VerdictOnTrack,
		Message:       "fine",
		CommitMessage: "[wip] TASK_007 checkpoint",
	}}
	recorder := &fakeRecorder{}
	engine := NewReviewEngine(git, analyzer, &fakeTasks{active: activeTestTask()}, &fakeContext{}, recorder, testReviewConfig())

	engine.Checkpoint(context.Background(), CheckpointRequest{})
	if len(recorder.events) != 1 || recorder.events[0].eventType != "review.verdict" {
		t.Errorf("expected one review.verdict event, got %v", recorder.events)
	}
}

func TestCapText(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{"under cap", "abc", 10, "abc"},
		{"no cap", "abc", 0, "abc"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"backs off a split rune", "aé", 2, "a"},
		{"keeps a whole rune at the cut", "éé", 2, "é"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := capText(tt.s, tt.max)
			if got != tt.want {
				t.Errorf("capText(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("capText(%q, %d) produced invalid UTF-8 %q", tt.s, tt.max, got)
			}
		})
	}
}
