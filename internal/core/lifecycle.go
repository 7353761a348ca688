package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// maxTitleLength caps synthesized task titles.
const maxTitleLength = 60

// squashLogWindow is how far back the completion path looks for the last
// non-WIP commit. An unbroken WIP run longer than this is treated like a
// missing base: the squash is skipped.
const squashLogWindow = 100

// CompletionResult reports the outcome of a completion attempt.
type CompletionResult struct {
	Task      *models.Task
	Report    *models.ValidationReport
	Completed bool
	Squashed  bool
	// Messages are user-facing notes: failing checks, squash decisions.
	Messages []string
}

// TaskLifecycle is the top-level orchestrator: plan capture into a tracked
// task, and completion through validation, squash, and merge. It is the only
// component that mutates task status on completion or the active-task
// pointer.
type TaskLifecycle interface {
	CreateFromPlan(ctx context.Context, planText string) (*models.Task, error)
	Complete(ctx context.Context) (*CompletionResult, error)
}

type taskLifecycle struct {
	git           Git
	tasks         TaskSource
	gate          Gate
	analyzer      Analyzer
	events        EventRecorder
	defaultBranch string
	now           func() time.Time
}

// NewTaskLifecycle creates the lifecycle orchestrator. events may be nil.
func NewTaskLifecycle(git Git, tasks TaskSource, gate Gate, analyzer Analyzer, events EventRecorder, defaultBranch string) TaskLifecycle {
	return &taskLifecycle{
		git:           git,
		tasks:         tasks,
		gate:          gate,
		analyzer:      analyzer,
		events:        events,
		defaultBranch: defaultBranch,
		now:           time.Now,
	}
}

// CreateFromPlan turns an approved plan into a tracked task: next id, plan
// record, task record, feature branch, active pointer. The pointer is
// written last so a failure earlier leaves no dangling "active" task.
func (l *taskLifecycle) CreateFromPlan(ctx context.Context, planText string) (*models.Task, error) {
	if strings.TrimSpace(planText) == "" {
		return nil, fmt.Errorf("plan text must not be empty")
	}
	if !l.git.IsRepository() {
		return nil, fmt.Errorf("not inside a git repository")
	}

	id, err := l.tasks.NextID()
	if err != nil {
		return nil, fmt.Errorf("assigning task id: %w", err)
	}

	createdAt := l.now()
	if err := l.tasks.SavePlan(models.Plan{ID: id, CapturedAt: createdAt, RawText: planText}); err != nil {
		return nil, fmt.Errorf("persisting plan: %w", err)
	}

	task := &models.Task{
		ID:           id,
		Title:        l.titleFromPlan(ctx, planText),
		Status:       models.StatusPlanning,
		Requirements: requirementsFromPlan(planText),
		CreatedAt:    createdAt,
	}
	task.BranchName = l.branchNameFor(ctx, task)

	if err := l.tasks.CreateTask(task); err != nil {
		return nil, fmt.Errorf("persisting task: %w", err)
	}
	if err := l.git.CreateBranch(task.BranchName); err != nil {
		return nil, fmt.Errorf("creating branch %s: %w", task.BranchName, err)
	}
	if err := l.tasks.SetActiveTask(task.ID); err != nil {
		return nil, fmt.Errorf("setting active task: %w", err)
	}

	if l.events != nil {
		l.events.Record("task.created", task.Title, map[string]any{
			"task":   task.ID,
			"branch": task.BranchName,
		})
	}
	return task, nil
}

// titleFromPlan asks the analysis engine for a short title, degrading to the
// plan's first line.
func (l *taskLifecycle) titleFromPlan(ctx context.Context, planText string) string {
	prompt := fmt.Sprintf(
		"Summarize this plan as a task title of at most %d characters. Reply with the title only.\n\n%s",
		maxTitleLength, capText(planText, 2000))
	if title, err := l.analyzer.GenerateText(ctx, prompt); err == nil {
		if t := strings.TrimSpace(title); t != "" {
			return capText(t, maxTitleLength)
		}
	}
	return capText(firstNonEmptyLine(planText), maxTitleLength)
}

// branchNameFor asks the analysis engine for a branch name, sanitized, with
// the deterministic feature/task-<id> pattern as fallback.
func (l *taskLifecycle) branchNameFor(ctx context.Context, task *models.Task) string {
	prompt := fmt.Sprintf(
		"Suggest a short git branch name (kebab-case, optionally with a type/ prefix) for this task. Reply with the name only.\n\nTask: %s",
		task.Title)
	candidate, err := l.analyzer.GenerateText(ctx, prompt)
	if err != nil || strings.TrimSpace(candidate) == "" {
		return FallbackBranchName(task.ID)
	}
	return SanitizeBranchName(candidate, task.ID)
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#- *"))
		if line != "" {
			return line
		}
	}
	return "Untitled task"
}

// requirementsFromPlan extracts bullet and numbered lines from the plan as
// the task's requirements checklist.
func requirementsFromPlan(planText string) []string {
	var reqs []string
	for _, raw := range strings.Split(planText, "\n") {
		line := strings.TrimSpace(raw)
		if item, ok := strings.CutPrefix(line, "- "); ok {
			reqs = append(reqs, strings.TrimSpace(item))
			continue
		}
		if item, ok := strings.CutPrefix(line, "* "); ok {
			reqs = append(reqs, strings.TrimSpace(item))
			continue
		}
		if idx := strings.IndexByte(line, '.'); idx > 0 && idx <= 3 && isDigits(line[:idx]) {
			reqs = append(reqs, strings.TrimSpace(line[idx+1:]))
		}
	}
	return reqs
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Complete runs the validation gate and, if ready, squashes WIP history,
// merges the task branch into the default branch, marks the task completed,
// and clears the active pointer. A failed gate or a refused squash (dirty
// tree, WIP run with no base) reports the specific reason and touches no git
// state.
func (l *taskLifecycle) Complete(ctx context.Context) (*CompletionResult, error) {
	task, err := l.tasks.ActiveTask()
	if err != nil {
		return nil, fmt.Errorf("resolving active task: %w", err)
	}
	if task == nil {
		return nil, ErrNoActiveTask
	}

	report, err := l.gate.Run()
	if err != nil {
		return nil, fmt.Errorf("running validation: %w", err)
	}
	result := &CompletionResult{Task: task, Report: report}

	if !report.ReadyForCompletion() {
		for _, check := range report.FailingChecks() {
			result.Messages = append(result.Messages, fmt.Sprintf("%s failed", check))
		}
		if l.events != nil {
			l.events.Record("validation.failed", strings.Join(report.FailingChecks(), ", "),
				map[string]any{"task": task.ID})
		}
		return result, nil
	}

	proceed, err := l.squashWIPHistory(task, result)
	if err != nil {
		return result, err
	}
	if !proceed {
		// Refused squash fails the completion; git state stays untouched.
		if l.events != nil {
			l.events.Record("completion.refused", strings.Join(result.Messages, "; "),
				map[string]any{"task": task.ID})
		}
		return result, nil
	}

	mergeMessage := fmt.Sprintf("Merge branch '%s' (%s)", task.BranchName, task.TaskRef())
	if err := l.git.Checkout(l.defaultBranch); err != nil {
		return result, fmt.Errorf("switching to %s: %w", l.defaultBranch, err)
	}
	if err := l.git.Merge(task.BranchName, mergeMessage); err != nil {
		return result, fmt.Errorf("merging %s: %w", task.BranchName, err)
	}

	// Status and pointer writes happen only after every fallible git
	// operation has succeeded.
	completedAt := l.now()
	if err := l.tasks.UpdateStatus(task.ID, models.StatusCompleted, &completedAt); err != nil {
		return result, fmt.Errorf("marking task completed: %w", err)
	}
	if err := l.tasks.ClearActiveTask(); err != nil {
		return result, fmt.Errorf("clearing active task: %w", err)
	}

	task.Status = models.StatusCompleted
	task.CompletedAt = &completedAt
	result.Completed = true

	if l.events != nil {
		l.events.Record("task.completed", task.Title, map[string]any{
			"task":     task.ID,
			"squashed": result.Squashed,
		})
	}
	return result, nil
}

// squashWIPHistory collapses the run of WIP commits on top of the last
// non-WIP commit into one clean commit. The safeguard is deliberate: the
// squash only happens when the working tree is clean and every commit since
// the last non-WIP commit carries the WIP marker. A dirty tree or a WIP run
// with no base commit refuses the completion (proceed=false) rather than
// rewriting or merging ambiguous history; a deliberate HEAD simply has
// nothing to squash and proceeds.
func (l *taskLifecycle) squashWIPHistory(task *models.Task, result *CompletionResult) (bool, error) {
	dirty, err := l.git.HasUncommittedChanges()
	if err != nil {
		return false, fmt.Errorf("checking working tree: %w", err)
	}
	if dirty {
		result.Messages = append(result.Messages, "completion refused: working tree has uncommitted changes, commit or stash them first")
		return false, nil
	}

	commits, err := l.git.RecentCommits(squashLogWindow)
	if err != nil {
		return false, fmt.Errorf("reading commit history: %w", err)
	}

	wipRun := 0
	base := ""
	for _, c := range commits {
		if !IsWIPCommit(c.Subject) {
			base = c.Hash
			break
		}
		wipRun++
	}

	if wipRun == 0 {
		// HEAD is already a deliberate commit; nothing to squash.
		return true, nil
	}
	if base == "" {
		result.Messages = append(result.Messages, "completion refused: no non-WIP base commit found to squash onto")
		return false, nil
	}

	squashMessage := fmt.Sprintf("%s %s", task.TaskRef(), task.Title)
	squashed, err := l.git.CommitTree("HEAD^{tree}", base, squashMessage)
	if err != nil {
		return false, fmt.Errorf("creating squashed commit: %w", err)
	}
	if err := l.git.ResetHard(squashed); err != nil {
		return false, fmt.Errorf("resetting branch to squashed commit: %w", err)
	}
	result.Squashed = true
	result.Messages = append(result.Messages, fmt.Sprintf("squashed %d WIP commits", wipRun))
	return true, nil
}
