package core

import (
	"context"
	"errors"
	"time"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// ErrNoActiveTask is returned by completion-path operations when the
// active-task pointer resolves to nothing.
var ErrNoActiveTask = errors.New("no active task")

// ErrDiffTooLarge marks a diff over the hard review threshold. The review is
// failed up front instead of spending an analysis call on a prompt truncated
// beyond usefulness.
var ErrDiffTooLarge = errors.New("diff too large for review")

// Git is the narrow view of the git port the core orchestrators need. The
// integration package's GitPort satisfies it.
type Git interface {
	IsRepository() bool
	CurrentBranch() (string, error)
	HasUncommittedChanges() (bool, error)
	DiffHEAD() (string, error)
	RecentCommits(n int) ([]models.Commit, error)
	CreateBranch(name string) error
	Checkout(name string) error
	CommitAll(message string) error
	Merge(branch, message string) error
	CommitTree(tree, parent, message string) (string, error)
	ResetHard(ref string) error
}

// Analyzer is the core's view of the external analysis engine.
type Analyzer interface {
	Review(ctx context.Context, req models.AnalysisRequest) (*models.ReviewVerdict, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// TaskSource is the core's view of the task store. The storage package's
// TaskStore satisfies it.
type TaskSource interface {
	NextID() (string, error)
	CreateTask(task *models.Task) error
	SavePlan(plan models.Plan) error
	UpdateStatus(id string, status models.TaskStatus, completedAt *time.Time) error
	SetActiveTask(id string) error
	ClearActiveTask() error
	ActiveTask() (*models.Task, error)
}

// ContextSource yields bounded recent-session context for the review prompt.
type ContextSource interface {
	RecentContext(transcriptPath string, turns, maxChars int) (string, error)
}

// Gate is the core's view of the validation gate.
type Gate interface {
	Run() (*models.ValidationReport, error)
}

// EventRecorder records lifecycle events for later inspection. A nil
// recorder is allowed everywhere; recording is never load-bearing.
type EventRecorder interface {
	Record(eventType, message string, data map[string]any)
}
