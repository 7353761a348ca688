package core

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// FallbackWIPMessage is the static commit message used when a review cannot
// produce one (timeout, malformed response, oversized diff).
const FallbackWIPMessage = "[wip] Work in progress - review failed"

// exploratoryFallbackMessage is the static commit message for task-less
// checkpoints when the analysis engine cannot synthesize one.
const exploratoryFallbackMessage = "[wip] Exploratory work in progress"

// streakAdvisoryThreshold is the consecutive non-task-commit count (the
// current commit plus prior ones) at which the planning-mode suggestion is
// surfaced.
const streakAdvisoryThreshold = 3

// planningAdvisory is the one-line suggestion surfaced after a streak of
// untracked commits. Advisory only, never blocks.
const planningAdvisory = "Several commits in a row without a tracked task - consider capturing a plan with 'taskpilot plan' first."

// CheckpointRequest carries the host's stop-event parameters into the engine.
type CheckpointRequest struct {
	TranscriptPath string
	// ForcedContinuation is true when the host indicates this invocation is
	// already a retry after a previous block decision. The engine then always
	// allows the stop, preventing infinite block loops.
	ForcedContinuation bool
}

// ReviewEngine decides what happens at a stop checkpoint: commit, block, or
// let the host stop. Every external failure degrades to a safe decision; the
// engine never returns an error to the hook layer.
type ReviewEngine interface {
	Checkpoint(ctx context.Context, req CheckpointRequest) models.ReviewDecision
}

type reviewEngine struct {
	git      Git
	analyzer Analyzer
	tasks    TaskSource
	context  ContextSource
	events   EventRecorder
	cfg      models.ReviewConfig
}

// NewReviewEngine creates a ReviewEngine. events may be nil.
func NewReviewEngine(git Git, analyzer Analyzer, tasks TaskSource, contextSrc ContextSource, events EventRecorder, cfg models.ReviewConfig) ReviewEngine {
	return &reviewEngine{
		git:      git,
		analyzer: analyzer,
		tasks:    tasks,
		context:  contextSrc,
		events:   events,
		cfg:      cfg,
	}
}

// Checkpoint evaluates the current changes and returns the decision for the
// host. The only short-circuit is "not a git repository", which is a no-op
// success.
func (e *reviewEngine) Checkpoint(ctx context.Context, req CheckpointRequest) models.ReviewDecision {
	if !e.git.IsRepository() {
		return allowDecision(models.ReviewVerdict{
			Status:  models.VerdictOnTrack,
			Message: "not a git repository, nothing to review",
		})
	}

	task, err := e.tasks.ActiveTask()
	if err != nil {
		task = nil // Degrade to the task-less path.
	}

	diff, err := e.git.DiffHEAD()
	if err != nil {
		// Cannot inspect changes; let the host stop rather than guess.
		return allowDecision(models.ReviewVerdict{
			Status:  models.VerdictOnTrack,
			Message: "unable to read diff, skipping review",
		})
	}

	if strings.TrimSpace(diff) == "" {
		return allowDecision(models.ReviewVerdict{
			Status:  models.VerdictOnTrack,
			Message: "no changes since last commit",
		})
	}

	if task == nil {
		return e.checkpointWithoutTask(ctx, diff)
	}
	return e.checkpointWithTask(ctx, req, task, diff)
}

// checkpointWithoutTask commits exploratory work with a synthesized message.
// This path never blocks.
func (e *reviewEngine) checkpointWithoutTask(ctx context.Context, diff string) models.ReviewDecision {
	message := e.synthesizeCommitMessage(ctx, diff)
	decision := allowDecision(models.ReviewVerdict{
		Status:        models.VerdictOnTrack,
		Message:       "exploratory work checkpointed",
		CommitMessage: message,
	})
	e.commitAndAdvise(&decision, message)
	return decision
}

// synthesizeCommitMessage asks the analysis engine for a best-effort subject
// line, degrading to the static fallback on any failure.
func (e *reviewEngine) synthesizeCommitMessage(ctx context.Context, diff string) string {
	bounded := BoundDiff(diff, e.cfg.MaxDiffBytes)
	prompt := fmt.Sprintf(
		"Write a single conventional commit subject line for the following diff. Reply with the subject only.\n\n%s",
		bounded.Diff)
	text, err := e.analyzer.GenerateText(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		return exploratoryFallbackMessage
	}
	message := strings.TrimSpace(text)
	if !IsWIPCommit(message) {
		// Checkpoint commits must carry the WIP marker so squash can find them.
		message = WIPMarker + " " + message
	}
	return message
}

// checkpointWithTask runs the bounded review and maps the verdict to an
// action.
func (e *reviewEngine) checkpointWithTask(ctx context.Context, req CheckpointRequest, task *models.Task, diff string) models.ReviewDecision {
	verdict := e.reviewDiff(ctx, req, task, diff)

	decision := e.mapVerdict(verdict, req.ForcedContinuation)
	if verdict.CommitMessage != "" {
		if e.commitAndAdvise(&decision, verdict.CommitMessage) && task.Status == models.StatusPlanning {
			// First checkpoint commit moves the task out of planning.
			_ = e.tasks.UpdateStatus(task.ID, models.StatusInProgress, nil)
		}
	}

	if e.events != nil {
		e.events.Record("review.verdict", verdict.Message, map[string]any{
			"task":   task.ID,
			"status": string(verdict.Status),
		})
	}
	return decision
}

// reviewDiff builds the bounded prompt and invokes the analysis engine,
// converting every failure into a review_failed verdict with the static
// fallback commit message. Review failure must never block the host.
func (e *reviewEngine) reviewDiff(ctx context.Context, req CheckpointRequest, task *models.Task, diff string) models.ReviewVerdict {
	if e.cfg.SkipDiffBytes > 0 && len(diff) > e.cfg.SkipDiffBytes {
		// A diff this size would be truncated beyond usefulness; fail the
		// review up front instead of spending a call on it.
		return models.ReviewVerdict{
			Status:        models.VerdictReviewFailed,
			Message:       fmt.Sprintf("%s (%d bytes)", ErrDiffTooLarge, len(diff)),
			CommitMessage: FallbackWIPMessage,
		}
	}

	requirements := task.Title
	if len(task.Requirements) > 0 {
		requirements = strings.Join(task.Requirements, "\n")
	}
	requirements = capText(requirements, e.cfg.MaxRequirementsChars)

	recentContext := ""
	if req.TranscriptPath != "" && e.context != nil {
		if text, err := e.context.RecentContext(req.TranscriptPath, e.cfg.TranscriptTurns, e.cfg.MaxContextChars); err == nil {
			recentContext = text
		}
	}

	bounded := BoundDiff(diff, e.cfg.MaxDiffBytes)
	verdict, err := e.analyzer.Review(ctx, models.AnalysisRequest{
		TaskRequirements: requirements,
		RecentContext:    recentContext,
		Diff:             bounded.Diff,
	})
	if err != nil {
		return models.ReviewVerdict{
			Status:        models.VerdictReviewFailed,
			Message:       "review system error: " + err.Error(),
			CommitMessage: FallbackWIPMessage,
		}
	}
	return *verdict
}

// mapVerdict applies the verdict-to-action decision table.
func (e *reviewEngine) mapVerdict(verdict models.ReviewVerdict, forcedContinuation bool) models.ReviewDecision {
	decision := models.ReviewDecision{Verdict: verdict, AllowStop: true}

	switch verdict.Status {
	case models.VerdictOnTrack:
		// Allow stop; commit handled by the caller.
	case models.VerdictDeviation, models.VerdictNeedsVerification:
		// Keep the host working; the finding is never silently discarded.
		decision.AllowStop = false
	case models.VerdictCriticalFailure:
		// Continuing is judged unsafe: allow stop but surface prominently.
		decision.Notices = append(decision.Notices, "CRITICAL: "+verdict.Message)
	case models.VerdictReviewFailed:
		decision.Notices = append(decision.Notices, "review system error: "+verdict.Message)
	}

	if forcedContinuation && !decision.AllowStop {
		// Second pass: always allow the stop, report the finding as
		// information instead of blocking again.
		decision.AllowStop = true
		decision.Notices = append(decision.Notices, "review finding (not blocking): "+verdict.Message)
	}
	return decision
}

// commitAndAdvise stages and commits with the given message, then applies
// the non-task streak advisory. Returns whether the commit succeeded.
func (e *reviewEngine) commitAndAdvise(decision *models.ReviewDecision, message string) bool {
	if err := e.git.CommitAll(message); err != nil {
		decision.Notices = append(decision.Notices, "checkpoint commit failed: "+err.Error())
		return false
	}
	decision.Committed = true
	decision.CommitMessage = message

	if e.cfg.StreakAdvisory && !HasTaskReference(message) {
		if commits, err := e.git.RecentCommits(streakAdvisoryThreshold + 1); err == nil {
			subjects := make([]string, 0, len(commits))
			for _, c := range commits {
				subjects = append(subjects, c.Subject)
			}
			if CountConsecutiveNonTaskCommits(subjects) >= streakAdvisoryThreshold {
				decision.Notices = append(decision.Notices, planningAdvisory)
			}
		}
	}
	return true
}

func allowDecision(verdict models.ReviewVerdict) models.ReviewDecision {
	return models.ReviewDecision{Verdict: verdict, AllowStop: true}
}

// capText truncates s to at most max bytes, keeping the front and backing up
// so a multi-byte rune is never split.
func capText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
