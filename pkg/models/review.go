package models

// VerdictStatus classifies the outcome of a checkpoint review.
type VerdictStatus string

const (
	VerdictOnTrack           VerdictStatus = "on_track"
	VerdictDeviation         VerdictStatus = "deviation"
	VerdictNeedsVerification VerdictStatus = "needs_verification"
	VerdictCriticalFailure   VerdictStatus = "critical_failure"
	VerdictReviewFailed      VerdictStatus = "review_failed"
)

// ReviewVerdict is the classification returned by the analysis engine for a
// single checkpoint. Verdicts are produced fresh on every checkpoint and are
// never persisted beyond the triggering commit.
type ReviewVerdict struct {
	Status        VerdictStatus `json:"status"`
	Message       string        `json:"message"`
	CommitMessage string        `json:"commitMessage"`
	Details       string        `json:"details,omitempty"`
}

// AnalysisRequest is the bounded input of a checkpoint review. All three
// fields are capped by the caller before they reach the analysis engine.
type AnalysisRequest struct {
	TaskRequirements string
	RecentContext    string
	Diff             string
}

// ReviewDecision is what the review engine hands back to the hook layer:
// whether the host may stop, whether a commit was made, and what to surface.
type ReviewDecision struct {
	Verdict       ReviewVerdict
	AllowStop     bool
	Committed     bool
	CommitMessage string
	// Notices are advisory one-liners surfaced to the user (e.g. the
	// planning-mode suggestion after a run of untracked commits).
	Notices []string
}
