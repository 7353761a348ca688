package models

// Commit pairs a commit hash with its subject line.
type Commit struct {
	Hash    string
	Subject string
}

// GitState is a point-in-time snapshot of the repository, recomputed on
// demand and never cached across calls.
type GitState struct {
	CurrentBranch         string
	HasUncommittedChanges bool
	RecentCommitSubjects  []string // newest first
}
