package integration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// ErrNotAGitRepository is returned when the working directory is not inside a
// git work tree. It is the only unrecoverable git condition: callers
// short-circuit with a safe no-op instead of degrading per command.
var ErrNotAGitRepository = errors.New("not a git repository")

// GitPort abstracts the git subprocess calls taskpilot performs. All methods
// parse textual stdout; failures come back as wrapped errors, never panics.
type GitPort interface {
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
	State() (*models.GitState, error)
}

type gitPort struct {
	dir string
	run CommandRunner
}

// NewGitPort creates a GitPort operating on the repository at dir, executing
// git through the given runner.
func NewGitPort(dir string, run CommandRunner) GitPort {
	return &gitPort{dir: dir, run: run}
}

func (g *gitPort) git(args ...string) (string, error) {
	output, err := g.run(g.dir, "git", args...)
	if err != nil {
		return output, fmt.Errorf("git %s: %s: %w", args[0], FirstLine(output), err)
	}
	return output, nil
}

// IsRepository reports whether dir is inside a git work tree.
func (g *gitPort) IsRepository() bool {
	output, err := g.run(g.dir, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(output) == "true"
}

func (g *gitPort) CurrentBranch() (string, error) {
	output, err := g.git("branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

func (g *gitPort) HasUncommittedChanges() (bool, error) {
	output, err := g.git("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) != "", nil
}

func (g *gitPort) DiffHEAD() (string, error) {
	return g.git("diff", "HEAD")
}

// RecentCommits returns up to n commits reachable from HEAD, newest first.
// An empty repository (no HEAD yet) yields an empty slice, not an error.
func (g *gitPort) RecentCommits(n int) ([]models.Commit, error) {
	output, err := g.run(g.dir, "git", "log", "--oneline", fmt.Sprintf("-%d", n))
	if err != nil {
		if strings.Contains(output, "does not have any commits") {
			return nil, nil
		}
		return nil, fmt.Errorf("git log: %s: %w", FirstLine(output), err)
	}
	return parseOnelineLog(output), nil
}

// parseOnelineLog splits `git log --oneline` output into hash/subject pairs.
func parseOnelineLog(output string) []models.Commit {
	var commits []models.Commit
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hash, subject, found := strings.Cut(line, " ")
		if !found {
			hash, subject = line, ""
		}
		commits = append(commits, models.Commit{Hash: hash, Subject: subject})
	}
	return commits
}

func (g *gitPort) CreateBranch(name string) error {
	_, err := g.git("checkout", "-b", name)
	return err
}

func (g *gitPort) Checkout(name string) error {
	_, err := g.git("checkout", name)
	return err
}

// CommitAll stages everything and commits with the given message.
func (g *gitPort) CommitAll(message string) error {
	if _, err := g.git("add", "-A"); err != nil {
		return err
	}
	_, err := g.git("commit", "-m", message)
	return err
}

// Merge merges the given branch into the current one with a merge commit.
// The merged branch is never deleted.
func (g *gitPort) Merge(branch, message string) error {
	_, err := g.git("merge", branch, "--no-ff", "-m", message)
	return err
}

// CommitTree creates a commit object with the given tree and parent and
// returns its hash. Used by the squash path to collapse WIP history without
// touching the work tree contents.
func (g *gitPort) CommitTree(tree, parent, message string) (string, error) {
	output, err := g.git("commit-tree", tree, "-p", parent, "-m", message)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

func (g *gitPort) ResetHard(ref string) error {
	_, err := g.git("reset", "--hard", ref)
	return err
}

// State recomputes the live repository snapshot. It is never cached: callers
// need the state as of this call, not of an earlier one.
func (g *gitPort) State() (*models.GitState, error) {
	if !g.IsRepository() {
		return nil, ErrNotAGitRepository
	}
	branch, err := g.CurrentBranch()
	if err != nil {
		return nil, err
	}
	dirty, err := g.HasUncommittedChanges()
	if err != nil {
		return nil, err
	}
	commits, err := g.RecentCommits(20)
	if err != nil {
		return nil, err
	}
	subjects := make([]string, 0, len(commits))
	for _, c := range commits {
		subjects = append(subjects, c.Subject)
	}
	return &models.GitState{
		CurrentBranch:         branch,
		HasUncommittedChanges: dirty,
		RecentCommitSubjects:  subjects,
	}, nil
}
