package models

import "time"

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusPlanning   TaskStatus = "planning"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Task represents a unit of tracked work identified by a zero-padded numeric
// id (e.g. "007"), one per git feature branch. Tasks are archived in place
// when completed, never deleted.
type Task struct {
	ID               string     `yaml:"id"`
	Title            string     `yaml:"title"`
	Status           TaskStatus `yaml:"status"`
	BranchName       string     `yaml:"branch"`
	FilePath         string     `yaml:"file_path"`
	Requirements     []string   `yaml:"requirements,omitempty"`
	ExternalIssueRef string     `yaml:"issue,omitempty"`
	CreatedAt        time.Time  `yaml:"created"`
	CompletedAt      *time.Time `yaml:"completed,omitempty"`
}

// TaskRef formats the commit-message token for a task id, e.g. "TASK_007".
func (t Task) TaskRef() string {
	return "TASK_" + t.ID
}

// Plan is the immutable record of an approved plan. One Plan precedes
// exactly one Task; they are created together.
type Plan struct {
	ID         string    `yaml:"id"`
	CapturedAt time.Time `yaml:"captured"`
	RawText    string    `yaml:"raw_text"`
}
