// Package storage owns the persisted task and plan records and the single
// active-task pointer. No other component writes these files.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	tasksDir          = "tasks"
	plansDir          = "plans"
	activePointerFile = "ACTIVE_TASK"
	// noActiveTask is the pointer sentinel for "no active task".
	noActiveTask = "none"
	// idPadWidth is the zero-padding width of task ids ("007").
	idPadWidth = 3
)

// taskFilePattern matches task record filenames: a zero-padded numeric id,
// a dash, and a slug.
var taskFilePattern = regexp.MustCompile(`^(\d+)-[a-z0-9-]*\.md$`)

// TaskStore reads and writes task records as human-readable markdown files,
// assigns monotonic ids, and maintains the active-task pointer.
type TaskStore interface {
	// NextID returns 1 + the highest numeric id found among existing task
	// records, zero-padded (the first task is "001").
	NextID() (string, error)
	// CreateTask persists a new task record and fills in task.FilePath.
	CreateTask(task *models.Task) error
	// SavePlan persists an immutable plan record alongside its task.
	SavePlan(plan models.Plan) error
	LoadTask(id string) (*models.Task, error)
	ListTasks() ([]*models.Task, error)
	// UpdateStatus rewrites the status line (and completion timestamp) of an
	// existing record.
	UpdateStatus(id string, status models.TaskStatus, completedAt *time.Time) error
	// SetActiveTask points the active-task pointer at the given task. The
	// pointer names at most one task; setting it replaces any previous value.
	SetActiveTask(id string) error
	// ClearActiveTask resets the pointer to the no-active-task sentinel.
	ClearActiveTask() error
	// ActiveTask resolves the pointer. Returns (nil, nil) when no task is
	// active.
	ActiveTask() (*models.Task, error)
}

type fileTaskStore struct {
	basePath string
}

// NewTaskStore creates a TaskStore rooted at basePath.
func NewTaskStore(basePath string) TaskStore {
	return &fileTaskStore{basePath: basePath}
}

func (s *fileTaskStore) tasksPath() string   { return filepath.Join(s.basePath, tasksDir) }
func (s *fileTaskStore) plansPath() string   { return filepath.Join(s.basePath, plansDir) }
func (s *fileTaskStore) pointerPath() string { return filepath.Join(s.tasksPath(), activePointerFile) }

// NextID scans existing task records for the highest numeric id.
func (s *fileTaskStore) NextID() (string, error) {
	entries, err := os.ReadDir(s.tasksPath())
	if err != nil {
		if os.IsNotExist(err) {
			return formatID(1), nil
		}
		return "", fmt.Errorf("scanning task records: %w", err)
	}

	maxID := 0
	for _, entry := range entries {
		m := taskFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > maxID {
			maxID = n
		}
	}
	return formatID(maxID + 1), nil
}

func formatID(n int) string {
	return fmt.Sprintf("%0*d", idPadWidth, n)
}

// slugify converts a title into a lowercase dash-separated filename slug.
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		slug = "task"
	}
	return slug
}

// CreateTask renders and writes the markdown record for a new task.
func (s *fileTaskStore) CreateTask(task *models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("creating task: id must not be empty")
	}
	if err := os.MkdirAll(s.tasksPath(), 0o750); err != nil {
		return fmt.Errorf("creating task directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.md", task.ID, slugify(task.Title))
	path := filepath.Join(s.tasksPath(), name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("creating task: record %s already exists", name)
	}

	if err := os.WriteFile(path, []byte(renderTask(task)), 0o644); err != nil {
		return fmt.Errorf("writing task record: %w", err)
	}
	task.FilePath = path
	return nil
}

// renderTask produces the human-readable record: heading title, status
// field, requirements checklist, and trailing HTML-comment metadata. The
// format stays diffable as plain text while remaining parseable via simple
// line patterns.
func renderTask(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", task.Title)
	fmt.Fprintf(&b, "**Status:** %s\n\n", task.Status)
	b.WriteString("## Requirements\n\n")
	for _, req := range task.Requirements {
		fmt.Fprintf(&b, "- [ ] %s\n", req)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "<!-- created: %s -->\n", task.CreatedAt.UTC().Format(time.RFC3339))
	if task.CompletedAt != nil {
		fmt.Fprintf(&b, "<!-- completed: %s -->\n", task.CompletedAt.UTC().Format(time.RFC3339))
	}
	if task.BranchName != "" {
		fmt.Fprintf(&b, "<!-- branch: %s -->\n", task.BranchName)
	}
	if task.ExternalIssueRef != "" {
		fmt.Fprintf(&b, "<!-- issue: %s -->\n", task.ExternalIssueRef)
	}
	return b.String()
}

// SavePlan writes the immutable plan record as YAML.
func (s *fileTaskStore) SavePlan(plan models.Plan) error {
	if err := os.MkdirAll(s.plansPath(), 0o750); err != nil {
		return fmt.Errorf("creating plan directory: %w", err)
	}
	path := filepath.Join(s.plansPath(), plan.ID+"-plan.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("saving plan: record for %s already exists", plan.ID)
	}
	data, err := yaml.Marshal(&plan)
	if err != nil {
		return fmt.Errorf("saving plan: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving plan: writing file: %w", err)
	}
	return nil
}

// LoadTask finds the record for the given id and parses it.
func (s *fileTaskStore) LoadTask(id string) (*models.Task, error) {
	name, err := s.fileForID(id)
	if err != nil {
		return nil, err
	}
	return s.parseTaskFile(name)
}

func (s *fileTaskStore) fileForID(id string) (string, error) {
	entries, err := os.ReadDir(s.tasksPath())
	if err != nil {
		return "", fmt.Errorf("scanning task records: %w", err)
	}
	for _, entry := range entries {
		m := taskFilePattern.FindStringSubmatch(entry.Name())
		if m != nil && m[1] == id {
			return entry.Name(), nil
		}
	}
	return "", fmt.Errorf("task %s not found", id)
}

var (
	statusLinePattern = regexp.MustCompile(`^\*\*Status:\*\*\s*(\S+)`)
	metaLinePattern   = regexp.MustCompile(`^<!--\s*(\w+):\s*(.*?)\s*-->$`)
	checklistPattern  = regexp.MustCompile(`^- \[[ xX]\]\s*(.*)$`)
)

// parseTaskFile reads one markdown record by filename.
func (s *fileTaskStore) parseTaskFile(name string) (*models.Task, error) {
	path := filepath.Join(s.tasksPath(), name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task record %s: %w", name, err)
	}

	m := taskFilePattern.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("task record %s: filename carries no id", name)
	}

	task := &models.Task{ID: m[1], FilePath: path, Status: models.StatusPlanning}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "# ") && task.Title == "":
			task.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		case statusLinePattern.MatchString(line):
			task.Status = models.TaskStatus(statusLinePattern.FindStringSubmatch(line)[1])
		case checklistPattern.MatchString(line):
			task.Requirements = append(task.Requirements, checklistPattern.FindStringSubmatch(line)[1])
		case metaLinePattern.MatchString(line):
			kv := metaLinePattern.FindStringSubmatch(line)
			switch kv[1] {
			case "branch":
				task.BranchName = kv[2]
			case "issue":
				task.ExternalIssueRef = kv[2]
			case "created":
				if t, err := time.Parse(time.RFC3339, kv[2]); err == nil {
					task.CreatedAt = t
				}
			case "completed":
				if t, err := time.Parse(time.RFC3339, kv[2]); err == nil {
					completed := t
					task.CompletedAt = &completed
				}
			}
		}
	}
	return task, nil
}

// ListTasks returns all task records ordered by id.
func (s *fileTaskStore) ListTasks() ([]*models.Task, error) {
	entries, err := os.ReadDir(s.tasksPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning task records: %w", err)
	}

	var tasks []*models.Task
	for _, entry := range entries {
		if !taskFilePattern.MatchString(entry.Name()) {
			continue
		}
		task, err := s.parseTaskFile(entry.Name())
		if err != nil {
			continue // Skip unreadable records.
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// UpdateStatus rewrites the record in place, mutating only the status line
// and the completion metadata.
func (s *fileTaskStore) UpdateStatus(id string, status models.TaskStatus, completedAt *time.Time) error {
	name, err := s.fileForID(id)
	if err != nil {
		return err
	}
	path := filepath.Join(s.tasksPath(), name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading task record %s: %w", name, err)
	}

	lines := strings.Split(string(data), "\n")
	statusRewritten := false
	completedSeen := false
	for i, line := range lines {
		if statusLinePattern.MatchString(line) {
			lines[i] = fmt.Sprintf("**Status:** %s", status)
			statusRewritten = true
		}
		if kv := metaLinePattern.FindStringSubmatch(line); kv != nil && kv[1] == "completed" {
			completedSeen = true
			if completedAt != nil {
				lines[i] = fmt.Sprintf("<!-- completed: %s -->", completedAt.UTC().Format(time.RFC3339))
			}
		}
	}
	if !statusRewritten {
		return fmt.Errorf("task record %s has no status line", name)
	}
	if completedAt != nil && !completedSeen {
		lines = append(lines, fmt.Sprintf("<!-- completed: %s -->", completedAt.UTC().Format(time.RFC3339)))
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("rewriting task record %s: %w", name, err)
	}
	return nil
}

// SetActiveTask writes the pointer file. The pointer is the sole source of
// truth for "what am I working on" and always resolves to zero or one task.
func (s *fileTaskStore) SetActiveTask(id string) error {
	name, err := s.fileForID(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.pointerPath(), []byte(name+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing active-task pointer: %w", err)
	}
	return nil
}

// ClearActiveTask resets the pointer to the sentinel.
func (s *fileTaskStore) ClearActiveTask() error {
	if err := os.MkdirAll(s.tasksPath(), 0o750); err != nil {
		return fmt.Errorf("creating task directory: %w", err)
	}
	if err := os.WriteFile(s.pointerPath(), []byte(noActiveTask+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing active-task pointer: %w", err)
	}
	return nil
}

// ActiveTask resolves the pointer to a task, or (nil, nil) when the pointer
// is absent or holds the sentinel.
func (s *fileTaskStore) ActiveTask() (*models.Task, error) {
	data, err := os.ReadFile(s.pointerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading active-task pointer: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" || name == noActiveTask {
		return nil, nil
	}
	task, err := s.parseTaskFile(name)
	if err != nil {
		return nil, fmt.Errorf("resolving active-task pointer: %w", err)
	}
	return task, nil
}
