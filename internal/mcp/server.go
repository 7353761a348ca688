// Package mcp provides an MCP (Model Context Protocol) server that exposes
// taskpilot task state as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskpilot-cli/taskpilot/internal/storage"
	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// Server wraps the task store and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	store  storage.TaskStore
}

// NewServer creates a new MCP server over the given task store.
func NewServer(store storage.TaskStore, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{store: store}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "taskpilot", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the numeric task identifier (e.g. 007)"`
}

type taskOutput struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	Branch       string   `json:"branch"`
	Requirements []string `json:"requirements,omitempty"`
	Issue        string   `json:"issue,omitempty"`
	Created      string   `json:"created"`
	Completed    string   `json:"completed,omitempty"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter tasks by status (planning, in_progress, completed)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type getActiveTaskInput struct{}

type activeTaskOutput struct {
	Active bool        `json:"active"`
	Task   *taskOutput `json:"task,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get task details by id. Returns the full task including status, branch, and requirements.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks with an optional status filter. Returns an array of task summaries.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_active_task",
		Description: "Get the currently active task, if any. The active task is the one checkpoint reviews run against.",
	}, s.handleGetActiveTask)
}

// --- Tool handlers ---

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	task, err := s.store.LoadTask(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}

	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if input.Status != "" {
		valid := map[string]bool{"planning": true, "in_progress": true, "completed": true}
		if !valid[input.Status] {
			return errorResult(fmt.Sprintf("invalid status %q: must be one of planning, in_progress, completed", input.Status)), listTasksOutput{}, nil
		}
	}

	tasks, err := s.store.ListTasks()
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{Tasks: []taskOutput{}}
	for _, t := range tasks {
		if input.Status != "" && t.Status != models.TaskStatus(input.Status) {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)

	return nil, out, nil
}

func (s *Server) handleGetActiveTask(_ context.Context, _ *gomcp.CallToolRequest, _ getActiveTaskInput) (*gomcp.CallToolResult, activeTaskOutput, error) {
	task, err := s.store.ActiveTask()
	if err != nil {
		return errorResult(fmt.Sprintf("resolving active task: %s", err)), activeTaskOutput{}, nil
	}
	if task == nil {
		return nil, activeTaskOutput{Active: false}, nil
	}

	out := taskToOutput(task)
	return nil, activeTaskOutput{Active: true, Task: &out}, nil
}

// --- Helpers ---

func taskToOutput(t *models.Task) taskOutput {
	out := taskOutput{
		ID:           t.ID,
		Title:        t.Title,
		Status:       string(t.Status),
		Branch:       t.BranchName,
		Requirements: t.Requirements,
		Issue:        t.ExternalIssueRef,
		Created:      t.CreatedAt.Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		out.Completed = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
