// Package internal provides the App struct that wires all components of
// taskpilot together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/taskpilot-cli/taskpilot/internal/cli"
	"github.com/taskpilot-cli/taskpilot/internal/core"
	"github.com/taskpilot-cli/taskpilot/internal/integration"
	"github.com/taskpilot-cli/taskpilot/internal/observability"
	"github.com/taskpilot-cli/taskpilot/internal/storage"
	"github.com/taskpilot-cli/taskpilot/internal/validation"
	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// eventLogFile is the append-only JSONL event log in the workspace root.
const eventLogFile = ".taskpilot_events.jsonl"

// App holds all service dependencies for taskpilot.
type App struct {
	BasePath string
	Config   *models.Config

	// Storage layer
	Store storage.TaskStore

	// Integration services
	Runner   integration.CommandRunner
	Git      integration.GitPort
	Analysis integration.AnalysisPort

	// Core services
	Engine    core.ReviewEngine
	Lifecycle core.TaskLifecycle

	// Validation
	Gate validation.Gate

	// Observability
	EventLog observability.EventLog
}

// NewApp creates and wires all components of taskpilot. basePath is the
// workspace root (typically the repository root containing .taskpilot.yaml).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	cfg, err := core.NewConfigLoader(basePath).Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	app.Config = cfg

	// --- Storage layer ---
	app.Store = storage.NewTaskStore(basePath)

	// --- Integration services ---
	app.Runner = integration.NewCommandRunner(cfg.Validation.CommandTimeout)
	app.Git = integration.NewGitPort(basePath, app.Runner)
	app.Analysis = integration.NewAnalysisPort(basePath, cfg.Analysis)
	contextSrc := integration.NewSessionContextSource()

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, eventLogFile))
	if err != nil {
		// Non-fatal: run without event recording.
		app.EventLog = nil
	}
	recorder := observability.Recorder{Log: app.EventLog}

	// --- Validation gate ---
	app.Gate = validation.NewGate(basePath, cfg.Validation, app.Git, app.Runner)

	// --- Core services ---
	app.Engine = core.NewReviewEngine(app.Git, app.Analysis, app.Store, contextSrc, recorder, cfg.Review)
	app.Lifecycle = core.NewTaskLifecycle(app.Git, app.Store, app.Gate, app.Analysis, recorder, cfg.DefaultBranch)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Store = app.Store
	cli.GitPort = app.Git
	cli.Engine = app.Engine
	cli.Lifecycle = app.Lifecycle
	cli.EventLog = app.EventLog

	return app, nil
}

// Close releases resources held by the App, such as the event log file
// handle. Safe to call when EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the workspace root. It checks the
// TASKPILOT_HOME env var, then walks up from the current directory looking
// for .taskpilot.yaml, falling back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("TASKPILOT_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".taskpilot.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
