package cli

import (
	"github.com/taskpilot-cli/taskpilot/internal/core"
	"github.com/taskpilot-cli/taskpilot/internal/integration"
	"github.com/taskpilot-cli/taskpilot/internal/observability"
	"github.com/taskpilot-cli/taskpilot/internal/storage"
	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.Config

	Lifecycle core.TaskLifecycle
	Engine    core.ReviewEngine

	Store   storage.TaskStore
	GitPort integration.GitPort

	EventLog observability.EventLog
)
