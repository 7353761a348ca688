package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskpilot-cli/taskpilot/internal/core"
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Validate, squash, and merge the active task",
	Long: `Run the validation gate against the active task and, when every
configured check passes, squash the WIP commit run into a single
TASK-referenced commit, merge the feature branch into the default
branch, and mark the task completed.

A failed gate reports the failing checks and leaves git state untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle not initialized")
		}

		result, err := Lifecycle.Complete(cmd.Context())
		if err != nil {
			if errors.Is(err, core.ErrNoActiveTask) {
				return fmt.Errorf("no active task (capture one with 'taskpilot plan')")
			}
			return err
		}

		for _, msg := range result.Messages {
			fmt.Println(msg)
		}

		if !result.Completed {
			return fmt.Errorf("task %s not ready for completion", result.Task.ID)
		}

		fmt.Printf("Completed task %s: %s\n", result.Task.ID, result.Task.Title)
		if result.Squashed {
			fmt.Println("WIP history squashed.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completeCmd)
}
