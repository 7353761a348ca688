package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/taskpilot-cli/taskpilot/internal/hooks"
	"github.com/taskpilot-cli/taskpilot/internal/observability"
)

var hookSessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Handle SessionEnd hook events (non-blocking)",
	Long: `Clean up session state when the assistant session ends. Reads session
metadata from stdin JSON, records a session-end event, and removes the
session change tracker. Non-blocking: all errors are swallowed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if hooks.InsideHook() {
			return nil
		}
		if Config == nil || !Config.Hooks.Enabled || !Config.Hooks.SessionEnd {
			return nil
		}

		input, err := hooks.ParseStdin[hooks.SessionEndInput](os.Stdin)
		if err != nil {
			return nil // Non-blocking, swallow errors.
		}

		tracker := hooks.NewChangeTracker(BasePath)
		touched, _ := tracker.TouchedFiles()
		_ = tracker.Cleanup()

		if EventLog != nil {
			observability.Recorder{Log: EventLog}.Record("session.ended", input.SessionID, map[string]any{
				"files_touched": len(touched),
			})
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookSessionEndCmd)
}
