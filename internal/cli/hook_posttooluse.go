package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/taskpilot-cli/taskpilot/internal/hooks"
)

var hookPostToolUseCmd = &cobra.Command{
	Use:   "post-tool-use",
	Short: "Handle PostToolUse hook events (non-blocking)",
	Long: `Track file modifications after a tool executes. Reads tool_name and
tool_input from stdin JSON and appends the touched file to the session
change tracker. Non-blocking: all errors are swallowed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if hooks.InsideHook() {
			return nil
		}
		if Config == nil || !Config.Hooks.Enabled || !Config.Hooks.PostToolUse {
			return nil
		}

		input, err := hooks.ParseStdin[hooks.PostToolUseInput](os.Stdin)
		if err != nil {
			return nil // Non-blocking, swallow errors.
		}

		path := input.FilePath()
		if path == "" {
			return nil
		}

		tracker := hooks.NewChangeTracker(BasePath)
		_ = tracker.Append(hooks.ChangeEntry{Tool: input.ToolName, FilePath: path})
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookPostToolUseCmd)
}
