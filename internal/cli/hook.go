package cli

import (
	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle AI assistant hook events",
	Long: `Process hook events from the AI coding assistant host.

Each subcommand handles a specific hook type by reading JSON from stdin:
stop runs the checkpoint review, post-tool-use tracks file modifications,
and session-end cleans up session state.

These commands are wired into the host's hook configuration and are not
normally invoked by hand.`,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
