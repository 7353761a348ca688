package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "taskpilot",
	Short: "Taskpilot - task lifecycle and automated review for AI-assisted development",
	Long: `Taskpilot tracks git-backed tasks through an automated lifecycle: plans
become tasks on feature branches, session checkpoints review and commit
work in progress, and completion validates, squashes, and merges.

It integrates with AI coding assistants through stop/post-tool-use hooks
and exposes task state over MCP.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("taskpilot %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
