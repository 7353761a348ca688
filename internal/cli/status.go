package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/taskpilot-cli/taskpilot/internal/core"
	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

var (
	statusLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	statusCleanStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusDirtyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusWIPStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active task and working tree state",
	Long: `Display the active task, its branch, working tree cleanliness, and
the recent commit subjects with WIP commits marked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil || GitPort == nil {
			return fmt.Errorf("services not initialized")
		}

		task, err := Store.ActiveTask()
		if err != nil {
			return fmt.Errorf("resolving active task: %w", err)
		}
		if task == nil {
			fmt.Println("No active task.")
		} else {
			fmt.Printf("%s %s: %s\n", statusLabelStyle.Render("Active task"), task.ID, task.Title)
			fmt.Printf("%s %s (%s)\n", statusLabelStyle.Render("Branch"), task.BranchName, task.Status)
			printRequirements(task)
		}

		if !GitPort.IsRepository() {
			fmt.Println("\nNot inside a git repository.")
			return nil
		}

		state, err := GitPort.State()
		if err != nil {
			return fmt.Errorf("reading git state: %w", err)
		}
		fmt.Printf("\n%s %s\n", statusLabelStyle.Render("Git branch"), state.CurrentBranch)
		if state.HasUncommittedChanges {
			fmt.Println(statusDirtyStyle.Render("Working tree: uncommitted changes"))
		} else {
			fmt.Println(statusCleanStyle.Render("Working tree: clean"))
		}

		if len(state.RecentCommitSubjects) > 0 {
			fmt.Printf("\n%s\n", statusLabelStyle.Render("Recent commits"))
			for _, subject := range state.RecentCommitSubjects {
				line := "  " + subject
				if core.IsWIPCommit(subject) {
					line = statusWIPStyle.Render(line)
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func printRequirements(task *models.Task) {
	if len(task.Requirements) == 0 {
		return
	}
	fmt.Printf("%s\n", statusLabelStyle.Render("Requirements"))
	for _, req := range task.Requirements {
		fmt.Printf("  - %s\n", strings.TrimSpace(req))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
