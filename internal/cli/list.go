package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List all tasks with id, status, branch, and title.

Optionally filter to a single status using --filter (e.g. --filter in_progress).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("task store not initialized")
		}

		tasks, err := Store.ListTasks()
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		if listFilter != "" {
			filtered := tasks[:0]
			for _, t := range tasks {
				if t.Status == models.TaskStatus(listFilter) {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		fmt.Printf("%-5s %-12s %-30s %s\n", "ID", "STATUS", "BRANCH", "TITLE")
		for _, t := range tasks {
			fmt.Printf("%-5s %-12s %-30s %s\n", t.ID, t.Status, t.BranchName, t.Title)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "", "Filter by status (planning, in_progress, completed)")
	rootCmd.AddCommand(listCmd)
}
