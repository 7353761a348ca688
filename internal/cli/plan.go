package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var planFile string

var planCmd = &cobra.Command{
	Use:   "plan [text]",
	Short: "Capture an approved plan as a tracked task",
	Long: `Turn an approved plan into a tracked task: assigns the next task id,
archives the raw plan, creates the task file and feature branch, and
marks the task active.

The plan text is taken from the argument, from --file, or from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle not initialized")
		}

		planText, err := readPlanText(args)
		if err != nil {
			return err
		}

		task, err := Lifecycle.CreateFromPlan(cmd.Context(), planText)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		fmt.Printf("Created task %s: %s\n", task.ID, task.Title)
		fmt.Printf("Branch: %s\n", task.BranchName)
		if len(task.Requirements) > 0 {
			fmt.Printf("Requirements: %d\n", len(task.Requirements))
		}
		return nil
	},
}

// readPlanText resolves the plan text from the argument, --file, or stdin,
// in that order.
func readPlanText(args []string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if planFile != "" {
		data, err := os.ReadFile(planFile) //nolint:gosec // G304: path from trusted CLI input
		if err != nil {
			return "", fmt.Errorf("reading plan file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading plan from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("no plan text provided (pass an argument, --file, or pipe to stdin)")
	}
	return string(data), nil
}

func init() {
	planCmd.Flags().StringVar(&planFile, "file", "", "Read the plan text from a file")
	rootCmd.AddCommand(planCmd)
}
