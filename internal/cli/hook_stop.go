package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskpilot-cli/taskpilot/internal/core"
	"github.com/taskpilot-cli/taskpilot/internal/hooks"
)

var hookStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Handle Stop hook events (checkpoint review)",
	Long: `Run the checkpoint review when the assistant session stops.
Reads stop metadata from stdin JSON.

Reviews the uncommitted diff against the active task, commits on an
acceptable verdict, and replies with a block decision on stdout when the
session should keep working. Every failure degrades to allowing the stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// A hook fired by a subprocess of a running hook must not recurse.
		if hooks.InsideHook() {
			return nil
		}
		if Engine == nil || Config == nil || !Config.Hooks.Enabled || !Config.Hooks.Stop {
			return nil
		}

		input, err := hooks.ParseStdin[hooks.StopInput](os.Stdin)
		if err != nil {
			return nil // Never block the host on a malformed envelope.
		}

		decision := Engine.Checkpoint(cmd.Context(), core.CheckpointRequest{
			TranscriptPath:     input.TranscriptPath,
			ForcedContinuation: input.StopHookActive,
		})

		for _, notice := range decision.Notices {
			fmt.Fprintln(os.Stderr, notice)
		}
		if decision.Committed {
			fmt.Fprintf(os.Stderr, "Committed: %s\n", decision.CommitMessage)
		}

		if decision.AllowStop {
			return nil
		}

		reason := decision.Verdict.Message
		if decision.Verdict.Details != "" {
			reason = fmt.Sprintf("%s\n%s", reason, decision.Verdict.Details)
		}
		_ = hooks.Block(reason).Write(os.Stdout)
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookStopCmd)
}
