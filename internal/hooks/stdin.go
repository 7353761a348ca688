// Package hooks contains the host hook boundary: typed stdin envelopes, the
// stdout decision format, and the session change tracker.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// HookActiveEnv is set in the environment of every subprocess spawned while a
// hook is running. Hook entrypoints that see it exit immediately, so a tool
// invoked from inside a checkpoint can never re-trigger the same hook.
const HookActiveEnv = "TASKPILOT_HOOK_ACTIVE"

// InsideHook reports whether the current process was spawned from inside a
// running hook.
func InsideHook() bool {
	return os.Getenv(HookActiveEnv) != ""
}

// StopInput is the stdin JSON for Stop hook events (the checkpoint trigger).
type StopInput struct {
	SessionID string `json:"session_id"`
	// StopHookActive is true when the host is re-invoking the hook after a
	// previous block decision (forced-continuation retry).
	StopHookActive bool   `json:"stop_hook_active"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
}

// PostToolUseInput is the stdin JSON for PostToolUse hook events.
type PostToolUseInput struct {
	ToolName  string                 `json:"tool_name"`
	ToolInput map[string]interface{} `json:"tool_input"`
}

// FilePath returns the file_path from tool_input, or empty string if absent
// or non-string.
func (p PostToolUseInput) FilePath() string {
	if p.ToolInput == nil {
		return ""
	}
	fp, ok := p.ToolInput["file_path"].(string)
	if !ok {
		return ""
	}
	return fp
}

// SessionEndInput is the stdin JSON for SessionEnd hook events.
type SessionEndInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
}

// StopDecision is the stdout JSON reply to a Stop hook. An empty decision
// allows the host to stop; decision "block" keeps it working.
type StopDecision struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Block builds a blocking decision with the given reason.
func Block(reason string) StopDecision {
	return StopDecision{Decision: "block", Reason: reason}
}

// Write encodes the decision as JSON to w. An all-empty decision writes
// nothing, which the host treats as "allow".
func (d StopDecision) Write(w io.Writer) error {
	if d.Decision == "" && d.Reason == "" {
		return nil
	}
	return json.NewEncoder(w).Encode(d)
}

// ParseStdin reads JSON from the given reader into a new instance of T.
// Empty input yields a zero value rather than an error, since hosts may
// invoke hooks without an envelope.
func ParseStdin[T any](r io.Reader) (*T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		var zero T
		return &zero, nil
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing stdin JSON: %w", err)
	}
	return &result, nil
}
