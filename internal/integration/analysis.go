package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/taskpilot-cli/taskpilot/internal/hooks"
	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// ErrAnalysisTimeout is returned when the analysis engine does not answer
// within the configured timeout.
var ErrAnalysisTimeout = errors.New("analysis call timed out")

// ErrMalformedVerdict is returned when the analysis engine's response
// contains no parseable verdict object.
var ErrMalformedVerdict = errors.New("analysis response contained no verdict")

// AnalysisPort abstracts the external review/classification engine. The
// engine is a black box: given a bounded prompt it returns free text that
// must contain a verdict object, or fails.
type AnalysisPort interface {
	// Review classifies the current changes against the task requirements.
	Review(ctx context.Context, req models.AnalysisRequest) (*models.ReviewVerdict, error)
	// GenerateText asks the engine for a short free-text completion, used
	// for commit messages and branch names.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// analysisExecFn runs the analysis CLI; injectable for tests.
type analysisExecFn func(ctx context.Context, dir, name string, args ...string) (string, error)

type cliAnalysisPort struct {
	dir  string
	cfg  models.AnalysisConfig
	exec analysisExecFn
}

// NewAnalysisPort creates an AnalysisPort that shells out to the configured
// analysis CLI (e.g. `claude -p <prompt>`) from the given directory.
func NewAnalysisPort(dir string, cfg models.AnalysisConfig) AnalysisPort {
	return &cliAnalysisPort{dir: dir, cfg: cfg, exec: runAnalysisCommand}
}

// newAnalysisPortWithExec creates an AnalysisPort with an injectable exec
// function for testing.
func newAnalysisPortWithExec(dir string, cfg models.AnalysisConfig, fn analysisExecFn) AnalysisPort {
	return &cliAnalysisPort{dir: dir, cfg: cfg, exec: fn}
}

// runAnalysisCommand executes the analysis CLI. On context expiry the process
// is first asked to stop with an interrupt; only if it lingers past the wait
// delay is it killed.
func runAnalysisCommand(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), hooks.HookActiveEnv+"=1")
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 5 * time.Second

	output, err := cmd.CombinedOutput()
	return string(output), err
}

const reviewPromptFormat = `You are reviewing an automated checkpoint of a software task.

Task requirements:
%s

Recent session context:
%s

Current diff:
%s

Classify whether the changes stay aligned with the task requirements.
Respond with a single JSON object and nothing else:
{"status": "on_track|deviation|needs_verification|critical_failure", "message": "<one sentence for the developer>", "commitMessage": "<conventional commit subject for these changes, prefixed with [wip]>", "details": "<optional specifics>"}`

// Review builds the bounded prompt, invokes the engine under the configured
// timeout, and parses the verdict, tolerating responses that wrap the JSON
// object in prose.
func (p *cliAnalysisPort) Review(ctx context.Context, req models.AnalysisRequest) (*models.ReviewVerdict, error) {
	prompt := fmt.Sprintf(reviewPromptFormat, req.TaskRequirements, req.RecentContext, req.Diff)

	output, err := p.invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	verdict, err := parseVerdict(output)
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

// GenerateText invokes the engine with a plain prompt and returns the first
// line of its reply.
func (p *cliAnalysisPort) GenerateText(ctx context.Context, prompt string) (string, error) {
	output, err := p.invoke(ctx, prompt)
	if err != nil {
		return "", err
	}
	line := FirstLine(output)
	if line == "" {
		return "", fmt.Errorf("analysis returned empty text")
	}
	return line, nil
}

func (p *cliAnalysisPort) invoke(ctx context.Context, prompt string) (string, error) {
	timeout := p.cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := make([]string, 0, len(p.cfg.Args)+1)
	args = append(args, p.cfg.Args...)
	args = append(args, prompt)

	output, err := p.exec(ctx, p.dir, p.cfg.Command, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrAnalysisTimeout
		}
		return "", fmt.Errorf("invoking %s: %s: %w", p.cfg.Command, FirstLine(output), err)
	}
	return output, nil
}

// validVerdictStatuses are the statuses the engine itself may produce.
// review_failed is synthesized locally and never accepted from the wire.
var validVerdictStatuses = map[models.VerdictStatus]bool{
	models.VerdictOnTrack:           true,
	models.VerdictDeviation:         true,
	models.VerdictNeedsVerification: true,
	models.VerdictCriticalFailure:   true,
}

// parseVerdict decodes a verdict from the engine's raw output. The output
// may be the bare JSON object or prose with an embedded object; the first
// balanced JSON object that decodes to a known status wins.
func parseVerdict(output string) (*models.ReviewVerdict, error) {
	trimmed := strings.TrimSpace(output)

	var verdict models.ReviewVerdict
	if err := json.Unmarshal([]byte(trimmed), &verdict); err == nil && validVerdictStatuses[verdict.Status] {
		return &verdict, nil
	}

	for _, candidate := range embeddedJSONObjects(trimmed) {
		var v models.ReviewVerdict
		if err := json.Unmarshal([]byte(candidate), &v); err == nil && validVerdictStatuses[v.Status] {
			return &v, nil
		}
	}

	return nil, ErrMalformedVerdict
}

// embeddedJSONObjects returns every balanced top-level {...} substring of s,
// in order of appearance. Brace matching honors JSON string literals so a
// brace inside a quoted message does not end an object.
func embeddedJSONObjects(s string) []string {
	var objects []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					objects = append(objects, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return objects
}
