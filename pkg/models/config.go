package models

import "time"

// Config is the full taskpilot configuration, loaded from .taskpilot.yaml in
// the workspace root. Every field has a working default so the tool runs
// unconfigured.
type Config struct {
	// DefaultBranch is the branch completed task branches are merged into.
	DefaultBranch string `yaml:"default_branch" mapstructure:"default_branch"`

	Hooks      HookConfig       `yaml:"hooks" mapstructure:"hooks"`
	Review     ReviewConfig     `yaml:"review" mapstructure:"review"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
}

// HookConfig controls which hook events are handled.
type HookConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	Stop        bool `yaml:"stop" mapstructure:"stop"`
	PostToolUse bool `yaml:"post_tool_use" mapstructure:"post_tool_use"`
	SessionEnd  bool `yaml:"session_end" mapstructure:"session_end"`
}

// ReviewConfig bounds the checkpoint review prompt.
type ReviewConfig struct {
	// MaxDiffBytes is the DiffBounder budget for the prompt diff.
	MaxDiffBytes int `yaml:"max_diff_bytes" mapstructure:"max_diff_bytes"`
	// SkipDiffBytes is the hard upper threshold: an untruncated diff larger
	// than this fails the review up front instead of spending a call.
	SkipDiffBytes int `yaml:"skip_diff_bytes" mapstructure:"skip_diff_bytes"`
	// MaxRequirementsChars caps the task-requirements section of the prompt.
	MaxRequirementsChars int `yaml:"max_requirements_chars" mapstructure:"max_requirements_chars"`
	// MaxContextChars caps the recent-transcript section of the prompt.
	MaxContextChars int `yaml:"max_context_chars" mapstructure:"max_context_chars"`
	// TranscriptTurns is how many most-recent transcript turns to include.
	TranscriptTurns int `yaml:"transcript_turns" mapstructure:"transcript_turns"`
	// StreakAdvisory toggles the planning-mode suggestion after a run of
	// untracked checkpoint commits.
	StreakAdvisory bool `yaml:"streak_advisory" mapstructure:"streak_advisory"`
}

// AnalysisConfig describes the external analysis engine invocation.
type AnalysisConfig struct {
	// Command is the analysis CLI binary (e.g. "claude").
	Command string `yaml:"command" mapstructure:"command"`
	// Args are passed before the prompt (e.g. ["-p", "--output-format", "text"]).
	Args []string `yaml:"args" mapstructure:"args"`
	// Timeout bounds a single analysis call.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ValidationConfig holds the externally configured shell commands per check.
// Empty commands mean the check is not configured and passes automatically.
type ValidationConfig struct {
	TypeCheckCommand  string `yaml:"type_check_command" mapstructure:"type_check_command"`
	LintCommand       string `yaml:"lint_command" mapstructure:"lint_command"`
	LintFixCommand    string `yaml:"lint_fix_command" mapstructure:"lint_fix_command"`
	LintTool          string `yaml:"lint_tool" mapstructure:"lint_tool"` // biome, eslint, or generic
	TestCommand       string `yaml:"test_command" mapstructure:"test_command"`
	UnusedCodeCommand string `yaml:"unused_code_command" mapstructure:"unused_code_command"`
	// CommandTimeout bounds each validation subprocess.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// DefaultConfig returns the configuration used when no .taskpilot.yaml exists.
func DefaultConfig() Config {
	return Config{
		DefaultBranch: "main",
		Hooks: HookConfig{
			Enabled:     true,
			Stop:        true,
			PostToolUse: true,
			SessionEnd:  true,
		},
		Review: ReviewConfig{
			MaxDiffBytes:         30000,
			SkipDiffBytes:        200000,
			MaxRequirementsChars: 4000,
			MaxContextChars:      3000,
			TranscriptTurns:      6,
			StreakAdvisory:       true,
		},
		Analysis: AnalysisConfig{
			Command: "claude",
			Args:    []string{"-p"},
			Timeout: 60 * time.Second,
		},
		Validation: ValidationConfig{
			LintTool:       "generic",
			CommandTimeout: 5 * time.Minute,
		},
	}
}
