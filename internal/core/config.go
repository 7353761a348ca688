package core

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/taskpilot-cli/taskpilot/pkg/models"
)

// ConfigLoader reads the .taskpilot.yaml configuration file.
type ConfigLoader interface {
	Load() (*models.Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	basePath string
}

// NewConfigLoader creates a ConfigLoader reading .taskpilot.yaml from
// basePath.
func NewConfigLoader(basePath string) ConfigLoader {
	return &viperConfigLoader{basePath: basePath}
}

// Load reads the config file, falling back to full defaults when it does
// not exist. Missing keys fall back individually via Viper defaults.
func (cl *viperConfigLoader) Load() (*models.Config, error) {
	cfg := models.DefaultConfig()

	v := viper.New()
	v.SetConfigName(".taskpilot")
	v.SetConfigType("yaml")
	v.AddConfigPath(cl.basePath)

	v.SetDefault("default_branch", cfg.DefaultBranch)
	v.SetDefault("hooks.enabled", cfg.Hooks.Enabled)
	v.SetDefault("hooks.stop", cfg.Hooks.Stop)
	v.SetDefault("hooks.post_tool_use", cfg.Hooks.PostToolUse)
	v.SetDefault("hooks.session_end", cfg.Hooks.SessionEnd)
	v.SetDefault("review.max_diff_bytes", cfg.Review.MaxDiffBytes)
	v.SetDefault("review.skip_diff_bytes", cfg.Review.SkipDiffBytes)
	v.SetDefault("review.max_requirements_chars", cfg.Review.MaxRequirementsChars)
	v.SetDefault("review.max_context_chars", cfg.Review.MaxContextChars)
	v.SetDefault("review.transcript_turns", cfg.Review.TranscriptTurns)
	v.SetDefault("review.streak_advisory", cfg.Review.StreakAdvisory)
	v.SetDefault("analysis.command", cfg.Analysis.Command)
	v.SetDefault("analysis.args", cfg.Analysis.Args)
	v.SetDefault("analysis.timeout", cfg.Analysis.Timeout.String())
	v.SetDefault("validation.type_check_command", cfg.Validation.TypeCheckCommand)
	v.SetDefault("validation.lint_command", cfg.Validation.LintCommand)
	v.SetDefault("validation.lint_fix_command", cfg.Validation.LintFixCommand)
	v.SetDefault("validation.lint_tool", cfg.Validation.LintTool)
	v.SetDefault("validation.test_command", cfg.Validation.TestCommand)
	v.SetDefault("validation.unused_code_command", cfg.Validation.UnusedCodeCommand)
	v.SetDefault("validation.command_timeout", cfg.Validation.CommandTimeout.String())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading .taskpilot.yaml: %w", err)
	}

	cfg.DefaultBranch = v.GetString("default_branch")
	cfg.Hooks.Enabled = v.GetBool("hooks.enabled")
	cfg.Hooks.Stop = v.GetBool("hooks.stop")
	cfg.Hooks.PostToolUse = v.GetBool("hooks.post_tool_use")
	cfg.Hooks.SessionEnd = v.GetBool("hooks.session_end")
	cfg.Review.MaxDiffBytes = v.GetInt("review.max_diff_bytes")
	cfg.Review.SkipDiffBytes = v.GetInt("review.skip_diff_bytes")
	cfg.Review.MaxRequirementsChars = v.GetInt("review.max_requirements_chars")
	cfg.Review.MaxContextChars = v.GetInt("review.max_context_chars")
	cfg.Review.TranscriptTurns = v.GetInt("review.transcript_turns")
	cfg.Review.StreakAdvisory = v.GetBool("review.streak_advisory")
	cfg.Analysis.Command = v.GetString("analysis.command")
	cfg.Analysis.Args = v.GetStringSlice("analysis.args")
	cfg.Analysis.Timeout = parseDuration(v.GetString("analysis.timeout"), cfg.Analysis.Timeout)
	cfg.Validation.TypeCheckCommand = v.GetString("validation.type_check_command")
	cfg.Validation.LintCommand = v.GetString("validation.lint_command")
	cfg.Validation.LintFixCommand = v.GetString("validation.lint_fix_command")
	cfg.Validation.LintTool = v.GetString("validation.lint_tool")
	cfg.Validation.TestCommand = v.GetString("validation.test_command")
	cfg.Validation.UnusedCodeCommand = v.GetString("validation.unused_code_command")
	cfg.Validation.CommandTimeout = parseDuration(v.GetString("validation.command_timeout"), cfg.Validation.CommandTimeout)

	return &cfg, nil
}

// parseDuration parses a duration string, returning fallback on failure or
// empty input.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
