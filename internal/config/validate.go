package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

var (
	validLogLevels = []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	validLogStyles = []string{"pretty", "json"}
)

// Validate checks the settings needed to serve invocations.
// Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.OpenAI.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "openai.apiKey",
			Message: "OPENAI_API_KEY environment variable is required",
		})
	}
	if cfg.OpenAI.Model == "" {
		issues = append(issues, ValidationIssue{
			Path:    "openai.model",
			Message: "model is required",
		})
	}
	if cfg.OpenAI.MaxTokens <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "openai.maxTokens",
			Message: fmt.Sprintf("must be greater than 0, got %d", cfg.OpenAI.MaxTokens),
		})
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		issues = append(issues, ValidationIssue{
			Path:    "openai.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", cfg.OpenAI.Temperature),
		})
	}
	if u, err := url.Parse(cfg.OpenAI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, ValidationIssue{
			Path:    "openai.baseUrl",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.OpenAI.BaseURL),
		})
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 1-65535, got %d", cfg.Server.Port),
		})
	}

	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	if cfg.Logging.Style != "" && !slices.Contains(validLogStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogStyles, cfg.Logging.Style),
		})
	}

	return issues
}

// ValidateDeploy checks the settings needed by the cloud deployment commands.
func ValidateDeploy(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	dep := cfg.Deploy

	if dep.Token == "" {
		issues = append(issues, ValidationIssue{
			Path:    "deploy.token",
			Message: "DIGITALOCEAN_TOKEN environment variable is required",
		})
	}
	if dep.Repository == "" {
		issues = append(issues, ValidationIssue{Path: "deploy.repository", Message: "repository is required"})
	}
	if dep.AppName == "" {
		issues = append(issues, ValidationIssue{Path: "deploy.appName", Message: "app name is required"})
	}
	if dep.PollInterval <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "deploy.pollIntervalSeconds",
			Message: fmt.Sprintf("must be greater than 0, got %d", dep.PollInterval),
		})
	}
	if dep.PollAttempts <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "deploy.pollAttempts",
			Message: fmt.Sprintf("must be greater than 0, got %d", dep.PollAttempts),
		})
	}
	return issues
}
