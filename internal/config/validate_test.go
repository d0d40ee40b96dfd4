package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.OpenAI.APIKey = "sk-test"
	return cfg
}

func issuePaths(issues []ValidationIssue) []string {
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := validConfig()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "openai.apiKey", issues[0].Path)
	assert.Contains(t, issues[0].Message, "OPENAI_API_KEY")
}

func TestValidate_Port(t *testing.T) {
	tests := []struct {
		port  int
		valid bool
	}{
		{0, false},
		{-1, false},
		{65536, false},
		{1, true},
		{8080, true},
		{65535, true},
	}
	for _, tt := range tests {
		cfg := validConfig()
		cfg.Server.Port = tt.port
		issues := Validate(&cfg)
		if tt.valid {
			assert.Empty(t, issues, "port %d", tt.port)
		} else {
			assert.Contains(t, issuePaths(issues), "server.port", "port %d", tt.port)
		}
	}
}

func TestValidate_MaxTokens(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAI.MaxTokens = 0
	assert.Contains(t, issuePaths(Validate(&cfg)), "openai.maxTokens")
}

func TestValidate_Temperature(t *testing.T) {
	for _, temp := range []float64{0, 0.7, 2} {
		cfg := validConfig()
		cfg.OpenAI.Temperature = temp
		assert.Empty(t, Validate(&cfg), "temperature %g", temp)
	}
	for _, temp := range []float64{-0.1, 2.5} {
		cfg := validConfig()
		cfg.OpenAI.Temperature = temp
		assert.Contains(t, issuePaths(Validate(&cfg)), "openai.temperature", "temperature %g", temp)
	}
}

func TestValidate_BaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAI.BaseURL = "not a url"
	assert.Contains(t, issuePaths(Validate(&cfg)), "openai.baseUrl")
}

func TestValidate_LogLevelAndStyle(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	cfg.Logging.Style = "compact"
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "logging.style")
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.Empty(t, Validate(&cfg), "level %q", level)
	}
}

func TestValidate_MultipleIssues(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.OpenAI.MaxTokens = -5
	assert.Len(t, Validate(&cfg), 3)
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "server.port", Message: "bad port"}
	assert.Equal(t, "server.port: bad port", issue.String())
}

func TestValidateDeploy(t *testing.T) {
	cfg := Defaults()
	applyDefaults(&cfg)
	issues := ValidateDeploy(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "deploy.token", issues[0].Path)

	cfg.Deploy.Token = "dop_v1_x"
	assert.Empty(t, ValidateDeploy(&cfg))

	cfg.Deploy.PollAttempts = 0
	cfg.Deploy.AppName = ""
	paths := issuePaths(ValidateDeploy(&cfg))
	assert.Contains(t, paths, "deploy.pollAttempts")
	assert.Contains(t, paths, "deploy.appName")
}
