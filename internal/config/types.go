package config

// Config is the root configuration for agentcore.
type Config struct {
	OpenAI  OpenAIConfig  `yaml:"openai,omitempty"`
	Agent   AgentConfig   `yaml:"agent,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Memory  MemoryConfig  `yaml:"memory,omitempty"`
	Deploy  DeployConfig  `yaml:"deploy,omitempty"`
}

// OpenAIConfig holds the hosted model settings.
type OpenAIConfig struct {
	APIKey      string  `yaml:"apiKey,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	MaxTokens   int     `yaml:"maxTokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	BaseURL     string  `yaml:"baseUrl,omitempty"`
}

// AgentConfig controls the agent runner.
type AgentConfig struct {
	Name         string `yaml:"name,omitempty"`
	SystemPrompt string `yaml:"systemPrompt,omitempty"`
}

// ServerConfig controls the runtime HTTP server.
type ServerConfig struct {
	Host           string   `yaml:"host,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// TracingConfig toggles lifecycle tracing.
type TracingConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}

// MemoryConfig controls the memory tool and its backing store.
type MemoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"` // sqlite file; empty means <data>/memory.db
}

// IsEnabled reports whether the memory tool should be registered.
// An unset value counts as enabled.
func (m MemoryConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// DeployConfig holds container and cloud deployment settings.
type DeployConfig struct {
	Token        string `yaml:"token,omitempty"`
	Region       string `yaml:"region,omitempty"`
	Repository   string `yaml:"repository,omitempty"`
	Tag          string `yaml:"tag,omitempty"`
	Platform     string `yaml:"platform,omitempty"`
	Dockerfile   string `yaml:"dockerfile,omitempty"`
	AppName      string `yaml:"appName,omitempty"`
	InstanceSize string `yaml:"instanceSize,omitempty"`
	Registry     string `yaml:"registry,omitempty"`
	RegistryTier string `yaml:"registryTier,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"` // base URL used by `invoke`
	LocalPort    int    `yaml:"localPort,omitempty"`
	PollInterval int    `yaml:"pollIntervalSeconds,omitempty"`
	PollAttempts int    `yaml:"pollAttempts,omitempty"`
	BuilderName  string `yaml:"builderName,omitempty"`
}
