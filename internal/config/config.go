package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default values shared by Defaults and applyDefaults.
const (
	DefaultModel        = "gpt-4o-mini"
	DefaultMaxTokens    = 1000
	DefaultTemperature  = 0.7
	DefaultBaseURL      = "https://api.openai.com"
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8080
	DefaultRepository   = "openai-strands-agent"
	DefaultRegion       = "nyc"
	DefaultPlatform     = "linux/amd64"
	DefaultDockerfile   = "deployment/Dockerfile"
	DefaultInstanceSize = "apps-s-1vcpu-0.5gb"
	DefaultRegistry     = "agentcore"
	DefaultRegistryTier = "starter"
	DefaultBuilderName  = "agentcore-builder"
	DefaultPollInterval = 10
	DefaultPollAttempts = 12
)

// Defaults returns a Config with sensible defaults applied. Deploy.AppName
// is left empty; Load falls back to the repository name.
func Defaults() Config {
	return Config{
		OpenAI: OpenAIConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			BaseURL:     DefaultBaseURL,
		},
		Agent: AgentConfig{
			Name: "agentcore",
		},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
		Deploy: DeployConfig{
			Region:       DefaultRegion,
			Repository:   DefaultRepository,
			Tag:          "latest",
			Platform:     DefaultPlatform,
			Dockerfile:   DefaultDockerfile,
			InstanceSize: DefaultInstanceSize,
			Registry:     DefaultRegistry,
			RegistryTier: DefaultRegistryTier,
			LocalPort:    DefaultPort,
			PollInterval: DefaultPollInterval,
			PollAttempts: DefaultPollAttempts,
			BuilderName:  DefaultBuilderName,
		},
	}
}

// ListenAddr returns the host:port the runtime server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
