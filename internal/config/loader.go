package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields resolves ${ENV_VAR} references in credential fields.
func expandSensitiveFields(cfg *Config) {
	cfg.OpenAI.APIKey = expandEnvVars(cfg.OpenAI.APIKey)
	cfg.Deploy.Token = expandEnvVars(cfg.Deploy.Token)
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &ConfigError{Message: "failed to read env file " + path + ": " + err.Error()}
	}
	return nil
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults plus environment only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields left empty by the YAML file.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = d.OpenAI.Model
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = d.OpenAI.MaxTokens
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = d.OpenAI.BaseURL
	}
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = d.Agent.Name
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = d.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = d.Server.Port
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = d.Logging.Style
	}

	dep := &cfg.Deploy
	if dep.Region == "" {
		dep.Region = d.Deploy.Region
	}
	if dep.Repository == "" {
		dep.Repository = d.Deploy.Repository
	}
	if dep.Tag == "" {
		dep.Tag = d.Deploy.Tag
	}
	if dep.Platform == "" {
		dep.Platform = d.Deploy.Platform
	}
	if dep.Dockerfile == "" {
		dep.Dockerfile = d.Deploy.Dockerfile
	}
	if dep.AppName == "" {
		dep.AppName = dep.Repository
	}
	if dep.InstanceSize == "" {
		dep.InstanceSize = d.Deploy.InstanceSize
	}
	if dep.Registry == "" {
		dep.Registry = d.Deploy.Registry
	}
	if dep.RegistryTier == "" {
		dep.RegistryTier = d.Deploy.RegistryTier
	}
	if dep.LocalPort == 0 {
		dep.LocalPort = d.Deploy.LocalPort
	}
	if dep.PollInterval == 0 {
		dep.PollInterval = d.Deploy.PollInterval
	}
	if dep.PollAttempts == 0 {
		dep.PollAttempts = d.Deploy.PollAttempts
	}
	if dep.BuilderName == "" {
		dep.BuilderName = d.Deploy.BuilderName
	}
}

// applyEnvOverrides reads the runtime environment and overrides config values.
// Unparseable numeric values are ignored so Validate reports the file value.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.Model = v
	}
	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OpenAI.MaxTokens = n
		}
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.OpenAI.Temperature = f
		}
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("AGENT_SYSTEM_PROMPT"); v != "" {
		cfg.Agent.SystemPrompt = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENABLE_TRACING")); v != "" {
		cfg.Tracing.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("AGENTCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("AGENTCORE_LOG_STYLE"); v != "" {
		cfg.Logging.Style = strings.ToLower(v)
	}
	if v := os.Getenv("DIGITALOCEAN_TOKEN"); v != "" {
		cfg.Deploy.Token = v
	}
	if v := os.Getenv("AGENTCORE_REGION"); v != "" {
		cfg.Deploy.Region = v
	}
	if v := os.Getenv("AGENTCORE_ENDPOINT"); v != "" {
		cfg.Deploy.Endpoint = strings.TrimRight(v, "/")
	}
}
