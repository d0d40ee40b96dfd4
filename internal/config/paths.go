package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".agentcore"

// Paths holds resolved filesystem paths for agentcore data.
type Paths struct {
	Base   string // ~/.agentcore
	Config string // ~/.agentcore/config.yaml
	Data   string // ~/.agentcore/data
	Memory string // ~/.agentcore/data/memory.db
}

// ResolvePaths computes all standard paths from the home directory.
// If AGENTCORE_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("AGENTCORE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	data := filepath.Join(base, "data")
	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   data,
		Memory: filepath.Join(data, "memory.db"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// MemoryPath returns the memory database location, honoring memory.path.
func (p Paths) MemoryPath(cfg *Config) string {
	if cfg != nil && cfg.Memory.Path != "" {
		return cfg.Memory.Path
	}
	return p.Memory
}
