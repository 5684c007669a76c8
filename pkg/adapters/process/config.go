package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookConfig describes an external command run after every new revision.
type HookConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`

	// Documents restricts the hook to these document IDs. Empty means all.
	Documents []string `yaml:"documents" json:"documents"`
}

// ConfigFile represents the structure of hooks.yaml.
type ConfigFile struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Hooks   []HookConfig  `yaml:"hooks" json:"hooks"`
}

// LoadHooks reads a configuration file (YAML or JSON).
// A missing file means no hooks are configured.
func LoadHooks(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ConfigFile{}, nil
		}
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	hooks := cfg.Hooks[:0]
	for _, h := range cfg.Hooks {
		if h.Command == "" {
			continue
		}
		if h.Name == "" {
			h.Name = filepath.Base(h.Command)
		}
		hooks = append(hooks, h)
	}
	cfg.Hooks = hooks
	return &cfg, nil
}
