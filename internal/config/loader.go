package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// HomeEnv overrides the directory that holds Monica's config file.
const HomeEnv = "MONICA_HOME"

// DataDir is $MONICA_HOME when set and ~/.monica otherwise.
func DataDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".monica"
	}
	return filepath.Join(home, ".monica")
}

// ConfigPath is config.json inside DataDir.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load returns the assistant settings stored at path, or at ConfigPath when
// path is empty. Keys absent from the file keep their DefaultConfig values.
// A shop that has never run onboard gets the defaults, and so does one whose
// file no longer parses; the latter is logged so the operator can fix it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return &cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("config unreadable, falling back to defaults", "path", path, "err", err)
		cfg = DefaultConfig()
	}
	return &cfg, nil
}

// Save stores cfg at path (ConfigPath when empty). The file may carry provider
// API keys, so it is private to the owner. It is written to a sibling temp
// file first and renamed into place so a crash never leaves half a config.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write config %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
