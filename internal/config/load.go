package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config at explicitPath, or at the XDG default location when
// explicitPath is empty. A missing default file is normal and loads the
// built-in defaults silently; a missing --config file loads them with a
// warning.
func Load(explicitPath string) (Loaded, error) {
	explicitPath, err := expandHome(strings.TrimSpace(explicitPath))
	if err != nil {
		return Loaded{}, err
	}
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: path, Config: Default()}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if explicitPath != "" {
			loaded.Warnings = []Warning{{
				Message: fmt.Sprintf("config file %q not found; timing with built-in defaults (see debatebell doctor)", path),
			}}
		}
		return loaded, nil
	case err != nil:
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			return Loaded{}, fmt.Errorf("config %q is a directory, not a config.jsonc file", path)
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}

// expandHome resolves a leading ~/ so quoted --config values still work.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand config path %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
