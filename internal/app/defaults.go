package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - HORUS_CONFIG_PATH: config file location (default: ~/.config/horus.toml)
//   - HORUS_HOME: base directory for local horus data (default: ~/.local/share/horus)
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome("HORUS_CONFIG_PATH", ".config", "horus.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := fromEnvOrHome("HORUS_HOME", ".local", "share", "horus")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// fromEnvOrHome returns the value of env, or the path elems joined under the
// user's home directory.
func fromEnvOrHome(env string, elems ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elems...)...), nil
}

// DefaultUser is the reviewer name used when neither the config nor
// HORUS_USER sets one.
func DefaultUser() string {
	for _, env := range []string{"USER", "USERNAME"} {
		if u := os.Getenv(env); u != "" {
			return u
		}
	}
	return "unknown"
}
