package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// candidateNames are tried in order inside the config directory.
var candidateNames = []string{"config.jsonc", "config.yaml", "config.yml"}

// ResolvePath applies CLI/XDG/home fallback rules for the config file location. Without an
// explicit path the first existing candidate wins; otherwise config.jsonc is returned.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	dir, err := Dir()
	if err != nil {
		return "", err
	}
	for _, name := range candidateNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return filepath.Join(dir, candidateNames[0]), nil
}

// Dir returns the voiceprompt config directory.
func Dir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "voiceprompt"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "voiceprompt"), nil
}
