package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// defaultLocations are searched when no explicit path is given.
var defaultLocations = []string{
	"config.yaml",
	"config.yml",
	"config.json",
	"/etc/ocigw/config.yaml",
}

// Load reads the config file at path (or the first default location that exists),
// applies defaults and environment overrides, and validates the result.
// A missing file is not an error: the gateway can be configured entirely from OCIGW_* variables.
func Load(path string) (*Config, string, error) {
	path = resolvePath(path)
	cfg, err := readFile(path)
	if err != nil {
		return nil, path, err
	}
	applyEnv(cfg)
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func resolvePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		for _, loc := range defaultLocations {
			if _, err := os.Stat(loc); err == nil {
				return loc
			}
		}
		return ""
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

func readFile(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		log.Warn("no config file found, using defaults and environment")
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("path", path).Warn("config file not found, using defaults and environment")
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	log.WithField("path", path).Info("configuration loaded")
	return cfg, nil
}
