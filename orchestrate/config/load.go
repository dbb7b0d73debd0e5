package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML or JSON config file, merges it with defaults, and returns
// the resulting TrackerConfig. Files ending in .yaml or .yml are parsed as
// YAML; anything else as JSON.
func Load(filename string) (*TrackerConfig, error) {
	cfg := DefaultTrackerConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	loaded, err := Parse(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}

	cfg.Merge(loaded)
	return &cfg, nil
}

// Parse decodes a config document. ext selects the format the way Load does.
func Parse(data []byte, ext string) (*TrackerConfig, error) {
	var loaded TrackerConfig

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return &loaded, nil
}
