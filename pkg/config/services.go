package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marmos91/lifecycled/pkg/service"
)

// LoadServiceFile reads a YAML or JSON service configuration file. The
// top-level mapping is the service configuration itself.
func LoadServiceFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service config %s: %w", path, err)
	}

	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse service config %s: %w", path, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// ResolveServices merges each service configuration file, in order, on top
// of cfg.Services. Lists are concatenated and mappings deep-merged, as for
// a service's own context. cfg is not modified.
func ResolveServices(cfg *Config, files []string) (map[string]any, error) {
	services := service.CopyMap(cfg.Services)
	if services == nil {
		services = map[string]any{}
	}

	for _, path := range files {
		m, err := LoadServiceFile(path)
		if err != nil {
			return nil, err
		}
		services = service.MergeConfig(services, m)
	}
	return services, nil
}

// Reloader returns a function that reloads the configuration file and the
// service configuration files and returns the resolved services mapping.
func Reloader(configPath string, files []string) func(ctx context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg, err := Load(configPath)
		if err != nil {
			return nil, err
		}
		return ResolveServices(cfg, files)
	}
}

// WatchPaths returns every file whose change should restart the services.
func WatchPaths(cfg *Config, configPath string, files []string) []string {
	var paths []string
	if configPath != "" {
		paths = append(paths, configPath)
	} else if DefaultConfigExists() {
		paths = append(paths, GetDefaultConfigPath())
	}
	paths = append(paths, files...)
	return append(paths, cfg.Watcher.Paths...)
}

// rawServices reads the services section straight from a YAML or JSON
// config file, preserving key case.
func rawServices(path string) (map[string]any, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, false
	}

	m, err := LoadServiceFile(path)
	if err != nil {
		return nil, false
	}
	services, ok := m["services"].(map[string]any)
	return services, ok
}
