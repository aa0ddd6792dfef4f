package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/config"
	"github.com/marmos91/lifecycled/pkg/service"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// selectModules looks up every named module in the catalog, keeping the
// order given and dropping repeats.
func selectModules(catalog *service.Catalog, names []string) ([]service.Module, error) {
	seen := make(map[string]struct{}, len(names))
	modules := make([]service.Module, 0, len(names))
	var unknown []string

	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		m, ok := catalog.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		modules = append(modules, m)
	}

	if len(unknown) > 0 {
		var known []string
		for _, m := range catalog.Modules() {
			known = append(known, m.Key())
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown module(s): %s (available: %s)",
			strings.Join(unknown, ", "), strings.Join(known, ", "))
	}
	return modules, nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
