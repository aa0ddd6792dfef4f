package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/lifecycled/pkg/config"
	"github.com/marmos91/lifecycled/pkg/discovery"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the lifecycled configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  lifecycled config validate

  # Validate specific config file
  lifecycled config validate --config /etc/lifecycled/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Discovery.Type == discovery.TypeMemory {
		warnings = append(warnings, "memory discovery is only visible to the running process")
	}
	if len(cfg.Services) == 0 {
		warnings = append(warnings, "services section is empty")
	}
	if cfg.Status.Enabled && !strings.HasPrefix(cfg.Status.Address, "127.0.0.1") && !strings.HasPrefix(cfg.Status.Address, "localhost") {
		warnings = append(warnings, fmt.Sprintf("status server listens on %s without authentication", cfg.Status.Address))
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	keys := make([]string, 0, len(cfg.Services))
	for k := range cfg.Services {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	_, _ = fmt.Fprintf(out, "  Discovery:       %s\n", cfg.Discovery.Type)
	_, _ = fmt.Fprintf(out, "  Status server:   %s\n", statusSummary(cfg))
	_, _ = fmt.Fprintf(out, "  Restart delay:   %s\n", cfg.Lifecycle.RestartDelay)
	_, _ = fmt.Fprintf(out, "  Service keys:    %s\n", strings.Join(keys, ", "))

	return nil
}

func statusSummary(cfg *config.Config) string {
	if !cfg.Status.Enabled {
		return "disabled"
	}
	return cfg.Status.Address
}
