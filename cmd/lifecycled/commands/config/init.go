package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/lifecycled/pkg/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a configuration file holding the default settings and a sample
services section.

Examples:
  # Write to $XDG_CONFIG_HOME/lifecycled/config.yaml
  lifecycled config init

  # Overwrite a specific file
  lifecycled config init --config ./lifecycled.yaml --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing configuration file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	path, err := config.InitConfig(configPath, forceInit)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nRun a module with:\n  lifecycled run orders --config %s\n", path)
	return nil
}
