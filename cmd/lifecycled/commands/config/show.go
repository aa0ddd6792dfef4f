package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/lifecycled/internal/cli/output"
	"github.com/marmos91/lifecycled/pkg/config"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and environment overrides
have been applied.

Examples:
  LIFECYCLED_LOGGING_LEVEL=DEBUG lifecycled config show
  lifecycled config show -o json`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showFormat)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	return output.NewPrinter(cmd.OutOrStdout(), format).Print(cfg)
}
