package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/lifecycled/internal/cli/output"
	"github.com/marmos91/lifecycled/pkg/config"
	"github.com/marmos91/lifecycled/pkg/discovery"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List services registered in the discovery backend",
	Long: `List the service instances currently registered in the configured
discovery backend. Only persistent backends (badger, sqlite, postgres) are
visible from another process.`,
	RunE: runServices,
}

// RecordList renders discovery records as a table.
type RecordList []discovery.Record

func (rl RecordList) Headers() []string {
	return []string{"NAME", "UUID", "MODULE", "TYPE", "HOST", "PID", "REGISTERED"}
}

func (rl RecordList) Rows() [][]string {
	rows := make([][]string, 0, len(rl))
	for _, r := range rl {
		rows = append(rows, []string{
			r.Name, r.UUID, r.Module, r.Type, r.Host,
			strconv.Itoa(r.PID), r.RegisteredAt.Local().Format(time.RFC3339),
		})
	}
	return rows
}

func runServices(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	store, err := discovery.New(cfg.Discovery)
	if err != nil {
		return fmt.Errorf("failed to open discovery backend: %w", err)
	}
	if store == nil {
		return fmt.Errorf("discovery is disabled (type %q)", cfg.Discovery.Type)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format)
	if len(records) == 0 && format == output.FormatTable {
		printer.Printf("No services registered.\n")
		return nil
	}
	return printer.Print(RecordList(records))
}
