package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/lifecycled/internal/cli/output"
	"github.com/marmos91/lifecycled/internal/demo"
	"github.com/marmos91/lifecycled/pkg/service"
)

var outputFormat string

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the service modules that can be run",
	RunE:  runModules,
}

func init() {
	modulesCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")
	servicesCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")
}

// ModuleInfo describes one catalog entry.
type ModuleInfo struct {
	Name  string   `json:"name" yaml:"name"`
	Path  string   `json:"path" yaml:"path"`
	File  string   `json:"file,omitempty" yaml:"file,omitempty"`
	Types []string `json:"types" yaml:"types"`
}

// ModuleList renders as a table.
type ModuleList []ModuleInfo

func (ml ModuleList) Headers() []string {
	return []string{"MODULE", "PATH", "TYPES", "FILE"}
}

func (ml ModuleList) Rows() [][]string {
	rows := make([][]string, 0, len(ml))
	for _, m := range ml {
		types := strings.Join(m.Types, ", ")
		if types == "" {
			types = "-"
		}
		rows = append(rows, []string{m.Name, m.Path, types, m.File})
	}
	return rows
}

func describeModules(catalog *service.Catalog) ModuleList {
	modules := catalog.Modules()
	list := make(ModuleList, 0, len(modules))
	for _, m := range modules {
		types := make([]string, 0, len(m.Definitions))
		for _, def := range m.Definitions {
			types = append(types, def.TypeName)
		}
		list = append(list, ModuleInfo{Name: m.Key(), Path: m.Path, File: m.File, Types: types})
	}
	return list
}

func runModules(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(describeModules(demo.Catalog()))
}
