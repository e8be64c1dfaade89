// Package denylist manages the 69-B / EFOS store from the command line.
package denylist

import (
	"fmt"

	"fjacquet/cfdi-sentinel/cmd/root"
	"fjacquet/cfdi-sentinel/internal/common"
	"fjacquet/cfdi-sentinel/internal/config"
	"fjacquet/cfdi-sentinel/internal/denylist"
	"fjacquet/cfdi-sentinel/internal/validation"

	"github.com/spf13/cobra"
)

var (
	csvFile   string
	list      string
	delimiter string
)

// Cmd groups the denylist subcommands.
var Cmd = &cobra.Command{
	Use:   "denylist",
	Short: "Manage the 69-B / EFOS denylist",
}

// ImportCmd loads a SAT list export into the configured store.
var ImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a SAT 69-B or EFOS CSV export",
	Long: `Import a SAT list export into the configured denylist store.

Rows without an RFC are skipped. Rows without a list column are assigned to
--list. With the memory backend the import only lasts for this process, so
use the file or postgres backend to keep it.

Example:
  cfdi-sentinel denylist import --csv Listado_Completo_69-B.csv --list 69B`,
	RunE: importFunc,
}

func init() {
	ImportCmd.Flags().StringVar(&csvFile, "csv", "", "SAT CSV export to import")
	ImportCmd.Flags().StringVar(&list, "list", "69B", "List for rows without a list column (69B, EFOS)")
	ImportCmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV delimiter")
	Cmd.AddCommand(ImportCmd)
}

func importFunc(cmd *cobra.Command, _ []string) error {
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	if csvFile == "" {
		return fmt.Errorf("--csv must be specified")
	}
	if err := validation.IsValidPath(csvFile); err != nil {
		return err
	}
	store := c.GetDenylist()
	if store == nil {
		return fmt.Errorf("denylist is disabled (denylist.backend=%s)", config.BackendNone)
	}
	if c.GetConfig().Denylist.Backend == config.BackendMemory {
		c.GetLogger().Warn("Importing into the memory denylist; records are lost when the process exits")
	}

	stats, err := denylist.ImportCSV(cmd.Context(), store, csvFile, common.ParseDelimiter(delimiter), denylist.NormalizeList(list), c.GetLogger())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Importados %d de %d registros (%d omitidos) en %s\n",
		stats.Imported, stats.Read, stats.Skipped, stats.Duration.Round(1e6))
	return err
}
