// Package validate implements the single-document command.
package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"fjacquet/cfdi-sentinel/cmd/common"
	"fjacquet/cfdi-sentinel/cmd/root"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/validation"

	"github.com/spf13/cobra"
)

var (
	activity string
	format   string
)

// Cmd represents the validate command
var Cmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a single CFDI document",
	Long: `Validate one CFDI XML document and print its verdict.

The document is parsed, reconciled and classified; when configured, the
issuer is checked against the 69-B / EFOS lists and the SAT status service.

Example:
  cfdi-sentinel validate -i factura.xml --giro "transporte de carga" --format json`,
	RunE: validateFunc,
}

func init() {
	Cmd.Flags().StringVar(&activity, "giro", "", "Declared business activity used by the materiality check")
	Cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")
}

func validateFunc(cmd *cobra.Command, _ []string) error {
	if err := validation.IsValidDisplayFormat(format); err != nil {
		return err
	}
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	if activity == "" {
		activity = c.GetConfig().Engine.Activity
	}

	inputs, err := common.LoadInputs(cmd.Context(), c.GetConfig(), common.InputSpec{
		Path:     root.SharedFlags.Input,
		Activity: activity,
	}, c.GetLogger())
	if err != nil {
		return err
	}
	if len(inputs) != 1 {
		return fmt.Errorf("validate expects a single XML file, found %d; use batch for directories", len(inputs))
	}

	res := c.GetEngine().Validate(cmd.Context(), inputs[0])
	return WriteResult(cmd.OutOrStdout(), res, format)
}

// WriteResult prints res as indented JSON or as a short text summary.
func WriteResult(w io.Writer, res models.Result, format string) error {
	if strings.EqualFold(format, "json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Archivo:    %s\n", res.FileName)
	fmt.Fprintf(&b, "UUID:       %s\n", res.UUID)
	fmt.Fprintf(&b, "Tipo:       %s (%s)\n", res.SemanticType, res.Type)
	fmt.Fprintf(&b, "Emisor:     %s %s\n", res.Issuer.RFC, res.Issuer.Name)
	fmt.Fprintf(&b, "Total:      %s (calculado %s, diferencia %s)\n",
		res.Declared.StringFixed(2), res.Computed.StringFixed(2), res.Difference.StringFixed(2))
	fmt.Fprintf(&b, "Estado SAT: %s\n", res.SATStatus)
	fmt.Fprintf(&b, "Resultado:  %s (score %d)\n", res.Label, res.Score)
	fmt.Fprintf(&b, "\n%s\n", res.FiscalComment)
	if res.TechnicalNotes != "" && res.TechnicalNotes != res.FiscalComment {
		fmt.Fprintf(&b, "\n%s\n", res.TechnicalNotes)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
