// Package batch handles batch validation of CFDI documents
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"fjacquet/cfdi-sentinel/cmd/common"
	"fjacquet/cfdi-sentinel/cmd/root"
	"fjacquet/cfdi-sentinel/internal/batch"
	internalcommon "fjacquet/cfdi-sentinel/internal/common"
	"fjacquet/cfdi-sentinel/internal/container"
	"fjacquet/cfdi-sentinel/internal/fileutils"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/report"
	"fjacquet/cfdi-sentinel/internal/validation"

	"github.com/spf13/cobra"
)

// StdoutOutput as the output path writes the CSV to Flags.Stdout.
const StdoutOutput = "-"

// Flags holds the batch-specific flag values.
type Flags struct {
	Activity   string
	Company    string
	ReportFile string
	Bucket     bool
	Prefix     string

	// Stdout receives the CSV when the output is StdoutOutput.
	Stdout io.Writer
}

var flags Flags

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch validate CFDI documents from a directory or bucket",
	Long: `Batch validate every XML document in an input directory, or under a prefix
of the configured MinIO bucket, and write one CSV row per document.

Documents are validated in batches; a document that exceeds the per-document
timeout is reported as an error row and the run continues. Interrupting the
run keeps the rows validated so far.

Example:
  cfdi-sentinel batch -i facturas/ -o resultados.csv --report run.json
  cfdi-sentinel batch --bucket --prefix acme/2024/ -o resultados.csv
  cfdi-sentinel batch -i facturas/ -o - > resultados.csv`,
	RunE: batchFunc,
}

func init() {
	Cmd.Flags().StringVar(&flags.Activity, "giro", "", "Declared business activity used by the materiality check")
	Cmd.Flags().StringVar(&flags.Company, "company", "", "Company name recorded in the run history")
	Cmd.Flags().StringVar(&flags.ReportFile, "report", "", "Also write a run report (.json or .xml)")
	Cmd.Flags().BoolVar(&flags.Bucket, "bucket", false, "Read documents from the configured MinIO bucket")
	Cmd.Flags().StringVar(&flags.Prefix, "prefix", "", "Bucket prefix (overrides source.minio.prefix)")
}

func batchFunc(cmd *cobra.Command, _ []string) error {
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := flags
	f.Stdout = cmd.OutOrStdout()
	_, err := Execute(ctx, c, root.SharedFlags.Input, root.SharedFlags.Output, f, cmd.ErrOrStderr())
	if errors.Is(err, context.Canceled) {
		root.GetLogger().Warn("Batch interrupted; partial results were kept")
	}
	return err
}

// Execute runs one batch and writes its CSV and optional report. A
// cancelled run still writes the rows validated so far and returns the
// cancellation error.
func Execute(ctx context.Context, c *container.Container, input, output string, f Flags, progress io.Writer) (*batch.Run, error) {
	logger := c.GetLogger()
	cfg := c.GetConfig()

	if f.ReportFile != "" {
		if err := validation.IsValidOutputFormat(strings.TrimPrefix(filepath.Ext(f.ReportFile), ".")); err != nil {
			return nil, err
		}
	}
	activity := f.Activity
	if activity == "" {
		activity = cfg.Engine.Activity
	}

	inputs, err := common.LoadInputs(ctx, cfg, common.InputSpec{
		Path:     input,
		Bucket:   f.Bucket,
		Prefix:   f.Prefix,
		Activity: activity,
	}, logger)
	if err != nil {
		return nil, err
	}

	opts := c.BatchOptions()
	if f.Company != "" {
		opts.Company = f.Company
	}
	opts.OnProgress = func(current, total int) {
		_, _ = fmt.Fprintf(progress, "Procesando %d/%d\n", current, total)
	}

	run, runErr := c.GetOrchestrator().Run(ctx, inputs, opts)
	if run == nil {
		return nil, runErr
	}

	csvPath := resolveOutput(output, opts.Company, run)
	delimiter := internalcommon.ParseDelimiter(cfg.Export.Delimiter)
	if csvPath == StdoutOutput {
		if f.Stdout == nil {
			return run, errors.Join(runErr, fmt.Errorf("no stdout writer for output %q", StdoutOutput))
		}
		if err := report.WriteCSV(f.Stdout, run.Results, delimiter); err != nil {
			return run, errors.Join(runErr, err)
		}
	} else if err := report.WriteCSVFile(csvPath, run.Results, delimiter, logger); err != nil {
		return run, errors.Join(runErr, err)
	}

	if f.ReportFile != "" {
		if err := writeReport(c, run, f.ReportFile); err != nil {
			return run, errors.Join(runErr, err)
		}
	}

	logger.Info("Batch completed",
		logging.Field{Key: logging.FieldRunID, Value: run.ID},
		logging.Field{Key: logging.FieldCount, Value: len(run.Results)},
		logging.Field{Key: "usable", Value: run.Summary.UsableCount},
		logging.Field{Key: "alerts", Value: run.Summary.AlertCount},
		logging.Field{Key: "errors", Value: run.Summary.ErrorCount},
		logging.Field{Key: logging.FieldOutputFile, Value: csvPath})
	_, _ = fmt.Fprintf(progress, "%d documentos: %d usables, %d con alertas, %d no usables -> %s\n",
		run.Summary.XMLCount, run.Summary.UsableCount, run.Summary.AlertCount, run.Summary.ErrorCount, csvPath)
	return run, runErr
}

// resolveOutput names the CSV after the company and the run period when
// output is empty or a directory.
func resolveOutput(output, company string, run *batch.Run) string {
	name := batch.OutputFilename(company, run.Period, "csv")
	switch {
	case output == StdoutOutput:
		return output
	case output == "":
		return name
	case fileutils.DirectoryExists(output):
		return filepath.Join(output, name)
	default:
		return output
	}
}

func reportFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return report.FormatXML
	}
	return report.FormatJSON
}

func writeReport(c *container.Container, run *batch.Run, path string) error {
	data, err := c.GetReportGenerator().Generate(report.NewRunReport(run), reportFormat(path))
	if err != nil {
		return err
	}
	if err := fileutils.WriteFileAtomic(path, data, models.PermissionConfigFile); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	c.GetLogger().Info("Run report written", logging.Field{Key: logging.FieldOutputFile, Value: path})
	return nil
}
