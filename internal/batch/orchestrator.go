package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/cfdi-sentinel/internal/engine"
	"fjacquet/cfdi-sentinel/internal/history"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/metrics"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Defaults applied to zero Options fields.
const (
	DefaultBatchSize = 20
	DefaultDelay     = 50 * time.Millisecond
	DefaultTimeout   = 10 * time.Second
)

// ErrNoInputs is returned by Run when there is nothing to validate.
var ErrNoInputs = errors.New("no documents to validate")

// Validator validates one document and always returns a row for it.
type Validator interface {
	Validate(ctx context.Context, in engine.Input) models.Result
}

// Options tunes a run.
type Options struct {
	BatchSize int
	// Delay is the pause between two batches.
	Delay   time.Duration
	Timeout time.Duration
	// Company is copied into the history summary.
	Company string

	// OnProgress is called after each batch with the number of documents
	// processed so far.
	OnProgress func(current, total int)
	// OnResults receives a copy of each batch's rows as soon as it completes.
	OnResults func(results []models.Result)
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Run is the outcome of one orchestrated run. Results keeps input order.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []models.Result
	Total      int
	Cancelled  bool
	Period     DateRange
	Duplicates []string
	Summary    history.Summary
}

// Orchestrator fans documents out to a Validator batch by batch.
type Orchestrator struct {
	validator  Validator
	recorder   history.Recorder
	aggregator *Aggregator
	metrics    *metrics.Metrics
	logger     logging.Logger
	now        func() time.Time
}

// NewOrchestrator creates an orchestrator. A nil recorder discards summaries.
func NewOrchestrator(v Validator, recorder history.Recorder, m *metrics.Metrics, logger logging.Logger) *Orchestrator {
	logger = logging.OrDefault(logger)
	if recorder == nil {
		recorder = history.NopRecorder{}
	}
	return &Orchestrator{
		validator:  v,
		recorder:   recorder,
		aggregator: NewAggregator(logger),
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Run validates inputs in batches of opts.BatchSize. Documents of a batch
// run concurrently, each under its own timeout derived from a parent that
// ignores ctx cancellation, so a dispatched batch always completes.
// Cancelling ctx stops new batches from starting; Run then returns the
// partial run together with an error wrapping ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, inputs []engine.Input, opts Options) (*Run, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	opts = opts.withDefaults()

	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: o.now(),
		Total:     len(inputs),
	}
	results := make([]models.Result, len(inputs))
	logger := o.logger.WithFields(logging.Field{Key: logging.FieldRunID, Value: run.ID})
	logger.Info("Starting batch run",
		logging.Field{Key: logging.FieldCount, Value: run.Total},
		logging.Field{Key: "batch_size", Value: opts.BatchSize})

	processed := 0
	for start := 0; start < run.Total; start += opts.BatchSize {
		if ctx.Err() != nil {
			run.Cancelled = true
			logger.Warn("Batch run cancelled",
				logging.Field{Key: "processed", Value: processed},
				logging.Field{Key: logging.FieldCount, Value: run.Total})
			break
		}

		end := min(start+opts.BatchSize, run.Total)
		o.runBatch(ctx, inputs[start:end], results[start:end], opts.Timeout)
		processed = end

		logger.Debug("Batch completed",
			logging.Field{Key: logging.FieldBatch, Value: start/opts.BatchSize + 1},
			logging.Field{Key: "processed", Value: processed})
		if opts.OnResults != nil {
			opts.OnResults(append([]models.Result(nil), results[start:end]...))
		}
		if opts.OnProgress != nil {
			opts.OnProgress(processed, run.Total)
		}

		if end < run.Total && opts.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.Delay):
			}
		}
	}

	run.Results = results[:processed]
	run.FinishedAt = o.now()
	run.Period = o.aggregator.Period(run.Results)
	run.Duplicates = o.aggregator.DetectDuplicates(run.Results)
	run.Summary = history.NewSummary(run.ID, opts.Company, run.Results, run.FinishedAt)

	if err := o.recorder.Record(context.WithoutCancel(ctx), run.Summary); err != nil {
		logger.WithError(err).Warn("Failed to record run history")
	}
	o.metrics.ObserveBatch()

	logger.Info("Batch run finished",
		logging.Field{Key: "usable", Value: run.Summary.UsableCount},
		logging.Field{Key: "alert", Value: run.Summary.AlertCount},
		logging.Field{Key: "not_usable", Value: run.Summary.ErrorCount},
		logging.Field{Key: logging.FieldDuration, Value: run.FinishedAt.Sub(run.StartedAt).String()})

	if run.Cancelled {
		return run, fmt.Errorf("batch run stopped after %d of %d documents: %w", processed, run.Total, ctx.Err())
	}
	return run, nil
}

// runBatch writes each document's row into the matching slot of out.
func (o *Orchestrator) runBatch(ctx context.Context, inputs []engine.Input, out []models.Result, timeout time.Duration) {
	parent := context.WithoutCancel(ctx)
	var g errgroup.Group
	for i := range inputs {
		g.Go(func() error {
			out[i] = o.validateOne(parent, inputs[i], timeout)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) validateOne(parent context.Context, in engine.Input, timeout time.Duration) models.Result {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan models.Result, 1)
	go func() {
		done <- o.validator.Validate(ctx, in)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		o.logger.Warn("Document validation timed out",
			logging.Field{Key: logging.FieldFile, Value: in.FileName},
			logging.Field{Key: "timeout", Value: timeout.String()})
		return engine.TimeoutResult(in.FileName, timeout)
	}
}
