// Package container provides dependency injection for the cfdi-sentinel application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"fjacquet/cfdi-sentinel/internal/api"
	"fjacquet/cfdi-sentinel/internal/batch"
	"fjacquet/cfdi-sentinel/internal/common"
	"fjacquet/cfdi-sentinel/internal/config"
	"fjacquet/cfdi-sentinel/internal/database"
	"fjacquet/cfdi-sentinel/internal/denylist"
	"fjacquet/cfdi-sentinel/internal/engine"
	"fjacquet/cfdi-sentinel/internal/enrichment"
	"fjacquet/cfdi-sentinel/internal/history"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/materiality"
	"fjacquet/cfdi-sentinel/internal/metrics"
	"fjacquet/cfdi-sentinel/internal/report"
	"fjacquet/cfdi-sentinel/internal/satstatus"
	"fjacquet/cfdi-sentinel/internal/validation"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger  logging.Logger
	config  *config.Config
	metrics *metrics.Metrics

	// Connections, nil when the matching backend is not configured.
	pool  *pgxpool.Pool
	redis *redis.Client

	denylist     denylist.Writer
	status       satstatus.Checker
	gemini       *materiality.GeminiStrategy
	assessor     *materiality.Assessor
	enricher     *enrichment.Enricher
	engine       *engine.Engine
	recorder     history.Recorder
	lister       history.Lister
	orchestrator *batch.Orchestrator
	generator    *report.Generator
}

// NewContainer creates and wires all application dependencies with the
// logger described by cfg.Log.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return NewContainerWithLogger(ctx, cfg, config.ConfigureLoggingFromConfig(cfg))
}

// NewContainerWithLogger is NewContainer with an injected logger.
func NewContainerWithLogger(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	c := &Container{
		logger:  logging.OrDefault(logger),
		config:  cfg,
		metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.checkConfigFile()

	if needsDatabase(cfg) {
		c.pool, err = database.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	if err = c.buildDenylist(ctx); err != nil {
		return nil, err
	}
	if err = c.buildStatusChecker(ctx); err != nil {
		return nil, err
	}
	if err = c.buildAssessor(ctx); err != nil {
		return nil, err
	}
	if err = c.buildHistory(ctx); err != nil {
		return nil, err
	}

	c.enricher = enrichment.New(enrichment.Options{
		Denylist: c.denylistStore(),
		Status:   c.status,
		Metrics:  c.metrics,
		Logger:   c.logger,
	})
	c.engine = engine.New(engine.Options{
		Logger:                c.logger,
		Materiality:           c.assessor,
		Enricher:              c.enricher,
		Metrics:               c.metrics,
		RejectUnknownVersions: cfg.Engine.RejectUnknownVersions,
	})
	c.orchestrator = batch.NewOrchestrator(c.engine, c.recorder, c.metrics, c.logger)
	c.generator = report.NewGenerator(c.logger)

	c.logger.Info("Container initialized successfully",
		logging.Field{Key: "denylist", Value: cfg.Denylist.Backend},
		logging.Field{Key: "sat_enabled", Value: cfg.SAT.Enabled},
		logging.Field{Key: "history", Value: cfg.History.Backend},
		logging.Field{Key: "ai_enabled", Value: c.gemini != nil})
	return c, nil
}

// checkConfigFile warns when the config file, which may hold credentials,
// is accessible to other users.
func (c *Container) checkConfigFile() {
	if c.config.File == "" {
		return
	}
	info, err := os.Stat(c.config.File)
	if err != nil {
		return
	}
	if err := validation.IsValidFilePermissions(info.Mode().Perm()); err != nil {
		c.logger.WithError(err).Warn("Config file is accessible to other users",
			logging.Field{Key: logging.FieldFile, Value: c.config.File})
	}
}

func needsDatabase(cfg *config.Config) bool {
	return cfg.Denylist.Backend == config.BackendPostgres || cfg.History.Backend == config.BackendPostgres
}

func (c *Container) buildDenylist(ctx context.Context) error {
	cfg := c.config.Denylist
	switch cfg.Backend {
	case config.BackendNone:
		return nil
	case config.BackendFile:
		store, err := denylist.NewFileStore(cfg.File, c.logger)
		if err != nil {
			return fmt.Errorf("failed to open denylist file: %w", err)
		}
		c.denylist = store
	case config.BackendPostgres:
		store := denylist.NewPostgresStore(c.pool)
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate denylist table: %w", err)
		}
		c.denylist = store
	default:
		c.denylist = denylist.NewMemoryStore()
	}

	if cfg.CSVFile == "" {
		return nil
	}
	stats, err := denylist.ImportCSV(ctx, c.denylist, cfg.CSVFile, common.ParseDelimiter(c.config.Export.Delimiter),
		denylist.NormalizeList(cfg.CSVList), c.logger)
	if err != nil {
		return err
	}
	c.logger.Info("Denylist loaded from CSV",
		logging.Field{Key: logging.FieldFile, Value: cfg.CSVFile},
		logging.Field{Key: logging.FieldCount, Value: stats.Imported})
	return nil
}

// denylistStore keeps a nil Writer from turning into a non-nil Store.
func (c *Container) denylistStore() denylist.Store {
	if c.denylist == nil {
		return nil
	}
	return c.denylist
}

func (c *Container) buildStatusChecker(ctx context.Context) error {
	cfg := c.config
	if !cfg.SAT.Enabled {
		return nil
	}
	client := satstatus.NewClient(cfg.SAT.Endpoint, cfg.SAT.Timeout(), c.logger)

	var cache satstatus.Cache
	if cfg.Cache.Backend == config.BackendRedis {
		rdb, err := satstatus.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.redis = rdb
		cache = satstatus.NewRedisCache(rdb)
	} else {
		cache = satstatus.NewMemoryCache()
	}
	c.status = satstatus.NewCachedChecker(client, cache, cfg.SAT.CacheTTL(), c.logger)
	return nil
}

func (c *Container) buildAssessor(ctx context.Context) error {
	cfg := c.config.Materiality
	if !cfg.Enabled {
		return nil
	}
	strategies := []materiality.Strategy{materiality.NewRuleStrategy()}
	if cfg.AIEnabled {
		gemini, err := materiality.NewGeminiStrategy(ctx, cfg.APIKey, cfg.Model, c.logger)
		if err != nil {
			return err
		}
		c.gemini = gemini
		strategies = append(strategies, gemini)
	}
	c.assessor = materiality.NewAssessor(c.logger, strategies...)
	return nil
}

func (c *Container) buildHistory(ctx context.Context) error {
	cfg := c.config.History
	switch cfg.Backend {
	case config.BackendFile:
		r := history.NewFileRecorder(cfg.File, c.logger)
		c.recorder, c.lister = r, r
	case config.BackendPostgres:
		r := history.NewPostgresRecorder(c.pool)
		if err := r.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate history table: %w", err)
		}
		c.recorder, c.lister = r, r
	default:
		c.recorder = history.NopRecorder{}
	}
	return nil
}

// NewAPIServer builds the HTTP server over the container's engine.
func (c *Container) NewAPIServer() *api.Server {
	return api.NewServer(api.Options{
		Validator:    c.engine,
		History:      c.lister,
		Metrics:      c.metrics,
		Logger:       c.logger,
		MaxBodyBytes: c.config.Server.MaxBodyBytes,
		Timeout:      c.config.Batch.Timeout(),
		Activity:     c.config.Engine.Activity,
	})
}

// BatchOptions returns orchestrator options from the batch section.
func (c *Container) BatchOptions() batch.Options {
	return batch.Options{
		BatchSize: c.config.Batch.Size,
		Delay:     c.config.Batch.Delay(),
		Timeout:   c.config.Batch.Timeout(),
		Company:   c.config.Batch.Company,
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetMetrics returns the container's metrics.
func (c *Container) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// GetEngine returns the single-document validator.
func (c *Container) GetEngine() *engine.Engine {
	return c.engine
}

// GetOrchestrator returns the batch orchestrator.
func (c *Container) GetOrchestrator() *batch.Orchestrator {
	return c.orchestrator
}

// GetReportGenerator returns the run report generator.
func (c *Container) GetReportGenerator() *report.Generator {
	return c.generator
}

// GetDenylist returns the denylist store, or nil when disabled.
func (c *Container) GetDenylist() denylist.Writer {
	return c.denylist
}

// GetHistory returns the run history, or nil when disabled.
func (c *Container) GetHistory() history.Lister {
	return c.lister
}

// Close releases the container's connections.
func (c *Container) Close() error {
	var errs []error
	if c.gemini != nil {
		if err := c.gemini.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gemini: %w", err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.pool != nil {
		c.pool.Close()
	}
	c.logger.Debug("Container closed")
	return errors.Join(errs...)
}

// Describe is a one-line summary of the active backends.
func (c *Container) Describe() string {
	parts := []string{
		"denylist=" + c.config.Denylist.Backend,
		"history=" + c.config.History.Backend,
	}
	if c.status != nil {
		parts = append(parts, "sat="+c.config.Cache.Backend)
	} else {
		parts = append(parts, "sat=off")
	}
	if c.gemini != nil {
		parts = append(parts, "materiality=rules+gemini")
	} else if c.assessor != nil {
		parts = append(parts, "materiality=rules")
	} else {
		parts = append(parts, "materiality=off")
	}
	return strings.Join(parts, " ")
}
