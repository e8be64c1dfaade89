// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Backend names accepted by the cache, denylist and history sections.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// EnvPrefix prefixes every environment override, e.g. CFDI_BATCH_SIZE.
const EnvPrefix = "CFDI"

// LogConfig controls the logrus adapter.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// BatchConfig controls the orchestrator.
type BatchConfig struct {
	Size           int    `mapstructure:"size" yaml:"size"`
	DelayMS        int    `mapstructure:"delay_ms" yaml:"delay_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Company        string `mapstructure:"company" yaml:"company"`
}

// Delay is the pause between two batches.
func (b BatchConfig) Delay() time.Duration {
	return time.Duration(b.DelayMS) * time.Millisecond
}

// Timeout is the per-document limit.
func (b BatchConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// EngineConfig controls single-document validation.
type EngineConfig struct {
	RejectUnknownVersions bool `mapstructure:"reject_unknown_versions" yaml:"reject_unknown_versions"`
	// Activity is the declared business activity (giro) used by the
	// materiality check when a request does not carry one.
	Activity string `mapstructure:"activity" yaml:"activity"`
}

// SATConfig controls the live status lookup.
type SATConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	CacheTTLHours  int    `mapstructure:"cache_ttl_hours" yaml:"cache_ttl_hours"`
}

// Timeout is the SOAP request timeout.
func (s SATConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// CacheTTL is how long a status stays cached.
func (s SATConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLHours) * time.Hour
}

// CacheConfig selects the status cache.
type CacheConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"`
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// DenylistConfig selects the 69-B / EFOS store.
type DenylistConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	File    string `mapstructure:"file" yaml:"file"`
	// CSVFile is imported into the store at startup when set.
	CSVFile string `mapstructure:"csv_file" yaml:"csv_file"`
	// CSVList is the list assumed for rows without a list column.
	CSVList string `mapstructure:"csv_list" yaml:"csv_list"`
}

// HistoryConfig selects where run summaries go.
type HistoryConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	File    string `mapstructure:"file" yaml:"file"`
}

// DatabaseConfig is shared by the postgres backends.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// MaterialityConfig controls the activity check.
type MaterialityConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	AIEnabled bool   `mapstructure:"ai_enabled" yaml:"ai_enabled"`
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
}

// ExportConfig controls the CSV export.
type ExportConfig struct {
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// MinioConfig locates the bucket source.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	AccessKey string `mapstructure:"access_key" yaml:"-"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// SourceConfig groups the document sources.
type SourceConfig struct {
	Minio MinioConfig `mapstructure:"minio" yaml:"minio"`
}

// Config represents the complete application configuration
type Config struct {
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Batch       BatchConfig       `mapstructure:"batch" yaml:"batch"`
	Engine      EngineConfig      `mapstructure:"engine" yaml:"engine"`
	SAT         SATConfig         `mapstructure:"sat" yaml:"sat"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Denylist    DenylistConfig    `mapstructure:"denylist" yaml:"denylist"`
	History     HistoryConfig     `mapstructure:"history" yaml:"history"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Materiality MaterialityConfig `mapstructure:"materiality" yaml:"materiality"`
	Export      ExportConfig      `mapstructure:"export" yaml:"export"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Source      SourceConfig      `mapstructure:"source" yaml:"source"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// InitializeConfig loads configuration from the default locations.
func InitializeConfig() (*Config, error) {
	return Load("")
}

// Load initializes Viper configuration with hierarchical loading. A
// non-empty configFile replaces the search path and must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.cfdi-sentinel")
		v.AddConfigPath(".cfdi-sentinel")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 5. Secrets and connection strings also come from their usual
	// unprefixed variables.
	bindings := map[string][]string{
		"materiality.api_key":     {"CFDI_MATERIALITY_API_KEY", "GEMINI_API_KEY"},
		"database.url":            {"CFDI_DATABASE_URL", "DATABASE_URL"},
		"cache.redis_url":         {"CFDI_CACHE_REDIS_URL", "REDIS_URL"},
		"source.minio.access_key": {"CFDI_SOURCE_MINIO_ACCESS_KEY", "MINIO_ACCESS_KEY"},
		"source.minio.secret_key": {"CFDI_SOURCE_MINIO_SECRET_KEY", "MINIO_SECRET_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.File = v.ConfigFileUsed()

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("batch.size", 20)
	v.SetDefault("batch.delay_ms", 50)
	v.SetDefault("batch.timeout_seconds", 10)
	v.SetDefault("batch.company", "")

	v.SetDefault("engine.reject_unknown_versions", true)
	v.SetDefault("engine.activity", "")

	v.SetDefault("sat.enabled", false)
	v.SetDefault("sat.endpoint", "https://consultaqr.facturaelectronica.sat.gob.mx/ConsultaCFDIService.svc")
	v.SetDefault("sat.timeout_seconds", 15)
	v.SetDefault("sat.cache_ttl_hours", 24)

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.redis_url", "")

	v.SetDefault("denylist.backend", BackendMemory)
	v.SetDefault("denylist.file", "denylist.yaml")
	v.SetDefault("denylist.csv_file", "")
	v.SetDefault("denylist.csv_list", "69B")

	v.SetDefault("history.backend", BackendNone)
	v.SetDefault("history.file", "history.yaml")

	v.SetDefault("database.url", "")

	v.SetDefault("materiality.enabled", true)
	v.SetDefault("materiality.ai_enabled", false)
	v.SetDefault("materiality.model", "gemini-1.5-flash")
	v.SetDefault("materiality.api_key", "")

	v.SetDefault("export.delimiter", ",")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_body_bytes", 5<<20)

	v.SetDefault("source.minio.endpoint", "")
	v.SetDefault("source.minio.bucket", "")
	v.SetDefault("source.minio.prefix", "")
	v.SetDefault("source.minio.access_key", "")
	v.SetDefault("source.minio.secret_key", "")
	v.SetDefault("source.minio.use_ssl", true)
}

// Validate checks a configuration changed after Load, e.g. by CLI flags.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Batch.Size < 1 || config.Batch.Size > 500 {
		return fmt.Errorf("batch.size must be between 1 and 500, got: %d", config.Batch.Size)
	}
	if config.Batch.DelayMS < 0 {
		return fmt.Errorf("batch.delay_ms must not be negative, got: %d", config.Batch.DelayMS)
	}
	if config.Batch.TimeoutSeconds < 1 || config.Batch.TimeoutSeconds > 300 {
		return fmt.Errorf("batch.timeout_seconds must be between 1 and 300, got: %d", config.Batch.TimeoutSeconds)
	}

	if config.SAT.Enabled {
		if config.SAT.Endpoint == "" {
			return fmt.Errorf("sat.endpoint required when sat is enabled")
		}
		if config.SAT.TimeoutSeconds < 1 || config.SAT.TimeoutSeconds > 120 {
			return fmt.Errorf("sat.timeout_seconds must be between 1 and 120, got: %d", config.SAT.TimeoutSeconds)
		}
		if config.SAT.CacheTTLHours < 1 {
			return fmt.Errorf("sat.cache_ttl_hours must be at least 1, got: %d", config.SAT.CacheTTLHours)
		}
	}

	switch config.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be 'memory' or 'redis')", config.Cache.Backend)
	}

	switch config.Denylist.Backend {
	case BackendNone:
		if config.Denylist.CSVFile != "" {
			return fmt.Errorf("denylist.csv_file requires a denylist backend other than 'none'")
		}
	case BackendMemory:
	case BackendFile:
		if config.Denylist.File == "" {
			return fmt.Errorf("denylist.file required for the file backend")
		}
	case BackendPostgres:
		if config.Database.URL == "" {
			return fmt.Errorf("database.url required for the postgres denylist")
		}
	default:
		return fmt.Errorf("invalid denylist backend: %s (must be 'none', 'memory', 'file' or 'postgres')", config.Denylist.Backend)
	}
	if l := strings.ToUpper(config.Denylist.CSVList); l != "69B" && l != "EFOS" {
		return fmt.Errorf("denylist.csv_list must be '69B' or 'EFOS', got: %s", config.Denylist.CSVList)
	}

	switch config.History.Backend {
	case BackendNone:
	case BackendFile:
		if config.History.File == "" {
			return fmt.Errorf("history.file required for the file backend")
		}
	case BackendPostgres:
		if config.Database.URL == "" {
			return fmt.Errorf("database.url required for the postgres history")
		}
	default:
		return fmt.Errorf("invalid history backend: %s (must be 'none', 'file' or 'postgres')", config.History.Backend)
	}

	if config.Materiality.AIEnabled {
		if config.Materiality.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when materiality.ai_enabled is set")
		}
		if config.Materiality.Model == "" {
			return fmt.Errorf("materiality.model required when materiality.ai_enabled is set")
		}
	}

	if utf8.RuneCountInString(config.Export.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.Export.Delimiter)
	}

	if config.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be positive, got: %d", config.Server.MaxBodyBytes)
	}

	return nil
}

// ConfigureLoggingFromConfig builds the application logger from the log section.
func ConfigureLoggingFromConfig(config *Config) logging.Logger {
	return logging.NewLogrusAdapter(strings.ToLower(config.Log.Level), strings.ToLower(config.Log.Format))
}
