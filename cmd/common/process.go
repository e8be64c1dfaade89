// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"fmt"

	"fjacquet/cfdi-sentinel/internal/config"
	"fjacquet/cfdi-sentinel/internal/engine"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/source"
	"fjacquet/cfdi-sentinel/internal/validation"
)

// InputSpec says where a command reads its documents from.
type InputSpec struct {
	// Path is a file or directory; ignored when Bucket is set.
	Path string
	// Bucket reads from the configured MinIO bucket instead of Path.
	Bucket bool
	// Prefix overrides source.minio.prefix when non-empty.
	Prefix   string
	Activity string
}

// LoadInputs resolves the input against cfg and loads every document.
func LoadInputs(ctx context.Context, cfg *config.Config, in InputSpec, logger logging.Logger) ([]engine.Input, error) {
	src, err := newSource(ctx, cfg, in, logger)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

func newSource(ctx context.Context, cfg *config.Config, in InputSpec, logger logging.Logger) (source.Source, error) {
	if !in.Bucket {
		if in.Path == "" {
			return nil, fmt.Errorf("input path must be specified with -i")
		}
		if err := validation.IsValidPath(in.Path); err != nil {
			return nil, err
		}
		return source.NewDirectorySource(in.Path, in.Activity, logger), nil
	}

	m := cfg.Source.Minio
	prefix := m.Prefix
	if in.Prefix != "" {
		prefix = in.Prefix
	}
	return source.NewMinioSource(ctx, source.MinioConfig{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		Bucket:    m.Bucket,
		Prefix:    prefix,
		UseSSL:    m.UseSSL,
	}, in.Activity, logger)
}
