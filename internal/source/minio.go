package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"fjacquet/cfdi-sentinel/internal/engine"
	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig locates a bucket prefix holding CFDI documents.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// bucket is the part of the object store the source needs.
type bucket interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// MinioSource reads every .xml object under a bucket prefix.
type MinioSource struct {
	store    bucket
	prefix   string
	activity string
	logger   logging.Logger
}

// NewMinioSource connects to the endpoint and checks that the bucket exists.
func NewMinioSource(ctx context.Context, cfg MinioConfig, activity string, logger logging.Logger) (*MinioSource, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}
	return newMinioSource(&minioBucket{client: client, name: cfg.Bucket}, cfg.Prefix, activity, logger), nil
}

func newMinioSource(store bucket, prefix, activity string, logger logging.Logger) *MinioSource {
	return &MinioSource{store: store, prefix: prefix, activity: activity, logger: logging.OrDefault(logger)}
}

// Load implements Source. Objects are read in key order.
func (s *MinioSource) Load(ctx context.Context) ([]engine.Input, error) {
	keys, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	var xmlKeys []string
	for _, k := range keys {
		if strings.EqualFold(path.Ext(k), XMLExtension) {
			xmlKeys = append(xmlKeys, k)
		}
	}
	sort.Strings(xmlKeys)

	inputs := make([]engine.Input, 0, len(xmlKeys))
	for _, key := range xmlKeys {
		data, err := s.read(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.WithError(err).WithFields(logging.Field{Key: logging.FieldFile, Value: key}).Warn("Failed to read object")
		}
		inputs = append(inputs, engine.Input{FileName: path.Base(key), Data: data, Activity: s.activity})
	}

	s.logger.WithFields(
		logging.Field{Key: logging.FieldInputFile, Value: s.prefix},
		logging.Field{Key: logging.FieldCount, Value: len(inputs)},
	).Info("Loaded documents from bucket")
	return inputs, nil
}

func (s *MinioSource) read(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := obj.Close(); cerr != nil {
			s.logger.WithError(cerr).Warn("Failed to close object")
		}
	}()
	return io.ReadAll(obj)
}

type minioBucket struct {
	client *minio.Client
	name   string
}

func (b *minioBucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range b.client.ListObjects(ctx, b.name, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (b *minioBucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
}
