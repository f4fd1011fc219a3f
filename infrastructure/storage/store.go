package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-concord/internal/ports"
)

// Backend names a ResultStore implementation.
type Backend string

const (
	BackendFile  Backend = "file"
	BackendRedis Backend = "redis"
	BackendS3    Backend = "s3"
)

// DefaultDir is where the file backend writes when no directory is set.
const DefaultDir = "results"

// Config selects and configures the result store.
type Config struct {
	Type  Backend     `yaml:"type" validate:"omitempty,oneof=file redis s3"`
	Dir   string      `yaml:"dir"`
	Redis RedisConfig `yaml:"redis"`
	S3    S3Config    `yaml:"s3"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// S3Config configures the S3 backend.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	// UsePathStyle is needed by most S3-compatible servers such as MinIO.
	UsePathStyle bool `yaml:"usePathStyle"`
}

// Normalize fills defaults.
func (c *Config) Normalize() {
	if c.Type == "" {
		c.Type = BackendFile
	}
	if c.Dir == "" {
		c.Dir = DefaultDir
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "concord:"
	}
}

// Validate reports settings the selected backend cannot run without.
func (c Config) Validate() error {
	switch c.Type {
	case "", BackendFile:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Type)
	}
	return nil
}

// New builds the store selected by cfg. It does not call Ensure.
func New(ctx context.Context, cfg Config) (ports.ResultStore, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case BackendFile:
		return NewFileStore(cfg.Dir), nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisStore(client, cfg.Redis.Prefix, cfg.Redis.TTL), nil
	case BackendS3:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.S3.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			}
			o.UsePathStyle = cfg.S3.UsePathStyle
		})
		return NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Type)
	}
}
