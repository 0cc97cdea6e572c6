package repository

import (
	"context"
	"fmt"
	"strings"
)

// Storage driver names.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverS3       = "s3"
	DriverGCS      = "gcs"
)

// Drivers lists every supported driver.
var Drivers = []string{DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverRedis, DriverS3, DriverGCS}

// Config selects and configures a backend.
type Config struct {
	Driver        string
	Key           string
	Path          string // file dir or sqlite database file
	DSN           string // postgres connection string, or sqlite DSN overriding Path
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Bucket        string
	Prefix        string
	Region        string
	Endpoint      string
}

// Open builds the configured backend and wraps it in a BlobStore.
func Open(ctx context.Context, cfg Config, opts ...Option) (*BlobStore, error) {
	blob, err := openBlob(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewBlobStore(blob, append([]Option{WithKey(cfg.Key)}, opts...)...), nil
}

func openBlob(ctx context.Context, cfg Config) (Blob, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory, "":
		return NewMemoryBlob(), nil
	case DriverFile:
		return NewFileBlob(cfg.Path)
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		return OpenSQLBlob(ctx, DialectSQLite, dsn)
	case DriverPostgres:
		return OpenSQLBlob(ctx, DialectPostgres, cfg.DSN)
	case DriverRedis:
		return NewRedisBlob(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case DriverS3:
		return NewS3Blob(ctx, S3Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix, Region: cfg.Region, Endpoint: cfg.Endpoint})
	case DriverGCS:
		return NewGCSBlob(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Driver, ErrUnknownDriver)
	}
}
