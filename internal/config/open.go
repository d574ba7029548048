package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/vango-dev/counter/internal/errors"
	"github.com/vango-dev/counter/pkg/persist"
)

// OpenStorage opens the configured durable medium.
func (c *Config) OpenStorage() (persist.Storage, error) {
	p := c.Persist
	switch p.Backend {
	case BackendMemory:
		return persist.NewMemoryStorage(), nil

	case BackendFile:
		fs, err := persist.NewFileStorage(c.resolve(p.Dir))
		if err != nil {
			return nil, errors.New("E203").WithDetail("file backend at " + p.Dir).Wrap(err)
		}
		return fs, nil

	case BackendSQLite:
		dsn := p.DSN
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			dsn = c.resolve(dsn)
		}
		db, err := persist.NewSQLiteStorage(dsn)
		if err != nil {
			return nil, errors.New("E203").WithDetail("sqlite backend at " + p.DSN).Wrap(err)
		}
		return db, nil

	case BackendS3:
		client := persist.NewS3Client(persist.S3Config{
			Region:          p.Region,
			Endpoint:        p.Endpoint,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		})
		return persist.NewS3Storage(client, p.Bucket, p.Prefix), nil

	case BackendRedis:
		client := persist.NewRedisClient(persist.RedisConfig{
			Addr:     p.Addr,
			Username: os.Getenv("REDIS_USERNAME"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       p.DB,
		})
		return persist.NewRedisStorage(client, p.Prefix), nil
	}
	return nil, errors.New("E103").WithDetail("Unknown backend " + strconv.Quote(p.Backend))
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.New("E105").WithDetail("Unknown log level " + strconv.Quote(s))
}

// NewLogger builds the process logger described by the log section.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch c.Log.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, errors.New("E105").WithDetail("Unknown log format " + strconv.Quote(c.Log.Format))
	}
	return slog.New(h), nil
}
