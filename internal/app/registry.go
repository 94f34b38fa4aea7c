package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/trikala-registry/companymap/internal/platform/db"
	"github.com/trikala-registry/companymap/internal/registry"
)

// OpenRegistrySource builds the configured registry source. The returned close
// function releases the database pool, if one was opened.
func OpenRegistrySource(ctx context.Context, cfg *Config) (registry.Source, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("config required")
	}
	switch cfg.RegistrySource {
	case SourcePostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return registry.PostgresSource{DB: pool}, pool.Close, nil
	default:
		return registry.CSVSource{Path: cfg.RegistryCSVPath}, func() {}, nil
	}
}

// LogLoadError logs a failed registry load, naming the offending line, column and
// value when the data itself is malformed.
func LogLoadError(logger *slog.Logger, source registry.Source, err error) {
	attrs := []any{slog.String("source", source.Name()), slog.Any("error", err)}
	var formatErr *registry.FormatError
	if errors.As(err, &formatErr) {
		attrs = append(attrs,
			slog.Int("line", formatErr.Line),
			slog.String("column", formatErr.Column),
			slog.String("value", formatErr.Value))
	}
	logger.Error("load registry", attrs...)
}

// AsynqRedisOpt points the job queue at the configured Redis.
func AsynqRedisOpt(cfg *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}
