package kvstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/db"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	SQLitePath  string
	RedisURL    string
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	Prefix      string
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		s, err := NewSQLiteStore(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", opts.SQLitePath).Msg("opened sqlite storage")
		return s, nil
	case DriverRedis:
		s, err := NewRedisStore(ctx, opts.RedisURL, opts.Prefix)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to redis storage")
		return s, nil
	case DriverPostgres:
		pool, err := db.NewPool(ctx, opts.DatabaseURL, opts.DBMaxConns, opts.DBMinConns)
		if err != nil {
			return nil, err
		}
		s, err := NewPostgresStore(ctx, pool, opts.Prefix)
		if err != nil {
			pool.Close()
			return nil, err
		}
		s.owned = true
		logger.Info().Msg("connected to postgres storage")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
