package archive

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	DriverMemory = "memory"
	DriverS3     = "s3"
)

// Open builds the archive named by driver.
func Open(ctx context.Context, driver string, cfg S3Config, logger zerolog.Logger) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverS3:
		s, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("archiving receipts to s3")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", driver)
	}
}
