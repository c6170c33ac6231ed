package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Auth modes.
const (
	AuthCredentials  = "credentials"
	AuthSelfAsserted = "self-asserted"
)

// Archive backends.
const (
	ArchiveMemory = "memory"
	ArchiveS3     = "s3"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	StoragePrefix string `mapstructure:"STORAGE_PREFIX"`

	AuthMode       string        `mapstructure:"AUTH_MODE"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`

	OTPTTL         time.Duration `mapstructure:"OTP_TTL"`
	OTPMaxAttempts int           `mapstructure:"OTP_MAX_ATTEMPTS"`

	ToastDuration time.Duration `mapstructure:"TOAST_DURATION"`

	ConsultationFee float64 `mapstructure:"CONSULTATION_FEE"`
	TaxRate         float64 `mapstructure:"TAX_RATE"`
	Currency        string  `mapstructure:"CURRENCY"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	ArchiveDriver string `mapstructure:"ARCHIVE_DRIVER"`
	S3Bucket      string `mapstructure:"S3_BUCKET"`
	S3Region      string `mapstructure:"S3_REGION"`
	S3Endpoint    string `mapstructure:"S3_ENDPOINT"`
	S3PathStyle   bool   `mapstructure:"S3_PATH_STYLE"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "CORS_ORIGINS",
	"STORAGE_DRIVER", "SQLITE_PATH", "REDIS_URL", "DATABASE_URL",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "STORAGE_PREFIX",
	"AUTH_MODE", "AUTH_SIGNING_KEY", "SESSION_TTL",
	"OTP_TTL", "OTP_MAX_ATTEMPTS", "TOAST_DURATION",
	"CONSULTATION_FEE", "TAX_RATE", "CURRENCY",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"ARCHIVE_DRIVER", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PATH_STYLE",
	"METRICS_ENABLED",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORAGE_DRIVER", StorageSQLite)
	v.SetDefault("SQLITE_PATH", "hms.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("AUTH_MODE", AuthCredentials)
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("TOAST_DURATION", "3s")
	v.SetDefault("CONSULTATION_FEE", 50.00)
	v.SetDefault("TAX_RATE", 0.05)
	v.SetDefault("CURRENCY", "GH₵")
	v.SetDefault("KAFKA_TOPIC", "patient-status")
	v.SetDefault("ARCHIVE_DRIVER", ArchiveMemory)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("METRICS_ENABLED", true)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	return cfg, nil
}

// splitList normalizes comma separated env values, which viper may hand back
// as a single element.
func splitList(decoded []string, raw string) []string {
	if len(decoded) == 0 && raw != "" {
		decoded = []string{raw}
	}
	var out []string
	for _, item := range decoded {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// FeeCents returns the consultation fee in cents.
func (c *Config) FeeCents() int64 {
	return int64(c.ConsultationFee*100 + 0.5)
}

// SigningKey decodes AUTH_SIGNING_KEY. An empty key yields nil and the caller
// generates one per process.
func (c *Config) SigningKey() ([]byte, error) {
	if c.AuthSigningKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.AuthSigningKey)
	if err != nil {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY is not valid hex: %w", err)
	}
	return key, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StorageSQLite:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORAGE_DRIVER is %q", StorageRedis)
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER is %q", StoragePostgres)
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be memory, sqlite, redis or postgres, got %q", c.StorageDriver)
	}

	switch c.AuthMode {
	case AuthCredentials:
	case AuthSelfAsserted:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE %q is not allowed in production", AuthSelfAsserted)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthCredentials, AuthSelfAsserted, c.AuthMode)
	}
	if _, err := c.SigningKey(); err != nil {
		return err
	}

	switch c.ArchiveDriver {
	case ArchiveMemory:
	case ArchiveS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when ARCHIVE_DRIVER is %q", ArchiveS3)
		}
	default:
		return fmt.Errorf("ARCHIVE_DRIVER must be memory or s3, got %q", c.ArchiveDriver)
	}

	if c.ConsultationFee < 0 {
		return fmt.Errorf("CONSULTATION_FEE must not be negative, got %v", c.ConsultationFee)
	}
	if c.TaxRate < 0 {
		return fmt.Errorf("TAX_RATE must not be negative, got %v", c.TaxRate)
	}
	if c.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive, got %d", c.OTPMaxAttempts)
	}
	return nil
}
