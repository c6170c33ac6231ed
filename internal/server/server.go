// Package server assembles the HTTP application: storage, the shared
// hospital store, sessions and every workflow screen.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/checkin"
	"github.com/hms/hms/internal/domain/dashboard"
	"github.com/hms/hms/internal/domain/doctor"
	"github.com/hms/hms/internal/domain/nurse"
	"github.com/hms/hms/internal/domain/patients"
	"github.com/hms/hms/internal/domain/pharmacy"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/archive"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/kvstore"
	"github.com/hms/hms/internal/platform/metrics"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/toast"
	"github.com/hms/hms/internal/session"
)

// Version is reported by /health.
const Version = "0.1.0"

// Overrides replaces backends normally built from config. Tests use it to
// inject in-memory doubles.
type Overrides struct {
	KV      kvstore.Store
	Events  events.Publisher
	Archive archive.Store
	Now     func() time.Time
	Rand    io.Reader
}

type Server struct {
	Echo      *echo.Echo
	Config    *config.Config
	Store     *hospital.Store
	Docs      *kvstore.JSON
	Sessions  *session.Manager
	Toasts    *toast.Store
	Metrics   *metrics.Metrics
	Dashboard *dashboard.Service

	logger zerolog.Logger
	kv     kvstore.Store
	events events.Publisher
}

// Open connects the storage backend named by cfg and loads the documents.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, kv kvstore.Store, m *metrics.Metrics) (kvstore.Store, *kvstore.JSON, error) {
	if kv == nil {
		var err error
		kv, err = kvstore.Open(ctx, kvstore.Options{
			Driver:      cfg.StorageDriver,
			SQLitePath:  cfg.SQLitePath,
			RedisURL:    cfg.RedisURL,
			DatabaseURL: cfg.DatabaseURL,
			DBMaxConns:  cfg.DBMaxConns,
			DBMinConns:  cfg.DBMinConns,
			Prefix:      cfg.StoragePrefix,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage: %w", err)
		}
	}
	docs := kvstore.NewJSON(kv, logger, func(key, op string) {
		m.PersistFailure(key)
	})
	return kv, docs, nil
}

// New builds the application. Backends missing from o are built from cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, o Overrides) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	kv, docs, err := Open(ctx, cfg, logger, o.KV, m)
	if err != nil {
		return nil, err
	}
	s := &Server{Config: cfg, Docs: docs, Metrics: m, logger: logger, kv: kv}

	s.events = o.Events
	if s.events == nil {
		s.events = events.New(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}

	arch := o.Archive
	if arch == nil {
		arch, err = archive.Open(ctx, cfg.ArchiveDriver, archive.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		}, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
	}

	s.Store, err = hospital.Open(ctx, docs, hospital.Options{
		Logger:  logger,
		Events:  s.events,
		Metrics: m,
		Now:     o.Now,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open hospital store: %w", err)
	}

	key, err := cfg.SigningKey()
	if err != nil {
		s.Close()
		return nil, err
	}
	tokens, err := auth.NewTokens(key, cfg.SessionTTL)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Sessions, err = session.NewManager(ctx, docs, session.Options{
		Mode:   cfg.AuthMode,
		Tokens: tokens,
		Staff:  s.Store,
		Logger: logger,
		Now:    o.Now,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Toasts = toast.NewStore(cfg.ToastDuration)

	codes := checkin.NewService(s.Store, checkin.Options{
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
		Metrics:     m,
		Logger:      logger,
		Now:         o.Now,
		Rand:        o.Rand,
	})
	s.Dashboard = dashboard.NewService(s.Store, cfg.Currency)

	var pool *pgxpool.Pool
	if pg, ok := kv.(*kvstore.PostgresStore); ok {
		pool = pg.Pool()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	if m != nil {
		e.Use(middleware.Metrics(m))
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(auth.SessionMiddleware(s.Sessions))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": Version})
	})
	e.GET("/health/storage", db.StorageHealthHandler(kv, pool))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	api := e.Group("/api/v1")
	session.NewHandler(s.Sessions, s.Toasts, cfg.IsProduction()).
		RegisterRoutes(api, middleware.RateLimit(middleware.DefaultLoginRateLimit()))
	api.GET("/navigation", auth.NavigationHandler)
	toast.NewHandler(s.Toasts).RegisterRoutes(api)

	patients.NewHandler(patients.NewService(s.Store, codes), s.Toasts).
		RegisterRoutes(api, middleware.RateLimit(middleware.DefaultLoginRateLimit()))
	nurse.NewHandler(nurse.NewService(s.Store), s.Toasts).RegisterRoutes(api)
	doctor.NewHandler(doctor.NewService(s.Store), s.Toasts).RegisterRoutes(api)
	pharmacy.NewHandler(pharmacy.NewService(s.Store, m, logger), s.Toasts).RegisterRoutes(api)
	billing.NewHandler(billing.NewService(s.Store, billing.Options{
		Fee:      hospital.Cents(cfg.FeeCents()),
		TaxRate:  cfg.TaxRate,
		Currency: cfg.Currency,
		Archive:  arch,
		Logger:   logger,
	}), s.Toasts).RegisterRoutes(api)
	staff.NewHandler(staff.NewService(s.Store), s.Toasts).RegisterRoutes(api)
	dashboard.NewHandler(s.Dashboard).RegisterRoutes(api)

	s.Echo = e
	return s, nil
}

// Start serves on addr until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Str("storage", s.Config.StorageDriver).Msg("starting server")
	if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases every backend.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.Echo != nil {
		err = s.Echo.Shutdown(ctx)
	}
	return errors.Join(err, s.Close())
}

// Close releases the toast timers, the event writer and the storage backend.
func (s *Server) Close() error {
	if s.Toasts != nil {
		s.Toasts.Close()
	}
	var errs []error
	if s.events != nil {
		errs = append(errs, s.events.Close())
	}
	if s.kv != nil {
		errs = append(errs, s.kv.Close())
	}
	return errors.Join(errs...)
}
