package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/dashboard"
	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital patient workflow server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	logger := newLogger(os.Getenv("ENV"))
	cfg, err := config.Load()
	if err != nil {
		return nil, logger, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, newLogger(cfg.Env), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the first-run documents that are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, logger, reset)
		},
	}
	cmd.Flags().Bool("reset", false, "Remove every known document before seeding")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dashboard workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), cfg, logger, out)
		},
	}
	cmd.Flags().String("out", "report.xlsx", "Output file")
	return cmd
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	srv, err := server.New(context.Background(), cfg, logger, server.Overrides{})
	if err != nil {
		return err
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			_ = srv.Close()
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runSeed(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reset bool) error {
	kv, docs, err := server.Open(ctx, cfg, logger, nil, nil)
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := hospital.Seed(ctx, docs, reset); err != nil {
		return err
	}
	logger.Info().Bool("reset", reset).Str("storage", cfg.StorageDriver).Msg("seeded documents")
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, logger zerolog.Logger, out string) error {
	kv, docs, err := server.Open(ctx, cfg, logger, nil, nil)
	if err != nil {
		return err
	}
	defer kv.Close()

	store, err := hospital.Open(ctx, docs, hospital.Options{Logger: logger})
	if err != nil {
		return err
	}
	body, err := dashboard.NewService(store, cfg.Currency).Export()
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info().Str("file", out).Int("bytes", len(body)).Msg("exported dashboard")
	return nil
}
