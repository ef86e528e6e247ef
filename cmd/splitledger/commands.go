package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"splitledger/internal/app"
	"splitledger/internal/config"
	"splitledger/pkg/logger"
)

var (
	configPath   string
	seedPassword string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file (defaults to $CONFIG_FILE)")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password123", "Password for the demo accounts")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

var rootCmd = &cobra.Command{
	Use:           "splitledger",
	Short:         "Shared expense ledger with peer approval",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, cfg, err := setup()
		if err != nil {
			return err
		}
		if err := app.Migrate(cfg, log); err != nil {
			log.Critical("migrate: failed", "err", err)
			return err
		}
		log.Info("migrate: done")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo users, a shared group and two approved expenses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, cfg, err := setup()
		if err != nil {
			return err
		}
		result, err := app.Seed(cmd.Context(), cfg, log, seedPassword)
		if err != nil {
			log.Critical("seed: failed", "err", err)
			return err
		}
		if result.Skipped {
			log.Info("seed: nothing to do", "group_id", result.GroupID)
		}
		return nil
	},
}

// setup loads the configuration with a bootstrap logger, then rebuilds the
// logger from the configured level and format.
func setup() (logger.Logger, config.Config, error) {
	bootstrap := logger.NewFromEnv()
	cfg, err := config.Load(bootstrap, configPath)
	if err != nil {
		bootstrap.Critical("config: load failed", "err", err)
		return nil, config.Config{}, err
	}
	log := logger.New(os.Stdout, logger.ParseLevel(cfg.Log.Level, cfg.Env), logger.ParseFormat(cfg.Log.Format))
	return log, cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log, cfg, err := setup()
	if err != nil {
		return err
	}
	log.Info("app: starting", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(log, cfg)
	if err != nil {
		log.Critical("app: init failed", "err", err)
		return err
	}

	srv := application.HTTPServer()
	log.Info("http: listening", "addr", srv.Addr)

	serverErrCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("app: shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			log.Critical("http: server failed", "addr", srv.Addr, "err", err)
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http: graceful shutdown failed", "err", err)
		runErr = errors.Join(runErr, err)
	}

	if err := application.Close(); err != nil {
		log.Error("app: close failed", "err", err)
		runErr = errors.Join(runErr, err)
	}

	if runErr == nil {
		log.Info("app: stopped")
	}
	return runErr
}
