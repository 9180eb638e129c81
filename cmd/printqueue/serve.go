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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/orrn/printqueue/internal/api"
	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/device"
	"github.com/orrn/printqueue/internal/logging"
	"github.com/orrn/printqueue/internal/metrics"
	"github.com/orrn/printqueue/internal/printer"
	"github.com/orrn/printqueue/internal/webhook"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the print worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd.Flags(), opts)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	logger.Info().
		Str("version", getVersion()).
		Int("port", cfg.Server.Port).
		Int("printers", len(cfg.Printers.Devices)).
		Msg("starting printqueue")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(db.Config{Path: cfg.Database.Path})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()
	counters := db.NewCounterStore(database)

	directory := printer.NewDirectory(cfg.Printers.Devices, cfg.Printers.ConnectionTimeout, logging.Component(logger, "printers"))

	sender := webhook.NewSender(cfg.Webhooks, logging.Component(logger, "webhook"))
	sender.Start()
	defer sender.Stop()

	recorder := metrics.NewRecorder()

	spooler := device.NewSpooler(directory, cfg.Printers.ConnectionTimeout, logging.Component(logger, "device"))
	renderer := core.NewRenderer(logging.Component(logger, "renderer"))
	executor := core.NewExecutor(directory, spooler, renderer, logging.Component(logger, "executor"))

	queue := core.NewQueue(executor, logging.Component(logger, "queue"),
		core.WithEventSender(sender),
		core.WithPrintCounter(counters),
		core.WithMetrics(recorder),
		core.WithJobTimeout(cfg.Queue.JobTimeout),
	)
	queue.Start(ctx)
	defer queue.Stop()

	watcher := config.NewWatcher(opts.configPath, logger, directory.SetDevices)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn().Err(err).Msg("config watcher stopped")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(*cfg, api.Dependencies{
		Queue:    queue,
		Printers: directory,
		Counters: counters,
		Metrics:  recorder.Handler(),
		Version:  getVersion(),
		Logger:   logging.Component(logger, "http"),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	return nil
}
