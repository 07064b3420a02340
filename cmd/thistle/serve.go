package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/pkg/routes"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	"github.com/Ramsey-B/thistle/pkg/tasks"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	cfg := a.cfg
	logger := a.logger

	var store tasks.Store = tasks.NewMemoryStore()
	if cfg.RedisEnabled {
		redisStore, err := tasks.NewRedisStore(tasks.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TaskTTL,
		}, logger)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		a.checks["redis"] = redisStore.Ping
		store = redisStore
	}

	manager := tasks.NewManager(ctx, store, a.pipeline, logger)

	checker := health.NewChecker(version)
	for name, check := range a.checks {
		checker.AddCheck(name, check)
	}

	deps := routes.Dependencies{
		Runs:   manager,
		Health: checker,
	}
	if a.reports != nil {
		deps.Reports = a.reports
	}
	if a.graph != nil {
		deps.Graph = a.graph
	}

	e := routes.NewServer(routes.Options{AppName: cfg.AppName, DataDir: cfg.DataDir}, deps, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	return runServer(ctx, server, checker, manager, logger)
}

// runWaiter blocks until every submitted run has stored its final status
type runWaiter interface {
	Wait()
}

// runServer serves until ctx is done or the listener fails. Runs are always drained before it
// returns so the deferred sink closers never race a run that is still writing.
func runServer(ctx context.Context, server *http.Server, checker *health.Checker, runs runWaiter, logger ectologger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	checker.SetReady(true)

	select {
	case err := <-errCh:
		if err != nil {
			checker.SetReady(false)
			logger.WithError(err).Error("Server failed, waiting for in-flight runs")
			runs.Wait()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	checker.SetReady(false)
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down server")
	}

	// ctx is done, so in-flight runs abort and record a failed status
	runs.Wait()
	return nil
}
