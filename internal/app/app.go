// Package app provides application lifecycle management for the edap server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/service"
	"github.com/edap/edap-server/internal/telemetry"
)

// EdapApp encapsulates all components needed to run the edap server
// It provides lifecycle management and graceful shutdown capabilities
type EdapApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// telemetry is nil when the caller injected and owns it
	telemetry *telemetry.Telemetry

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start restores a sync worker for every stored profile and then serves HTTP.
// This method blocks until the HTTP server stops or encounters an error
func (app *EdapApp) Start() error {
	if _, err := app.components.Scheduler.Restore(app.ctx); err != nil {
		return fmt.Errorf("failed to restore sync workers: %w", err)
	}

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// The HTTP server and the sync workers wind down concurrently; storage is
// released only once both are done.
func (app *EdapApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(shutdownCtx)
	g.Go(func() error {
		if err := app.httpServer.Shutdown(gctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return app.components.Scheduler.Shutdown(gctx)
	})
	err := g.Wait()

	if app.cancelFunc != nil {
		app.cancelFunc()
	}
	app.components.Storage.Cleanup()

	if app.telemetry != nil {
		if terr := app.telemetry.Shutdown(shutdownCtx); terr != nil {
			slog.Error("Failed to flush telemetry", "error", terr)
		}
	}

	if err != nil {
		return err
	}
	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *EdapApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *EdapApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Service returns the service for one-shot commands that skip the HTTP server
func (app *EdapApp) Service() service.Service {
	return app.components.Service
}
