package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/photomesh/photomesh/config"
	httpx "github.com/photomesh/photomesh/internal/http"
	"github.com/photomesh/photomesh/internal/service"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
		appCfg.Sanitize()
	}

	services := httpx.RouterServices{
		Jobs:           cfg.Services.Jobs,
		Artifacts:      cfg.Services.Artifacts,
		History:        cfg.Services.History,
		MaxUploadBytes: appCfg.HTTP.MaxUploadBytes,
		Logger:         logger,
	}

	handler := buildHTTPHandler(logger, services)

	return startServer(logger, handler, appCfg.HTTP)
}

// buildHTTPHandler wraps the router with middleware.
// Order: Recover -> Logging -> Router.
func buildHTTPHandler(logger *slog.Logger, services httpx.RouterServices) http.Handler {
	h := httpx.NewRouter(services)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	return h
}

func startServer(logger *slog.Logger, handler http.Handler, cfg config.HTTPConfig) *http.Server {
	addr := cfg.Addr
	if addr == "" {
		addr = ":8000"
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays unset so progress streams can outlive
		// any fixed response deadline.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context    context.Context
	Server     *http.Server
	JobService *service.JobService
	Logger     *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	// Close progress streams first so in-flight SSE responses end
	// instead of pinning the server open.
	if cfg.JobService != nil {
		cfg.JobService.StopAll()
	}

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
