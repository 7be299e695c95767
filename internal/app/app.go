// Package app wires configuration into the parse pipeline and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"

	"docparser/internal/config"
	"docparser/internal/handler"
	"docparser/internal/parser"
	"docparser/internal/parser/docling"
	"docparser/internal/parser/llmwhisperer"
	"docparser/internal/port"
	"docparser/internal/router"
	"docparser/internal/service"
	"docparser/internal/storage/noop"
	s3storage "docparser/internal/storage/s3"
	"docparser/internal/web"
)

const shutdownTimeout = 30 * time.Second

// NewDispatcher builds the dispatcher with both backend adapters.
func NewDispatcher(cfg *config.Config) *parser.Dispatcher {
	return parser.NewDispatcher(
		docling.NewConverter(&cfg.Docling),
		llmwhisperer.NewClient(&cfg.LLMWhisperer),
	)
}

// NewStorage returns the result archive selected by cfg.Provider.
func NewStorage(cfg *config.StorageConfig) (port.ObjectStorage, error) {
	switch cfg.Provider {
	case "s3":
		return s3storage.NewS3Client(cfg)
	case "", "noop":
		return noop.NewNoopStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// NewParseService builds the service shared by the HTTP server and CLI.
func NewParseService(cfg *config.Config) (service.ParseService, error) {
	storage, err := NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return service.NewParseService(NewDispatcher(cfg), storage, &cfg.Upload, &cfg.Storage), nil
}

// NewServer builds the HTTP server for cfg.
func NewServer(cfg *config.Config) (*http.Server, error) {
	parseSvc, err := NewParseService(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	r := router.Setup(
		tmpl,
		cfg.CORS.AllowedOrigins,
		handler.NewPageHandler(parseSvc, cfg.Upload.MaxFileSizeMB),
		handler.NewParseHandler(parseSvc, cfg.Upload.MaxFileSizeMB),
		handler.NewHealthHandler(cfg.Upload.OutputDir),
	)

	return &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}, nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, cfg *config.Config) error {
	srv, err := NewServer(cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
