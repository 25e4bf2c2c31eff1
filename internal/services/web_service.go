package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wardlem/findmy-tracker/internal/web"
)

// WebService manages the HTTP server exposing the read API and the live
// map page.
type WebService struct {
	// Configuration fields
	addr string

	// Dependencies
	handler *web.Handler
	logger  zerolog.Logger

	// Internal state management
	server  *http.Server
	running bool
}

// NewWebService creates a new WebService listening on addr.
func NewWebService(addr string, handler *web.Handler, logger zerolog.Logger) *WebService {
	return &WebService{
		addr:    addr,
		handler: handler,
		logger:  logger,
		running: false,
	}
}

// Start begins serving HTTP requests in the background.
func (s *WebService) Start() error {
	if s.running {
		s.logger.Warn().Msg("WebService is already running")
		return errors.New("web service is already running")
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Web server terminated unexpectedly")
		}
	}()

	s.running = true
	s.logger.Info().Str("addr", s.addr).Msg("WebService started")
	return nil
}

// Stop shuts the HTTP server down gracefully, allowing in-flight requests
// to complete.
func (s *WebService) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("WebService is not running")
		return errors.New("web service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to shut down web server")
		return err
	}

	s.running = false
	s.logger.Info().Msg("WebService stopped")
	return nil
}
