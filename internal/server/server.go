// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package server implements the HTTP API of the geocoding service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wneessen/geonear/internal/config"
	"github.com/wneessen/geonear/internal/geocode"
	"github.com/wneessen/geonear/internal/logger"
	"github.com/wneessen/geonear/internal/metrics"
	"github.com/wneessen/geonear/internal/template"
)

const (
	// ShutdownTimeout is the time in-flight requests are given to complete on shutdown.
	ShutdownTimeout = 5 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// Status reports the state of the geocoding engine.
type Status interface {
	Ready() bool
	Len() int
}

type Server struct {
	conf      *config.Config
	logger    *logger.Logger
	geocoder  geocode.Geocoder
	status    Status
	templates *template.Templates
	metrics   *metrics.Metrics

	router *gin.Engine
	http   *http.Server
}

// New returns a Server answering queries with geocoder. metrics may be nil, in which case no
// metrics are recorded or served.
func New(conf *config.Config, log *logger.Logger, geocoder geocode.Geocoder, status Status,
	templates *template.Templates, metrics *metrics.Metrics,
) *Server {
	server := &Server{
		conf:      conf,
		logger:    log,
		geocoder:  geocoder,
		status:    status,
		templates: templates,
		metrics:   metrics,
	}

	router := gin.New()
	router.Use(gin.Recovery(), server.accessLog(), cors(conf.Server.AllowOrigin))
	router.GET("/", server.root)
	router.GET("/reverse_geocode", server.reverseGeocode)
	if metrics != nil && !conf.Metrics.Disable && conf.Metrics.Path != "" {
		router.GET(conf.Metrics.Path, gin.WrapH(metrics.Handler()))
	}
	server.router = router

	server.http = &http.Server{
		Addr:              conf.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return server
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP requests until ctx is canceled and then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		s.logger.Info("starting HTTP server", "listen", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
