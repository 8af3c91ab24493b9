// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/pagelist/internal/metrics"
	"github.com/tomtom215/pagelist/internal/store"
)

// Waker triggers an extra scheduler run.
type Waker interface {
	Wake(source string) error
}

// Config configures the HTTP surface.
type Config struct {
	Middleware      *ChiMiddlewareConfig
	DefaultPageSize int
	MaxPageSize     int
	MetricsEnabled  bool
	MetricsPath     string
}

// Server serves list windows out of the page store.
type Server struct {
	store *store.Store
	site  store.Site
	waker Waker
	cfg   Config
	mw    *ChiMiddleware
}

// NewServer builds the HTTP surface. waker may be nil.
func NewServer(st *store.Store, site store.Site, waker Waker, cfg Config) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Server{
		store: st,
		site:  site,
		waker: waker,
		cfg:   cfg,
		mw:    NewChiMiddleware(cfg.Middleware),
	}
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.mw.CORS())

	r.Get("/healthz", s.Health)
	if s.cfg.MetricsEnabled {
		r.Handle(s.cfg.MetricsPath, metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.mw.RateLimit("lists"))
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics)
		r.Get("/lists/*", s.ListWindow)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.mw.RateLimit("ping"))
		r.Use(PrometheusMetrics)
		r.Post("/ping", s.Ping)
	})

	return r
}

// NewHTTPServer wraps the router with timeouts.
func (s *Server) NewHTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
