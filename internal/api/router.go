// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/wardbook/internal/config"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router using the server section of the configuration.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	mwCfg := DefaultChiMiddlewareConfig()
	if cfg != nil {
		mwCfg.CORSAllowedOrigins = cfg.CORSOrigins
		mwCfg.RateLimitRequests = cfg.RateLimitRequests
		mwCfg.RateLimitWindow = cfg.RateLimitWindow
		mwCfg.RateLimitDisabled = cfg.RateLimitRequests <= 0
	}
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwCfg),
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler
	mw := router.chiMiddleware

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(RequestLogger)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(PrometheusMetrics)
		r.Use(APISecurityHeaders())

		r.With(mw.RateLimitCustom("health", RateLimitHealth)).Get("/health", h.Health)
		r.With(mw.RateLimitCustom("websocket", RateLimitWebSocket)).Get("/ws", h.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())

			r.Get("/status", h.Status)
			r.With(Compression).Get("/state", h.GetState)
			r.Put("/state", h.PutState)
			r.Delete("/records/{id}", h.DeleteRecord)
		})

		r.Route("/session", func(r chi.Router) {
			r.Use(mw.RateLimitCustom("session", RateLimitSession))
			r.Get("/", h.GetSession)
			r.Post("/", h.SignIn)
			r.Delete("/", h.SignOut)
		})

		r.With(mw.RateLimitCustom("sync", RateLimitSync)).Post("/sync/full", h.FullSync)

		r.Route("/backup", func(r chi.Router) {
			r.Use(mw.RateLimitCustom("backup", RateLimitBackup))
			r.With(Compression).Get("/export", h.ExportBackup)
			r.Post("/import", h.ImportBackup)
		})
	})

	return r
}
