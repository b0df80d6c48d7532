package main

import (
	"net/http"
	"time"

	"StandupPulse/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inconshreveable/log15/v3"
)

func SetupRouter(h *api.Handler, log log15.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", api.HandleHealthCheck)

	// Events API and interactivity can share one request URL.
	r.Post("/slack/events", h.ServeHTTP)
	r.Post("/slack/interactions", h.ServeHTTP)
	r.Post("/slack/commands", h.HandleCommand)

	return r
}

func requestLogger(log log15.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("Request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"took", time.Since(start),
				"req_id", middleware.GetReqID(r.Context()))
		})
	}
}
