/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Connects URLs to handlers. Every route is read-only except the run
  trigger.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in the access log
  2. Access log: One zap line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Reporting dashboards on other origins

SECURITY NOTE:
  No authentication. Bind to a private interface or put the server behind
  a proxy that authenticates.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/salesetl/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(accessLog(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Post("/", h.TriggerRun)
			r.Get("/latest", h.LatestRun)
			r.Get("/{id}", h.GetRun)
			r.Get("/{id}/unmatched", h.ListUnmatched)
		})

		r.Get("/ledger/periods", h.LedgerPeriods)
	})

	return r
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
