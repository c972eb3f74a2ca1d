package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures optional router features.
type RouterOptions struct {
	EnableCORS     bool
	EnableTracing  bool
	MetricsHandler http.Handler
}

// NewRouter builds the API router.
func NewRouter(handler *Handler, logger *zap.Logger, opts RouterOptions) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(logger))
	if opts.EnableTracing {
		router.Use(traceRequests("mnemonic-backend"))
	}

	if opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/memories", handler.CreateMemory)
		r.Get("/memories/{id}", handler.GetMemory)
		r.Put("/memories/{id}", handler.UpdateMemory)
		r.Post("/memories/{id}/conflicts", handler.AddConflict)
		r.Put("/memories/{id}/confidence", handler.SetConfidence)

		r.Post("/search/sessions", handler.StartSession)
		r.Get("/search/sessions/{id}", handler.GetSession)
		r.Post("/search/sessions/{id}/layers", handler.AddLayer)
		r.Post("/search/sessions/{id}/results", handler.AddResult)
		r.Post("/search/sessions/{id}/complete", handler.CompleteSession)
		r.Post("/search/sessions/{id}/fail", handler.FailSession)

		r.Post("/search", handler.Search)
		r.Get("/statistics", handler.Statistics)
	})

	router.Get("/health", handler.Health)
	if opts.MetricsHandler != nil {
		router.Handle("/metrics", opts.MetricsHandler)
	}

	return router
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
