package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterOptions selects the optional surfaces of the router.
type RouterOptions struct {
	// StaticDir is served at / when non-empty.
	StaticDir string
	// Metrics exposes GET /metrics.
	Metrics bool
	// TokenLimiter guards POST /token when non-nil.
	TokenLimiter func(http.Handler) http.Handler
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router, opts RouterOptions) {
	tokenRoute := r
	if opts.TokenLimiter != nil {
		tokenRoute = r.With(opts.TokenLimiter)
	}
	tokenRoute.Post("/token", s.CreateToken)

	r.Get("/healthz", s.Liveness)
	r.Get("/health", s.HealthCheck)

	r.Route("/rag", func(r chi.Router) {
		r.Post("/search", s.SearchKB)
		r.Get("/stats", s.SearchStats)
		r.Post("/stats/reset", s.ResetSearchStats)
	})

	r.Post("/emotion/analyze", s.AnalyzeEmotion)

	if opts.Metrics {
		r.Get("/metrics", s.Metrics)
	}

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}
}
