package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voicegate/internal/domain"
	domstats "github.com/kailas-cloud/voicegate/internal/domain/stats"
	emotionuc "github.com/kailas-cloud/voicegate/internal/usecase/emotion"
	healthuc "github.com/kailas-cloud/voicegate/internal/usecase/health"
	searchuc "github.com/kailas-cloud/voicegate/internal/usecase/search"
	sessionuc "github.com/kailas-cloud/voicegate/internal/usecase/session"
)

// Error envelope messages.
const (
	msgMissingQuery    = "Missing 'query'"
	msgInvalidBody     = "Invalid JSON body"
	msgInvalidArgument = "Invalid argument"
	msgSessionFailed   = "Failed to create ephemeral session"
	msgNonJSON         = "Upstream returned non-JSON"
	msgTimeout         = "Upstream timeout"
	msgTokenError      = "Token endpoint error"
	msgSearchError     = "RAG search error"
	msgStatsError      = "RAG stats error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the relay HTTP API.
type Server struct {
	sessions      *sessionuc.Service
	search        *searchuc.Service
	emotion       *emotionuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sessions *sessionuc.Service,
	search *searchuc.Service,
	emotion *emotionuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		sessions: sessions,
		search:   search,
		emotion:  emotion,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(searchuc.ErrMissingQuery, http.StatusBadRequest, msgMissingQuery),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, msgInvalidArgument),
		upstreamStatusHandler,
		upstreamNonJSONHandler,
		upstreamTimeoutHandler,
	}
	return s
}

// CreateToken handles POST /token.
func (s *Server) CreateToken(w http.ResponseWriter, r *http.Request) {
	raw, err := s.sessions.Issue(r.Context())
	if err != nil {
		s.handleDomainError(w, err, msgTokenError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// Liveness handles GET /healthz.
func (s *Server) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, livenessResponse{OK: true, Model: s.sessions.Config().Model})
}

// SearchKB handles POST /rag/search.
func (s *Server) SearchKB(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody, nil)
		return
	}

	resp, err := s.search.Search(r.Context(), searchuc.Request{
		Query:       queryString(req.Query),
		TopK:        searchuc.ParseTopK(req.TopK),
		ClientAgent: r.UserAgent(),
	})
	if err != nil {
		s.handleDomainError(w, err, msgSearchError)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseFromDomain(resp))
}

// SearchStats handles GET /rag/stats.
func (s *Server) SearchStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.search.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err, msgStatsError)
		return
	}
	writeJSON(w, http.StatusOK, statsResponseFromDomain(snap))
}

// ResetSearchStats handles POST /rag/stats/reset.
func (s *Server) ResetSearchStats(w http.ResponseWriter, r *http.Request) {
	if err := s.search.ResetStats(r.Context()); err != nil {
		s.handleDomainError(w, err, msgStatsError)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// AnalyzeEmotion handles POST /emotion/analyze.
// A malformed body is treated as an empty one.
func (s *Server) AnalyzeEmotion(w http.ResponseWriter, r *http.Request) {
	var req emotionRequest
	if err := decodeBody(r, &req); err != nil {
		req = emotionRequest{}
	}

	est := s.emotion.Analyze(req.toFeatures())
	writeJSON(w, http.StatusOK, emotionResponseFromDomain(est))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {error, ...extra} envelope.
func writeError(w http.ResponseWriter, status int, message string, extra map[string]any) {
	body := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		body[k] = v
	}
	body["error"] = message
	writeJSON(w, status, body)
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, message, nil)
		return true
	}
}

// upstreamTimeoutHandler maps a session call that ran out of time to the
// token endpoint's 500 envelope with a fixed detail.
func upstreamTimeoutHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		return false
	}
	writeError(w, http.StatusInternalServerError, msgTokenError, map[string]any{"detail": msgTimeout})
	return true
}

// upstreamStatusHandler maps a rejected session call to 502 with upStatus and detail.
func upstreamStatusHandler(w http.ResponseWriter, err error) bool {
	var upErr *domain.UpstreamError
	if !errors.Is(err, domain.ErrUpstream) || !errors.As(err, &upErr) {
		return false
	}
	writeError(w, http.StatusBadGateway, msgSessionFailed, map[string]any{
		"upStatus": upErr.Status,
		"detail":   upErr.Body,
	})
	return true
}

// upstreamNonJSONHandler maps an unparseable upstream body to 502 with body.
func upstreamNonJSONHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrUpstreamNonJSON) {
		return false
	}
	body := ""
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		body = upErr.Body
	}
	writeError(w, http.StatusBadGateway, msgNonJSON, map[string]any{"body": body})
	return true
}

// handleDomainError runs the handler chain; unmatched errors become a 500
// carrying fallback as the message and the error text as detail.
func (s *Server) handleDomainError(w http.ResponseWriter, err error, fallback string) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, fallback, map[string]any{
		"detail": domain.Truncate(err.Error(), domain.MaxUpstreamBody),
	})
}

// statsRecent converts records to the wire form, never nil.
func statsRecent(recent []domstats.Record) []recordResponse {
	out := make([]recordResponse, len(recent))
	for i, r := range recent {
		out[i] = recordFromDomain(r)
	}
	return out
}
