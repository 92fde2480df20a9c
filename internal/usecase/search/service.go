package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voicegate/internal/domain"
	domkb "github.com/kailas-cloud/voicegate/internal/domain/kb"
	domstats "github.com/kailas-cloud/voicegate/internal/domain/stats"
	logpkg "github.com/kailas-cloud/voicegate/internal/logger"
	"github.com/kailas-cloud/voicegate/internal/metrics"
)

// ErrMissingQuery is returned for an empty or whitespace-only query.
var ErrMissingQuery = fmt.Errorf("%w: missing 'query'", domain.ErrInvalidArgument)

// Request is a keyword search over the knowledge base.
type Request struct {
	Query       string
	// TopK of zero selects DefaultTopK; other values are clamped.
	TopK        int
	ClientAgent string
}

// Response holds the ranked hits together with the effective query and bound.
type Response struct {
	Results []domkb.Result
	Query   string
	TopK    int
}

// Service ranks knowledge base documents by weighted term frequency.
type Service struct {
	docs  []indexedDoc
	stats StatsRecorder
	now   func() time.Time
}

// New creates a search service over a loaded document source.
// The source is indexed once; later changes to it are not observed.
func New(source DocumentSource, stats StatsRecorder) *Service {
	return &Service{
		docs:  indexDocuments(source.Documents()),
		stats: stats,
		now:   time.Now,
	}
}

// WithClock overrides the audit timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Search ranks documents for req and records the query in the audit trail.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return Response{}, ErrMissingQuery
	}
	topK := DefaultTopK
	if req.TopK != 0 {
		topK = ClampTopK(req.TopK)
	}

	results := rank(s.docs, Tokenize(q), topK)

	outcome := "hit"
	if len(results) == 0 {
		outcome = "miss"
	}
	metrics.RAGSearchesTotal.WithLabelValues(outcome).Inc()

	rec := domstats.Record{
		Timestamp:   s.now().UTC(),
		Query:       q,
		TopK:        topK,
		HitCount:    len(results),
		ClientAgent: req.ClientAgent,
	}
	if err := s.stats.Record(ctx, rec); err != nil {
		ctx = logpkg.With(ctx, zap.String("query", q), zap.Int("hit_count", rec.HitCount))
		logpkg.FromContext(ctx).Warn("failed to record search stats", zap.Error(err))
	}

	return Response{Results: results, Query: q, TopK: topK}, nil
}

// Stats returns the search counter and audit trail.
func (s *Service) Stats(ctx context.Context) (domstats.Snapshot, error) {
	snap, err := s.stats.Snapshot(ctx)
	if err != nil {
		return domstats.Snapshot{}, fmt.Errorf("read stats: %w", err)
	}
	return snap, nil
}

// ResetStats clears the search counter and audit trail.
func (s *Service) ResetStats(ctx context.Context) error {
	if err := s.stats.Reset(ctx); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}
	return nil
}

// DocumentCount returns the number of indexed documents.
func (s *Service) DocumentCount() int {
	return len(s.docs)
}
