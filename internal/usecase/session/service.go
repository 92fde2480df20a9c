package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	domsess "github.com/kailas-cloud/voicegate/internal/domain/session"
	logpkg "github.com/kailas-cloud/voicegate/internal/logger"
)

// Service issues ephemeral realtime sessions.
type Service struct {
	upstream Upstream
	defaults domsess.Defaults
}

// New creates a session service.
func New(upstream Upstream, defaults domsess.Defaults) *Service {
	return &Service{upstream: upstream, defaults: defaults}
}

// Config returns the payload sent upstream for every session.
func (s *Service) Config() domsess.Config {
	return domsess.NewConfig(s.defaults)
}

// Issue creates a session and returns the upstream response verbatim.
func (s *Service) Issue(ctx context.Context) (json.RawMessage, error) {
	cfg := s.Config()

	raw, err := s.upstream.CreateSession(ctx, cfg)
	if err != nil {
		logpkg.FromContext(ctx).Warn("create realtime session failed",
			zap.String("model", cfg.Model), zap.Error(err))
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return raw, nil
}
