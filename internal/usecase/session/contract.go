package session

import (
	"context"
	"encoding/json"

	domsess "github.com/kailas-cloud/voicegate/internal/domain/session"
)

// Upstream creates sessions on the realtime API.
type Upstream interface {
	CreateSession(ctx context.Context, cfg domsess.Config) (json.RawMessage, error)
}
