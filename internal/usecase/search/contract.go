package search

import (
	"context"

	domkb "github.com/kailas-cloud/voicegate/internal/domain/kb"
	domstats "github.com/kailas-cloud/voicegate/internal/domain/stats"
)

// DocumentSource exposes the loaded knowledge base.
type DocumentSource interface {
	Documents() []domkb.Document
}

// StatsRecorder stores the search counter and audit trail.
type StatsRecorder interface {
	Record(ctx context.Context, rec domstats.Record) error
	Snapshot(ctx context.Context) (domstats.Snapshot, error)
	Reset(ctx context.Context) error
}
