package health

import "context"

// StorePinger checks stats store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// UpstreamChecker checks realtime API availability.
type UpstreamChecker interface {
	HealthCheck(ctx context.Context) error
}

// DocumentCounter reports the loaded knowledge base size.
type DocumentCounter interface {
	DocumentCount() int
}
