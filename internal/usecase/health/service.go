package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Component names used as check keys.
const (
	ComponentStats    = "stats_store"
	ComponentUpstream = "upstream"
	ComponentKB       = "knowledge_base"
)

// Service coordinates health checks.
type Service struct {
	store    StorePinger
	upstream UpstreamChecker
	kb       DocumentCounter
}

// New creates a Service. Any dependency can be nil and is then skipped.
func New(store StorePinger, upstream UpstreamChecker, kb DocumentCounter) *Service {
	return &Service{store: store, upstream: upstream, kb: kb}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		checks[ComponentStats] = result(s.store.Ping(ctx))
	}
	if s.upstream != nil {
		checks[ComponentUpstream] = result(s.upstream.HealthCheck(ctx))
	}
	if s.kb != nil {
		if s.kb.DocumentCount() > 0 {
			checks[ComponentKB] = CheckOK
		} else {
			checks[ComponentKB] = CheckError
		}
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
