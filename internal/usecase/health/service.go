package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
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

// Service coordinates health checks.
type Service struct {
	registry   RegistryPinger
	capability CapabilityChecker
}

// New creates a Service. Both dependencies can be nil: the static registry
// has nothing to ping, and the capability provider is optional.
func New(registry RegistryPinger, capability CapabilityChecker) *Service {
	return &Service{registry: registry, capability: capability}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.registry != nil {
		if err := s.registry.Ping(ctx); err != nil {
			checks["registry"] = CheckError
		} else {
			checks["registry"] = CheckOK
		}
	}

	if s.capability != nil {
		if err := s.capability.HealthCheck(ctx); err != nil {
			checks["capability"] = CheckError
		} else {
			checks["capability"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
