package health

import "context"

// RegistryPinger checks service registry availability.
type RegistryPinger interface {
	Ping(ctx context.Context) error
}

// CapabilityChecker checks an optional capability provider's availability.
type CapabilityChecker interface {
	HealthCheck(ctx context.Context) error
}
