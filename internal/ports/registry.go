package ports

import (
	"context"
	"time"

	"arbiter/internal/domain/execution"
)

// WorkerRegistration advertises a worker to the external registry.
type WorkerRegistration struct {
	WorkerID       string
	PublicKey      string
	Languages      []execution.Language
	MaxConcurrency int
}

// WorkerHeartbeat is the periodic liveness signal.
type WorkerHeartbeat struct {
	WorkerID   string
	Timestamp  time.Time
	Status     string
	ActiveJobs int
}

// RegistryClient talks to the external worker registry. Registration happens
// once at startup; heartbeats repeat for the process lifetime. Heartbeat
// failures are never fatal: evicting stale workers is the registry's job.
type RegistryClient interface {
	Register(ctx context.Context, reg WorkerRegistration) error
	Heartbeat(ctx context.Context, hb WorkerHeartbeat) error
}
