// Package health exposes shmbus runtime state as heptiolabs/healthcheck
// checks, ready to mount on an HTTP mux.
package health

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"

	"github.com/shmbus/shmbus/pkg/registry"
	"github.com/shmbus/shmbus/pkg/shm"
	"github.com/shmbus/shmbus/pkg/transport"
)

// PoolPressure fails once fewer than minFree chunks remain across all
// classes, an early warning before loans start failing.
func PoolPressure(p *shm.Pool, minFree int) healthcheck.Check {
	return func() error {
		if free := p.FreeChunks(); free < minFree {
			return fmt.Errorf("pool pressure: %d free chunks, want at least %d", free, minFree)
		}
		return nil
	}
}

// Offered fails while the service is not discoverable; useful as a
// readiness check on publisher processes.
func Offered(reg *registry.Registry, service string) healthcheck.Check {
	return func() error {
		if !reg.IsOffered(service) {
			return fmt.Errorf("service %q is not offered", service)
		}
		return nil
	}
}

// SubscriberDrops fails once a subscriber dropped more than maxDropped
// deliveries, signalling it cannot keep up with the publish rate.
func SubscriberDrops(stats func() transport.QueueStats, maxDropped uint64) healthcheck.Check {
	return func() error {
		if st := stats(); st.Dropped > maxDropped {
			return fmt.Errorf("subscriber dropped %d deliveries (limit %d)", st.Dropped, maxDropped)
		}
		return nil
	}
}

// NewHandler assembles a handler with pool liveness and per-service
// readiness wired in.
func NewHandler(p *shm.Pool, minFree int, reg *registry.Registry, services ...string) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("pool-pressure", PoolPressure(p, minFree))
	for _, svc := range services {
		h.AddReadinessCheck("offered-"+svc, Offered(reg, svc))
	}
	return h
}
