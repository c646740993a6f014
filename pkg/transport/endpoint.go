package transport

import (
	"sync"

	"github.com/shmbus/shmbus/internal/logs"
	"github.com/shmbus/shmbus/internal/metrics"
	"github.com/shmbus/shmbus/pkg/registry"
	"github.com/shmbus/shmbus/pkg/shm"
)

// Endpoint is the publisher-side transport port for one service: it fans
// published chunks out to the attached subscriber queues, keeps the most
// recently sent chunk latched for late joiners, and forwards the offering
// operations to the registry.
//
// Reference discipline on Send: the caller hands over its reference. Each
// accepting subscriber gets its own (incremented before delivery, dropped
// again when the queue refuses), and the caller's reference moves to the
// last-sent latch, displacing and freeing the previous occupant.
type Endpoint struct {
	service string
	reg     *registry.Registry
	pool    *shm.Pool
	metrics *metrics.TransportMetrics
	log     *logs.Logger

	mu       sync.Mutex
	lastSent *shm.Chunk
}

// NewEndpoint builds the transport port for a service. metrics may be nil.
func NewEndpoint(service string, reg *registry.Registry, pool *shm.Pool, m *metrics.TransportMetrics) *Endpoint {
	return &Endpoint{
		service: service,
		reg:     reg,
		pool:    pool,
		metrics: m,
		log:     logs.New("transport"),
	}
}

// Send fans the chunk out to every attached subscriber in publish order.
func (e *Endpoint) Send(c *shm.Chunk) {
	e.reg.EachSink(e.service, func(s registry.Sink) {
		e.pool.AddRef(c)
		if !s.Deliver(c) {
			e.pool.Free(c)
			e.metrics.IncDrops()
			e.log.Debugf("service %q: subscriber queue full, chunk %d dropped", e.service, c.Offset())
		}
	})
	e.metrics.IncSends()

	e.mu.Lock()
	prev := e.lastSent
	e.lastSent = c
	e.mu.Unlock()
	if prev != nil {
		e.pool.Free(prev)
	}
}

// LastSent returns the most recently sent chunk, or nil before the first
// send. The latch keeps its own reference; callers must not free through
// the returned view.
func (e *Endpoint) LastSent() *shm.Chunk {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSent
}

// Offer makes the service discoverable.
func (e *Endpoint) Offer() { e.reg.Offer(e.service) }

// StopOffer withdraws the service.
func (e *Endpoint) StopOffer() { e.reg.StopOffer(e.service) }

// IsOffered reports the service's visibility.
func (e *Endpoint) IsOffered() bool { return e.reg.IsOffered(e.service) }

// HasSubscribers reports whether any sink is attached.
func (e *Endpoint) HasSubscribers() bool { return e.reg.HasSubscribers(e.service) }

// Close releases the last-sent latch. The endpoint must not be used after.
func (e *Endpoint) Close() {
	e.mu.Lock()
	prev := e.lastSent
	e.lastSent = nil
	e.mu.Unlock()
	if prev != nil {
		e.pool.Free(prev)
	}
}
