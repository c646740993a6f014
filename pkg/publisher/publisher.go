package publisher

import (
	"context"
	"unsafe"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shmbus/shmbus/internal/logs"
	"github.com/shmbus/shmbus/internal/metrics"
	"github.com/shmbus/shmbus/pkg/shm"
)

// Publisher is the offering endpoint of one service. It orchestrates the
// loan → fill → publish/release cycle against its two ports and owns the
// offering state.
//
// A Publisher is meant to be driven by a single logical owner; Loan and
// Publish are not serialized internally. The offering state uses atomics
// so queries from other goroutines are safe.
type Publisher[T any] struct {
	service string
	uid     uuid.UUID
	alloc   AllocationPort
	port    TransportPort
	state   offerStateMachine

	metrics     *metrics.PublisherMetrics
	loanCounter metric.Int64Counter
	tracer      trace.Tracer
	log         *logs.Logger
}

// New binds a publisher for the named service to its allocation and
// transport ports. The publisher starts in StoppedOffering.
func New[T any](service string, alloc AllocationPort, port TransportPort, opts ...Option) *Publisher[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasUID {
		o.uid = uuid.New()
	}
	p := &Publisher[T]{
		service: service,
		uid:     o.uid,
		alloc:   alloc,
		port:    port,
		metrics: o.metrics,
		tracer:  o.tracer,
		log:     logs.New("publisher"),
	}
	if o.meter != nil {
		counter, err := o.meter.Int64Counter("shmbus.publisher.loans",
			metric.WithDescription("Chunks loaned from the pool."))
		if err != nil {
			p.log.Warnf("service %q: loan counter unavailable: %v", service, err)
		} else {
			p.loanCounter = counter
		}
	}
	return p
}

// Service returns the service identity used by discovery.
func (p *Publisher[T]) Service() string { return p.service }

// UID returns the publisher's unique id.
func (p *Publisher[T]) UID() uuid.UUID { return p.uid }

// Loan reserves a chunk of at least size bytes and wraps it in a Sample.
// Requests smaller than T are grown so the typed view always fits.
//
// Allocation failure is returned unchanged to the caller; there is no
// retry, no blocking and no internal policy. Check the error before using
// the sample.
func (p *Publisher[T]) Loan(size uint64) (*Sample[T], error) {
	var zero T
	if need := uint64(unsafe.Sizeof(zero)); size < need {
		size = need
	}
	c, err := p.alloc.TryAllocate(size)
	if err != nil {
		p.metrics.IncLoanFailures()
		return nil, err
	}
	p.metrics.IncLoans()
	if p.loanCounter != nil {
		p.loanCounter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("service", p.service)))
	}
	return newSample[T](p, c), nil
}

// Offer makes the service discoverable and forwards to the transport
// port. Idempotent.
func (p *Publisher[T]) Offer() {
	p.state.offer()
	p.port.Offer()
}

// StopOffer withdraws discoverability and forwards to the transport port.
// Idempotent.
func (p *Publisher[T]) StopOffer() {
	p.state.stopOffer()
	p.port.StopOffer()
}

// IsOffered queries the transport port's view of the offering state.
func (p *Publisher[T]) IsOffered() bool { return p.port.IsOffered() }

// HasSubscribers queries the transport port for attached subscribers.
func (p *Publisher[T]) HasSubscribers() bool { return p.port.HasSubscribers() }

// PreviousSample wraps the most recently sent chunk for introspection or
// late-joiner style reads. The returned sample is a read view: it holds no
// reference of its own and its Release is a no-op. Offering state is
// untouched.
func (p *Publisher[T]) PreviousSample() (*Sample[T], bool) {
	c := p.port.LastSent()
	if c == nil {
		return nil, false
	}
	return newSampleView[T](p, c), true
}

// publish is reached only through Sample.Publish. A publisher still in
// StoppedOffering is offered first, so a publisher that never called
// Offer becomes discoverable the moment it has data to send.
func (p *Publisher[T]) publish(c *shm.Chunk) {
	if p.state.offer() {
		p.port.Offer()
	}
	if p.tracer != nil {
		_, span := p.tracer.Start(context.Background(), "shmbus.publish",
			trace.WithAttributes(attribute.String("service", p.service)))
		defer span.End()
	}
	p.port.Send(c)
	p.metrics.IncPublishes()
}

// release is reached only through Sample.Release, at most once per sample.
func (p *Publisher[T]) release(c *shm.Chunk) {
	p.alloc.Free(c)
	p.metrics.IncReleases()
}
