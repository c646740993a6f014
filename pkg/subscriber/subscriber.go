// Package subscriber implements the receive side of the shmbus transport:
// attach to a service by name, take published chunks as typed read
// samples, and release each one exactly once.
package subscriber

import (
	"time"

	"github.com/google/uuid"

	"github.com/shmbus/shmbus/internal/logs"
	"github.com/shmbus/shmbus/pkg/registry"
	"github.com/shmbus/shmbus/pkg/shm"
	"github.com/shmbus/shmbus/pkg/transport"
)

const defaultQueueDepth = 256

// Subscriber receives chunks published under one service name. Each taken
// sample carries this subscriber's own reference on the chunk; releasing
// the sample drops it.
type Subscriber[T any] struct {
	service string
	uid     uuid.UUID
	reg     *registry.Registry
	pool    *shm.Pool
	queue   *transport.SubscriberQueue
	log     *logs.Logger
}

type options struct {
	depth int
	uid   uuid.UUID
	hasID bool
}

// Option configures a Subscriber at construction time.
type Option func(*options)

// WithQueueDepth bounds the pending chunk references; the default is 256.
func WithQueueDepth(depth int) Option {
	return func(o *options) { o.depth = depth }
}

// WithUID pins the subscriber's unique id; the default is random.
func WithUID(uid uuid.UUID) Option {
	return func(o *options) {
		o.uid = uid
		o.hasID = true
	}
}

// New creates a subscriber for the named service. It is not attached yet;
// call Attach to start receiving.
func New[T any](service string, reg *registry.Registry, pool *shm.Pool, opts ...Option) *Subscriber[T] {
	o := options{depth: defaultQueueDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasID {
		o.uid = uuid.New()
	}
	return &Subscriber[T]{
		service: service,
		uid:     o.uid,
		reg:     reg,
		pool:    pool,
		queue:   transport.NewSubscriberQueue(o.depth),
		log:     logs.New("subscriber"),
	}
}

// Service returns the subscribed service name.
func (s *Subscriber[T]) Service() string { return s.service }

// UID returns the subscriber's unique id.
func (s *Subscriber[T]) UID() uuid.UUID { return s.uid }

// Attach registers this subscriber's queue with the discovery registry.
// Attaching to a service that is not offered yet is allowed.
func (s *Subscriber[T]) Attach() error {
	return s.reg.Attach(s.service, s.uid.String(), s.queue)
}

// Detach deregisters the queue and drops the references of everything
// still pending, so no chunk leaks on teardown.
func (s *Subscriber[T]) Detach() {
	s.reg.Detach(s.service, s.uid.String())
	for _, c := range s.queue.Dispose() {
		s.pool.Free(c)
	}
}

// Take returns the next pending sample without waiting.
func (s *Subscriber[T]) Take() (*Sample[T], bool) {
	return s.TakeTimeout(0)
}

// TakeTimeout waits up to timeout for the next sample. A zero or negative
// timeout polls without waiting.
func (s *Subscriber[T]) TakeTimeout(timeout time.Duration) (*Sample[T], bool) {
	c, ok := s.queue.Poll(timeout)
	if !ok {
		return nil, false
	}
	return newSample[T](s, c), true
}

// Stats returns the delivery counters of this subscriber's queue.
func (s *Subscriber[T]) Stats() transport.QueueStats {
	return s.queue.Stats()
}
