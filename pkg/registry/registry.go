// Package registry matches publishers to subscribers by service name. It
// owns the offered/stopped visibility flag per service and the set of
// subscriber sinks a publisher's endpoint fans out to.
package registry

import (
	"errors"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/shmbus/shmbus/pkg/shm"

	"github.com/shmbus/shmbus/internal/logs"
)

// ErrSinkExists reports a second Attach with the same subscriber id.
var ErrSinkExists = errors.New("subscriber already attached to service")

// Sink receives chunk references fanned out to one subscriber. Deliver
// must not block; it reports false when the reference was not accepted
// (the caller then drops the chunk's reference again).
type Sink interface {
	Deliver(c *shm.Chunk) bool
}

type service struct {
	offered atomic.Bool

	mu    sync.RWMutex
	sinks map[string]Sink
}

// Registry is safe for concurrent use by any number of publishers and
// subscribers.
type Registry struct {
	services cmap.ConcurrentMap[string, *service]
	log      *logs.Logger
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		services: cmap.New[*service](),
		log:      logs.New("registry"),
	}
}

func (r *Registry) entry(name string) *service {
	return r.services.Upsert(name, nil, func(exist bool, cur, _ *service) *service {
		if exist && cur != nil {
			return cur
		}
		return &service{sinks: make(map[string]Sink, 4)}
	})
}

// Offer makes the service discoverable. Idempotent.
func (r *Registry) Offer(name string) {
	if !r.entry(name).offered.Swap(true) {
		r.log.Infof("service %q offered", name)
	}
}

// StopOffer withdraws discoverability. Idempotent. Attached sinks stay
// attached and resume receiving when the service is offered again.
func (r *Registry) StopOffer(name string) {
	if r.entry(name).offered.Swap(false) {
		r.log.Infof("service %q stopped offering", name)
	}
}

// IsOffered reports the service's visibility.
func (r *Registry) IsOffered(name string) bool {
	s, ok := r.services.Get(name)
	return ok && s.offered.Load()
}

// Attach registers a subscriber sink under its unique id. Subscribing to a
// service that is not (yet) offered is allowed; delivery starts with the
// first publish after the service is offered.
func (r *Registry) Attach(name, id string, sink Sink) error {
	s := r.entry(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.sinks[id]; dup {
		return ErrSinkExists
	}
	s.sinks[id] = sink
	r.log.Debugf("subscriber %s attached to %q", id, name)
	return nil
}

// Detach removes a subscriber sink. Unknown ids are ignored.
func (r *Registry) Detach(name, id string) {
	s, ok := r.services.Get(name)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.sinks, id)
	s.mu.Unlock()
	r.log.Debugf("subscriber %s detached from %q", id, name)
}

// HasSubscribers reports whether at least one sink is attached.
func (r *Registry) HasSubscribers(name string) bool {
	s, ok := r.services.Get(name)
	if !ok {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sinks) > 0
}

// EachSink calls fn for every sink attached to the service. fn must not
// block; it runs under the service's read lock.
func (r *Registry) EachSink(name string, fn func(Sink)) {
	s, ok := r.services.Get(name)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sink := range s.sinks {
		fn(sink)
	}
}

// Services lists every known service name, offered or not.
func (r *Registry) Services() []string {
	return r.services.Keys()
}
