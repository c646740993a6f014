package subscriber

import (
	"sync/atomic"
	"unsafe"

	"github.com/shmbus/shmbus/pkg/shm"
)

// Sample is a typed read handle over one received chunk. It owns this
// subscriber's reference on the chunk; Release drops it exactly once, and
// the chunk returns to its pool when the last co-owner lets go.
type Sample[T any] struct {
	sub      *Subscriber[T]
	chunk    *shm.Chunk
	value    *T
	released uint32
}

func newSample[T any](sub *Subscriber[T], c *shm.Chunk) *Sample[T] {
	s := &Sample[T]{sub: sub, chunk: c}
	var zero T
	need := unsafe.Sizeof(zero)
	switch {
	case need == 0:
		s.value = &zero
	case uintptr(c.Capacity()) < need:
		sub.log.Errorf("service %q: received chunk capacity %d below type size %d",
			sub.service, c.Capacity(), need)
	default:
		s.value = (*T)(unsafe.Pointer(&c.Payload()[0]))
	}
	return s
}

// Get returns the typed view over the payload, or nil when the chunk is
// too small for T. Valid only until Release.
func (s *Sample[T]) Get() *T { return s.value }

// Payload returns the declared-used payload bytes.
func (s *Sample[T]) Payload() []byte {
	return s.chunk.Payload()[:s.chunk.PayloadSize()]
}

// Release drops this subscriber's reference. Idempotent; safe to defer.
func (s *Sample[T]) Release() {
	if !atomic.CompareAndSwapUint32(&s.released, 0, 1) {
		return
	}
	s.sub.pool.Free(s.chunk)
}
