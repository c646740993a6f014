package publisher

import (
	"sync/atomic"
	"unsafe"

	"github.com/shmbus/shmbus/pkg/shm"
)

const (
	sampleLoaned uint32 = iota
	samplePublished
	sampleReleased
)

// Sample is an owning, typed handle over one loaned chunk's payload. It is
// created only by Publisher.Loan (or as a read view by PreviousSample) and
// consumed exactly once: Publish hands the chunk to the transport and
// disarms Release; Release returns the chunk to the pool.
//
// Release is safe to defer unconditionally; after Publish it is a no-op.
type Sample[T any] struct {
	owner *Publisher[T]
	chunk *shm.Chunk
	value *T
	state uint32
	owned bool
}

func newSample[T any](p *Publisher[T], c *shm.Chunk) *Sample[T] {
	return &Sample[T]{
		owner: p,
		chunk: c,
		value: payloadAs[T](p, c),
		owned: true,
	}
}

func newSampleView[T any](p *Publisher[T], c *shm.Chunk) *Sample[T] {
	return &Sample[T]{
		owner: p,
		chunk: c,
		value: payloadAs[T](p, c),
	}
}

// payloadAs is the single validated cast from untyped chunk payload to *T.
// Loan sizes requests up so the check only trips on a foreign chunk that
// was produced with a smaller type.
func payloadAs[T any](p *Publisher[T], c *shm.Chunk) *T {
	var zero T
	if need := unsafe.Sizeof(zero); uintptr(c.Capacity()) < need {
		p.log.Errorf("service %q: chunk capacity %d below type size %d",
			p.service, c.Capacity(), need)
		return nil
	}
	if unsafe.Sizeof(zero) == 0 {
		return &zero
	}
	return (*T)(unsafe.Pointer(&c.Payload()[0]))
}

// Get returns the mutable typed view over the chunk payload. Valid only
// until the sample is published or released.
func (s *Sample[T]) Get() *T { return s.value }

// Payload returns the raw payload bytes for byte-oriented producers.
func (s *Sample[T]) Payload() []byte { return s.chunk.Payload() }

// SetPayloadSize records how many payload bytes are in use.
func (s *Sample[T]) SetPayloadSize(n uint32) { s.chunk.SetPayloadSize(n) }

// Publish consumes the sample and sends its chunk to the subscribers;
// ownership transfers away from this process. It cannot fail: failure
// already happened, if at all, at loan time. On a sample that was already
// consumed, or on a PreviousSample view, it does nothing but warn.
func (s *Sample[T]) Publish() {
	if !s.owned {
		s.owner.log.Warnf("service %q: publish on a read-only sample view ignored", s.owner.service)
		return
	}
	if !atomic.CompareAndSwapUint32(&s.state, sampleLoaned, samplePublished) {
		s.owner.log.Warnf("service %q: publish on a consumed sample ignored", s.owner.service)
		return
	}
	s.owner.publish(s.chunk)
}

// Release returns the chunk to the pool when the sample was never
// published. Exactly one Free reaches the allocation port no matter how
// often Release runs or on which exit path.
func (s *Sample[T]) Release() {
	if !s.owned {
		return
	}
	if !atomic.CompareAndSwapUint32(&s.state, sampleLoaned, sampleReleased) {
		return
	}
	s.owner.release(s.chunk)
}
