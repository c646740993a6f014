package publisher

import "github.com/shmbus/shmbus/pkg/shm"

// AllocationPort is the allocator capability a Publisher consumes.
// *shm.Pool satisfies it.
//
// TryAllocate must be non-blocking: a fully usable chunk or an error,
// never a partial allocation. Free must be called at most once per handle
// per holder; the Publisher guarantees that through the Sample protocol.
type AllocationPort interface {
	TryAllocate(size uint64) (*shm.Chunk, error)
	Free(c *shm.Chunk)
}

// TransportPort is the delivery capability a Publisher consumes.
// *transport.Endpoint satisfies it.
//
// Send takes ownership of the caller's chunk reference. LastSent returns
// the most recently sent chunk or nil; the port keeps its own reference on
// it. The remaining operations manage and query discoverability and never
// fail: a port that cannot honor them is a process-fatal defect, not an
// error this layer handles.
type TransportPort interface {
	Send(c *shm.Chunk)
	LastSent() *shm.Chunk
	Offer()
	StopOffer()
	IsOffered() bool
	HasSubscribers() bool
}
