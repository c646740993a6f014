// Package shm provides the shared-memory chunk pool that backs the shmbus
// zero-copy transport.
//
// A Pool carves a mapped segment into fixed-size chunk classes. Each chunk
// carries a small header inside the segment (capacity, payload size,
// reference count, class index); the header's offset within the segment is
// the handle that crosses process boundaries, never a native pointer.
//
// Example:
//
//	cfg, _ := shm.ConfigFromEnv()
//	pool, err := shm.CreatePool(cfg, shm.DefaultLayout())
//	if err != nil {
//		// ...
//	}
//	defer pool.Close()
//
//	chunk, err := pool.TryAllocate(256)
//	if err != nil {
//		// errors.Is(err, shm.ErrRunningOutOfChunks) when exhausted
//	}
//	copy(chunk.Payload(), data)
//	pool.Free(chunk)
//
// Platform-specific mapping helpers are in internal/shm.
package shm
