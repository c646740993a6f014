// Package shm contains platform helpers for mapping named shared memory
// segments and for atomic access to words living inside them.
package shm

// Region is a memory-mapped shared segment. Mem is valid until Close.
type Region struct {
	Mem []byte

	name  string
	fd    int
	owner bool
	heap  bool
}

// Options control how a segment is created or attached.
type Options struct {
	// Name identifies the segment across processes.
	Name string
	// Size is the segment size in bytes. Ignored when attaching.
	Size int
	// Create makes this process the segment owner; the backing file is
	// removed again on Close.
	Create bool
}

// Name returns the segment identifier.
func (r *Region) Name() string { return r.name }

// Size returns the mapped size in bytes.
func (r *Region) Size() int { return len(r.Mem) }

// Map and (*Region).Close are provided by the platform files.
