//go:build !linux

package shm

import (
	"errors"
	"fmt"
	"sync"
)

// Heap-backed fallback for platforms without a /dev/shm style segment
// namespace. Segments are process-local, which is enough for tests and
// single-process deployments.

var (
	heapMu       sync.Mutex
	heapSegments = make(map[string][]byte)
)

// Map creates or attaches a named heap-backed segment.
func Map(opts Options) (*Region, error) {
	if opts.Name == "" {
		return nil, errors.New("empty segment name")
	}
	heapMu.Lock()
	defer heapMu.Unlock()
	mem, ok := heapSegments[opts.Name]
	if opts.Create {
		if ok {
			return nil, fmt.Errorf("segment %s already exists", opts.Name)
		}
		if opts.Size <= 0 {
			return nil, fmt.Errorf("invalid segment size %d", opts.Size)
		}
		mem = make([]byte, opts.Size)
		heapSegments[opts.Name] = mem
	} else if !ok {
		return nil, fmt.Errorf("segment %s does not exist", opts.Name)
	}
	return &Region{
		Mem:   mem,
		name:  opts.Name,
		owner: opts.Create,
		heap:  true,
	}, nil
}

// Close releases the mapping; the owner also drops the segment.
func (r *Region) Close() error {
	if r == nil || r.Mem == nil {
		return nil
	}
	r.Mem = nil
	if r.owner {
		heapMu.Lock()
		delete(heapSegments, r.name)
		heapMu.Unlock()
	}
	return nil
}
