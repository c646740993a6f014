/*
 * Copyright 2025 Shmbus Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shmbus/shmbus/internal/logs"
	internalshm "github.com/shmbus/shmbus/internal/shm"
)

// ChunkClass describes one fixed-size population of chunks in the pool.
type ChunkClass struct {
	Size  uint32 // payload capacity of each chunk
	Count uint32 // number of chunks carved for this class
}

type chunkClasses []ChunkClass

func (s chunkClasses) Len() int           { return len(s) }
func (s chunkClasses) Less(i, j int) bool { return s[i].Size < s[j].Size }
func (s chunkClasses) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

type poolClass struct {
	size    uint32
	offsets []uint32 // header offset of every slot, for reclaim sweeps
	free    []uint32 // free stack of header offsets
}

// Pool carves a segment into chunk classes and hands out chunks. It is the
// allocation port of the bus: TryAllocate either returns a fully usable
// chunk or an error, and Free returns a chunk to its class once the last
// reference is gone.
//
// The reference count in the chunk header is the cross-process truth; the
// per-class free stacks are a process-local accelerator owned by the pool's
// creating process. Attached processes only move reference counts, the
// owner reclaims zero-count chunks lazily when a class runs dry.
type Pool struct {
	mu       sync.Mutex
	mem      []byte
	classes  []poolClass
	region   *internalshm.Region
	attached bool
	log      *logs.Logger
}

// NewPool builds a pool over caller-provided memory. The layout is sorted
// by size; duplicate sizes and zero counts are rejected.
func NewPool(mem []byte, layout []ChunkClass) (*Pool, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: no chunk classes", ErrInvalidLayout)
	}
	sorted := make(chunkClasses, len(layout))
	copy(sorted, layout)
	sort.Sort(sorted)

	p := &Pool{
		mem: mem,
		log: logs.New("pool"),
	}
	offset := uint32(0)
	for idx, class := range sorted {
		if class.Size == 0 || class.Count == 0 {
			return nil, fmt.Errorf("%w: class %d has size %d count %d",
				ErrInvalidLayout, idx, class.Size, class.Count)
		}
		if idx > 0 && sorted[idx-1].Size == class.Size {
			return nil, fmt.Errorf("%w: duplicate class size %d", ErrInvalidLayout, class.Size)
		}
		pc := poolClass{size: class.Size}
		for i := uint32(0); i < class.Count; i++ {
			offset = align(offset, chunkAlign)
			end := offset + chunkHeaderSize + class.Size
			if int(end) > len(mem) || end < offset {
				return nil, fmt.Errorf("%w: need at least %d bytes", ErrSegmentTooSmall, end)
			}
			*(*uint32)(ptrAt(mem, offset+chunkCapOffset)) = class.Size
			c := p.viewAt(offset)
			c.setClass(uint32(idx))
			internalshm.StoreUint32(&mem[offset+chunkRefOffset], 0)
			internalshm.StoreUint32(&mem[offset+chunkSizeOffset], 0)
			pc.offsets = append(pc.offsets, offset)
			pc.free = append(pc.free, offset)
			offset = end
		}
		p.classes = append(p.classes, pc)
	}
	return p, nil
}

// CreatePool maps a fresh named segment and builds a pool over it. The
// calling process becomes the pool owner.
func CreatePool(cfg Config, layout []ChunkClass) (*Pool, error) {
	region, err := internalshm.Map(internalshm.Options{
		Name:   cfg.SegmentName,
		Size:   cfg.SegmentSize,
		Create: true,
	})
	if err != nil {
		return nil, err
	}
	p, err := NewPool(region.Mem, layout)
	if err != nil {
		_ = region.Close()
		return nil, err
	}
	p.region = region
	return p, nil
}

// AttachPool maps an existing segment created by another process. The
// owner's carve is authoritative, so headers are left untouched and the
// free stacks stay empty: the attached side never allocates, only moves
// reference counts.
func AttachPool(cfg Config, layout []ChunkClass) (*Pool, error) {
	region, err := internalshm.Map(internalshm.Options{Name: cfg.SegmentName})
	if err != nil {
		return nil, err
	}
	p := &Pool{mem: region.Mem, region: region, attached: true, log: logs.New("pool")}
	sorted := make(chunkClasses, len(layout))
	copy(sorted, layout)
	sort.Sort(sorted)
	offset := uint32(0)
	for _, class := range sorted {
		pc := poolClass{size: class.Size}
		for i := uint32(0); i < class.Count; i++ {
			offset = align(offset, chunkAlign)
			end := offset + chunkHeaderSize + class.Size
			if int(end) > len(region.Mem) {
				_ = region.Close()
				return nil, fmt.Errorf("%w: layout does not fit mapped segment", ErrInvalidLayout)
			}
			pc.offsets = append(pc.offsets, offset)
			offset = end
		}
		p.classes = append(p.classes, pc)
	}
	return p, nil
}

// Close unmaps the backing segment, if the pool owns one.
func (p *Pool) Close() error {
	if p.region == nil {
		return nil
	}
	return p.region.Close()
}

// TryAllocate returns a chunk whose capacity is at least size, with its
// reference count set to one. It never blocks and never retries: the error
// is ErrChunkTooLarge when no class fits, ErrRunningOutOfChunks when every
// fitting class is exhausted.
func (p *Pool) TryAllocate(size uint64) (*Chunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fits := false
	for i := range p.classes {
		pc := &p.classes[i]
		if uint64(pc.size) < size {
			continue
		}
		fits = true
		if len(pc.free) == 0 && !p.attached {
			p.reclaimLocked(pc)
		}
		if n := len(pc.free); n > 0 {
			off := pc.free[n-1]
			pc.free = pc.free[:n-1]
			c := p.viewAt(off)
			c.resetRef()
			c.SetPayloadSize(uint32(size))
			return c, nil
		}
	}
	if !fits {
		return nil, ErrChunkTooLarge
	}
	return nil, ErrRunningOutOfChunks
}

// AddRef takes one more reference on behalf of a new co-owner, e.g. a
// subscriber the chunk fans out to.
func (p *Pool) AddRef(c *Chunk) {
	c.addRef()
}

// Free drops one reference. The chunk returns to its class exactly when the
// last reference is gone; freeing an already dead chunk is a protocol
// violation and is logged, not propagated.
func (p *Pool) Free(c *Chunk) {
	remaining, ok := c.decRef()
	if !ok {
		p.log.Errorf("chunk free at offset %d without a live reference", c.Offset())
		return
	}
	if remaining > 0 {
		return
	}
	if p.attached {
		// The owner's reclaim sweep picks zero-count chunks back up.
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := c.class()
	if int(idx) >= len(p.classes) {
		p.log.Errorf("chunk at offset %d names unknown class %d", c.Offset(), idx)
		return
	}
	p.classes[idx].free = append(p.classes[idx].free, c.Offset())
}

// reclaimLocked sweeps a class for chunks whose count reached zero in
// another process and returns them to the free stack.
func (p *Pool) reclaimLocked(pc *poolClass) {
	inFree := make(map[uint32]struct{}, len(pc.free))
	for _, off := range pc.free {
		inFree[off] = struct{}{}
	}
	for _, off := range pc.offsets {
		if _, ok := inFree[off]; ok {
			continue
		}
		if internalshm.LoadUint32(&p.mem[off+chunkRefOffset]) == 0 {
			pc.free = append(pc.free, off)
		}
	}
}

// ChunkAt rebuilds a chunk view from its segment offset, the form a handle
// arrives in from another process. The offset must name a carved slot.
func (p *Pool) ChunkAt(offset uint32) (*Chunk, error) {
	if int(offset)+chunkHeaderSize > len(p.mem) {
		return nil, fmt.Errorf("chunk offset %d out of segment bounds", offset)
	}
	c := p.viewAt(offset)
	if int(offset)+chunkHeaderSize+int(c.Capacity()) > len(p.mem) {
		return nil, fmt.Errorf("chunk at offset %d overruns the segment", offset)
	}
	return c, nil
}

// Stats returns the number of free chunks per class size.
func (p *Pool) Stats() map[uint32]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := make(map[uint32]int, len(p.classes))
	for i := range p.classes {
		stats[p.classes[i].size] = len(p.classes[i].free)
	}
	return stats
}

// FreeChunks returns the total number of free chunks across all classes.
func (p *Pool) FreeChunks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for i := range p.classes {
		total += len(p.classes[i].free)
	}
	return total
}

func (p *Pool) viewAt(offset uint32) *Chunk {
	capacity := *(*uint32)(ptrAt(p.mem, offset+chunkCapOffset))
	payloadStart := offset + chunkHeaderSize
	return &Chunk{
		header:  p.mem[offset : offset+chunkHeaderSize],
		payload: p.mem[payloadStart : payloadStart+capacity],
		offset:  offset,
	}
}

func align(off, to uint32) uint32 {
	return (off + to - 1) &^ (to - 1)
}
