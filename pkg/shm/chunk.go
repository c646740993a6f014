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
	"unsafe"

	internalshm "github.com/shmbus/shmbus/internal/shm"
)

// chunk header layout: capacity 4 byte | payload size 4 byte | refcount 4 byte | class 4 byte
const (
	chunkCapOffset   = 0
	chunkSizeOffset  = 4
	chunkRefOffset   = 8
	chunkClassOffset = 12
	chunkHeaderSize  = 16

	chunkAlign = 8
)

// Chunk is this process's view over one pool chunk. The header lives inside
// the mapped segment; Offset is the cross-process handle. The reference
// count is read and written atomically because subscribers in other
// processes decrement it concurrently.
type Chunk struct {
	header  []byte
	payload []byte
	offset  uint32
}

// Offset returns the chunk header's offset within the segment.
func (c *Chunk) Offset() uint32 { return c.offset }

// Capacity returns the payload capacity in bytes. Immutable after carve.
func (c *Chunk) Capacity() uint32 {
	return *(*uint32)(unsafe.Pointer(&c.header[chunkCapOffset]))
}

// Payload returns the writable payload region.
func (c *Chunk) Payload() []byte { return c.payload }

// PayloadSize returns the number of payload bytes the producer declared used.
func (c *Chunk) PayloadSize() uint32 {
	return internalshm.LoadUint32(&c.header[chunkSizeOffset])
}

// SetPayloadSize records how many payload bytes are in use. Values beyond
// the capacity are clamped.
func (c *Chunk) SetPayloadSize(n uint32) {
	if limit := c.Capacity(); n > limit {
		n = limit
	}
	internalshm.StoreUint32(&c.header[chunkSizeOffset], n)
}

// RefCount returns the current cross-process reference count.
func (c *Chunk) RefCount() uint32 {
	return internalshm.LoadUint32(&c.header[chunkRefOffset])
}

func (c *Chunk) class() uint32 {
	return *(*uint32)(unsafe.Pointer(&c.header[chunkClassOffset]))
}

func (c *Chunk) setClass(idx uint32) {
	*(*uint32)(unsafe.Pointer(&c.header[chunkClassOffset])) = idx
}

func (c *Chunk) addRef() uint32 {
	return internalshm.AddUint32(&c.header[chunkRefOffset], 1)
}

// decRef drops one reference and reports the remaining count. A chunk that
// is already at zero stays at zero and reports ok=false; at-most-once free
// per holder is the callers' contract, this only keeps the damage local.
func (c *Chunk) decRef() (remaining uint32, ok bool) {
	for {
		cur := internalshm.LoadUint32(&c.header[chunkRefOffset])
		if cur == 0 {
			return 0, false
		}
		if internalshm.CompareAndSwapUint32(&c.header[chunkRefOffset], cur, cur-1) {
			return cur - 1, true
		}
	}
}

func (c *Chunk) resetRef() {
	internalshm.StoreUint32(&c.header[chunkRefOffset], 1)
}

func ptrAt(mem []byte, off uint32) unsafe.Pointer {
	return unsafe.Pointer(&mem[off])
}
