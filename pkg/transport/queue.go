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

package transport

import (
	"sync/atomic"
	"time"

	queuepkg "github.com/Workiva/go-datastructures/queue"
	"github.com/shmbus/shmbus/pkg/shm"
)

// QueueStats is a snapshot of one subscriber queue's delivery counters.
type QueueStats struct {
	Delivered uint64
	Dropped   uint64
	Pending   int64
}

// SubscriberQueue buffers chunk references for one subscriber. Deliveries
// never block: when the queue is at depth the chunk is dropped and the
// caller keeps ownership of the reference. Latency over completeness.
type SubscriberQueue struct {
	q     *queuepkg.Queue
	depth int64

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewSubscriberQueue creates a queue bounded to depth pending references.
func NewSubscriberQueue(depth int) *SubscriberQueue {
	if depth <= 0 {
		depth = 1
	}
	return &SubscriberQueue{
		q:     queuepkg.New(int64(depth)),
		depth: int64(depth),
	}
}

// Deliver implements registry.Sink.
func (sq *SubscriberQueue) Deliver(c *shm.Chunk) bool {
	if sq.q.Len() >= sq.depth || sq.q.Disposed() {
		sq.dropped.Add(1)
		return false
	}
	if err := sq.q.Put(c); err != nil {
		sq.dropped.Add(1)
		return false
	}
	sq.delivered.Add(1)
	return true
}

// Poll waits up to timeout for the next chunk reference. A zero or
// negative timeout polls without waiting.
func (sq *SubscriberQueue) Poll(timeout time.Duration) (*shm.Chunk, bool) {
	if timeout <= 0 {
		if sq.q.Empty() {
			return nil, false
		}
		timeout = time.Millisecond
	}
	items, err := sq.q.Poll(1, timeout)
	if err != nil || len(items) == 0 {
		return nil, false
	}
	c, ok := items[0].(*shm.Chunk)
	if !ok {
		return nil, false
	}
	return c, true
}

// Dispose shuts the queue down and returns the undelivered chunks so the
// caller can drop their references.
func (sq *SubscriberQueue) Dispose() []*shm.Chunk {
	items := sq.q.Dispose()
	chunks := make([]*shm.Chunk, 0, len(items))
	for _, it := range items {
		if c, ok := it.(*shm.Chunk); ok {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// Stats returns the queue's delivery counters.
func (sq *SubscriberQueue) Stats() QueueStats {
	return QueueStats{
		Delivered: sq.delivered.Load(),
		Dropped:   sq.dropped.Load(),
		Pending:   sq.q.Len(),
	}
}
