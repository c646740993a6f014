// Package transport moves chunk references from a publisher to its
// subscribers. It implements the transport port consumed by pkg/publisher:
// bounded non-blocking fan-out queues, a last-sent latch for late joiners,
// and forwarding of the offering operations to the registry.
package transport
