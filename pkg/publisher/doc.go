// Package publisher implements the publisher-side chunk lifecycle of the
// shmbus zero-copy transport: loan a chunk from the pool, fill it in
// place, then either publish it to subscribers or release it back.
//
// A Sample wraps one loaned chunk and guarantees exactly one of
// {published, released} over its life. Go has no destructors, so release
// is an explicit call designed to sit in a defer:
//
//	sample, err := pub.Loan(64)
//	if err != nil {
//		return err // errors.Is(err, shm.ErrRunningOutOfChunks)
//	}
//	defer sample.Release() // no-op once published
//
//	*sample.Get() = Reading{Temp: 21.5}
//	sample.Publish()
//
// A publisher that never called Offer becomes discoverable with its first
// Publish; see the offering state machine in state.go.
package publisher
