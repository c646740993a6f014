package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shmbus/shmbus/pkg/shm"
)

type recordingSink struct {
	mu       sync.Mutex
	accepted []*shm.Chunk
	full     bool
}

func (s *recordingSink) Deliver(c *shm.Chunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.accepted = append(s.accepted, c)
	return true
}

func TestOfferStopOfferIdempotent(t *testing.T) {
	r := New()

	assert.False(t, r.IsOffered("svc"))
	r.Offer("svc")
	r.Offer("svc")
	assert.True(t, r.IsOffered("svc"))

	r.StopOffer("svc")
	r.StopOffer("svc")
	assert.False(t, r.IsOffered("svc"))
}

func TestAttachDetach(t *testing.T) {
	r := New()
	sink := &recordingSink{}

	require.NoError(t, r.Attach("svc", "sub-1", sink))
	assert.ErrorIs(t, r.Attach("svc", "sub-1", sink), ErrSinkExists)
	assert.True(t, r.HasSubscribers("svc"))

	r.Detach("svc", "sub-1")
	assert.False(t, r.HasSubscribers("svc"))

	// detaching the unknown is a no-op
	r.Detach("svc", "sub-1")
	r.Detach("ghost", "sub-1")
}

func TestAttachBeforeOfferIsAllowed(t *testing.T) {
	r := New()
	require.NoError(t, r.Attach("svc", "early", &recordingSink{}))
	assert.True(t, r.HasSubscribers("svc"))
	assert.False(t, r.IsOffered("svc"))
}

func TestEachSinkVisitsEveryAttached(t *testing.T) {
	r := New()
	sinks := make([]*recordingSink, 3)
	for i := range sinks {
		sinks[i] = &recordingSink{}
		require.NoError(t, r.Attach("svc", fmt.Sprintf("sub-%d", i), sinks[i]))
	}

	visited := 0
	r.EachSink("svc", func(Sink) { visited++ })
	assert.Equal(t, 3, visited)

	r.EachSink("unknown", func(Sink) { t.Fatal("no sinks expected") })
}

func TestServicesListsKnownNames(t *testing.T) {
	r := New()
	r.Offer("a")
	require.NoError(t, r.Attach("b", "s", &recordingSink{}))

	assert.ElementsMatch(t, []string{"a", "b"}, r.Services())
}

func TestConcurrentAttachDetach(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sub-%d", i)
			assert.NoError(t, r.Attach("svc", id, &recordingSink{}))
			r.Offer("svc")
			r.Detach("svc", id)
		}(i)
	}
	wg.Wait()
	assert.False(t, r.HasSubscribers("svc"))
}
