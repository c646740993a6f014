package publisher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shmbus/shmbus/pkg/shm"
)

// The mock ports record every interaction so the tests can assert call
// counts and ordering, the same observations the real ports would see.

type mockAllocationPort struct {
	pool      *shm.Pool
	err       error
	sizes     []uint64
	allocated []*shm.Chunk
	freed     []*shm.Chunk
}

func newMockAllocationPort(t *testing.T) *mockAllocationPort {
	t.Helper()
	pool, perr := shm.NewPool(make([]byte, 1<<20), []shm.ChunkClass{
		{Size: 64, Count: 16},
		{Size: 1024, Count: 4},
	})
	require.NoError(t, perr)
	return &mockAllocationPort{pool: pool}
}

func (m *mockAllocationPort) TryAllocate(size uint64) (*shm.Chunk, error) {
	m.sizes = append(m.sizes, size)
	if m.err != nil {
		return nil, m.err
	}
	c, err := m.pool.TryAllocate(size)
	if err != nil {
		return nil, err
	}
	m.allocated = append(m.allocated, c)
	return c, nil
}

func (m *mockAllocationPort) Free(c *shm.Chunk) {
	m.freed = append(m.freed, c)
	m.pool.Free(c)
}

type mockTransportPort struct {
	sent  []*shm.Chunk
	last  *shm.Chunk
	calls []string

	offeredVal bool
	hasSubsVal bool

	offerCalls     int
	stopOfferCalls int
	isOfferedCalls int
	hasSubsCalls   int
	lastSentCalls  int
}

func (m *mockTransportPort) Send(c *shm.Chunk) {
	m.calls = append(m.calls, "send")
	m.sent = append(m.sent, c)
}

func (m *mockTransportPort) LastSent() *shm.Chunk {
	m.lastSentCalls++
	return m.last
}

func (m *mockTransportPort) Offer() {
	m.calls = append(m.calls, "offer")
	m.offerCalls++
}

func (m *mockTransportPort) StopOffer() {
	m.calls = append(m.calls, "stopOffer")
	m.stopOfferCalls++
}

func (m *mockTransportPort) IsOffered() bool {
	m.isOfferedCalls++
	return m.offeredVal
}

func (m *mockTransportPort) HasSubscribers() bool {
	m.hasSubsCalls++
	return m.hasSubsVal
}
