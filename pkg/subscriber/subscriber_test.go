package subscriber_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shmbus/shmbus/pkg/publisher"
	"github.com/shmbus/shmbus/pkg/registry"
	"github.com/shmbus/shmbus/pkg/shm"
	"github.com/shmbus/shmbus/pkg/subscriber"
	"github.com/shmbus/shmbus/pkg/transport"
)

type position struct {
	X, Y, Z float64
}

type testBus struct {
	pool *shm.Pool
	reg  *registry.Registry
	ep   *transport.Endpoint
	pub  *publisher.Publisher[position]
}

func newTestBus(t *testing.T) *testBus {
	t.Helper()
	pool, err := shm.NewPool(make([]byte, 1<<16), []shm.ChunkClass{{Size: 64, Count: 8}})
	require.NoError(t, err)
	reg := registry.New()
	ep := transport.NewEndpoint("radar", reg, pool, nil)
	t.Cleanup(ep.Close)
	return &testBus{
		pool: pool,
		reg:  reg,
		ep:   ep,
		pub:  publisher.New[position]("radar", pool, ep),
	}
}

func (b *testBus) publish(t *testing.T, p position) {
	t.Helper()
	smp, err := b.pub.Loan(0)
	require.NoError(t, err)
	*smp.Get() = p
	smp.Publish()
}

func TestTakeReceivesPublishedValue(t *testing.T) {
	bus := newTestBus(t)

	sub := subscriber.New[position]("radar", bus.reg, bus.pool)
	require.NoError(t, sub.Attach())
	defer sub.Detach()

	_, ok := sub.Take()
	assert.False(t, ok, "nothing published yet")

	bus.publish(t, position{X: 1, Y: 2, Z: 3})

	smp, ok := sub.Take()
	require.True(t, ok)
	defer smp.Release()

	require.NotNil(t, smp.Get())
	assert.Equal(t, position{X: 1, Y: 2, Z: 3}, *smp.Get())
	assert.Len(t, smp.Payload(), int(unsafe.Sizeof(position{})))
}

func TestReleaseReturnsReferenceExactlyOnce(t *testing.T) {
	bus := newTestBus(t)

	sub := subscriber.New[position]("radar", bus.reg, bus.pool)
	require.NoError(t, sub.Attach())
	defer sub.Detach()

	bus.publish(t, position{X: 4})

	smp, ok := sub.Take()
	require.True(t, ok)

	free := bus.pool.FreeChunks()
	smp.Release()
	smp.Release()
	// the latch still holds one reference, so the chunk stays out of the
	// free list until the next publish displaces it
	assert.Equal(t, free, bus.pool.FreeChunks())

	free = bus.pool.FreeChunks()
	bus.publish(t, position{X: 5})
	next, ok := sub.Take()
	require.True(t, ok)
	next.Release()
	assert.Equal(t, free, bus.pool.FreeChunks(),
		"displaced chunk freed while the new one moved to the latch")
}

func TestDetachDropsPendingReferences(t *testing.T) {
	bus := newTestBus(t)

	sub := subscriber.New[position]("radar", bus.reg, bus.pool)
	require.NoError(t, sub.Attach())

	for i := 0; i < 3; i++ {
		bus.publish(t, position{X: float64(i)})
	}

	sub.Detach()
	assert.False(t, bus.reg.HasSubscribers("radar"))

	// everything not taken went back: 8 chunks minus the one on the latch
	assert.Equal(t, 7, bus.pool.FreeChunks())
}

func TestQueueDepthBoundsPending(t *testing.T) {
	bus := newTestBus(t)

	sub := subscriber.New[position]("radar", bus.reg, bus.pool,
		subscriber.WithQueueDepth(2))
	require.NoError(t, sub.Attach())
	defer sub.Detach()

	for i := 0; i < 4; i++ {
		bus.publish(t, position{X: float64(i)})
	}

	stats := sub.Stats()
	assert.Equal(t, uint64(2), stats.Delivered)
	assert.Equal(t, uint64(2), stats.Dropped)
}

func TestWithUIDPinsIdentity(t *testing.T) {
	bus := newTestBus(t)
	uid := uuid.MustParse("b4f9a9a0-662e-4a43-a9c3-2f9a6f6f1d46")

	sub := subscriber.New[position]("radar", bus.reg, bus.pool, subscriber.WithUID(uid))
	assert.Equal(t, uid, sub.UID())
	assert.Equal(t, "radar", sub.Service())

	require.NoError(t, sub.Attach())
	dup := subscriber.New[position]("radar", bus.reg, bus.pool, subscriber.WithUID(uid))
	assert.Error(t, dup.Attach(), "same uid cannot attach twice")
	sub.Detach()
}

func TestListenDispatchesUntilCancelled(t *testing.T) {
	bus := newTestBus(t)

	sub := subscriber.New[position]("radar", bus.reg, bus.pool)
	require.NoError(t, sub.Attach())
	defer sub.Detach()

	const want = 5
	var seen atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- sub.Listen(ctx, 2, func(smp *subscriber.Sample[position]) {
			if seen.Add(1) == want {
				cancel()
			}
		})
	}()

	for i := 0; i < want; i++ {
		bus.publish(t, position{X: float64(i)})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not stop after cancel")
	}
	assert.Equal(t, int64(want), seen.Load())
}
