package publisher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillAndMaybePublish exercises the canonical usage pattern: release is
// deferred on entry, so every exit path (error return included) settles
// the sample exactly once.
func fillAndMaybePublish(pub *Publisher[dummyData], val uint64, fail bool) error {
	smp, err := pub.Loan(64)
	if err != nil {
		return err
	}
	defer smp.Release()

	smp.Get().Val = val
	if fail {
		return errors.New("validation failed")
	}
	smp.Publish()
	return nil
}

func TestDeferredReleaseOnErrorPathFreesOnce(t *testing.T) {
	pub, alloc, port := newTestPublisher(t)

	err := fillAndMaybePublish(pub, 1, true)
	assert.Error(t, err)
	assert.Len(t, alloc.freed, 1)
	assert.Empty(t, port.sent)
}

func TestDeferredReleaseAfterPublishIsDisarmed(t *testing.T) {
	pub, alloc, port := newTestPublisher(t)

	err := fillAndMaybePublish(pub, 2, false)
	assert.NoError(t, err)
	assert.Empty(t, alloc.freed)
	assert.Len(t, port.sent, 1)
}

func TestReleaseThenPublishSendsNothing(t *testing.T) {
	pub, alloc, port := newTestPublisher(t)

	smp, err := pub.Loan(64)
	require.NoError(t, err)

	smp.Release()
	smp.Publish()

	assert.Len(t, alloc.freed, 1)
	assert.Empty(t, port.sent, "a released chunk must never reach the transport")
}

func TestSampleSetPayloadSizeClampsToCapacity(t *testing.T) {
	pub, alloc, _ := newTestPublisher(t)

	smp, err := pub.Loan(64)
	require.NoError(t, err)
	defer smp.Release()

	smp.SetPayloadSize(1 << 20)
	assert.Equal(t, alloc.allocated[0].Capacity(), alloc.allocated[0].PayloadSize())
}

func TestPublishOnViewIsIgnored(t *testing.T) {
	pub, _, port := newTestPublisher(t)

	smp, err := pub.Loan(64)
	require.NoError(t, err)
	smp.Publish()
	port.last = port.sent[0]

	prev, ok := pub.PreviousSample()
	require.True(t, ok)
	prev.Publish()

	assert.Len(t, port.sent, 1, "views must not re-send chunks")
}
