package publisher

import "sync/atomic"

// The offering state machine has two states and three triggers: Offer,
// StopOffer, and the implicit offer a first Publish performs. Keeping it
// an explicit type makes the publish-implies-offer rule auditable on its
// own.

const (
	stoppedOffering uint32 = iota
	offering
)

type offerStateMachine struct {
	state atomic.Uint32
}

// offer transitions StoppedOffering -> Offered and reports whether the
// transition happened; an already offered machine reports false.
func (m *offerStateMachine) offer() bool {
	return m.state.CompareAndSwap(stoppedOffering, offering)
}

// stopOffer transitions Offered -> StoppedOffering and reports whether the
// transition happened.
func (m *offerStateMachine) stopOffer() bool {
	return m.state.CompareAndSwap(offering, stoppedOffering)
}

func (m *offerStateMachine) isOffered() bool {
	return m.state.Load() == offering
}
