// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

// Phase is the lifecycle state of a shared session. Transitions are
// explicit; an attempt to make an illegal one indicates a bridge bug
// and is logged rather than applied.
type Phase string

const (
	// PhaseIdle: handle created, nothing started.
	PhaseIdle Phase = "idle"
	// PhaseCreatingOffer: host is gathering candidates for its offer.
	PhaseCreatingOffer Phase = "creating-offer"
	// PhaseAwaitingAnswer: host holds an offer code and waits for the
	// guest's answer (manually or via relay polling).
	PhaseAwaitingAnswer Phase = "awaiting-answer"
	// PhaseGeneratingAnswer: guest is decoding the offer and gathering
	// candidates for its answer.
	PhaseGeneratingAnswer Phase = "generating-answer"
	// PhaseAwaitingConnection: codes are exchanged, both sides wait
	// for the data channel to open.
	PhaseAwaitingConnection Phase = "awaiting-connection"
	// PhaseConnected: the sync channel is live.
	PhaseConnected Phase = "connected"
	// PhaseFailed: the session ended with an error. Terminal.
	PhaseFailed Phase = "failed"
	// PhaseClosed: the session was stopped deliberately. Terminal.
	PhaseClosed Phase = "closed"
)

// Status is delivered to the OnStatus callback on every phase change.
// Cause is non-empty only for PhaseFailed.
type Status struct {
	Phase Phase
	Cause string
}

// legalTransitions enumerates the allowed phase edges. Failed and
// Closed are reachable from every live state; nothing leaves them.
var legalTransitions = map[Phase][]Phase{
	PhaseIdle:               {PhaseCreatingOffer, PhaseGeneratingAnswer, PhaseFailed, PhaseClosed},
	PhaseCreatingOffer:      {PhaseAwaitingAnswer, PhaseFailed, PhaseClosed},
	PhaseAwaitingAnswer:     {PhaseAwaitingConnection, PhaseFailed, PhaseClosed},
	PhaseGeneratingAnswer:   {PhaseAwaitingConnection, PhaseFailed, PhaseClosed},
	PhaseAwaitingConnection: {PhaseConnected, PhaseFailed, PhaseClosed},
	PhaseConnected:          {PhaseFailed, PhaseClosed},
	PhaseFailed:             {},
	PhaseClosed:             {},
}

// canTransition reports whether from → to is a legal edge.
func canTransition(from, to Phase) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// terminal reports whether the phase accepts no further transitions.
func (p Phase) terminal() bool {
	return p == PhaseFailed || p == PhaseClosed
}
