// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"time"
)

// Connection-establishment errors. All are session-level recoverable:
// the caller retries the whole flow, the process never crashes.
var (
	// ErrMalformedCode is returned when an offer/answer code or a
	// mailbox blob fails to parse. Surfaced immediately, never retried.
	ErrMalformedCode = errors.New("invalid connection code")

	// ErrHandshakeExpired is returned when the peer connection has left
	// the state that could accept the other side's code. The connection
	// cannot be resurrected; the user must create a new invite.
	ErrHandshakeExpired = errors.New("invite expired, create a new one")

	// ErrNoSignal is returned by Signaler gets when the mailbox slot is
	// empty. Pollers treat it as "nothing yet, keep waiting".
	ErrNoSignal = errors.New("no signal posted")

	// ErrWrongPassword is returned when a mailbox blob was found but
	// did not decrypt: the room exists, the key material does not match.
	ErrWrongPassword = errors.New("wrong password for this room")

	// ErrRoomNotFound is returned when polling ran out of time without
	// ever seeing a blob: nobody is hosting under this room code.
	ErrRoomNotFound = errors.New("room not found")
)

// Timeout stages, used to pick the human-readable cause.
const (
	StageGathering = "gathering"
	StageChannel   = "channel"
	StagePolling   = "polling"
)

// TimeoutError reports which bounded wait expired. The message
// distinguishes "no reachable STUN/TURN server" from "the peer never
// appeared" because the user remedies differ.
type TimeoutError struct {
	Stage string
	Wait  time.Duration
}

func (e *TimeoutError) Error() string {
	switch e.Stage {
	case StageGathering:
		return fmt.Sprintf("candidate gathering timed out after %s: no reachable STUN/TURN server", e.Wait)
	case StageChannel:
		return fmt.Sprintf("data channel did not open within %s", e.Wait)
	case StagePolling:
		return fmt.Sprintf("no response within %s: the peer never appeared", e.Wait)
	default:
		return fmt.Sprintf("timed out after %s", e.Wait)
	}
}

// IsTimeout reports whether err is a TimeoutError, returning it.
func IsTimeout(err error) (*TimeoutError, bool) {
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return timeout, true
	}
	return nil, false
}
