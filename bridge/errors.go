// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"

	"github.com/bureau-foundation/doula/transport"
)

// The session-level error taxonomy. Everything here is recoverable by
// retrying the whole flow; nothing crashes the process, and every
// failure reaches the status callback with a readable cause.
var (
	// ErrMalformedCode: an offer/answer code failed to parse. Not
	// retried automatically.
	ErrMalformedCode = transport.ErrMalformedCode

	// ErrWrongPassword: the room exists but the posted blob did not
	// decrypt under the derived key.
	ErrWrongPassword = transport.ErrWrongPassword

	// ErrRoomNotFound: polling gave up without ever seeing a blob.
	ErrRoomNotFound = transport.ErrRoomNotFound

	// ErrHandshakeExpired: the connection can no longer accept the
	// peer's half of the handshake. The user creates a new invite.
	ErrHandshakeExpired = transport.ErrHandshakeExpired

	// ErrChannelClosed: the data channel closed unexpectedly. Treated
	// exactly like a user-initiated stop — full teardown, no automatic
	// reconnect.
	ErrChannelClosed = errors.New("sync channel closed")

	// ErrSessionFinished: an operation was called on a session handle
	// that has already been stopped or failed.
	ErrSessionFinished = errors.New("session already finished")
)

// IsTimeout reports whether err is a transport timeout and, if so,
// which bounded wait expired.
func IsTimeout(err error) (*transport.TimeoutError, bool) {
	return transport.IsTimeout(err)
}
