// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// Signaler is a mailbox for the two encrypted handshake codes. The
// routing key is the one-way hash of the room code, so no backend can
// correlate a stored blob with a human-readable room identifier, and
// the blobs themselves are opaque ciphertext.
//
// Gets return ErrNoSignal when the slot is empty; pollers keep waiting
// on that and surface everything else.
type Signaler interface {
	PostOffer(ctx context.Context, routingKey, blob string) error
	GetOffer(ctx context.Context, routingKey string) (string, error)
	PostAnswer(ctx context.Context, routingKey, blob string) error
	GetAnswer(ctx context.Context, routingKey string) (string, error)

	// MinPollInterval is the backend's documented rate limit. Pollers
	// use the slower of this and the connector's own floor, since
	// tripping a rate limit presents as a silent connection failure.
	MinPollInterval() time.Duration
}

var routingKeyPattern = regexp.MustCompile("^[0-9a-f]{64}$")

// validateRoutingKey rejects anything that is not 64 lowercase hex
// characters before it reaches a backend URL.
func validateRoutingKey(routingKey string) error {
	if !routingKeyPattern.MatchString(routingKey) {
		return fmt.Errorf("invalid routing key %q", routingKey)
	}
	return nil
}
