// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/doula/lib/clock"
	"github.com/bureau-foundation/doula/lib/cryptobox"
)

// relayPollFloor is the connector's own minimum poll interval. The
// effective interval is the slower of this and the signaler's rate
// limit.
const relayPollFloor = 2 * time.Second

// hostExchangeTimeout bounds how long a host waits for a guest to
// answer. Hosts idle with an open invite; five minutes covers a guest
// fumbling with the room code.
const hostExchangeTimeout = 5 * time.Minute

// guestExchangeTimeout bounds how long a guest waits for an offer to
// appear. A guest joining a room that is actually hosted sees the
// offer on the first or second poll; a minute of silence means nobody
// is there.
const guestExchangeTimeout = 60 * time.Second

// RelayConnector automates the private handshake through a mailbox:
// each side encrypts its code with the room-derived key, posts it
// under the routing key, and polls for the other side's. The relay
// only ever sees the routing key and ciphertext.
type RelayConnector struct {
	Signaler Signaler
	Clock    clock.Clock
	Logger   *slog.Logger
}

// HostExchange posts the host's encrypted offer and polls for the
// guest's answer, then completes the handshake. The offer must have
// been created with ForceSTUN set; relay-signaled peers are on
// different networks by construction.
func (r *RelayConnector) HostExchange(ctx context.Context, roomCode, password string, offer *HostOffer) (*Channel, error) {
	key, routingKey, err := deriveRoomKey(roomCode, password)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	encrypted, err := cryptobox.Encrypt(key, []byte(offer.Code))
	if err != nil {
		return nil, err
	}
	if err := r.Signaler.PostOffer(ctx, routingKey, cryptobox.EncodeBlob(encrypted)); err != nil {
		return nil, fmt.Errorf("posting offer: %w", err)
	}
	r.Logger.Info("offer posted, waiting for answer", "timeout", hostExchangeTimeout)

	answerCode, err := r.pollDecrypt(ctx, r.Signaler.GetAnswer, key, routingKey,
		hostExchangeTimeout, &TimeoutError{Stage: StagePolling, Wait: hostExchangeTimeout})
	if err != nil {
		return nil, err
	}
	return offer.WaitForAnswer(ctx, answerCode)
}

// GuestExchange polls for a hosted offer, joins it, and posts back the
// encrypted answer. ForceSTUN is set on the connection config
// unconditionally.
func (r *RelayConnector) GuestExchange(ctx context.Context, cfg Config, roomCode, password string) (*Channel, error) {
	cfg.ForceSTUN = true

	key, routingKey, err := deriveRoomKey(roomCode, password)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	offerCode, err := r.pollDecrypt(ctx, r.Signaler.GetOffer, key, routingKey,
		guestExchangeTimeout, ErrRoomNotFound)
	if err != nil {
		return nil, err
	}

	guest, err := Join(ctx, cfg, offerCode)
	if err != nil {
		return nil, err
	}

	encrypted, err := cryptobox.Encrypt(key, []byte(guest.Code))
	if err != nil {
		guest.Cancel()
		return nil, err
	}
	if err := r.Signaler.PostAnswer(ctx, routingKey, cryptobox.EncodeBlob(encrypted)); err != nil {
		guest.Cancel()
		return nil, fmt.Errorf("posting answer: %w", err)
	}
	r.Logger.Info("answer posted, waiting for host channel")

	return guest.WaitForConnection(ctx)
}

// pollInterval is the effective ticker period.
func (r *RelayConnector) pollInterval() time.Duration {
	interval := relayPollFloor
	if minimum := r.Signaler.MinPollInterval(); minimum > interval {
		interval = minimum
	}
	return interval
}

// pollDecrypt polls one mailbox slot until a blob decrypts, the
// overall timeout passes, or ctx is cancelled. The three outcomes are
// kept distinct: an empty slot keeps polling and eventually reports
// absentErr; a blob that will not decode or decrypt reports
// ErrWrongPassword — the room exists, the key is wrong.
func (r *RelayConnector) pollDecrypt(ctx context.Context, fetch func(context.Context, string) (string, error), key *cryptobox.Key, routingKey string, total time.Duration, absentErr error) (string, error) {
	ticker := r.Clock.NewTicker(r.pollInterval())
	defer ticker.Stop()
	deadline := r.Clock.After(total)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", absentErr
		case <-ticker.C:
			blob, err := fetch(ctx, routingKey)
			if errors.Is(err, ErrNoSignal) {
				continue
			}
			if err != nil {
				r.Logger.Warn("signal fetch failed, retrying", "error", err)
				continue
			}
			raw, err := cryptobox.DecodeBlob(blob)
			if err != nil {
				return "", ErrWrongPassword
			}
			plaintext, err := cryptobox.Decrypt(key, raw)
			if err != nil {
				return "", ErrWrongPassword
			}
			return string(plaintext), nil
		}
	}
}

// deriveRoomKey computes the shared key and routing key for a room.
// When no password is set, the room code itself is the secret.
func deriveRoomKey(roomCode, password string) (*cryptobox.Key, string, error) {
	sharedSecret := roomCode
	if password != "" {
		sharedSecret = password
	}
	key, err := cryptobox.DeriveKey(sharedSecret, roomCode)
	if err != nil {
		return nil, "", err
	}
	return key, cryptobox.RoutingKey(roomCode), nil
}
