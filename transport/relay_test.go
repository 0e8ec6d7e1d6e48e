// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/doula/lib/clock"
	"github.com/bureau-foundation/doula/lib/cryptobox"
	"github.com/bureau-foundation/doula/lib/testutil"
)

type pollResult struct {
	plaintext string
	err       error
}

// startPoll runs pollDecrypt in a goroutine against the offer slot and
// gives the poller a moment to register its ticker with the fake clock
// before the caller advances it.
func startPoll(connector *RelayConnector, key *cryptobox.Key, routingKey string, total time.Duration, absentErr error) <-chan pollResult {
	results := make(chan pollResult, 1)
	go func() {
		plaintext, err := connector.pollDecrypt(context.Background(),
			connector.Signaler.GetOffer, key, routingKey, total, absentErr)
		results <- pollResult{plaintext, err}
	}()
	time.Sleep(20 * time.Millisecond)
	return results
}

func testConnector(clk clock.Clock) *RelayConnector {
	return &RelayConnector{
		Signaler: NewMemorySignaler(),
		Clock:    clk,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestPollDecryptFindsPostedBlob(t *testing.T) {
	clk := clock.NewFake()
	connector := testConnector(clk)

	key, routingKey, err := deriveRoomKey("brave-otter-42", "")
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()

	encrypted, err := cryptobox.Encrypt(key, []byte("the-offer-code"))
	if err != nil {
		t.Fatal(err)
	}
	if err := connector.Signaler.PostOffer(context.Background(), routingKey, cryptobox.EncodeBlob(encrypted)); err != nil {
		t.Fatal(err)
	}

	results := startPoll(connector, key, routingKey, guestExchangeTimeout, ErrRoomNotFound)
	clk.Advance(3 * time.Second)

	result := testutil.RequireReceive(t, results, 5*time.Second, "poll result")
	if result.err != nil {
		t.Fatalf("pollDecrypt: %v", result.err)
	}
	if result.plaintext != "the-offer-code" {
		t.Errorf("plaintext = %q", result.plaintext)
	}
}

func TestPollDecryptWrongPassword(t *testing.T) {
	clk := clock.NewFake()
	connector := testConnector(clk)

	hostKey, routingKey, err := deriveRoomKey("brave-otter-42", "password-one")
	if err != nil {
		t.Fatal(err)
	}
	defer hostKey.Close()

	encrypted, err := cryptobox.Encrypt(hostKey, []byte("the-offer-code"))
	if err != nil {
		t.Fatal(err)
	}
	if err := connector.Signaler.PostOffer(context.Background(), routingKey, cryptobox.EncodeBlob(encrypted)); err != nil {
		t.Fatal(err)
	}

	guestKey, _, err := deriveRoomKey("brave-otter-42", "password-two")
	if err != nil {
		t.Fatal(err)
	}
	defer guestKey.Close()

	results := startPoll(connector, guestKey, routingKey, guestExchangeTimeout, ErrRoomNotFound)
	clk.Advance(3 * time.Second)

	result := testutil.RequireReceive(t, results, 5*time.Second, "poll result")
	if !errors.Is(result.err, ErrWrongPassword) {
		t.Errorf("error = %v, want ErrWrongPassword (present but undecryptable)", result.err)
	}
}

func TestPollDecryptEmptyRoomTimesOut(t *testing.T) {
	clk := clock.NewFake()
	connector := testConnector(clk)

	key, routingKey, err := deriveRoomKey("brave-otter-42", "")
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()

	results := startPoll(connector, key, routingKey, guestExchangeTimeout, ErrRoomNotFound)
	clk.Advance(guestExchangeTimeout + time.Second)

	result := testutil.RequireReceive(t, results, 5*time.Second, "poll result")
	if !errors.Is(result.err, ErrRoomNotFound) {
		t.Errorf("error = %v, want ErrRoomNotFound (nothing was ever posted)", result.err)
	}
}

func TestPollDecryptHostTimeoutIsPollingStage(t *testing.T) {
	clk := clock.NewFake()
	connector := testConnector(clk)

	key, routingKey, err := deriveRoomKey("brave-otter-42", "")
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()

	absent := &TimeoutError{Stage: StagePolling, Wait: hostExchangeTimeout}
	results := startPoll(connector, key, routingKey, hostExchangeTimeout, absent)
	clk.Advance(hostExchangeTimeout + time.Second)

	result := testutil.RequireReceive(t, results, 5*time.Second, "poll result")
	timeout, ok := IsTimeout(result.err)
	if !ok || timeout.Stage != StagePolling {
		t.Errorf("error = %v, want polling-stage timeout", result.err)
	}
}

func TestPollDecryptCancellable(t *testing.T) {
	clk := clock.NewFake()
	connector := testConnector(clk)

	key, routingKey, err := deriveRoomKey("brave-otter-42", "")
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan pollResult, 1)
	go func() {
		plaintext, err := connector.pollDecrypt(ctx, connector.Signaler.GetOffer,
			key, routingKey, guestExchangeTimeout, ErrRoomNotFound)
		results <- pollResult{plaintext, err}
	}()

	cancel()
	result := testutil.RequireReceive(t, results, 5*time.Second, "poll result")
	if !errors.Is(result.err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", result.err)
	}
}

func TestPollIntervalRespectsBackendRateLimit(t *testing.T) {
	connector := testConnector(clock.NewFake())
	if got := connector.pollInterval(); got != relayPollFloor {
		t.Errorf("memory signaler interval = %v, want floor %v", got, relayPollFloor)
	}

	connector.Signaler = NewPubSubSignaler("http://example.invalid", nil)
	if got := connector.pollInterval(); got != 3*time.Second {
		t.Errorf("pub/sub interval = %v, want backend limit 3s", got)
	}
}
