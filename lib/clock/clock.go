// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time so every timeout and polling loop in
// the sync core is testable without sleeping. Production code injects
// [Real]; tests inject [NewFake] and drive time with Advance.
//
// Anything that would call time.Now, time.After, time.NewTicker, or
// time.AfterFunc takes a Clock instead. The relay poller, the ICE
// gathering timeout, and the mailbox TTL sweep all run against this
// interface.
package clock

import "time"

// Clock provides the time operations the sync core uses.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if
	// d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker

	// AfterFunc waits for d, then calls f in its own goroutine.
	// The returned Timer can cancel the pending call with Stop.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Ticker delivers periodic ticks on C. Stop releases it; Stop does not
// close C. C is buffered with capacity 1 — a slow consumer drops ticks
// rather than queueing them, matching time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker.
func (t *Ticker) Stop() { t.stopFunc() }

// Timer is a scheduled AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop cancels the pending call. Returns false if it already fired or
// was already stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }
