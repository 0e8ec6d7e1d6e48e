// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests. Time stands still until
// Advance moves it; scheduled events fire synchronously inside the
// Advance call, in deadline order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
	tickers []*fakeTicker
}

// fakeWaiter is a pending After channel or AfterFunc call.
type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time // nil for AfterFunc waiters
	fn       func()         // nil for After waiters
	stopped  bool
}

// fakeTicker delivers one tick per elapsed interval during Advance.
type fakeTicker struct {
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  bool
}

// NewFake returns a Fake starting at an arbitrary fixed time.
func NewFake() *Fake {
	return &Fake{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After returns a channel that receives when Advance moves time past d.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.waiters = append(f.waiters, &fakeWaiter{deadline: f.now.Add(d), ch: ch})
	return ch
}

// NewTicker returns a Ticker driven by Advance.
func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ticker := &fakeTicker{interval: d, next: f.now.Add(d), ch: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, ticker)
	return &Ticker{
		C: ticker.ch,
		stopFunc: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			ticker.stopped = true
		},
	}
}

// AfterFunc schedules f to run when Advance moves time past d. The
// function runs synchronously inside Advance, without the fake's lock
// held.
func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	waiter := &fakeWaiter{deadline: f.now.Add(d), fn: fn}
	f.waiters = append(f.waiters, waiter)
	return &Timer{
		stopFunc: func() bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			if waiter.stopped {
				return false
			}
			waiter.stopped = true
			return true
		},
	}
}

// Advance moves the fake's time forward by d, firing every waiter and
// ticker whose deadline is reached, in chronological order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)

	for {
		event, eventTime := f.nextEventLocked(target)
		if event == nil {
			break
		}
		f.now = eventTime
		fn := f.fireLocked(event)
		if fn != nil {
			// AfterFunc bodies may call back into the clock.
			f.mu.Unlock()
			fn()
			f.mu.Lock()
		}
	}

	f.now = target
	f.mu.Unlock()
}

// nextEventLocked finds the earliest unfired waiter or ticker deadline
// at or before target. Returns nil when nothing is due.
func (f *Fake) nextEventLocked(target time.Time) (any, time.Time) {
	var best any
	var bestTime time.Time

	for _, waiter := range f.waiters {
		if waiter.stopped || waiter.deadline.After(target) {
			continue
		}
		if best == nil || waiter.deadline.Before(bestTime) {
			best, bestTime = waiter, waiter.deadline
		}
	}
	for _, ticker := range f.tickers {
		if ticker.stopped || ticker.next.After(target) {
			continue
		}
		if best == nil || ticker.next.Before(bestTime) {
			best, bestTime = ticker, ticker.next
		}
	}
	return best, bestTime
}

// fireLocked fires one event and returns an AfterFunc body to run
// outside the lock, if any.
func (f *Fake) fireLocked(event any) func() {
	switch e := event.(type) {
	case *fakeWaiter:
		e.stopped = true
		if e.ch != nil {
			e.ch <- f.now
			return nil
		}
		return e.fn
	case *fakeTicker:
		select {
		case e.ch <- f.now:
		default:
			// Consumer is behind; drop the tick like time.Ticker.
		}
		e.next = e.next.Add(e.interval)
		return nil
	}
	return nil
}
