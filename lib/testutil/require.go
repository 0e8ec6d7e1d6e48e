// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel assertion helpers for tests that
// coordinate goroutines: handshake completions, change-queue reads,
// teardown signals. Each helper carries a timeout safety valve so a
// deadlocked test fails with a message instead of hanging the run.
package testutil

import (
	"testing"
	"time"
)

// RequireReceive reads one value from ch within timeout or fails the
// test.
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, message string) T {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without a value: %s", message)
		}
		return value
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message)
	}
	panic("unreachable")
}

// RequireClosed waits for ch to close (or deliver) within timeout or
// fails the test. For readiness channels that signal by closing.
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, message string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v waiting for close: %s", timeout, message)
	}
}

// RequireNoReceive asserts that ch stays silent for the given window.
// Used by the loop-guard tests: after N remote updates, the outbound
// side must send nothing.
func RequireNoReceive[T any](t testing.TB, ch <-chan T, window time.Duration, message string) {
	t.Helper()
	select {
	case value := <-ch:
		t.Fatalf("unexpected value %v: %s", value, message)
	case <-time.After(window):
	}
}
