// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge orchestrates a shared session: it establishes the
// peer connection over one of the transport paths, wires the local
// store to the replicated document, and owns teardown.
//
// The four connection paths (private or relay, host or guest) drive
// one explicit state machine — see Phase — instead of four parallel
// flows. The caller receives a SharedSession handle; holding the
// handle is holding the session, so "at most one active session" is a
// matter of ownership rather than a package-level check.
//
// Once connected, synchronization is two one-way pumps with a loop
// guard between them. Remote batches arrive through the document's
// change queue and are written to the store after bumping a generation
// counter; the store subscriber compares the counter to its bookmark
// and skips the resulting echo. Local edits — store changes with no
// pending generation bump — are diffed against the last known snapshot
// and pushed as field-level updates.
package bridge
