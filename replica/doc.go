// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package replica implements the conflict-free replicated document
// that two peers co-edit during a shared session.
//
// The document mirrors a session.Document as a set of last-writer-wins
// registers: one register per field of each contraction and labor
// event record, plus one per metadata key. A register holds the
// CBOR-encoded value, a Lamport clock, and the writing replica's ID;
// on conflict the higher clock wins, with the replica ID as a
// deterministic tiebreak. Record order is reconstructed from each
// record's creation clock, so both peers materialize the same sequence
// without coordinating.
//
// Field granularity is the point: when one peer sets a contraction's
// intensity while the other fixes its note, both edits survive the
// merge. Only a concurrent write to the same field of the same record
// is resolved by last-writer-wins, and that policy is inherited from
// the register primitive, not designed here.
//
// Instead of an event-emitter observer, the document exposes explicit
// message passing: [Document.Apply] ingests a remote update batch and
// returns an [ApplyResult], [Document.ApplyDelta] turns a local edit
// into an update batch for the wire, and [Document.Changes] is a
// consumable queue delivering one coalesced snapshot per applied
// remote batch. This keeps the bridge's loop-guard ordering
// deterministic and testable.
package replica
