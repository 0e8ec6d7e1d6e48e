// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay implements the self-hostable signaling mailbox that
// transport.HTTPSignaler speaks to.
//
// The protocol is two REST slots per room:
//
//	PUT /room/{key}/offer    store the encrypted offer blob
//	GET /room/{key}/offer    fetch it (404 until the host posts)
//	PUT /room/{key}/answer   store the encrypted answer blob
//	GET /room/{key}/answer   fetch it (404 until the guest posts)
//
// Room keys are the 64-hex routing digest derived from the room code,
// never the room code itself, so the relay learns nothing about who is
// talking. Bodies are opaque base64 ciphertext; the relay stores and
// returns them verbatim.
//
// Slots live in SQLite so a relay restart does not strand an in-flight
// handshake. Every entry expires after a fixed TTL and a background
// sweep deletes expired rows.
package relay
