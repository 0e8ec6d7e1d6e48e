// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport establishes the encrypted peer-to-peer data
// channel two session participants sync over.
//
// Two connection paths share the WebRTC machinery:
//
//   - Private: the host and guest exchange compact offer/answer codes
//     out of band (read aloud, pasted, or scanned as QR). No server is
//     involved; see Host and Join.
//   - Relay: the same codes travel through a mailbox keyed by a
//     one-way hash of the room code, encrypted with a key derived from
//     the room code and optional password. The relay stores opaque
//     blobs it cannot read or correlate; see RelayConnector and the
//     Signaler implementations.
//
// Both paths use vanilla ICE: all candidates are gathered before the
// description is encoded, so the exchange is exactly one code in each
// direction. The resulting data channel is exposed as a net.Conn so
// the sync layer never sees WebRTC types.
package transport
