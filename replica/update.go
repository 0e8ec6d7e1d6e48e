// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"fmt"

	"github.com/bureau-foundation/doula/lib/codec"
)

// recordKind distinguishes the three register namespaces. Wire
// constants — changing them breaks update compatibility between peers.
type recordKind uint8

const (
	kindContraction recordKind = 0
	kindEvent       recordKind = 1
	kindMeta        recordKind = 2
)

// registerWrite is one field-level write on the wire.
type registerWrite struct {
	Kind    recordKind       `cbor:"k"`
	Record  string           `cbor:"r,omitempty"` // record ID; empty for meta
	Field   string           `cbor:"f,omitempty"` // field name or meta key
	Value   codec.RawMessage `cbor:"v,omitempty"`
	Clock   uint64           `cbor:"c"`
	Replica string           `cbor:"p"`

	// Creation identity of the record this write belongs to, carried
	// on every record-field write so a peer seeing the record for the
	// first time can place it in the ordering.
	CreatedClock uint64 `cbor:"cc,omitempty"`
	CreatedBy    string `cbor:"cb,omitempty"`

	// Tombstone marks a deletion: a whole record when Field is empty,
	// a meta key when Kind is kindMeta.
	Tombstone bool `cbor:"t,omitempty"`
}

// update is a batch of register writes produced by one local edit or
// one DeltaSince computation. Batches apply atomically.
type update struct {
	Writes []registerWrite `cbor:"w"`
}

// StateVector summarizes which writes a replica has incorporated: the
// highest clock seen from each known replica ID.
type StateVector map[string]uint64

// EncodeStateVector renders a state vector for the sync handshake.
func EncodeStateVector(sv StateVector) ([]byte, error) {
	encoded, err := codec.Marshal(sv)
	if err != nil {
		return nil, fmt.Errorf("replica: encoding state vector: %w", err)
	}
	return encoded, nil
}

// DecodeStateVector parses a peer's state vector.
func DecodeStateVector(data []byte) (StateVector, error) {
	var sv StateVector
	if err := codec.Unmarshal(data, &sv); err != nil {
		return nil, fmt.Errorf("replica: decoding state vector: %w", err)
	}
	if sv == nil {
		sv = StateVector{}
	}
	return sv, nil
}

func encodeUpdate(u update) ([]byte, error) {
	encoded, err := codec.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("replica: encoding update: %w", err)
	}
	return encoded, nil
}

func decodeUpdate(data []byte) (update, error) {
	var u update
	if err := codec.Unmarshal(data, &u); err != nil {
		return update{}, fmt.Errorf("replica: decoding update: %w", err)
	}
	return u, nil
}

// CountWrites returns the number of field-level writes in an encoded
// update. Diagnostic helper used by tests and debug logging.
func CountWrites(data []byte) (int, error) {
	u, err := decodeUpdate(data)
	if err != nil {
		return 0, err
	}
	return len(u.Writes), nil
}
