// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/doula/lib/codec"
	"github.com/bureau-foundation/doula/session"
)

// recordFieldMap is one record exploded into per-field encoded values.
// The ID is carried separately: identity is the register namespace key,
// not a register itself. Field granularity is what lets two peers edit
// different fields of the same record without clobbering each other.
type recordFieldMap struct {
	id     string
	fields map[string]codec.RawMessage
	err    error
}

// fieldMapOf encodes a record and re-reads it as a field→bytes map.
// Going through CBOR keeps the field naming in one place (the struct
// tags on the session types) instead of a parallel hand-written list.
func fieldMapOf(id string, record any) recordFieldMap {
	encoded, err := codec.Marshal(record)
	if err != nil {
		return recordFieldMap{id: id, err: fmt.Errorf("replica: encoding record %s: %w", id, err)}
	}
	var fields map[string]codec.RawMessage
	if err := codec.Unmarshal(encoded, &fields); err != nil {
		return recordFieldMap{id: id, err: fmt.Errorf("replica: exploding record %s: %w", id, err)}
	}
	delete(fields, "id")
	return recordFieldMap{id: id, fields: fields}
}

func (r recordFieldMap) sortedFields() []string {
	fields := make([]string, 0, len(r.fields))
	for field := range r.fields {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}

func contractionFieldMaps(doc *session.Document) []recordFieldMap {
	maps := make([]recordFieldMap, len(doc.Contractions))
	for index, record := range doc.Contractions {
		maps[index] = fieldMapOf(record.ID, record)
	}
	return maps
}

func eventFieldMaps(doc *session.Document) []recordFieldMap {
	maps := make([]recordFieldMap, len(doc.Events))
	for index, record := range doc.Events {
		maps[index] = fieldMapOf(record.ID, record)
	}
	return maps
}

// buildRecord reassembles a session record from its field registers.
func buildRecord[T any](id string, registers map[string]*register) (T, error) {
	var record T

	fields := make(map[string]codec.RawMessage, len(registers)+1)
	for field, reg := range registers {
		fields[field] = reg.value
	}
	encodedID, err := codec.Marshal(id)
	if err != nil {
		return record, fmt.Errorf("replica: encoding record id %s: %w", id, err)
	}
	fields["id"] = encodedID

	encoded, err := codec.Marshal(fields)
	if err != nil {
		return record, fmt.Errorf("replica: assembling record %s: %w", id, err)
	}
	if err := codec.Unmarshal(encoded, &record); err != nil {
		return record, fmt.Errorf("replica: rebuilding record %s: %w", id, err)
	}
	return record, nil
}
