// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package session defines the labor-tracking session document that the
// sync core replicates: an ordered list of contraction records, an
// ordered list of labor events, and a small metadata map.
//
// Timestamps are milliseconds since the Unix epoch. Record IDs are
// client-generated, unique, and never reused — the replica diffs and
// merges by ID, so reusing one would splice two unrelated records
// together.
package session

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Location is where a contraction was felt.
type Location string

const (
	LocationFront Location = "front"
	LocationBack  Location = "back"
	LocationBoth  Location = "both"
)

// EventType classifies a labor event record.
type EventType string

const (
	EventWaterBroke  EventType = "water-broke"
	EventMedication  EventType = "medication"
	EventPositionChg EventType = "position-change"
	EventNote        EventType = "note"
	EventArrival     EventType = "arrival"
)

// Meta map keys. The metadata map is deliberately loose — peers running
// newer builds may add keys, and older peers must carry them through
// unharmed.
const (
	MetaSessionStart = "sessionStart" // int64, ms since epoch
	MetaPaused       = "paused"       // bool
	MetaSectionOrder = "sectionOrder" // []string, UI layout order
)

// PhaseRating is an optional nested rating of a labor phase attached
// to a contraction.
type PhaseRating struct {
	Phase  string `cbor:"phase" json:"phase"`
	Rating int    `cbor:"rating" json:"rating"`
}

// ContractionRecord is one timed contraction. EndAt is nil while the
// contraction is still open. Merging two replicas can legitimately
// produce two open contractions; the sync core preserves both and the
// UI layer decides what to do about it.
type ContractionRecord struct {
	ID          string       `cbor:"id" json:"id"`
	StartAt     int64        `cbor:"startAt" json:"startAt"`
	EndAt       *int64       `cbor:"endAt" json:"endAt"`
	Intensity   *int         `cbor:"intensity" json:"intensity"` // 1..5
	Location    *Location    `cbor:"location" json:"location"`
	Note        string       `cbor:"note" json:"note"`
	Flags       []string     `cbor:"flags" json:"flags"`
	PhaseRating *PhaseRating `cbor:"phaseRating" json:"phaseRating"`
}

// LaborEventRecord is one point-in-time labor event.
type LaborEventRecord struct {
	ID    string    `cbor:"id" json:"id"`
	Type  EventType `cbor:"type" json:"type"`
	At    int64     `cbor:"at" json:"at"`
	Notes string    `cbor:"notes" json:"notes"`
}

// Document is the full replicated session state.
type Document struct {
	Contractions []ContractionRecord `cbor:"contractions" json:"contractions"`
	Events       []LaborEventRecord  `cbor:"events" json:"events"`
	Meta         map[string]any      `cbor:"meta" json:"meta"`
}

// New returns an empty document with an initialized Meta map.
func New() *Document {
	return &Document{Meta: make(map[string]any)}
}

// NewRecordID returns a fresh record identifier: 16 hex characters of
// process randomness. Uniqueness across two peers is what matters;
// these IDs never leave the encrypted channel, so unpredictability
// does not.
func NewRecordID() string {
	return fmt.Sprintf("%08x%08x", rand.Uint32(), rand.Uint32())
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	cloned := &Document{
		Contractions: make([]ContractionRecord, len(d.Contractions)),
		Events:       slices.Clone(d.Events),
		Meta:         make(map[string]any, len(d.Meta)),
	}
	for index, record := range d.Contractions {
		cloned.Contractions[index] = record.clone()
	}
	for key, value := range d.Meta {
		cloned.Meta[key] = cloneMetaValue(value)
	}
	return cloned
}

func (r ContractionRecord) clone() ContractionRecord {
	cloned := r
	if r.EndAt != nil {
		endAt := *r.EndAt
		cloned.EndAt = &endAt
	}
	if r.Intensity != nil {
		intensity := *r.Intensity
		cloned.Intensity = &intensity
	}
	if r.Location != nil {
		location := *r.Location
		cloned.Location = &location
	}
	cloned.Flags = slices.Clone(r.Flags)
	if r.PhaseRating != nil {
		rating := *r.PhaseRating
		cloned.PhaseRating = &rating
	}
	return cloned
}

// cloneMetaValue deep-copies the slice-valued meta entries (section
// order); scalars are copied by assignment.
func cloneMetaValue(value any) any {
	switch typed := value.(type) {
	case []string:
		return slices.Clone(typed)
	case []any:
		return slices.Clone(typed)
	}
	return value
}

// FindContraction returns the contraction with the given ID, or nil.
func (d *Document) FindContraction(id string) *ContractionRecord {
	for index := range d.Contractions {
		if d.Contractions[index].ID == id {
			return &d.Contractions[index]
		}
	}
	return nil
}

// FindEvent returns the labor event with the given ID, or nil.
func (d *Document) FindEvent(id string) *LaborEventRecord {
	for index := range d.Events {
		if d.Events[index].ID == id {
			return &d.Events[index]
		}
	}
	return nil
}
