// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"bytes"
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/bureau-foundation/doula/lib/codec"
	"github.com/bureau-foundation/doula/session"
)

// changeQueueCapacity bounds the Changes queue. The bridge drains the
// queue promptly; the capacity only has to cover a burst of update
// batches arriving while a store write is in flight.
const changeQueueCapacity = 128

// register is one last-writer-wins cell.
type register struct {
	value   codec.RawMessage
	clock   uint64
	replica string
}

// recordState holds the registers of one record plus its creation
// identity (used for deterministic ordering) and an optional deletion
// tombstone. Deletion is permanent: a tombstoned record never
// reappears, regardless of later field writes.
type recordState struct {
	createdClock uint64
	createdBy    string
	fields       map[string]*register
	deleted      *register
}

// Change is one coalesced remote mutation: the document state after an
// applied update batch. Delivered on the Changes queue.
type Change struct {
	Snapshot *session.Document
}

// ApplyResult reports what an update batch did.
type ApplyResult struct {
	// Applied counts register writes that won against local state.
	Applied int
	// Stale counts writes that lost last-writer-wins and were dropped.
	Stale int
}

// Document is the replicated form of a session document. Safe for
// concurrent use.
type Document struct {
	mu           sync.Mutex
	replicaID    string
	clock        uint64
	versions     StateVector
	contractions map[string]*recordState
	events       map[string]*recordState
	meta         map[string]*register

	changes chan Change
}

// NewID returns a fresh replica identifier. Two peers only ever need
// distinct IDs, not unguessable ones.
func NewID() string {
	return fmt.Sprintf("%08x", rand.Uint32())
}

// NewDocument creates an empty replicated document owned by replicaID.
func NewDocument(replicaID string) *Document {
	return &Document{
		replicaID:    replicaID,
		versions:     StateVector{},
		contractions: make(map[string]*recordState),
		events:       make(map[string]*recordState),
		meta:         make(map[string]*register),
		changes:      make(chan Change, changeQueueCapacity),
	}
}

// FromSession seeds a fresh replicated document from current local
// state. Every field becomes a register written by this replica.
func FromSession(s *session.Document, replicaID string) (*Document, error) {
	doc := NewDocument(replicaID)
	if _, err := doc.ApplyDelta(session.New(), s); err != nil {
		return nil, err
	}
	return doc, nil
}

// Changes is the consumable queue of remote-originated mutations: one
// Change per applied update batch, carrying a full snapshot. Local
// edits made through ApplyDelta do not appear here — the caller
// already has that state.
func (d *Document) Changes() <-chan Change {
	return d.changes
}

// StateVector returns the highest clock this document has incorporated
// from each known replica.
func (d *Document) StateVector() StateVector {
	d.mu.Lock()
	defer d.mu.Unlock()
	sv := make(StateVector, len(d.versions))
	for replica, clock := range d.versions {
		sv[replica] = clock
	}
	return sv
}

// Apply ingests a remote update batch. Writes that lose last-writer-
// wins are dropped individually; the rest apply atomically. If
// anything applied, one coalesced Change is queued.
func (d *Document) Apply(data []byte) (ApplyResult, error) {
	u, err := decodeUpdate(data)
	if err != nil {
		return ApplyResult{}, err
	}

	d.mu.Lock()
	var result ApplyResult
	for _, write := range u.Writes {
		if d.applyWriteLocked(write) {
			result.Applied++
		} else {
			result.Stale++
		}
	}
	var snapshot *session.Document
	if result.Applied > 0 {
		snapshot, err = d.snapshotLocked()
	}
	d.mu.Unlock()
	if err != nil {
		return result, err
	}

	if snapshot != nil {
		d.changes <- Change{Snapshot: snapshot}
	}
	return result, nil
}

// ApplyDelta diffs old against new by record ID and writes only the
// changed fields, as one atomic batch. Returns the encoded update for
// the wire, or nil when nothing changed. old is typically the bridge's
// last-known snapshot and new the store's current state.
func (d *Document) ApplyDelta(old, new *session.Document) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var writes []registerWrite

	contractionWrites, err := d.diffRecordsLocked(kindContraction,
		contractionFieldMaps(old), contractionFieldMaps(new))
	if err != nil {
		return nil, err
	}
	writes = append(writes, contractionWrites...)

	eventWrites, err := d.diffRecordsLocked(kindEvent,
		eventFieldMaps(old), eventFieldMaps(new))
	if err != nil {
		return nil, err
	}
	writes = append(writes, eventWrites...)

	metaWrites, err := d.diffMetaLocked(old.Meta, new.Meta)
	if err != nil {
		return nil, err
	}
	writes = append(writes, metaWrites...)

	if len(writes) == 0 {
		return nil, nil
	}
	return encodeUpdate(update{Writes: writes})
}

// DeltaSince returns an update batch containing every register the
// peer's state vector has not incorporated, or nil when the peer is
// current. Writes are ordered by clock so the peer's version tracking
// advances monotonically.
func (d *Document) DeltaSince(sv StateVector) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var writes []registerWrite

	appendRegister := func(write registerWrite) {
		if write.Clock > sv[write.Replica] {
			writes = append(writes, write)
		}
	}

	for kind, states := range map[recordKind]map[string]*recordState{
		kindContraction: d.contractions,
		kindEvent:       d.events,
	} {
		for id, state := range states {
			for field, reg := range state.fields {
				appendRegister(registerWrite{
					Kind: kind, Record: id, Field: field,
					Value: reg.value, Clock: reg.clock, Replica: reg.replica,
					CreatedClock: state.createdClock, CreatedBy: state.createdBy,
				})
			}
			if state.deleted != nil {
				appendRegister(registerWrite{
					Kind: kind, Record: id,
					Clock: state.deleted.clock, Replica: state.deleted.replica,
					CreatedClock: state.createdClock, CreatedBy: state.createdBy,
					Tombstone:    true,
				})
			}
		}
	}
	for key, reg := range d.meta {
		appendRegister(registerWrite{
			Kind: kindMeta, Field: key,
			Value: reg.value, Clock: reg.clock, Replica: reg.replica,
			Tombstone: reg.value == nil,
		})
	}

	if len(writes) == 0 {
		return nil, nil
	}
	slices.SortFunc(writes, func(a, b registerWrite) int {
		if c := cmp.Compare(a.Clock, b.Clock); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Replica, b.Replica); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Record, b.Record); c != 0 {
			return c
		}
		return cmp.Compare(a.Field, b.Field)
	})
	return encodeUpdate(update{Writes: writes})
}

// Snapshot materializes the current session document.
func (d *Document) Snapshot() (*session.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// wins reports whether an incoming write replaces an existing
// register: higher clock, replica ID as deterministic tiebreak.
func wins(write registerWrite, existing *register) bool {
	if write.Clock != existing.clock {
		return write.Clock > existing.clock
	}
	return write.Replica > existing.replica
}

// applyWriteLocked merges one write and reports whether it won.
// Always advances version tracking and the Lamport clock, even for
// stale writes — seen is seen.
func (d *Document) applyWriteLocked(write registerWrite) bool {
	if write.Clock > d.versions[write.Replica] {
		d.versions[write.Replica] = write.Clock
	}
	if write.Clock > d.clock {
		d.clock = write.Clock
	}

	if write.Kind == kindMeta {
		existing := d.meta[write.Field]
		if existing != nil && !wins(write, existing) {
			return false
		}
		value := write.Value
		if write.Tombstone {
			value = nil
		}
		d.meta[write.Field] = &register{value: value, clock: write.Clock, replica: write.Replica}
		return true
	}

	states := d.contractions
	if write.Kind == kindEvent {
		states = d.events
	}
	state := states[write.Record]
	if state == nil {
		state = &recordState{
			createdClock: write.CreatedClock,
			createdBy:    write.CreatedBy,
			fields:       make(map[string]*register),
		}
		states[write.Record] = state
	}

	if write.Tombstone && write.Field == "" {
		if state.deleted != nil && !wins(write, state.deleted) {
			return false
		}
		state.deleted = &register{clock: write.Clock, replica: write.Replica}
		return true
	}

	existing := state.fields[write.Field]
	if existing != nil && !wins(write, existing) {
		return false
	}
	state.fields[write.Field] = &register{value: write.Value, clock: write.Clock, replica: write.Replica}
	return true
}

// tick advances the Lamport clock for one local write.
func (d *Document) tickLocked() uint64 {
	d.clock++
	return d.clock
}

// diffRecordsLocked produces and locally applies writes for every
// field that differs between the old and new field maps, plus creation
// batches for new records and tombstones for removed ones.
func (d *Document) diffRecordsLocked(kind recordKind, old, new []recordFieldMap) ([]registerWrite, error) {
	oldByID := make(map[string]recordFieldMap, len(old))
	for _, record := range old {
		oldByID[record.id] = record
	}
	newIDs := make(map[string]bool, len(new))

	states := d.contractions
	if kind == kindEvent {
		states = d.events
	}

	var writes []registerWrite

	for _, record := range new {
		if record.err != nil {
			return nil, record.err
		}
		newIDs[record.id] = true

		previous, existed := oldByID[record.id]
		var createdClock uint64
		var createdBy string
		if state, known := states[record.id]; known {
			createdClock, createdBy = state.createdClock, state.createdBy
		} else {
			createdClock, createdBy = d.tickLocked(), d.replicaID
		}

		for _, field := range record.sortedFields() {
			value := record.fields[field]
			if existed && bytes.Equal(previous.fields[field], value) {
				continue
			}
			write := registerWrite{
				Kind: kind, Record: record.id, Field: field,
				Value: value, Clock: d.tickLocked(), Replica: d.replicaID,
				CreatedClock: createdClock, CreatedBy: createdBy,
			}
			d.applyWriteLocked(write)
			writes = append(writes, write)
		}
	}

	for _, record := range old {
		if record.err != nil {
			return nil, record.err
		}
		if newIDs[record.id] {
			continue
		}
		state := states[record.id]
		if state != nil && state.deleted != nil {
			continue // already tombstoned
		}
		var createdClock uint64
		var createdBy string
		if state != nil {
			createdClock, createdBy = state.createdClock, state.createdBy
		}
		write := registerWrite{
			Kind: kind, Record: record.id,
			Clock: d.tickLocked(), Replica: d.replicaID,
			CreatedClock: createdClock, CreatedBy: createdBy,
			Tombstone:    true,
		}
		d.applyWriteLocked(write)
		writes = append(writes, write)
	}

	return writes, nil
}

// diffMetaLocked produces and locally applies writes for changed,
// added, and removed meta keys.
func (d *Document) diffMetaLocked(old, new map[string]any) ([]registerWrite, error) {
	var writes []registerWrite

	for _, key := range sortedKeys(new) {
		encoded, err := codec.Marshal(new[key])
		if err != nil {
			return nil, fmt.Errorf("replica: encoding meta %q: %w", key, err)
		}
		if previous, ok := old[key]; ok {
			previousEncoded, err := codec.Marshal(previous)
			if err != nil {
				return nil, fmt.Errorf("replica: encoding meta %q: %w", key, err)
			}
			if bytes.Equal(previousEncoded, encoded) {
				continue
			}
		}
		write := registerWrite{
			Kind: kindMeta, Field: key,
			Value: encoded, Clock: d.tickLocked(), Replica: d.replicaID,
		}
		d.applyWriteLocked(write)
		writes = append(writes, write)
	}

	for _, key := range sortedKeys(old) {
		if _, ok := new[key]; ok {
			continue
		}
		write := registerWrite{
			Kind: kindMeta, Field: key,
			Clock: d.tickLocked(), Replica: d.replicaID,
			Tombstone: true,
		}
		d.applyWriteLocked(write)
		writes = append(writes, write)
	}

	return writes, nil
}

// snapshotLocked rebuilds the session document: records ordered by
// creation identity, tombstoned records and meta keys omitted.
func (d *Document) snapshotLocked() (*session.Document, error) {
	snapshot := session.New()

	contractionIDs := liveRecordIDs(d.contractions)
	for _, id := range contractionIDs {
		record, err := buildRecord[session.ContractionRecord](id, d.contractions[id].fields)
		if err != nil {
			return nil, err
		}
		snapshot.Contractions = append(snapshot.Contractions, record)
	}

	eventIDs := liveRecordIDs(d.events)
	for _, id := range eventIDs {
		record, err := buildRecord[session.LaborEventRecord](id, d.events[id].fields)
		if err != nil {
			return nil, err
		}
		snapshot.Events = append(snapshot.Events, record)
	}

	for key, reg := range d.meta {
		if reg.value == nil {
			continue
		}
		var value any
		if err := codec.Unmarshal(reg.value, &value); err != nil {
			return nil, fmt.Errorf("replica: decoding meta %q: %w", key, err)
		}
		snapshot.Meta[key] = normalizeMetaValue(value)
	}

	return snapshot, nil
}

// liveRecordIDs returns non-tombstoned record IDs in creation order:
// creation clock, then creating replica, then ID. Both peers hold the
// same registers, so both produce the same order.
func liveRecordIDs(states map[string]*recordState) []string {
	ids := make([]string, 0, len(states))
	for id, state := range states {
		if state.deleted == nil {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int {
		stateA, stateB := states[a], states[b]
		if c := cmp.Compare(stateA.createdClock, stateB.createdClock); c != 0 {
			return c
		}
		if c := cmp.Compare(stateA.createdBy, stateB.createdBy); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

// normalizeMetaValue maps decoded CBOR shapes back to the narrow set
// of meta value types the session model uses. Section order goes in as
// []string and comes out of the generic decoder as []any.
func normalizeMetaValue(value any) any {
	items, ok := value.([]any)
	if !ok {
		return value
	}
	strings := make([]string, len(items))
	for index, item := range items {
		text, ok := item.(string)
		if !ok {
			return value
		}
		strings[index] = text
	}
	return strings
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
