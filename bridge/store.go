// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"sync"

	"github.com/bureau-foundation/doula/session"
)

// Store is the local session storage the bridge synchronizes. The UI
// layer owns a Store; the bridge consumes it.
//
// Subscribe registers a callback fired after every Replace (and any
// other mutation the implementation supports). The returned cancel
// detaches the callback; it must be safe to call more than once.
type Store interface {
	// Load returns the current document. Implementations return a copy
	// the caller may keep; the bridge diffs against retained snapshots.
	Load() *session.Document

	// Replace swaps the stored document and notifies subscribers.
	Replace(doc *session.Document)

	// Subscribe registers a change callback.
	Subscribe(fn func()) (cancel func())
}

// MemoryStore is an in-process Store for tests and the CLI.
type MemoryStore struct {
	mu          sync.Mutex
	doc         *session.Document
	subscribers map[int]func()
	nextID      int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding a copy of doc. A nil doc
// starts empty.
func NewMemoryStore(doc *session.Document) *MemoryStore {
	if doc == nil {
		doc = session.New()
	}
	return &MemoryStore{
		doc:         doc.Clone(),
		subscribers: make(map[int]func()),
	}
}

func (s *MemoryStore) Load() *session.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

func (s *MemoryStore) Replace(doc *session.Document) {
	s.mu.Lock()
	s.doc = doc.Clone()
	callbacks := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	// Notify outside the lock; subscribers call back into Load.
	for _, fn := range callbacks {
		fn()
	}
}

// Update applies fn to a copy of the document and replaces the stored
// one. Convenience for tests and the CLI edit loop.
func (s *MemoryStore) Update(fn func(doc *session.Document)) {
	s.mu.Lock()
	doc := s.doc.Clone()
	s.mu.Unlock()
	fn(doc)
	s.Replace(doc)
}

func (s *MemoryStore) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}
