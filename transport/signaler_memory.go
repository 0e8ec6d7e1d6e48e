// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"sync"
	"time"
)

// MemorySignaler is an in-process mailbox for tests: the host and
// guest sides of a handshake share one instance and exchange blobs
// without any network.
type MemorySignaler struct {
	mu      sync.Mutex
	offers  map[string]string
	answers map[string]string
}

var _ Signaler = (*MemorySignaler)(nil)

func NewMemorySignaler() *MemorySignaler {
	return &MemorySignaler{
		offers:  make(map[string]string),
		answers: make(map[string]string),
	}
}

func (s *MemorySignaler) PostOffer(ctx context.Context, routingKey, blob string) error {
	if err := validateRoutingKey(routingKey); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[routingKey] = blob
	return nil
}

func (s *MemorySignaler) GetOffer(ctx context.Context, routingKey string) (string, error) {
	if err := validateRoutingKey(routingKey); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.offers[routingKey]
	if !ok {
		return "", ErrNoSignal
	}
	return blob, nil
}

func (s *MemorySignaler) PostAnswer(ctx context.Context, routingKey, blob string) error {
	if err := validateRoutingKey(routingKey); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[routingKey] = blob
	return nil
}

func (s *MemorySignaler) GetAnswer(ctx context.Context, routingKey string) (string, error) {
	if err := validateRoutingKey(routingKey); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.answers[routingKey]
	if !ok {
		return "", ErrNoSignal
	}
	return blob, nil
}

func (s *MemorySignaler) MinPollInterval() time.Duration { return 0 }

// Clear empties both mailboxes.
func (s *MemorySignaler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers = make(map[string]string)
	s.answers = make(map[string]string)
}
