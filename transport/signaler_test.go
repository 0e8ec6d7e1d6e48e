// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const testRoutingKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestMemorySignalerRoundTrip(t *testing.T) {
	signaler := NewMemorySignaler()
	ctx := context.Background()

	if _, err := signaler.GetOffer(ctx, testRoutingKey); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("empty slot error = %v, want ErrNoSignal", err)
	}
	if err := signaler.PostOffer(ctx, testRoutingKey, "blob-1"); err != nil {
		t.Fatal(err)
	}
	blob, err := signaler.GetOffer(ctx, testRoutingKey)
	if err != nil || blob != "blob-1" {
		t.Fatalf("GetOffer = %q, %v", blob, err)
	}

	// Offers and answers are separate slots.
	if _, err := signaler.GetAnswer(ctx, testRoutingKey); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("answer slot should be empty, got %v", err)
	}
}

func TestSignalerRejectsBadRoutingKey(t *testing.T) {
	signaler := NewMemorySignaler()
	for _, key := range []string{"", "short", strings.ToUpper(testRoutingKey), testRoutingKey + "00"} {
		if err := signaler.PostOffer(context.Background(), key, "blob"); err == nil {
			t.Errorf("PostOffer accepted routing key %q", key)
		}
	}
}

// mailboxHandler is a minimal in-test REST relay.
type mailboxHandler struct {
	mu    sync.Mutex
	slots map[string]string
}

func (h *mailboxHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body := make([]byte, 4096)
		n, _ := r.Body.Read(body)
		h.slots[r.URL.Path] = string(body[:n])
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		blob, ok := h.slots[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, blob)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestHTTPSignaler(t *testing.T) {
	handler := &mailboxHandler{slots: make(map[string]string)}
	server := httptest.NewServer(handler)
	defer server.Close()

	signaler := NewHTTPSignaler(server.URL, server.Client())
	ctx := context.Background()

	if _, err := signaler.GetAnswer(ctx, testRoutingKey); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("missing answer error = %v, want ErrNoSignal", err)
	}
	if err := signaler.PostAnswer(ctx, testRoutingKey, "encrypted-answer"); err != nil {
		t.Fatal(err)
	}
	blob, err := signaler.GetAnswer(ctx, testRoutingKey)
	if err != nil || blob != "encrypted-answer" {
		t.Fatalf("GetAnswer = %q, %v", blob, err)
	}

	wantPath := "/room/" + testRoutingKey + "/answer"
	handler.mu.Lock()
	_, ok := handler.slots[wantPath]
	handler.mu.Unlock()
	if !ok {
		t.Errorf("relay never saw %s", wantPath)
	}
}

func TestPubSubSignalerNewestMessageWins(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		if r.Method == http.MethodGet {
			fmt.Fprintln(w, `{"data":"stale-blob"}`)
			fmt.Fprintln(w, `not json, skipped`)
			fmt.Fprintln(w, `{"data":"fresh-blob"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	signaler := NewPubSubSignaler(server.URL, server.Client())
	blob, err := signaler.GetOffer(context.Background(), testRoutingKey)
	if err != nil {
		t.Fatal(err)
	}
	if blob != "fresh-blob" {
		t.Errorf("blob = %q, want the newest message", blob)
	}

	wantTopic := "/" + testRoutingKey[:pubsubTopicKeyLength] + "-offer"
	if requestedPath != wantTopic {
		t.Errorf("topic path = %q, want %q", requestedPath, wantTopic)
	}
}

func TestPubSubSignalerEmptyPollIsNoSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	signaler := NewPubSubSignaler(server.URL, server.Client())
	if _, err := signaler.GetOffer(context.Background(), testRoutingKey); !errors.Is(err, ErrNoSignal) {
		t.Errorf("empty poll error = %v, want ErrNoSignal", err)
	}
}
