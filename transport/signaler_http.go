// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPSignaler speaks to the REST mailbox relay:
// PUT/GET <base>/room/{routingKey}/offer|answer with a raw-text body.
// The relay expires entries after a short TTL, so stale handshakes
// clean themselves up.
type HTTPSignaler struct {
	baseURL string
	client  *http.Client
}

var _ Signaler = (*HTTPSignaler)(nil)

// NewHTTPSignaler creates a REST mailbox client. client may be nil for
// a default with a sane timeout.
func NewHTTPSignaler(baseURL string, client *http.Client) *HTTPSignaler {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPSignaler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *HTTPSignaler) PostOffer(ctx context.Context, routingKey, blob string) error {
	return s.put(ctx, routingKey, "offer", blob)
}

func (s *HTTPSignaler) GetOffer(ctx context.Context, routingKey string) (string, error) {
	return s.get(ctx, routingKey, "offer")
}

func (s *HTTPSignaler) PostAnswer(ctx context.Context, routingKey, blob string) error {
	return s.put(ctx, routingKey, "answer", blob)
}

func (s *HTTPSignaler) GetAnswer(ctx context.Context, routingKey string) (string, error) {
	return s.get(ctx, routingKey, "answer")
}

// MinPollInterval: a self-hosted mailbox has no published rate limit;
// the connector's own floor governs.
func (s *HTTPSignaler) MinPollInterval() time.Duration { return 0 }

func (s *HTTPSignaler) slotURL(routingKey, slot string) string {
	return fmt.Sprintf("%s/room/%s/%s", s.baseURL, routingKey, slot)
}

func (s *HTTPSignaler) put(ctx context.Context, routingKey, slot, blob string) error {
	if err := validateRoutingKey(routingKey); err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, s.slotURL(routingKey, slot), strings.NewReader(blob))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "text/plain")

	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("posting %s: %w", slot, err)
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("posting %s: relay returned %s", slot, response.Status)
	}
	return nil
}

func (s *HTTPSignaler) get(ctx context.Context, routingKey, slot string) (string, error) {
	if err := validateRoutingKey(routingKey); err != nil {
		return "", err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.slotURL(routingKey, slot), nil)
	if err != nil {
		return "", err
	}

	response, err := s.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", slot, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		io.Copy(io.Discard, response.Body)
		return "", ErrNoSignal
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading %s body: %w", slot, err)
	}
	blob := strings.TrimSpace(string(body))
	if blob == "" {
		return "", ErrNoSignal
	}
	return blob, nil
}
