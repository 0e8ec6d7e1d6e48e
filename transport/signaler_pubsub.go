// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// pubsubTopicKeyLength is how much of the 64-hex routing key fits in a
// topic name once the "-offer"/"-answer" suffix is appended, under the
// backend's 63-character topic limit.
const pubsubTopicKeyLength = 57

// PubSubSignaler is the public pub/sub fallback mailbox. Topics are a
// truncated routing key plus a slot suffix; POST publishes the blob,
// GET with poll parameters returns recent messages as newline-delimited
// JSON, newest last.
//
// The truncation costs 28 bits of routing key, which still leaves far
// more topic space than the blob confidentiality requires — the blob
// is ciphertext either way.
type PubSubSignaler struct {
	baseURL string
	client  *http.Client
}

var _ Signaler = (*PubSubSignaler)(nil)

// pubsubMessage is one line of a poll response.
type pubsubMessage struct {
	Data string `json:"data"`
}

// NewPubSubSignaler creates a pub/sub fallback client.
func NewPubSubSignaler(baseURL string, client *http.Client) *PubSubSignaler {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PubSubSignaler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *PubSubSignaler) PostOffer(ctx context.Context, routingKey, blob string) error {
	return s.publish(ctx, routingKey, "offer", blob)
}

func (s *PubSubSignaler) GetOffer(ctx context.Context, routingKey string) (string, error) {
	return s.poll(ctx, routingKey, "offer")
}

func (s *PubSubSignaler) PostAnswer(ctx context.Context, routingKey, blob string) error {
	return s.publish(ctx, routingKey, "answer", blob)
}

func (s *PubSubSignaler) GetAnswer(ctx context.Context, routingKey string) (string, error) {
	return s.poll(ctx, routingKey, "answer")
}

// MinPollInterval respects the public backend's documented rate limit.
func (s *PubSubSignaler) MinPollInterval() time.Duration { return 3 * time.Second }

func (s *PubSubSignaler) topicURL(routingKey, slot string) string {
	return fmt.Sprintf("%s/%s-%s", s.baseURL, routingKey[:pubsubTopicKeyLength], slot)
}

func (s *PubSubSignaler) publish(ctx context.Context, routingKey, slot, blob string) error {
	if err := validateRoutingKey(routingKey); err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL(routingKey, slot), strings.NewReader(blob))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "text/plain")

	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", slot, err)
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("publishing %s: backend returned %s", slot, response.Status)
	}
	return nil
}

// poll fetches recent topic messages and returns the newest one.
func (s *PubSubSignaler) poll(ctx context.Context, routingKey, slot string) (string, error) {
	if err := validateRoutingKey(routingKey); err != nil {
		return "", err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.topicURL(routingKey, slot)+"?poll=1&since=5m", nil)
	if err != nil {
		return "", err
	}

	response, err := s.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("polling %s: %w", slot, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		io.Copy(io.Discard, response.Body)
		return "", ErrNoSignal
	}

	// Newline-delimited JSON, oldest first. The newest message wins:
	// a reposted offer supersedes earlier ones.
	var newest string
	scanner := bufio.NewScanner(io.LimitReader(response.Body, 4<<20))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var message pubsubMessage
		if err := json.Unmarshal([]byte(line), &message); err != nil {
			continue
		}
		if message.Data != "" {
			newest = message.Data
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s poll response: %w", slot, err)
	}
	if newest == "" {
		return "", ErrNoSignal
	}
	return newest, nil
}
