// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bureau-foundation/doula/bridge"
	"github.com/bureau-foundation/doula/cmd/doula/cli"
	"github.com/bureau-foundation/doula/lib/clock"
	"github.com/bureau-foundation/doula/lib/secret"
	"github.com/bureau-foundation/doula/lib/settings"
	"github.com/bureau-foundation/doula/session"
	"github.com/bureau-foundation/doula/transport"
)

// sessionEnvironment bundles what every connect path needs: loaded
// preferences, an ICE builder honoring them, and a logger.
type sessionEnvironment struct {
	settings *settings.Settings
	ice      *transport.ICEConfigBuilder
	logger   *slog.Logger

	turnSecret *secret.Buffer
}

func loadEnvironment(settingsPath string, verbose bool) (*sessionEnvironment, error) {
	prefs, err := settings.Load(settingsPath)
	if err != nil {
		return nil, err
	}

	env := &sessionEnvironment{
		settings: prefs,
		logger:   cli.NewLogger(verbose),
	}
	if prefs.ICE.TURNPreset == settings.TURNManaged && prefs.TURNSecretPath != "" {
		env.turnSecret, err = secret.ReadFromPath(prefs.TURNSecretPath)
		if err != nil {
			return nil, fmt.Errorf("loading TURN secret: %w", err)
		}
	}
	env.ice = transport.NewICEConfigBuilder(prefs.ICE, prefs.TURNAccount, env.turnSecret, clock.Real())
	return env, nil
}

func (e *sessionEnvironment) Close() {
	if e.turnSecret != nil {
		e.turnSecret.Close()
	}
}

// signaler builds the signaling backend for the configured relay mode.
func (e *sessionEnvironment) signaler(mode settings.SignalingMode) (transport.Signaler, error) {
	switch mode {
	case settings.SignalingRelayHTTP:
		if e.settings.RelayBaseURL == "" {
			return nil, fmt.Errorf("relay-http signaling needs relayBaseUrl in settings")
		}
		return transport.NewHTTPSignaler(e.settings.RelayBaseURL, nil), nil
	case settings.SignalingRelaySocket:
		if e.settings.PubSubBaseURL == "" {
			return nil, fmt.Errorf("relay-socket signaling needs pubsubBaseUrl in settings")
		}
		return transport.NewPubSubSignaler(e.settings.PubSubBaseURL, nil), nil
	default:
		return nil, fmt.Errorf("no signaler for mode %q", mode)
	}
}

// bridgeOptions builds the common session options. The store starts
// from a fresh document; a future version will persist it locally.
func (e *sessionEnvironment) bridgeOptions(store *bridge.MemoryStore) bridge.Options {
	return bridge.Options{
		Store:  store,
		ICE:    e.ice,
		Logger: e.logger,
		OnStatus: func(status bridge.Status) {
			if status.Cause != "" {
				e.logger.Warn("connection state", "phase", status.Phase, "cause", status.Cause)
				return
			}
			e.logger.Info("connection state", "phase", status.Phase)
		},
	}
}

// runSession prints document activity until interrupted, then stops
// the session.
func runSession(s *bridge.SharedSession, store *bridge.MemoryStore, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer s.Stop()

	unsubscribe := store.Subscribe(func() {
		doc := store.Load()
		logger.Info("session updated",
			"contractions", len(doc.Contractions),
			"events", len(doc.Events),
			"active", activeContraction(doc),
		)
	})
	defer unsubscribe()

	fmt.Fprintln(os.Stderr, "connected — press Ctrl-C to leave the session")
	<-ctx.Done()
	return nil
}

func activeContraction(doc *session.Document) bool {
	for index := range doc.Contractions {
		if doc.Contractions[index].EndAt == nil {
			return true
		}
	}
	return false
}

// promptLine prints prompt and reads one trimmed line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
