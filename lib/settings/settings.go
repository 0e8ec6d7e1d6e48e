// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package settings loads and persists the user's transport and ICE
// preferences. The file format is JSONC (JSON with comments), so a
// hand-edited settings file can document why a custom TURN server is
// configured. Loading is from a single explicit path — no discovery,
// no hidden overrides.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// SignalingMode selects how the two peers exchange connection codes.
type SignalingMode string

const (
	// SignalingPrivate exchanges codes manually (copy/paste or QR),
	// touching no server at all.
	SignalingPrivate SignalingMode = "private"
	// SignalingRelayHTTP exchanges codes through the REST mailbox relay.
	SignalingRelayHTTP SignalingMode = "relay-http"
	// SignalingRelaySocket exchanges codes through the public pub/sub
	// polling fallback.
	SignalingRelaySocket SignalingMode = "relay-socket"
)

// Valid reports whether m is a known signaling mode.
func (m SignalingMode) Valid() bool {
	switch m {
	case SignalingPrivate, SignalingRelayHTTP, SignalingRelaySocket:
		return true
	}
	return false
}

// STUNPreset selects the STUN server set for candidate gathering.
type STUNPreset string

const (
	// STUNDefault uses the built-in public STUN servers.
	STUNDefault STUNPreset = "default"
	// STUNNone disables STUN (host candidates only). Overridden on
	// relay-signaled paths, which are cross-network by construction.
	STUNNone STUNPreset = "none"
	// STUNCustom uses the user-supplied server URLs.
	STUNCustom STUNPreset = "custom"
)

// TURNPreset selects the TURN relay configuration.
type TURNPreset string

const (
	// TURNManaged uses the managed relay with short-lived HMAC
	// credentials.
	TURNManaged TURNPreset = "managed"
	// TURNNone disables TURN entirely.
	TURNNone TURNPreset = "none"
	// TURNCustom uses the user-supplied TURN servers and static
	// credentials.
	TURNCustom TURNPreset = "custom"
)

// TURNServer is a user-configured TURN entry with static credentials.
type TURNServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
}

// ICEPreferences are the three persisted ICE settings the config
// builder consumes.
type ICEPreferences struct {
	STUNPreset STUNPreset   `json:"stunPreset"`
	TURNPreset TURNPreset   `json:"turnPreset"`
	CustomSTUN []string     `json:"customStun,omitempty"`
	CustomTURN []TURNServer `json:"customTurn,omitempty"`
}

// Settings is the full persisted preference set.
type Settings struct {
	// Signaling is the configured connection-establishment path.
	Signaling SignalingMode `json:"signaling"`

	// ICE holds the NAT-traversal preferences.
	ICE ICEPreferences `json:"ice"`

	// RelayBaseURL is the REST mailbox relay base URL.
	RelayBaseURL string `json:"relayBaseUrl,omitempty"`

	// PubSubBaseURL is the pub/sub fallback base URL.
	PubSubBaseURL string `json:"pubsubBaseUrl,omitempty"`

	// TURNAccount names this deployment in managed TURN usernames.
	TURNAccount string `json:"turnAccount,omitempty"`

	// TURNSecretPath is the file holding the managed TURN shared
	// secret. The secret itself never appears in the settings file.
	TURNSecretPath string `json:"turnSecretPath,omitempty"`
}

// Default returns the settings used when no file exists yet.
func Default() *Settings {
	return &Settings{
		Signaling: SignalingPrivate,
		ICE: ICEPreferences{
			STUNPreset: STUNDefault,
			TURNPreset: TURNNone,
		},
	}
}

// Load reads settings from a JSONC file. A missing file yields the
// defaults; a malformed file is an error, never a silent reset.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}

	loaded := Default()
	if err := json.Unmarshal(jsonc.ToJSON(raw), loaded); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	if !loaded.Signaling.Valid() {
		return nil, fmt.Errorf("settings %s: unknown signaling mode %q", path, loaded.Signaling)
	}
	return loaded, nil
}

// Save writes settings as plain JSON (comments in a hand-edited file
// are not preserved across a programmatic save).
func Save(path string, s *Settings) error {
	encoded, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing settings %s: %w", path, err)
	}
	return nil
}
