// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nope.jsonc"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Signaling != SignalingPrivate {
		t.Errorf("default signaling = %q, want %q", loaded.Signaling, SignalingPrivate)
	}
	if loaded.ICE.STUNPreset != STUNDefault || loaded.ICE.TURNPreset != TURNNone {
		t.Errorf("default ICE presets = %+v", loaded.ICE)
	}
}

func TestLoadParsesJSONCComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.jsonc")
	content := `{
	// use the office TURN box; the managed relay is blocked here
	"signaling": "relay-http",
	"relayBaseUrl": "https://relay.example.net",
	"ice": {
		"stunPreset": "none",
		"turnPreset": "custom",
		"customTurn": [
			{"urls": ["turn:10.0.0.9:3478"], "username": "office", "credential": "hunter2"}
		]
	}
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Signaling != SignalingRelayHTTP {
		t.Errorf("signaling = %q, want relay-http", loaded.Signaling)
	}
	if loaded.ICE.STUNPreset != STUNNone {
		t.Errorf("stun preset = %q, want none", loaded.ICE.STUNPreset)
	}
	if len(loaded.ICE.CustomTURN) != 1 || loaded.ICE.CustomTURN[0].Username != "office" {
		t.Errorf("custom TURN = %+v", loaded.ICE.CustomTURN)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.jsonc")
	if err := os.WriteFile(path, []byte(`{"signaling": `), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed file succeeded, want error")
	}
}

func TestLoadRejectsUnknownSignalingMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.jsonc")
	if err := os.WriteFile(path, []byte(`{"signaling": "carrier-pigeon"}`), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load with unknown signaling mode succeeded, want error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.jsonc")
	original := Default()
	original.Signaling = SignalingRelaySocket
	original.PubSubBaseURL = "https://ntfy.example.net"
	original.ICE.STUNPreset = STUNCustom
	original.ICE.CustomSTUN = []string{"stun:stun.example.net:3478"}

	if err := Save(path, original); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Signaling != original.Signaling ||
		loaded.PubSubBaseURL != original.PubSubBaseURL ||
		loaded.ICE.STUNPreset != original.ICE.STUNPreset ||
		len(loaded.ICE.CustomSTUN) != 1 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
