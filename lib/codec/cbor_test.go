// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalIsDeterministic(t *testing.T) {
	// Map iteration order is random in Go; deterministic encoding must
	// hide that.
	value := map[string]any{
		"sessionStart": int64(1700000000),
		"paused":       false,
		"sectionOrder": []string{"timer", "history", "stats"},
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for index := 0; index < 20; index++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding %d differs from first encoding", index)
		}
	}
}

func TestUnmarshalAnyUsesStringKeyedMaps(t *testing.T) {
	encoded, err := Marshal(map[string]any{"nested": map[string]any{"n": int64(1)}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if _, ok := outer["nested"].(map[string]any); !ok {
		t.Fatalf("nested type = %T, want map[string]any", outer["nested"])
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type v2 struct {
		Name  string `cbor:"name"`
		Extra string `cbor:"extra"`
	}
	type v1 struct {
		Name string `cbor:"name"`
	}

	encoded, err := Marshal(v2{Name: "contraction", Extra: "future field"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded v1
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if decoded.Name != "contraction" {
		t.Errorf("Name = %q, want %q", decoded.Name, "contraction")
	}
}
