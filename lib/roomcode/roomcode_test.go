// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package roomcode

import (
	"strings"
	"testing"
)

func TestGenerateIsValid(t *testing.T) {
	for index := 0; index < 1000; index++ {
		code := Generate()
		if !IsValid(code) {
			t.Fatalf("Generate() produced invalid code %q", code)
		}
	}
}

func TestIsValidRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not a code",
		"amber-heron",
		"amber-heron-4",
		"amber-heron-425",
		"Amber-Heron-42",
		"amber_heron_42",
		"amber-heron-4x",
		"-heron-42",
		"amber--42",
	}
	for _, input := range cases {
		if IsValid(input) {
			t.Errorf("IsValid(%q) = true, want false", input)
		}
	}
}

func TestGeneratePassphraseShape(t *testing.T) {
	phrase := GeneratePassphrase()
	words := strings.Split(phrase, "-")
	if len(words) != 4 {
		t.Fatalf("passphrase %q has %d words, want 4", phrase, len(words))
	}
	for _, word := range words {
		if word == "" {
			t.Fatalf("passphrase %q contains an empty word", phrase)
		}
	}
}

func TestGenerateDisplayNameShape(t *testing.T) {
	name := GenerateDisplayName()
	if parts := strings.Split(name, "-"); len(parts) != 2 {
		t.Fatalf("display name %q should be adjective-noun", name)
	}
}

// TestGenerateVaries is a smoke check that the generator is not stuck
// on one combination.
func TestGenerateVaries(t *testing.T) {
	seen := make(map[string]bool)
	for index := 0; index < 100; index++ {
		seen[Generate()] = true
	}
	if len(seen) < 50 {
		t.Errorf("100 generations produced only %d distinct codes", len(seen))
	}
}
