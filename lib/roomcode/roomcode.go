// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package roomcode generates human-readable identifiers for sharing
// sessions: room codes ("amber-heron-42"), passphrases for optional
// passwords, and peer display names.
//
// Codes address a short-lived relay mailbox (a room lives minutes, not
// days), so math/rand randomness is sufficient — the security of the
// exchanged payload comes from cryptobox encryption, not from the code
// being unguessable. The two word lists give roughly four million
// adjective-noun-NN combinations.
package roomcode

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
)

// codePattern matches the adjective-noun-NN shape. Validation is a
// pattern check only, not list membership: codes minted by a newer
// build with extended word lists must still validate here.
var codePattern = regexp.MustCompile(`^[a-z]+-[a-z]+-[0-9]{2}$`)

// Generate returns a new room code of the form "adjective-noun-NN"
// where NN is a two-digit number.
func Generate() string {
	adjective := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	number := 10 + rand.IntN(90)
	return fmt.Sprintf("%s-%s-%d", adjective, noun, number)
}

// GeneratePassphrase returns a four-word hyphenated passphrase for use
// as an optional room password.
func GeneratePassphrase() string {
	words := make([]string, 4)
	for index := range words {
		if index%2 == 0 {
			words[index] = adjectives[rand.IntN(len(adjectives))]
		} else {
			words[index] = nouns[rand.IntN(len(nouns))]
		}
	}
	return strings.Join(words, "-")
}

// GenerateDisplayName returns a short "adjective-noun" name used to
// label a peer in the connection roster.
func GenerateDisplayName() string {
	return adjectives[rand.IntN(len(adjectives))] + "-" + nouns[rand.IntN(len(nouns))]
}

// IsValid reports whether s has the shape of a room code.
func IsValid(s string) bool {
	return codePattern.MatchString(s)
}
