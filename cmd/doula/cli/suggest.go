// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// suggestionThreshold is the largest edit distance still offered as a
// "did you mean" hint. Three edits covers the usual typos in names as
// short as these: transpositions, dropped and doubled characters.
const suggestionThreshold = 3

// closestName returns the candidate nearest to input by edit distance,
// or "" when nothing is within the threshold.
func closestName(input string, candidates []string) string {
	best := ""
	bestDistance := suggestionThreshold + 1
	for _, candidate := range candidates {
		if distance := editDistance(input, candidate); distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}
	return best
}

// flagSuggestion pulls the flag name out of a pflag "unknown flag"
// parse error and returns the nearest defined flag, "--" prefixed.
// Returns "" for other parse errors or when nothing is close.
func flagSuggestion(parseErr error, flagSet *pflag.FlagSet) string {
	const prefix = "unknown flag: --"
	message := parseErr.Error()
	if !strings.HasPrefix(message, prefix) {
		return ""
	}
	unknown := message[len(prefix):]

	var defined []string
	flagSet.VisitAll(func(flag *pflag.Flag) {
		defined = append(defined, flag.Name)
	})
	if match := closestName(unknown, defined); match != "" {
		return "--" + match
	}
	return ""
}

// editDistance is the Levenshtein distance between a and b, computed
// with two rolling rows.
func editDistance(a, b string) int {
	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)
	for j := range previous {
		previous[j] = j
	}
	for i := 1; i <= len(a); i++ {
		current[0] = i
		for j := 1; j <= len(b); j++ {
			substitution := previous[j-1]
			if a[i-1] != b[j-1] {
				substitution++
			}
			current[j] = min(substitution, min(previous[j], current[j-1])+1)
		}
		previous, current = current, previous
	}
	return previous[len(b)]
}
