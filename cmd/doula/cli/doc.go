// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the doula command-line framework: an [App] holding a
// flat set of [Command] verbs, dispatched by [App.Run] with pflag
// parsing, help screens, and "did you mean" suggestions for near-miss
// command and flag names.
package cli
