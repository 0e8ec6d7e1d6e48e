// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for doula
// binaries, injected at build time via -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/doula/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

// These variables are set via -ldflags at build time. They default to
// development values when not injected.
var (
	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"

	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s, %s/%s)",
		Version, GitCommit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// Print writes "name version-info" to stdout, for version subcommands.
func Print(name string) {
	fmt.Printf("%s %s\n", name, Info())
}
