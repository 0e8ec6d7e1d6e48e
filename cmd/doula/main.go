// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Command doula hosts and joins shared labor-tracking sessions from
// the terminal, and runs the self-hostable signaling relay.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/doula/cmd/doula/cli"
	"github.com/bureau-foundation/doula/lib/version"
)

func main() {
	app := &cli.App{
		Name: "doula",
		Intro: "doula shares a labor-tracking session between two devices over an\n" +
			"end-to-end encrypted WebRTC channel. No session content ever touches\n" +
			"a server; the optional relay carries only opaque ciphertext.",
		Commands: []*cli.Command{
			hostCommand(),
			joinCommand(),
			relayCommand(),
			codeCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "print version information",
		Run: func(args []string) error {
			version.Print("doula")
			return nil
		},
	}
}

// defaultSettingsPath is where client preferences live unless
// --settings overrides it.
func defaultSettingsPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "doula-settings.json"
	}
	return filepath.Join(configDir, "doula", "settings.json")
}

// settingsFlag registers the shared --settings flag.
func settingsFlag(flagSet *pflag.FlagSet, target *string) {
	flagSet.StringVar(target, "settings", defaultSettingsPath(),
		"path to the settings file")
}
