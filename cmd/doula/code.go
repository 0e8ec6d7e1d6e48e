// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/doula/cmd/doula/cli"
	"github.com/bureau-foundation/doula/lib/roomcode"
)

func codeCommand() *cli.Command {
	var withPassphrase bool
	return &cli.Command{
		Name:    "code",
		Summary: "generate a room code",
		Help: "Generate a fresh room code, optionally with a passphrase to encrypt\n" +
			"the handshake against the relay.",
		Usage: "doula code [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("code", pflag.ContinueOnError)
			flagSet.BoolVar(&withPassphrase, "passphrase", false, "also generate a passphrase")
			return flagSet
		},
		Run: func(args []string) error {
			fmt.Println(roomcode.Generate())
			if withPassphrase {
				fmt.Println(roomcode.GeneratePassphrase())
			}
			return nil
		},
	}
}
