// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/doula/bridge"
	"github.com/bureau-foundation/doula/cmd/doula/cli"
	"github.com/bureau-foundation/doula/lib/roomcode"
	"github.com/bureau-foundation/doula/lib/settings"
)

func joinCommand() *cli.Command {
	var (
		settingsPath string
		mode         string
		password     string
		verbose      bool
	)
	return &cli.Command{
		Name:    "join",
		Summary: "join a partner's shared session",
		Help: "Join a session. The argument is either a short room code (joins through\n" +
			"the relay) or a full connection code from 'doula host --mode private'\n" +
			"(answers it directly).",
		Usage: "doula join <room-code-or-connection-code> [flags]",
		Examples: []cli.Example{
			{Description: "join a relay-hosted room", Command: "doula join brave-otter-42"},
			{Description: "answer a private connection code", Command: "doula join eyJ..."},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("join", pflag.ContinueOnError)
			settingsFlag(flagSet, &settingsPath)
			flagSet.StringVar(&mode, "mode", "", "relay mode for room codes: relay-http or relay-socket (default from settings)")
			flagSet.StringVar(&password, "password", "", "room password, if the host set one")
			flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("join needs exactly one code argument")
			}
			return runJoin(settingsPath, mode, args[0], password, verbose)
		},
	}
}

func runJoin(settingsPath, modeFlag, code, password string, verbose bool) error {
	env, err := loadEnvironment(settingsPath, verbose)
	if err != nil {
		return err
	}
	defer env.Close()

	store := bridge.NewMemoryStore(nil)
	ctx := context.Background()

	// A short room code goes through the relay; anything else is
	// treated as a private connection code.
	if !roomcode.IsValid(code) {
		return joinPrivate(ctx, env, store, code)
	}

	mode := env.settings.Signaling
	if modeFlag != "" {
		mode = settings.SignalingMode(modeFlag)
	}
	if mode == settings.SignalingPrivate {
		// The settings default does not apply to a room code join.
		mode = settings.SignalingRelayHTTP
	}

	signaler, err := env.signaler(mode)
	if err != nil {
		return err
	}
	options := env.bridgeOptions(store)
	options.Mode = mode
	options.Role = bridge.RoleGuest
	options.RoomCode = code
	options.Password = password
	options.Signaler = signaler

	s, err := bridge.Start(ctx, options)
	if err != nil {
		return err
	}
	return runSession(s, store, env.logger)
}

func joinPrivate(ctx context.Context, env *sessionEnvironment, store *bridge.MemoryStore, offerCode string) error {
	s, invite, err := bridge.JoinPrivateOffer(ctx, env.bridgeOptions(store), offerCode)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "send this answer code back to the host:\n\n%s\n\n", invite.Code)
	fmt.Fprintln(os.Stderr, "waiting for the host to accept...")
	if err := s.AwaitConnection(ctx); err != nil {
		s.Stop()
		return err
	}
	return runSession(s, store, env.logger)
}
