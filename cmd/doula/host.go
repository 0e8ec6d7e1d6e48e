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

func hostCommand() *cli.Command {
	var (
		settingsPath string
		mode         string
		room         string
		password     string
		verbose      bool
	)
	return &cli.Command{
		Name:    "host",
		Summary: "start a shared session and wait for a partner",
		Help: "Start sharing the labor-tracking session. In private mode this prints\n" +
			"a connection code to pass to the partner out-of-band; in relay modes it\n" +
			"prints a short room code and waits for the partner through the relay.",
		Usage: "doula host [flags]",
		Examples: []cli.Example{
			{Description: "share with a manually exchanged code", Command: "doula host --mode private"},
			{Description: "share through the relay with a fresh room code", Command: "doula host --mode relay-http"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("host", pflag.ContinueOnError)
			settingsFlag(flagSet, &settingsPath)
			flagSet.StringVar(&mode, "mode", "", "signaling mode: private, relay-http, relay-socket (default from settings)")
			flagSet.StringVar(&room, "room", "", "room code to host under (default: generate one)")
			flagSet.StringVar(&password, "password", "", "optional room password")
			flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
			return flagSet
		},
		Run: func(args []string) error {
			return runHost(settingsPath, mode, room, password, verbose)
		},
	}
}

func runHost(settingsPath, modeFlag, room, password string, verbose bool) error {
	env, err := loadEnvironment(settingsPath, verbose)
	if err != nil {
		return err
	}
	defer env.Close()

	mode := env.settings.Signaling
	if modeFlag != "" {
		mode = settings.SignalingMode(modeFlag)
		if !mode.Valid() {
			return fmt.Errorf("unknown mode %q", modeFlag)
		}
	}

	store := bridge.NewMemoryStore(nil)
	ctx := context.Background()

	if mode == settings.SignalingPrivate {
		return hostPrivate(ctx, env, store)
	}

	if room == "" {
		room = roomcode.Generate()
	}
	fmt.Fprintf(os.Stderr, "room code: %s\n", room)
	if password != "" {
		fmt.Fprintln(os.Stderr, "the partner needs the room password too")
	}

	signaler, err := env.signaler(mode)
	if err != nil {
		return err
	}
	options := env.bridgeOptions(store)
	options.Mode = mode
	options.Role = bridge.RoleHost
	options.RoomCode = room
	options.Password = password
	options.Signaler = signaler

	s, err := bridge.Start(ctx, options)
	if err != nil {
		return err
	}
	return runSession(s, store, env.logger)
}

func hostPrivate(ctx context.Context, env *sessionEnvironment, store *bridge.MemoryStore) error {
	s, invite, err := bridge.StartPrivateHost(ctx, env.bridgeOptions(store))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "give this code to your partner:\n\n%s\n\n", invite.Code)
	answer, err := promptLine("paste their answer code: ")
	if err != nil {
		s.Stop()
		return err
	}
	if err := s.CompletePrivateHost(ctx, answer); err != nil {
		s.Stop()
		return err
	}
	return runSession(s, store, env.logger)
}
