// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/doula/cmd/doula/cli"
	"github.com/bureau-foundation/doula/lib/config"
	"github.com/bureau-foundation/doula/relay"
)

func relayCommand() *cli.Command {
	var (
		configPath string
		listen     string
		database   string
		ttl        time.Duration
		verbose    bool
	)
	return &cli.Command{
		Name:    "relay",
		Summary: "run the signaling mailbox relay",
		Help: "Run the self-hostable signaling relay. The relay stores only opaque\n" +
			"ciphertext blobs keyed by hashed room codes; it can read neither the\n" +
			"session content nor the room codes themselves.",
		Usage: "doula relay [flags]",
		Examples: []cli.Example{
			{Description: "run with defaults", Command: "doula relay"},
			{Description: "run from a config file", Command: "doula relay --config /etc/doula/doula.yaml"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("relay", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to doula.yaml (flags override it)")
			flagSet.StringVar(&listen, "listen", "", "HTTP listen address")
			flagSet.StringVar(&database, "db", "", "SQLite database path")
			flagSet.DurationVar(&ttl, "ttl", 0, "mailbox entry TTL")
			flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
			return flagSet
		},
		Run: func(args []string) error {
			return runRelay(configPath, listen, database, ttl, verbose)
		},
	}
}

func runRelay(configPath, listen, database string, ttl time.Duration, verbose bool) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if listen != "" {
		cfg.Relay.Listen = listen
	}
	if database != "" {
		cfg.Relay.Database = database
	}
	if ttl > 0 {
		cfg.Relay.TTL = ttl.String()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	parsedTTL, err := cfg.Relay.ParseTTL()
	if err != nil {
		return err
	}

	logger := cli.NewLogger(verbose)

	store, err := relay.OpenStore(relay.StoreConfig{
		Path:   cfg.Relay.Database,
		TTL:    parsedTTL,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := relay.NewServer(relay.ServerConfig{
		Listen: cfg.Relay.Listen,
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx)
}
