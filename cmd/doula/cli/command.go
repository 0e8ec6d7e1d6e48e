// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// App is the doula command line: a name, an introduction for the root
// help screen, and a flat list of verbs. There are no nested
// subcommands, so dispatch is a single name lookup.
type App struct {
	Name     string
	Intro    string
	Commands []*Command
}

// Command is one verb of the app.
type Command struct {
	// Name as typed by the user ("host", "relay").
	Name string

	// Summary is the one-liner shown in the root command listing.
	Summary string

	// Help is the long description opening the command's help screen.
	// Falls back to Summary when empty.
	Help string

	// Usage overrides the synthesized "<app> <name> [flags]" line.
	Usage string

	// Examples are appended to the help screen.
	Examples []Example

	// Flags builds the command's flag set, fresh per parse. Nil means
	// the command takes no flags.
	Flags func() *pflag.FlagSet

	// Run executes with the positional arguments left after parsing.
	Run func(args []string) error
}

// Example is one literal invocation on a help screen.
type Example struct {
	Description string
	Command     string
}

// Run dispatches one invocation. Help requests ("help", "-h",
// "--help", or a bare invocation) print to stderr; unknown names come
// back as errors carrying a near-miss suggestion when one exists.
func (a *App) Run(args []string) error {
	if len(args) == 0 {
		a.printHelp(os.Stderr)
		return errors.New("command required")
	}

	switch args[0] {
	case "-h", "--help":
		a.printHelp(os.Stderr)
		return nil
	case "help":
		if len(args) == 1 {
			a.printHelp(os.Stderr)
			return nil
		}
		command := a.lookup(args[1])
		if command == nil {
			return a.unknownCommand(args[1])
		}
		command.printHelp(os.Stderr, a.Name)
		return nil
	}

	command := a.lookup(args[0])
	if command == nil {
		return a.unknownCommand(args[0])
	}
	return a.dispatch(command, args[1:])
}

// dispatch parses the command's flags and runs it. pflag surfaces
// "-h"/"--help" as ErrHelp, which turns into the command help screen.
func (a *App) dispatch(command *Command, args []string) error {
	flagSet := pflag.NewFlagSet(command.Name, pflag.ContinueOnError)
	if command.Flags != nil {
		flagSet = command.Flags()
	}
	// Errors are formatted here, with suggestions; keep pflag quiet.
	flagSet.SetOutput(io.Discard)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			command.printHelp(os.Stderr, a.Name)
			return nil
		}
		if hint := flagSuggestion(err, flagSet); hint != "" {
			return fmt.Errorf("%v (did you mean %s?)", err, hint)
		}
		return fmt.Errorf("%v\n\nRun '%s %s --help' for usage.", err, a.Name, command.Name)
	}
	return command.Run(flagSet.Args())
}

func (a *App) lookup(name string) *Command {
	for _, command := range a.Commands {
		if command.Name == name {
			return command
		}
	}
	return nil
}

func (a *App) unknownCommand(name string) error {
	names := make([]string, len(a.Commands))
	for i, command := range a.Commands {
		names[i] = command.Name
	}
	if match := closestName(name, names); match != "" {
		return fmt.Errorf("unknown command %q (did you mean %q?)", name, match)
	}
	return fmt.Errorf("unknown command %q\n\nRun '%s --help' for usage.", name, a.Name)
}

// printHelp writes the root help screen: intro, usage, command table.
func (a *App) printHelp(w io.Writer) {
	if a.Intro != "" {
		fmt.Fprintf(w, "%s\n\n", a.Intro)
	}
	fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n\nCommands:\n", a.Name)
	table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	for _, command := range a.Commands {
		fmt.Fprintf(table, "  %s\t%s\n", command.Name, command.Summary)
	}
	table.Flush()
	fmt.Fprintf(w, "\nRun '%s <command> --help' for details on a command.\n", a.Name)
}

// printHelp writes one command's help screen.
func (c *Command) printHelp(w io.Writer, app string) {
	description := c.Help
	if description == "" {
		description = c.Summary
	}
	fmt.Fprintf(w, "%s\n\n", description)

	usage := c.Usage
	if usage == "" {
		usage = fmt.Sprintf("%s %s [flags]", app, c.Name)
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", usage)

	if c.Flags != nil {
		var defaults strings.Builder
		flagSet := c.Flags()
		flagSet.SetOutput(&defaults)
		flagSet.PrintDefaults()
		if defaults.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", defaults.String())
		}
	}

	for i, example := range c.Examples {
		if i == 0 {
			fmt.Fprintf(w, "\nExamples:\n")
		}
		if example.Description != "" {
			fmt.Fprintf(w, "  # %s\n", example.Description)
		}
		fmt.Fprintf(w, "  %s\n", example.Command)
	}
}
