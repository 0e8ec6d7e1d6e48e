// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func testApp(ran *string) *App {
	return &App{
		Name:  "doula",
		Intro: "test app",
		Commands: []*Command{
			{
				Name:    "host",
				Summary: "start a session",
				Run: func(args []string) error {
					*ran = "host"
					return nil
				},
			},
			{
				Name:    "relay",
				Summary: "run the relay",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("relay", pflag.ContinueOnError)
					flagSet.String("listen", "", "listen address")
					return flagSet
				},
				Run: func(args []string) error {
					*ran = "relay"
					return nil
				},
			},
		},
	}
}

func TestRunDispatchesCommand(t *testing.T) {
	var ran string
	if err := testApp(&ran).Run([]string{"host"}); err != nil {
		t.Fatal(err)
	}
	if ran != "host" {
		t.Errorf("ran = %q", ran)
	}
}

func TestRunSuggestsCloseCommand(t *testing.T) {
	var ran string
	err := testApp(&ran).Run([]string{"hsot"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "host"`) {
		t.Errorf("error = %v, want host suggestion", err)
	}
}

func TestRunSuggestsCloseFlag(t *testing.T) {
	var ran string
	err := testApp(&ran).Run([]string{"relay", "--lisen", ":80"})
	if err == nil || !strings.Contains(err.Error(), "--listen") {
		t.Errorf("error = %v, want flag suggestion", err)
	}
	if ran != "" {
		t.Errorf("command ran despite the parse error")
	}
}

func TestRunRequiresCommand(t *testing.T) {
	var ran string
	if err := testApp(&ran).Run(nil); err == nil {
		t.Error("bare invocation should fail")
	}
}

func TestHelpListsCommands(t *testing.T) {
	var ran string
	var out strings.Builder
	testApp(&ran).printHelp(&out)
	help := out.String()
	for _, want := range []string{"host", "relay", "start a session", "run the relay"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestCommandHelpShowsFlags(t *testing.T) {
	var ran string
	var out strings.Builder
	testApp(&ran).lookup("relay").printHelp(&out, "doula")
	help := out.String()
	for _, want := range []string{"doula relay [flags]", "--listen"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestFlagSuggestionIgnoresOtherErrors(t *testing.T) {
	flagSet := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	flagSet.String("listen", "", "listen address")
	if got := flagSuggestion(errors.New("invalid argument"), flagSet); got != "" {
		t.Errorf("flagSuggestion = %q, want empty", got)
	}
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "host", 4},
		{"host", "host", 0},
		{"hsot", "host", 2},
		{"jion", "join", 2},
		{"relay", "replay", 1},
	}
	for _, testCase := range cases {
		if got := editDistance(testCase.a, testCase.b); got != testCase.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", testCase.a, testCase.b, got, testCase.want)
		}
	}
}
