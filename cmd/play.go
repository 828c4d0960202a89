// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/tc420ctl/internal/config"
	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

var (
	playName  string
	playSteps []string
	playScene string

	// WebSocket step feed flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	useTUI bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Fast play a custom program without saving it to the device",
	Long: `"Fast" play a custom program without saving it to the device.

In play mode each step gives the time to fade into the new channel values
instead of a wall clock time. It is useful to try a program without waiting
a whole day, or to test effects and colors.

Steps come from one of:
  --step/-s, repeated:   -s "1.5 100 99 50 0 -70" -s "2 0 0 0 0 0"
  a program file scene:  --config program.toml [--scene name]
  a WebSocket feed:      --url ws://host/path [--username user]

A WebSocket feed sends one step line per text message and ends the
session by closing the connection. The password is read from the
TC420_PASSWORD environment variable, or prompted if not set.

Press Ctrl+C (or q in the terminal UI) to stop.`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringVarP(&playName, "name", "n", "", "Name shown on the device screen (1-8 characters)")
	playCmd.Flags().StringArrayVarP(&playSteps, "step", "s", nil, "Step: \"<DURATION sec> <CH1> <CH2> <CH3> <CH4> <CH5>\"")
	playCmd.Flags().StringVar(&playScene, "scene", "", "Play scene from the program file (default: the first)")

	playCmd.Flags().StringVarP(&wsURL, "url", "u", "", "WebSocket step feed URL (ws:// or wss://)")
	playCmd.Flags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	playCmd.Flags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	playCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI when stdout is a terminal")
}

func runPlay(cmd *cobra.Command, args []string) error {
	source, name, closeSource, err := playSource(cmd.Context())
	if err != nil {
		return err
	}
	defer closeSource()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	return playAndFinish(cmd.Context(), s, name, source, formatPlayLine)
}

// playSource picks the step source from the flags
func playSource(ctx context.Context) (tc420.StepSource, string, func(), error) {
	name := playName
	noop := func() {}

	switch {
	case wsURL != "":
		feed := stepFeed{URL: wsURL, Username: wsUsername, SkipVerify: wsNoSSLVerify}
		if feed.Username != "" {
			var err error
			if feed.Password, err = feedPassword(); err != nil {
				return nil, "", nil, err
			}
		}
		dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		src, err := dialStepFeed(dialCtx, feed)
		if err != nil {
			return nil, "", nil, err
		}
		return src, defaultName(name, "Live"), func() { src.Close() }, nil

	case len(playSteps) > 0:
		steps, err := config.ParsePlaySteps(playSteps)
		if err != nil {
			return nil, "", nil, err
		}
		return tc420.StepSlice(steps), defaultName(name, "Play"), noop, nil

	case len(appConfig.Plays) > 0:
		scene, err := appConfig.Play(playScene)
		if err != nil {
			return nil, "", nil, err
		}
		steps, err := scene.PlaySteps()
		if err != nil {
			return nil, "", nil, err
		}
		return tc420.StepSlice(steps), defaultName(name, scene.Name), noop, nil
	}

	return nil, "", nil, errors.New("no steps: use --step, --url, or a program file with a [[play]] scene")
}

func defaultName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// lineFunc renders one progress line for text mode
type lineFunc func(index int, elapsed time.Duration, values [tc420.NumChannels]int) string

func formatPlayLine(index int, elapsed time.Duration, v [tc420.NumChannels]int) string {
	return fmt.Sprintf("Playing (CTRL+C to exit)... Idx: %2d, time: %4.1f, "+
		"CH1: %3d, CH2: %3d, CH3: %3d, CH4: %3d, CH5: %3d",
		index, elapsed.Seconds(), v[0], v[1], v[2], v[3], v[4])
}

// playAndFinish runs a play session to its end, or until interrupted, and
// then sends MODE_STOP.
func playAndFinish(ctx context.Context, s *session, name string, source tc420.StepSource, line lineFunc) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s.modeStopNeeded = true

	var err error
	if useTUI && term.IsTerminal(int(os.Stdout.Fd())) {
		err = runPlayTUI(ctx, s, name, source)
	} else {
		err = runPlayText(ctx, s, name, source, line, os.Stdout)
	}
	if err != nil {
		return err
	}
	return s.finish()
}

func runPlayText(ctx context.Context, s *session, name string, source tc420.StepSource, line lineFunc, out io.Writer) error {
	stats := s.dev.Channel().Statistics()
	stats.Reset()

	fmt.Fprintf(out, "Initialize playing '%s'... ", name)

	width := 0
	onChange := func(index int, elapsed time.Duration, values [tc420.NumChannels]int) {
		text := line(index, elapsed, values)
		width = max(width, len(text))
		fmt.Fprintf(out, "\r%s\r", text)
	}
	if err := s.dev.Play(ctx, name, source, onChange, false); err != nil {
		fmt.Fprintln(out, "ERROR!")
		return err
	}
	fmt.Fprintln(out, "OK.")

	err := s.dev.Player().Wait()
	if ctx.Err() != nil {
		fmt.Fprintf(out, "\rCancelled.%s\n", strings.Repeat(" ", max(0, width-10)))
	} else {
		fmt.Fprintln(out)
	}
	fmt.Fprint(out, stats.Snapshot())
	return err
}
