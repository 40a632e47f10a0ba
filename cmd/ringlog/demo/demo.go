// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package demo implements the "ringlog demo" subcommand: a tick-driven
// simulation of the logging pipeline. A periodic source frames canned
// messages into a small ring store, and every few ticks the store is
// drained in a bounded window, standing in for a fixed-size transfer
// to a bounded-throughput target.
package demo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/ringlog-foundation/ringlog/cmd/ringlog/cli"
	"github.com/ringlog-foundation/ringlog/lib/clock"
	"github.com/ringlog-foundation/ringlog/lib/ring"
)

// defaultMessages are written round-robin by the simulated source.
// None of them contains a zero byte, per the framing caller contract.
var defaultMessages = []string{
	"Hello, world!",
	"This is a test message.",
	"This is a longer test message.",
	"This is a very long test message that is longer than the others.",
}

type demoParams struct {
	Capacity     int           `flag:"capacity" desc:"ring store slot count" default:"256"`
	Ticks        int           `flag:"ticks" desc:"total ticks to simulate" default:"100"`
	WriteEvery   int           `flag:"write-every" desc:"write one message every N ticks" default:"3"`
	DrainEvery   int           `flag:"drain-every" desc:"drain the store every N ticks" default:"10"`
	Window       int           `flag:"window" desc:"max bytes removed per drain" default:"32"`
	TickInterval time.Duration `flag:"tick-interval" desc:"real-time pacing per tick (0 = run flat out)" default:"0s"`
	CorruptEvery int           `flag:"corrupt-every" desc:"write a corrupt frame every N writes (0 = never)" default:"0"`
}

// Command returns the demo command.
func Command() *cli.Command {
	var params demoParams

	return &cli.Command{
		Name:    "demo",
		Summary: "Run the tick-loop logging simulation",
		Description: `Simulate the logging pipeline: a tick-driven source frames canned
messages into a ring store, and every few ticks the store is drained
in a bounded window. Recovered payloads are printed as they drain;
summary counters print at the end.

Writes that would not fit whole are dropped rather than started: a
frame that hits a full store mid-write is left partially written with
no rollback, so the demo never begins a write it cannot finish.

With --corrupt-every N, every Nth write stores a frame whose checksum
byte does not match its payload, demonstrating how a drain call aborts
on the bad frame, consumes it, and recovers on the next call.`,
		Usage: "ringlog demo [flags]",
		Examples: []cli.Example{
			{
				Description: "Run the default simulation (100 ticks, write every 3, drain every 10)",
				Command:     "ringlog demo",
			},
			{
				Description: "Corrupt every fifth frame to watch drain abort and recover",
				Command:     "ringlog demo --corrupt-every 5",
			},
			{
				Description: "Slow the loop down to watch it tick",
				Command:     "ringlog demo --ticks 30 --tick-interval 100ms",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("demo", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("demo takes no positional arguments, got %q", args[0])
			}
			if err := params.validate(); err != nil {
				return err
			}
			logger := cli.NewCommandLogger().With("command", "demo")
			stats := runSimulation(&params, clock.Real(), os.Stdout, logger)
			stats.print(os.Stdout)
			return nil
		},
	}
}

func (p *demoParams) validate() error {
	if p.Capacity < 2 {
		return fmt.Errorf("--capacity must be at least 2, got %d", p.Capacity)
	}
	if p.Ticks < 1 {
		return fmt.Errorf("--ticks must be positive, got %d", p.Ticks)
	}
	if p.WriteEvery < 1 || p.DrainEvery < 1 {
		return fmt.Errorf("--write-every and --drain-every must be positive")
	}
	if p.Window < 1 {
		return fmt.Errorf("--window must be positive, got %d", p.Window)
	}
	if p.CorruptEvery < 0 {
		return fmt.Errorf("--corrupt-every must be non-negative, got %d", p.CorruptEvery)
	}
	return nil
}

// simStats counts what the simulation did.
type simStats struct {
	written          int
	corrupted        int
	droppedFull      int
	drainCalls       int
	recovered        int
	checksumFailures int
}

func (s *simStats) print(w io.Writer) {
	fmt.Fprintf(w, "\n--- simulation summary ---\n")
	fmt.Fprintf(w, "frames written:      %d (%d deliberately corrupt)\n", s.written, s.corrupted)
	fmt.Fprintf(w, "writes dropped full: %d\n", s.droppedFull)
	fmt.Fprintf(w, "drain calls:         %d\n", s.drainCalls)
	fmt.Fprintf(w, "payloads recovered:  %d\n", s.recovered)
	fmt.Fprintf(w, "checksum failures:   %d\n", s.checksumFailures)
}

// runSimulation drives the tick loop. Recovered payloads and drain
// errors go to out as they happen; the returned stats summarize the
// run and are also emitted on the structured logger.
func runSimulation(params *demoParams, clk clock.Clock, out io.Writer, logger *slog.Logger) *simStats {
	store := ring.NewStore(params.Capacity)
	stats := &simStats{}

	for tick := 0; tick < params.Ticks; tick++ {
		if tick%params.WriteEvery == 0 {
			payload := []byte(defaultMessages[stats.written%len(defaultMessages)])
			writeFrame(store, payload, params, stats)
		}

		if tick%params.DrainEvery == 0 {
			drainWindow(store, params.Window, stats, out)
		}

		if params.TickInterval > 0 {
			clk.Sleep(params.TickInterval)
		}
	}

	// Final drain passes: retire everything still buffered before the
	// summary prints. Full-capacity windows, because a window-sized
	// pass could never retire a frame bigger than the window.
	for !store.Empty() {
		before := store.Len()
		drainWindow(store, store.Capacity(), stats, out)
		if store.Len() == before {
			// Incomplete trailing frame; nothing more can drain.
			break
		}
	}

	logger.Info("simulation complete",
		"written", stats.written,
		"corrupted", stats.corrupted,
		"dropped_full", stats.droppedFull,
		"drain_calls", stats.drainCalls,
		"recovered", stats.recovered,
		"checksum_failures", stats.checksumFailures)

	return stats
}

// writeFrame frames payload into the store, pre-checking free space:
// WriteMessage has no rollback on a mid-frame full store, so a write
// is never started unless the whole frame fits. Every CorruptEvery-th
// write stores a deliberately wrong checksum byte via raw pushes.
func writeFrame(store *ring.Store, payload []byte, params *demoParams, stats *simStats) {
	footprint := len(payload) + 2
	if store.Capacity()-store.Len() < footprint {
		stats.droppedFull++
		return
	}

	stats.written++
	if params.CorruptEvery > 0 && stats.written%params.CorruptEvery == 0 {
		stats.corrupted++
		// Space was pre-checked; the raw pushes cannot fail either.
		for _, value := range payload {
			store.Push(value)
		}
		store.Push(wrongChecksum(payload))
		store.Push(ring.Terminator)
		return
	}

	// Space was pre-checked; WriteMessage cannot fail here.
	ring.WriteMessage(store, payload)
}

// wrongChecksum returns a byte that matches neither the payload's
// checksum nor the terminator value.
func wrongChecksum(payload []byte) byte {
	wrong := ring.Checksum(payload) ^ 0xFF
	if wrong == ring.Terminator {
		wrong = 0x01
	}
	return wrong
}

func drainWindow(store *ring.Store, window int, stats *simStats, out io.Writer) {
	stats.drainCalls++
	payloads, err := ring.Drain(store, window)
	if err != nil {
		if errors.Is(err, ring.ErrChecksumMismatch) {
			stats.checksumFailures++
			fmt.Fprintf(out, "drain error: %v (corrupt frame consumed, store back at a frame boundary)\n", err)
			return
		}
		fmt.Fprintf(out, "drain error: %v\n", err)
		return
	}
	for _, payload := range payloads {
		stats.recovered++
		fmt.Fprintf(out, "drained: %s\n", payload)
	}
}
