// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete ringlog CLI command tree.
package commands

import (
	"fmt"

	"github.com/ringlog-foundation/ringlog/cmd/ringlog/cli"
	"github.com/ringlog-foundation/ringlog/cmd/ringlog/decodecmd"
	democmd "github.com/ringlog-foundation/ringlog/cmd/ringlog/demo"
	"github.com/ringlog-foundation/ringlog/lib/version"
)

// Root builds and returns the complete ringlog CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "ringlog",
		Description: `Ringlog: framed telemetry logging through a circular byte store.

Messages are framed as payload + XOR checksum + zero terminator into a
fixed-capacity ring and drained in bounded windows, the way a producer
feeds a bounded-throughput transfer. The collector daemon
(ringlog-collector) ships drained batches as compressed CBOR shipments;
this CLI simulates the pipeline and inspects shipment streams.`,
		Subcommands: []*cli.Command{
			democmd.Command(),
			decodecmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("ringlog %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
