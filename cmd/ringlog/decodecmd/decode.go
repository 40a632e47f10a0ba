// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package decodecmd implements the "ringlog decode" subcommand: it
// reads a shipment stream (the CBOR sequence a collector sink holds)
// and prints the recovered messages.
package decodecmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/ringlog-foundation/ringlog/cmd/ringlog/cli"
	"github.com/ringlog-foundation/ringlog/lib/codec"
	"github.com/ringlog-foundation/ringlog/lib/shipment"
)

type decodeParams struct {
	JSON  bool `flag:"json,j" desc:"emit one JSON object per shipment instead of text"`
	Check bool `flag:"check" desc:"validate only; print nothing, exit 1 on any bad shipment"`
	Diag  bool `flag:"diag" desc:"print raw CBOR diagnostic notation without unpacking"`
}

// Command returns the decode command.
func Command() *cli.Command {
	var params decodeParams

	return &cli.Command{
		Name:    "decode",
		Summary: "Decode a shipment stream to readable output",
		Description: `Read a shipment stream from a file (or stdin) and print its contents.

A shipment stream is what the collector's file sink holds: consecutive
CBOR-encoded shipments, each carrying a compressed batch of drained
messages. Text output prints one header line per shipment followed by
its messages; --json emits one JSON object per shipment.

With --check, nothing is printed and the exit code reports stream
health: 0 when every shipment unpacks cleanly, 1 otherwise. With
--diag, the raw CBOR is rendered in diagnostic notation (RFC 8949 §8)
without unpacking the shipments — useful when the envelope itself is
suspect.`,
		Usage: "ringlog decode [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "Decode a collector sink file",
				Command:     "ringlog decode ./ringlog.cbor",
			},
			{
				Description: "Decode from stdin as JSON lines",
				Command:     "ringlog decode --json < ringlog.cbor",
			},
			{
				Description: "Validate a stream in a health check",
				Command:     "ringlog decode --check ./ringlog.cbor",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("decode", &params)
		},
		Run: func(args []string) error {
			input, err := openInput(args)
			if err != nil {
				return err
			}
			defer input.Close()
			if params.Diag {
				return diagnoseStream(input, os.Stdout)
			}
			logger := cli.NewCommandLogger().With("command", "decode")
			return decodeStream(input, os.Stdout, &params, logger)
		},
	}
}

// openInput resolves the stream source: a single optional file
// argument, stdin otherwise.
func openInput(args []string) (io.ReadCloser, error) {
	switch len(args) {
	case 0:
		return io.NopCloser(os.Stdin), nil
	case 1:
		file, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", args[0], err)
		}
		return file, nil
	default:
		return nil, fmt.Errorf("decode takes at most one file argument, got %d", len(args))
	}
}

// diagnoseStream renders the raw CBOR sequence in diagnostic notation
// without interpreting it as shipments.
func diagnoseStream(r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty input: expected a shipment stream")
	}
	notation, err := codec.Diagnose(data)
	if err != nil {
		return fmt.Errorf("diagnose CBOR: %w", err)
	}
	fmt.Fprintln(w, notation)
	return nil
}

// shipmentJSON is the --json output shape for one shipment.
type shipmentJSON struct {
	Sequence     uint64   `json:"sequence"`
	CreatedAt    string   `json:"created_at"`
	Compression  string   `json:"compression"`
	RawSize      int64    `json:"raw_size"`
	BodySize     int      `json:"body_size"`
	MessageCount int      `json:"message_count"`
	Messages     []string `json:"messages"`
}

// decodeStream reads consecutive shipments from r until EOF, unpacking
// each and writing it to w per the output flags. A shipment that fails
// to decode or unpack fails the whole call: the stream is positioned
// mid-frame at that point and nothing after it can be trusted.
func decodeStream(r io.Reader, w io.Writer, params *decodeParams, logger *slog.Logger) error {
	decoder := codec.NewDecoder(r)
	shipments := 0
	messages := 0

	for {
		var batch shipment.Shipment
		if err := decoder.Decode(&batch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return decodeFailure(params, fmt.Errorf("decode shipment %d: %w", shipments, err))
		}

		recovered, err := batch.Unpack()
		if err != nil {
			return decodeFailure(params, fmt.Errorf("unpack shipment %d: %w", shipments, err))
		}
		shipments++
		messages += len(recovered)

		if params.Check {
			continue
		}
		if params.JSON {
			if err := writeJSON(w, &batch, recovered); err != nil {
				return err
			}
			continue
		}
		writeText(w, &batch, recovered)
	}

	if shipments == 0 {
		return decodeFailure(params, fmt.Errorf("empty input: expected a shipment stream"))
	}
	logger.Info("stream decoded", "shipments", shipments, "messages", messages)
	if params.Check {
		fmt.Fprintf(w, "ok: %d shipments, %d messages\n", shipments, messages)
	}
	return nil
}

// decodeFailure shapes a stream error per the output mode: --check
// reports via exit code alone, everything else surfaces the error.
func decodeFailure(params *decodeParams, err error) error {
	if params.Check {
		fmt.Fprintf(os.Stderr, "corrupt stream: %v\n", err)
		return &cli.ExitError{Code: 1}
	}
	return err
}

func writeText(w io.Writer, batch *shipment.Shipment, messages [][]byte) {
	fmt.Fprintf(w, "shipment %d  %s  %s  %d msgs  %d bytes (raw %d)\n",
		batch.Sequence,
		batch.CreatedTime().UTC().Format(time.RFC3339),
		batch.Compression,
		batch.MessageCount,
		len(batch.Body),
		batch.RawSize)
	for _, message := range messages {
		fmt.Fprintf(w, "  %s\n", message)
	}
}

func writeJSON(w io.Writer, batch *shipment.Shipment, messages [][]byte) error {
	out := shipmentJSON{
		Sequence:     batch.Sequence,
		CreatedAt:    batch.CreatedTime().UTC().Format(time.RFC3339),
		Compression:  batch.Compression.String(),
		RawSize:      batch.RawSize,
		BodySize:     len(batch.Body),
		MessageCount: batch.MessageCount,
		Messages:     make([]string, 0, len(messages)),
	}
	for _, message := range messages {
		out.Messages = append(out.Messages, string(message))
	}

	line, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	fmt.Fprintf(w, "%s\n", line)
	return nil
}
