// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the ringlog CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/ringlog/commands
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Most subcommands declare their flags through [FlagsFromParams], which
// reflects flag/desc/default struct tags into a pflag.FlagSet so a
// command's parameters live in one struct instead of scattered variables.
//
// Commands that print their own diagnosis and want a non-zero exit
// without a redundant "error:" line return [ExitError]; the binary's main
// function checks for it before printing.
package cli
