// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides shared scaffolding for ringlog service
// binaries: common flag registration and the standard structured
// logger.
//
// Service binaries compose these utilities in their own main()
// function rather than subclassing a framework. The package provides
// building blocks, not a runtime.
package service
