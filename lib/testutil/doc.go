// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for ringlog packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. These are
// the only place in the test suite where real wall-clock timeouts are
// used; everything else paces itself with clock.Fake.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// message payloads or batch labels.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no ringlog-internal dependencies.
package testutil
