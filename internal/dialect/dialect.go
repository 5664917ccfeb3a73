// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package dialect isolates the handful of ways that supported SQL
// backends disagree: boolean/length literals, bind-placeholder
// syntax, temp-table DDL, the commit-lock statement, large-object
// fetch quirks, and whether a bulk UPDATE's affected-row count can be
// trusted. Everything above this package treats state as plain bytes
// and SQL as dialect-neutral script text; Profile is the only seam.
package dialect

import (
	"context"

	"github.com/relstore/packd/internal/types"
)

// BindStyle selects how a Profile rewrites named parameter tokens
// into the positional or named syntax its driver expects.
type BindStyle int

const (
	// BindPositionalDollar rewrites tokens to $1, $2, ... (pgx, lib/pq).
	BindPositionalDollar BindStyle = iota
	// BindPositionalQuestion rewrites every token to ? (MySQL, SQLite).
	BindPositionalQuestion
	// BindNamedColon leaves :name tokens in place and binds by name
	// (cx_Oracle-style drivers).
	BindNamedColon
)

// Literal names a Profile must substitute as SQL text (never bound as
// a driver parameter).
const (
	LiteralTrue         = "TRUE"
	LiteralFalse        = "FALSE"
	LiteralOctetLength  = "OCTET_LENGTH"
)

// Profile holds the SQL-dialect-specific knowledge PackController and
// ScriptRunner need, and nothing else. It never opens a connection:
// connection pooling to a specific driver is the caller's concern
// (see util/stdpool for the openers this engine happens to ship).
type Profile interface {
	// Name identifies the profile for logging.
	Name() string

	// Product is the backend this profile targets.
	Product() types.Product

	// BindStyle reports how parameter tokens should be rewritten.
	BindStyle() BindStyle

	// Literal returns the SQL text for one of the Literal* constants.
	// ok is false for any other name.
	Literal(name string) (text string, ok bool)

	// CreateTempTableDDL returns the statement(s) needed to create a
	// private, session-scoped temp_pack_visit-shaped table named
	// table, unique-indexed on its single zoid column.
	CreateTempTableDDL(table string) string

	// CommitLockDDL returns the statement that acquires the
	// commit_lock table in exclusive mode.
	CommitLockDDL() string

	// ReliableRowcount reports whether RowsAffected() after a bulk
	// UPDATE can be trusted to detect forward progress. When false,
	// PackController falls back to ProgressProbeQuery.
	ReliableRowcount() bool

	// ProgressProbeQuery returns a query that returns at least one row
	// iff the most recent closure step promoted any zoid from
	// keep=FALSE to keep=TRUE. Only consulted when ReliableRowcount is
	// false.
	ProgressProbeQuery() string

	// PrepareBlobCursor configures q, if necessary, to request inline
	// delivery of large-object columns for the next query. Most
	// backends need not do anything.
	PrepareBlobCursor(ctx context.Context, q types.Querier) error

	// ReadBlob extracts raw bytes from a driver-returned cell. Some
	// backends hand back []byte directly; others (modeled here after
	// Oracle's LOB handles) return a streamable value that must be
	// read explicitly.
	ReadBlob(cell any) ([]byte, error)

	// IsTruncated reports whether err indicates that a LOB column
	// exceeded the inline-fetch buffer and PrepareBlobCursor's policy
	// needs to fall back to streaming output.
	IsTruncated(err error) bool
}
