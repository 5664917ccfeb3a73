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

// Package types contains the data types and narrow interfaces shared
// by the pack/garbage-collection engine. Keeping them in one package,
// independent of any single database driver, makes it possible to
// compose the dialect, script, lock, and controller packages without
// import cycles.
package types

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// OID is an object identifier. The root object's OID is always 0.
type OID uint64

// TID is a transaction identifier. Values <= 0 are reserved sentinels
// and never denote a user transaction.
type TID int64

// Zero reports whether t is a reserved sentinel rather than a real,
// committed transaction.
func (t TID) Zero() bool { return t <= 0 }

// Product identifies the SQL backend that a pool or profile targets.
// Mirrors the cdc-sink convention of a small enum used to switch on
// backend-specific behavior instead of string comparisons.
type Product int

// Supported (or, for Oracle, merely modeled) backends.
const (
	ProductUnknown Product = iota
	ProductCockroachDB
	ProductPostgreSQL
	ProductMySQL
	ProductSQLite
	ProductOracle
)

func (p Product) String() string {
	switch p {
	case ProductCockroachDB:
		return "CockroachDB"
	case ProductPostgreSQL:
		return "PostgreSQL"
	case ProductMySQL:
		return "MySQL"
	case ProductSQLite:
		return "SQLite"
	case ProductOracle:
		return "Oracle"
	default:
		return "Unknown"
	}
}

// Result mirrors the subset of sql.Result the engine depends on.
type Result interface {
	RowsAffected() (int64, error)
}

// Row mirrors the subset of *sql.Row the engine depends on.
type Row interface {
	Scan(dest ...any) error
}

// Rows mirrors the subset of *sql.Rows the engine depends on.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Querier is implemented by anything that can run parameterized SQL
// and return these narrow interfaces. *sql.DB and *sql.Tx return
// concrete database/sql types, so they are adapted (see stdpool's
// wrapper around *sql.Tx) rather than used directly. Every dialect,
// regardless of driver, is normalized down to this shape so that
// PackController never has to special-case a backend.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
}

// TxQuerier is a Querier that can also commit or roll back.
type TxQuerier interface {
	Querier
	Commit() error
	Rollback() error
}

// Conn opens the single connection a pack run is driven from, and
// knows how to begin the one transaction pre-pack or pack executes
// within. Replica failover, pooling, and retry all live with the
// caller (see ReplicaSet in util/stdpool) -- this interface only
// covers what PackController needs.
type Conn interface {
	Begin(ctx context.Context) (TxQuerier, error)
	Close() error
}

// PoolInfo describes what a Conn is actually talking to.
type PoolInfo struct {
	ConnectionString string
	Product          Product
	Version          string
}

// PackObjectRow is one row of the pack_object working set.
type PackObjectRow struct {
	ZOID    OID
	Keep    bool
	KeepTID TID // zero value means NULL / not yet decided
}

// TransactionRow is one row of iter_transactions' result.
type TransactionRow struct {
	TID         TID
	Username    string
	Description string
	Extension   []byte
}

// HistoryRow is one row of iter_object_history's result.
type HistoryRow struct {
	TID          TID
	Username     string
	Description  string
	Extension    []byte
	PickleLength int64
}

// Sleeper is the injected pacing hook described in spec section 5. The
// default implementation sleeps on a real clock; tests inject a
// recording stub to assert that pack's duty cycle invoked it.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// SleepFunc adapts a plain function to Sleeper.
type SleepFunc func(ctx context.Context, d time.Duration)

// Sleep implements Sleeper.
func (f SleepFunc) Sleep(ctx context.Context, d time.Duration) { f(ctx, d) }

// RefExtractor is the caller-supplied, pure function mapping a
// pickled object state to the OIDs it references. Implementations
// must be deterministic and must not mutate state.
type RefExtractor interface {
	ExtractRefs(state []byte) ([]OID, error)
}

// RefExtractorFunc adapts a plain function to RefExtractor.
type RefExtractorFunc func(state []byte) ([]OID, error)

// ExtractRefs implements RefExtractor.
func (f RefExtractorFunc) ExtractRefs(state []byte) ([]OID, error) { return f(state) }

// Sentinel and typed errors from spec section 7.

// NotFoundError is returned by iter_object_history for an OID with no
// current_object row.
type NotFoundError struct {
	OID OID
}

func (e *NotFoundError) Error() string {
	return errors.Errorf("object %d not found", e.OID).Error()
}

// DisconnectedError wraps any driver error classified as
// connection-broken. The calling layer is responsible for replica
// failover and retry; this engine never retries silently.
type DisconnectedError struct {
	Cause error
}

func (e *DisconnectedError) Error() string { return "disconnected: " + e.Cause.Error() }
func (e *DisconnectedError) Unwrap() error { return e.Cause }

// CorruptedStateError is raised when a RefExtractor cannot parse a
// pickled state. It carries the offending coordinates so the caller
// can report and skip.
type CorruptedStateError struct {
	TID   TID
	ZOID  OID
	Cause error
}

func (e *CorruptedStateError) Error() string {
	return errors.Wrapf(e.Cause, "corrupted state at tid=%d zoid=%d", e.TID, e.ZOID).Error()
}
func (e *CorruptedStateError) Unwrap() error { return e.Cause }

// ConflictError indicates that acquiring the commit lock deadlocked.
// The caller may retry.
type ConflictError struct {
	Cause error
}

func (e *ConflictError) Error() string { return "lock conflict: " + e.Cause.Error() }
func (e *ConflictError) Unwrap() error { return e.Cause }

// InternalError signals an invariant violation detected by the engine
// itself, e.g. a keep_tid that is still NULL for a kept row after the
// closure loop has terminated.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

// ErrNothingToPack is returned by ChoosePackTransaction when no
// unpacked transaction exists at or before the requested bound.
var ErrNothingToPack = errors.New("nothing to pack")
