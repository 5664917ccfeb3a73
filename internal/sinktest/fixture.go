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

// Package sinktest provides a throwaway, schema-bootstrapped SQLite
// database for engine-level tests, the same role
// internal/sinktest/all.Fixture plays for the teacher: a single call
// stands up everything a test needs without a live Postgres or MySQL
// server.
package sinktest

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/relstore/packd/internal/dialect"
	"github.com/relstore/packd/internal/types"
	"github.com/relstore/packd/internal/util/stdpool"
)

// Fixture wraps a fresh, schema-bootstrapped SQLite database.
type Fixture struct {
	Conn    types.Conn
	Profile dialect.Profile
}

// schema creates the tables spec.md section 3 describes. SQLite has
// no native BOOLEAN, so keep/packed are stored as INTEGER 0/1, which
// is exactly what sqliteProfile's TRUE/FALSE literals already assume.
const schema = `
CREATE TABLE transaction (
	tid INTEGER PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	extension BLOB,
	packed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE object_state (
	zoid INTEGER NOT NULL,
	tid INTEGER NOT NULL,
	prev_tid INTEGER NOT NULL DEFAULT 0,
	state BLOB,
	PRIMARY KEY (zoid, tid)
);

CREATE TABLE current_object (
	zoid INTEGER PRIMARY KEY,
	tid INTEGER NOT NULL
);

CREATE TABLE object_ref (
	zoid INTEGER NOT NULL,
	tid INTEGER NOT NULL,
	to_zoid INTEGER NOT NULL
);

CREATE TABLE object_refs_added (
	tid INTEGER PRIMARY KEY
);

CREATE TABLE pack_object (
	zoid INTEGER PRIMARY KEY,
	keep INTEGER NOT NULL DEFAULT 0,
	keep_tid INTEGER
);

CREATE TABLE commit_lock (
	rowid INTEGER PRIMARY KEY
);
INSERT INTO commit_lock (rowid) VALUES (1);
`

// New opens an in-memory SQLite database, applies the schema above,
// and returns a Fixture. fixture.Conn is closed automatically through
// t.Cleanup when the test finishes.
func New(ctx context.Context, t *testing.T) *Fixture {
	t.Helper()

	c, err := stdpool.OpenSQLite(ctx, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	tx, err := c.Begin(ctx)
	require.NoError(t, err)
	for _, stmt := range splitStatements(schema) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			require.NoError(t, errors.Wrapf(err, "applying fixture schema: %s", stmt))
		}
	}
	require.NoError(t, tx.Commit())

	return &Fixture{Conn: c, Profile: dialect.NewSQLite()}
}

// splitStatements is a minimal semicolon splitter sufficient for the
// fixed schema above; it is not the general-purpose script splitter
// internal/script.Runner provides, since this runs before any
// dialect.Profile's rewriting is relevant.
func splitStatements(script string) []string {
	var out []string
	var cur []byte
	for i := 0; i < len(script); i++ {
		c := script[i]
		cur = append(cur, c)
		if c == ';' {
			if s := trimmed(cur); s != "" {
				out = append(out, s)
			}
			cur = nil
		}
	}
	if s := trimmed(cur); s != "" {
		out = append(out, s)
	}
	return out
}

func trimmed(b []byte) string {
	s := string(b)
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && (isSpace(s[end-1]) || s[end-1] == ';') {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
