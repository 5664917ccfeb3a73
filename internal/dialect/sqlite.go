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

package dialect

import (
	"context"

	"github.com/relstore/packd/internal/types"
)

// sqliteProfile targets SQLite via modernc.org/sqlite. It is the
// backend used by the in-process engine test fixture, since it needs
// no server to stand up.
type sqliteProfile struct{}

// NewSQLite returns the Profile for a SQLite target.
func NewSQLite() Profile { return &sqliteProfile{} }

func (p *sqliteProfile) Name() string           { return "SQLite" }
func (p *sqliteProfile) Product() types.Product { return types.ProductSQLite }
func (p *sqliteProfile) BindStyle() BindStyle   { return BindPositionalQuestion }

func (p *sqliteProfile) Literal(name string) (string, bool) {
	switch name {
	case LiteralTrue:
		return "1", true
	case LiteralFalse:
		return "0", true
	case LiteralOctetLength:
		// SQLite has no OCTET_LENGTH function; length() on a BLOB
		// column already returns the byte count.
		return "LENGTH", true
	default:
		return "", false
	}
}

// CreateTempTableDDL uses SQLite's TEMP keyword; SQLite temp tables
// are already connection-scoped, matching the "private, session-
// scoped" requirement without any extra qualification.
func (p *sqliteProfile) CreateTempTableDDL(table string) string {
	return "CREATE TEMP TABLE " + table + " (zoid INTEGER NOT NULL);" +
		"CREATE UNIQUE INDEX " + table + "_zoid ON " + table + " (zoid)"
}

// CommitLockDDL: SQLite already serializes writers at the file level
// once a transaction has taken a RESERVED lock, so there is no
// separate advisory lock to acquire. The statement is a harmless
// touch of the commit_lock table that still gives Locker something
// concrete to execute and log.
func (p *sqliteProfile) CommitLockDDL() string {
	return "SELECT rowid FROM commit_lock LIMIT 1"
}

func (p *sqliteProfile) ReliableRowcount() bool { return true }

func (p *sqliteProfile) ProgressProbeQuery() string {
	return "SELECT 1 FROM pack_object WHERE keep = 1 AND keep_tid IS NULL LIMIT 1"
}

func (p *sqliteProfile) PrepareBlobCursor(context.Context, types.Querier) error { return nil }

func (p *sqliteProfile) ReadBlob(cell any) ([]byte, error) {
	return readInlineBytes(cell)
}

func (p *sqliteProfile) IsTruncated(err error) bool { return false }
