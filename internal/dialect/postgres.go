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

// postgresProfile targets both CockroachDB and PostgreSQL: CockroachDB
// is wire- and dialect-compatible with PostgreSQL for everything this
// engine touches, so a single profile serves both, distinguished only
// by the Product it reports.
type postgresProfile struct {
	product types.Product
}

// NewCockroachDB returns the Profile for a CockroachDB target.
func NewCockroachDB() Profile { return &postgresProfile{product: types.ProductCockroachDB} }

// NewPostgreSQL returns the Profile for a PostgreSQL target.
func NewPostgreSQL() Profile { return &postgresProfile{product: types.ProductPostgreSQL} }

func (p *postgresProfile) Name() string          { return p.product.String() }
func (p *postgresProfile) Product() types.Product { return p.product }
func (p *postgresProfile) BindStyle() BindStyle  { return BindPositionalDollar }

func (p *postgresProfile) Literal(name string) (string, bool) {
	switch name {
	case LiteralTrue:
		return "TRUE", true
	case LiteralFalse:
		return "FALSE", true
	case LiteralOctetLength:
		return "OCTET_LENGTH", true
	default:
		return "", false
	}
}

func (p *postgresProfile) CreateTempTableDDL(table string) string {
	return "CREATE TEMPORARY TABLE " + table + " (zoid BIGINT NOT NULL);" +
		"CREATE UNIQUE INDEX ON " + table + " (zoid)"
}

func (p *postgresProfile) CommitLockDDL() string {
	return "LOCK TABLE commit_lock IN EXCLUSIVE MODE"
}

// ReliableRowcount is true: pgx and lib/pq both report an accurate
// CommandTag.RowsAffected()/Result.RowsAffected() for bulk UPDATEs.
func (p *postgresProfile) ReliableRowcount() bool { return true }

func (p *postgresProfile) ProgressProbeQuery() string {
	return "SELECT 1 FROM pack_object WHERE keep = TRUE AND keep_tid IS NULL LIMIT 1"
}

// PrepareBlobCursor is a no-op: pgx and lib/pq both decode bytea
// columns into []byte inline, with no separate streaming mode to
// request.
func (p *postgresProfile) PrepareBlobCursor(context.Context, types.Querier) error { return nil }

func (p *postgresProfile) ReadBlob(cell any) ([]byte, error) {
	return readInlineBytes(cell)
}

// IsTruncated never fires for Postgres: there is no inline-buffer
// truncation mode to recover from.
func (p *postgresProfile) IsTruncated(err error) bool { return false }
