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

// Package stdpool opens standardized database/sql connections for
// each dialect.Profile this module supports, and adapts *sql.DB to
// the narrow types.Conn/types.Querier contract internal/pack depends
// on. It deliberately does not provide pooling policy beyond what
// database/sql itself offers: spec.md section 1 places "connection
// pooling to specific database drivers" out of scope for the core
// engine, so this package's job is limited to opening one usable
// connection per dialect and getting out of the way.
package stdpool

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/relstore/packd/internal/types"
)

// conn adapts *sql.DB to types.Conn.
type conn struct {
	db   *sql.DB
	info types.PoolInfo
}

var _ types.Conn = (*conn)(nil)

func (c *conn) Begin(ctx context.Context) (types.TxQuerier, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &txQuerier{tx}, nil
}

func (c *conn) Close() error { return errors.WithStack(c.db.Close()) }

// DB exposes the underlying pool for callers (e.g. internal/pack/iter
// read-only operations) that don't need a transaction.
func (c *conn) DB() *sql.DB { return c.db }

// Info reports what this Conn is connected to.
func (c *conn) Info() types.PoolInfo { return c.info }

type txQuerier struct {
	tx *sql.Tx
}

var _ types.TxQuerier = (*txQuerier)(nil)

func (q *txQuerier) ExecContext(ctx context.Context, query string, args ...any) (types.Result, error) {
	res, err := q.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *txQuerier) QueryContext(ctx context.Context, query string, args ...any) (types.Rows, error) {
	rows, err := q.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (q *txQuerier) QueryRowContext(ctx context.Context, query string, args ...any) types.Row {
	return q.tx.QueryRowContext(ctx, query, args...)
}

func (q *txQuerier) Commit() error   { return errors.WithStack(q.tx.Commit()) }
func (q *txQuerier) Rollback() error { return errors.WithStack(q.tx.Rollback()) }

// open is shared by every dialect-specific opener: connect, ping once,
// and report the backend version. A failed ping closes the pool and
// returns the error; the ping is not retried.
func open(ctx context.Context, driverName, dsn string, product types.Product, versionQuery string) (*conn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "could not ping the database")
	}

	info := types.PoolInfo{ConnectionString: dsn, Product: product}
	if versionQuery != "" {
		if err := db.QueryRowContext(ctx, versionQuery).Scan(&info.Version); err != nil {
			log.WithError(err).Warn("could not query backend version")
		}
	}
	return &conn{db: db, info: info}, nil
}

// OpenPostgresPgx opens a CockroachDB/PostgreSQL connection through
// the pgx stdlib adapter, grounded on the teacher's own driver choice.
func OpenPostgresPgx(ctx context.Context, dsn string) (types.Conn, error) {
	return open(ctx, "pgx", dsn, types.ProductPostgreSQL, "SHOW server_version")
}

// OpenPostgresLegacy opens the same backend through lib/pq, the
// driver the teacher used before migrating to pgx. Kept as an
// alternate opener behind the same dialect.Profile.
func OpenPostgresLegacy(ctx context.Context, dsn string) (types.Conn, error) {
	return open(ctx, "postgres", dsn, types.ProductPostgreSQL, "SHOW server_version")
}

// OpenMySQL opens a MySQL connection, adapted from the teacher's
// OpenMySQLAsTarget. dsn is passed to the driver unchanged (no
// sql_mode is set), and the connection is pinged once like every
// other opener.
func OpenMySQL(ctx context.Context, dsn string) (types.Conn, error) {
	return open(ctx, "mysql", dsn, types.ProductMySQL, "SELECT VERSION()")
}

// OpenSQLite opens a SQLite database, the cheapest fully-Go backend
// and the one internal/sinktest uses for engine-level tests.
func OpenSQLite(ctx context.Context, path string) (types.Conn, error) {
	return open(ctx, "sqlite", path, types.ProductSQLite, "SELECT sqlite_version()")
}

// Endpoint is one member of a ReplicaSet: a dialect and a DSN.
type Endpoint struct {
	Dialect string
	DSN     string
}

// ReplicaSet is an immutable list of candidate endpoints for failover,
// replacing the teacher's/original adapter's pattern of mutating a DSN
// on a shared connection manager. Next returns the current endpoint
// and the ReplicaSet advanced past it, so the caller always
// constructs a fresh connection rather than mutating shared state.
type ReplicaSet struct {
	endpoints []Endpoint
	pos       int
}

// NewReplicaSet returns a ReplicaSet visiting endpoints in order,
// wrapping around after the last one.
func NewReplicaSet(endpoints ...Endpoint) ReplicaSet {
	return ReplicaSet{endpoints: endpoints}
}

// Next returns the current endpoint and a ReplicaSet advanced past it.
// Calling Next on an empty ReplicaSet panics: constructing one with no
// endpoints is a caller bug, not a runtime condition to recover from.
func (r ReplicaSet) Next() (Endpoint, ReplicaSet) {
	if len(r.endpoints) == 0 {
		panic("stdpool: empty ReplicaSet")
	}
	ep := r.endpoints[r.pos]
	return ep, ReplicaSet{endpoints: r.endpoints, pos: (r.pos + 1) % len(r.endpoints)}
}

// Len reports how many endpoints are in the set.
func (r ReplicaSet) Len() int { return len(r.endpoints) }
