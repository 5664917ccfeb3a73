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

// Package iter provides the read-only, lazy enumerations described in
// spec section 4.8: the transaction log and a single object's
// history. Neither mutates any table, and neither is restartable --
// callers that need to run the sequence twice must call the
// constructor again.
package iter

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/relstore/packd/internal/dialect"
	"github.com/relstore/packd/internal/types"
)

// TransactionIter lazily yields transaction rows in descending tid
// order. Obtain one from IterTransactions; call Next until it returns
// false, checking Err afterward.
type TransactionIter struct {
	rows types.Rows
	err  error
	cur  types.TransactionRow
}

// IterTransactions returns a TransactionIter over every unpacked,
// non-sentinel transaction, newest first.
func IterTransactions(ctx context.Context, profile dialect.Profile, q types.Querier) (*TransactionIter, error) {
	const stmt = `
SELECT tid, username, description, extension
FROM transaction
WHERE tid != 0 AND packed = %(FALSE)s
ORDER BY tid DESC`

	rewritten, args, err := dialect.Rewrite(profile, stmt, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	rows, err := q.QueryContext(ctx, rewritten, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &TransactionIter{rows: rows}, nil
}

// Next advances the iterator. It returns false once the sequence is
// exhausted or an error occurred; call Err to distinguish the two.
func (it *TransactionIter) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	var tid int64
	if it.err = it.rows.Scan(&tid, &it.cur.Username, &it.cur.Description, &it.cur.Extension); it.err != nil {
		return false
	}
	it.cur.TID = types.TID(tid)
	return true
}

// Row returns the row most recently produced by Next.
func (it *TransactionIter) Row() types.TransactionRow { return it.cur }

// Err returns the first error encountered, if any.
func (it *TransactionIter) Err() error {
	if it.err != nil {
		return it.err
	}
	return errors.WithStack(it.rows.Err())
}

// Close releases the underlying driver rows. Safe to call after the
// iterator is exhausted.
func (it *TransactionIter) Close() error { return it.rows.Close() }

// HistoryIter lazily yields one object's revisions in descending tid
// order, joined against the transactions that created them.
type HistoryIter struct {
	rows types.Rows
	err  error
	cur  types.HistoryRow
}

// IterObjectHistory returns a HistoryIter for oid. It fails with
// *types.NotFoundError if oid has no current_object row, matching
// spec section 4.8.
func IterObjectHistory(
	ctx context.Context, profile dialect.Profile, q types.Querier, oid types.OID,
) (*HistoryIter, error) {
	const existsStmt = `SELECT 1 FROM current_object WHERE zoid = :oid`
	rewritten, args, err := dialect.Rewrite(profile, existsStmt, map[string]any{"oid": int64(oid)})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var probe int
	row := q.QueryRowContext(ctx, rewritten, args...)
	switch err := row.Scan(&probe); {
	case err == nil:
		// fall through
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, &types.NotFoundError{OID: oid}
	default:
		return nil, errors.WithStack(err)
	}

	stmt := `
SELECT object_state.tid, transaction.username, transaction.description,
       transaction.extension, ` + octetLength(profile) + `(object_state.state)
FROM object_state
JOIN transaction ON transaction.tid = object_state.tid
WHERE object_state.zoid = :oid AND transaction.packed = %(FALSE)s
ORDER BY object_state.tid DESC`

	rewritten, args, err = dialect.Rewrite(profile, stmt, map[string]any{"oid": int64(oid)})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	rows, err := q.QueryContext(ctx, rewritten, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &HistoryIter{rows: rows}, nil
}

// octetLength resolves to the profile's OCTET_LENGTH substitution
// directly rather than through the %(...)s token, since it must sit
// inside a function-call position rather than a standalone literal.
func octetLength(profile dialect.Profile) string {
	if text, ok := profile.Literal("OCTET_LENGTH"); ok {
		return text
	}
	return "OCTET_LENGTH"
}

// Next advances the iterator.
func (it *HistoryIter) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	var tid int64
	if it.err = it.rows.Scan(&tid, &it.cur.Username, &it.cur.Description, &it.cur.Extension, &it.cur.PickleLength); it.err != nil {
		return false
	}
	it.cur.TID = types.TID(tid)
	return true
}

// Row returns the row most recently produced by Next.
func (it *HistoryIter) Row() types.HistoryRow { return it.cur }

// Err returns the first error encountered, if any.
func (it *HistoryIter) Err() error {
	if it.err != nil {
		return it.err
	}
	return errors.WithStack(it.rows.Err())
}

// Close releases the underlying driver rows.
func (it *HistoryIter) Close() error { return it.rows.Close() }
