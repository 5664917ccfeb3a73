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

package iter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relstore/packd/internal/pack/iter"
	"github.com/relstore/packd/internal/sinktest"
	"github.com/relstore/packd/internal/types"
)

func seedTransaction(t *testing.T, ctx context.Context, q types.Querier, tid int64, username string) {
	t.Helper()
	_, err := q.ExecContext(ctx,
		`INSERT INTO transaction (tid, username, description, packed) VALUES (?, ?, ?, 0)`,
		tid, username, "desc-"+username)
	require.NoError(t, err)
}

func TestIterTransactions(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	seedTransaction(t, ctx, tx, 10, "alice")
	seedTransaction(t, ctx, tx, 20, "bob")

	it, err := iter.IterTransactions(ctx, fx.Profile, tx)
	require.NoError(t, err)
	defer func() { _ = it.Close() }()

	var got []types.TID
	for it.Next() {
		got = append(got, it.Row().TID)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []types.TID{20, 10}, got)
}

func TestIterObjectHistoryNotFound(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = iter.IterObjectHistory(ctx, fx.Profile, tx, 999)
	require.Error(t, err)
	var notFound *types.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestIterObjectHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	seedTransaction(t, ctx, tx, 10, "alice")
	seedTransaction(t, ctx, tx, 20, "bob")
	_, err = tx.ExecContext(ctx,
		`INSERT INTO object_state (zoid, tid, prev_tid, state) VALUES (?, ?, 0, ?)`, 1, 10, []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO object_state (zoid, tid, prev_tid, state) VALUES (?, ?, ?, ?)`, 1, 20, 10, []byte{1, 2})
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO current_object (zoid, tid) VALUES (?, ?)`, 1, 20)
	require.NoError(t, err)

	it, err := iter.IterObjectHistory(ctx, fx.Profile, tx, 1)
	require.NoError(t, err)
	defer func() { _ = it.Close() }()

	var rows []types.HistoryRow
	for it.Next() {
		rows = append(rows, it.Row())
	}
	require.NoError(t, it.Err())
	require.Len(t, rows, 2)
	assert.Equal(t, types.TID(20), rows[0].TID)
	assert.Equal(t, "bob", rows[0].Username)
	assert.Equal(t, int64(2), rows[0].PickleLength)
	assert.Equal(t, types.TID(10), rows[1].TID)
	assert.Equal(t, "alice", rows[1].Username)
	assert.Equal(t, int64(3), rows[1].PickleLength)
}
