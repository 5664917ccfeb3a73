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

package pack_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relstore/packd/internal/pack"
	"github.com/relstore/packd/internal/refs"
	"github.com/relstore/packd/internal/sinktest"
	"github.com/relstore/packd/internal/types"
)

// commitRevision records a new revision of zoid at tid, referencing
// refTo, and moves current_object(zoid) to point at it.
func commitRevision(
	t *testing.T, ctx context.Context, q types.Querier, tid int64, zoid int64, refTo []types.OID,
) {
	t.Helper()
	_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO transaction (tid, packed) VALUES (?, 0)`, tid)
	require.NoError(t, err)

	state := refs.Encode(refTo)
	_, err = q.ExecContext(ctx,
		`INSERT INTO object_state (zoid, tid, prev_tid, state) VALUES (?, ?, 0, ?)`,
		zoid, tid, state)
	require.NoError(t, err)

	_, err = q.ExecContext(ctx, `
		INSERT INTO current_object (zoid, tid) VALUES (?, ?)
		ON CONFLICT(zoid) DO UPDATE SET tid = excluded.tid`,
		zoid, tid)
	require.NoError(t, err)
}

func countRows(t *testing.T, ctx context.Context, q types.Querier, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, q.QueryRowContext(ctx, query, args...).Scan(&n))
	return n
}

// Scenario 1: single-object history truncation, GC off.
func TestPackScenarioHistoryTruncation(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	commitRevision(t, ctx, tx, 10, 1, nil)
	commitRevision(t, ctx, tx, 20, 1, nil)
	commitRevision(t, ctx, tx, 30, 1, nil)

	controller := pack.New(fx.Profile)
	require.NoError(t, controller.PrePack(ctx, tx, 25, refs.None, false))
	require.NoError(t, controller.Pack(ctx, tx, 25, nil))

	assert.Equal(t, int64(1), countRows(t, ctx, tx, `SELECT COUNT(*) FROM object_state WHERE zoid = 1`))
	assert.Equal(t, int64(1), countRows(t, ctx, tx, `SELECT COUNT(*) FROM object_state WHERE zoid = 1 AND tid = 30`))

	var currentTID int64
	require.NoError(t, tx.QueryRowContext(ctx, `SELECT tid FROM current_object WHERE zoid = 1`).Scan(&currentTID))
	assert.Equal(t, int64(30), currentTID)

	assert.Equal(t, int64(0), countRows(t, ctx, tx, `SELECT COUNT(*) FROM transaction WHERE tid IN (10, 20)`))

	var packed int
	require.NoError(t, tx.QueryRowContext(ctx, `SELECT packed FROM transaction WHERE tid = 30`).Scan(&packed))
	assert.Equal(t, 0, packed)
}

// Scenario 2: root kept by rule, GC on.
func TestPackScenarioRootKept(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	commitRevision(t, ctx, tx, 5, 0, nil)

	controller := pack.New(fx.Profile)
	var extractor refs.FixedWidthExtractor
	require.NoError(t, controller.PrePack(ctx, tx, 100, extractor, true))
	require.NoError(t, controller.Pack(ctx, tx, 100, nil))

	assert.Equal(t, int64(1), countRows(t, ctx, tx, `SELECT COUNT(*) FROM object_state WHERE zoid = 0 AND tid = 5`))
	var currentTID int64
	require.NoError(t, tx.QueryRowContext(ctx, `SELECT tid FROM current_object WHERE zoid = 0`).Scan(&currentTID))
	assert.Equal(t, int64(5), currentTID)
}

// Scenario 3: unreachable object garbage collected.
func TestPackScenarioUnreachableCollected(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	commitRevision(t, ctx, tx, 10, 0, []types.OID{2})
	commitRevision(t, ctx, tx, 10, 2, nil)
	commitRevision(t, ctx, tx, 20, 0, nil)

	controller := pack.New(fx.Profile)
	var extractor refs.FixedWidthExtractor
	require.NoError(t, controller.PrePack(ctx, tx, 25, extractor, true))
	require.NoError(t, controller.Pack(ctx, tx, 25, nil))

	assert.Equal(t, int64(0), countRows(t, ctx, tx, `SELECT COUNT(*) FROM object_state WHERE zoid = 2`))
	assert.Equal(t, int64(0), countRows(t, ctx, tx, `SELECT COUNT(*) FROM current_object WHERE zoid = 2`))

	var currentTID int64
	require.NoError(t, tx.QueryRowContext(ctx, `SELECT tid FROM current_object WHERE zoid = 0`).Scan(&currentTID))
	assert.Equal(t, int64(20), currentTID)
}

// Scenario 4: a reference from a not-yet-packed transaction preserves
// its target even though the target's own committer precedes the
// pack horizon.
func TestPackScenarioConcurrentReferencePreserves(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	commitRevision(t, ctx, tx, 10, 0, []types.OID{2})
	commitRevision(t, ctx, tx, 10, 2, nil)
	commitRevision(t, ctx, tx, 30, 3, []types.OID{2})

	controller := pack.New(fx.Profile)
	var extractor refs.FixedWidthExtractor
	require.NoError(t, controller.PrePack(ctx, tx, 20, extractor, true))
	require.NoError(t, controller.Pack(ctx, tx, 20, nil))

	assert.Equal(t, int64(1), countRows(t, ctx, tx, `SELECT COUNT(*) FROM current_object WHERE zoid = 2`))
}

// Scenario 5: closure across multiple hops retains every linked oid.
func TestPackScenarioMultiHopClosure(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	commitRevision(t, ctx, tx, 10, 0, []types.OID{2})
	commitRevision(t, ctx, tx, 10, 2, []types.OID{3})
	commitRevision(t, ctx, tx, 10, 3, []types.OID{4})
	commitRevision(t, ctx, tx, 10, 4, []types.OID{5})
	commitRevision(t, ctx, tx, 10, 5, nil)

	controller := pack.New(fx.Profile)
	var extractor refs.FixedWidthExtractor
	require.NoError(t, controller.PrePack(ctx, tx, 10, extractor, true))
	require.NoError(t, controller.Pack(ctx, tx, 10, nil))

	for _, zoid := range []int64{0, 2, 3, 4, 5} {
		assert.Equal(t, int64(1), countRows(t, ctx, tx, `SELECT COUNT(*) FROM current_object WHERE zoid = ?`, zoid))
	}
}

// Scenario 6: the duty-cycle hook is invoked even with nothing to
// wait for.
func TestPackScenarioDutyCycleInvoked(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)
	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	commitRevision(t, ctx, tx, 10, 1, nil)
	commitRevision(t, ctx, tx, 20, 1, nil)

	controller := pack.New(fx.Profile)
	require.NoError(t, controller.PrePack(ctx, tx, 15, refs.None, false))

	recording := &recordingSleeper{}
	require.NoError(t, controller.Pack(ctx, tx, 15, recording))
	assert.GreaterOrEqual(t, recording.calls, 1)
}

type recordingSleeper struct{ calls int }

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) { r.calls++ }
