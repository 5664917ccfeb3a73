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

package pack

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/relstore/packd/internal/types"
)

// selectKeepTID is the correlated subquery used both by the non-GC
// path and by the closure loop to fix the oldest revision that
// survives for a given zoid: the newest object_state row at or before
// pack_tid.
const selectKeepTID = `(
	SELECT tid FROM object_state
	WHERE object_state.zoid = pack_object.zoid
	  AND tid <= :pack_tid
	ORDER BY tid DESC
	LIMIT 1
)`

// PrePack populates pack_object for a subsequent call to Pack. When gc
// is false it implements the "keep the newest revision" rule of spec
// section 4.5; when true it implements the iterative reachability
// closure of section 4.6, invoking extractor once per non-empty state
// of each unexamined transaction.
//
// q must be a transactional Querier; PrePack issues several statements
// that must be seen as one atomic unit by other readers. The caller
// commits or rolls back.
func (c *Controller) PrePack(
	ctx context.Context, q types.Querier, packTID types.TID, extractor types.RefExtractor, gc bool,
) error {
	start := time.Now()
	defer func() { c.Metrics.prePackDuration().Observe(time.Since(start).Seconds()) }()

	var err error
	if gc {
		err = c.prePackWithGC(ctx, q, packTID, extractor)
	} else {
		err = c.prePackWithoutGC(ctx, q, packTID)
	}
	if err != nil {
		c.Metrics.prePackError().Inc()
	}
	return err
}

func (c *Controller) prePackWithoutGC(ctx context.Context, q types.Querier, packTID types.TID) error {
	stmt := `
DELETE FROM pack_object;

INSERT INTO pack_object (zoid, keep)
SELECT DISTINCT zoid, %(TRUE)s
FROM object_state
WHERE tid <= :pack_tid;

UPDATE pack_object SET keep_tid = ` + selectKeepTID

	return c.Runner.RunScript(ctx, q, stmt, map[string]any{"pack_tid": int64(packTID)})
}

func (c *Controller) prePackWithGC(
	ctx context.Context, q types.Querier, packTID types.TID, extractor types.RefExtractor,
) error {
	if err := c.fillNonpackedRefs(ctx, q, packTID, extractor); err != nil {
		return err
	}

	seed := `
DELETE FROM pack_object;

INSERT INTO pack_object (zoid, keep)
SELECT DISTINCT zoid, %(FALSE)s
FROM object_state
WHERE tid <= :pack_tid;

-- If the root object is in pack_object, keep it.
UPDATE pack_object SET keep = %(TRUE)s
WHERE zoid = 0;

-- Keep objects that have been revised since pack_tid.
UPDATE pack_object SET keep = %(TRUE)s
WHERE keep = %(FALSE)s
  AND zoid IN (
    SELECT zoid FROM current_object WHERE tid > :pack_tid
  );

-- Keep objects still referenced by transactions that will not be packed.
UPDATE pack_object SET keep = %(TRUE)s
WHERE keep = %(FALSE)s
  AND zoid IN (
    SELECT to_zoid FROM object_ref WHERE tid > :pack_tid
  );`
	if err := c.Runner.RunScript(ctx, q, seed, map[string]any{"pack_tid": int64(packTID)}); err != nil {
		return err
	}

	if _, err := c.Runner.Run(ctx, q, c.Profile.CreateTempTableDDL("temp_pack_visit"), nil); err != nil {
		return err
	}

	return c.closure(ctx, q, packTID, extractor)
}

// closure implements spec section 4.6 phase C: repeatedly admit newly
// kept zoids into temp_pack_visit, fix their keep_tid, expand their
// references, and promote anything they point at, until a round
// promotes nothing.
func (c *Controller) closure(
	ctx context.Context, q types.Querier, packTID types.TID, extractor types.RefExtractor,
) error {
	for {
		admit := `
DELETE FROM temp_pack_visit;

INSERT INTO temp_pack_visit (zoid)
SELECT zoid FROM pack_object
WHERE keep = %(TRUE)s AND keep_tid IS NULL;

UPDATE pack_object SET keep_tid = ` + selectKeepTID + `
WHERE keep = %(TRUE)s AND keep_tid IS NULL`
		if err := c.Runner.RunScript(ctx, q, admit, map[string]any{"pack_tid": int64(packTID)}); err != nil {
			return err
		}

		visited, err := c.countTempVisit(ctx, q)
		if err != nil {
			return err
		}
		c.Metrics.visited(visited)

		if err := c.fillPackObjectRefs(ctx, q, extractor); err != nil {
			return err
		}

		promote := `
UPDATE pack_object SET keep = %(TRUE)s
WHERE keep = %(FALSE)s
  AND zoid IN (
    SELECT DISTINCT to_zoid
    FROM object_ref
    JOIN temp_pack_visit ON temp_pack_visit.zoid = object_ref.zoid
  )`
		res, err := c.Runner.Run(ctx, q, promote, nil)
		if err != nil {
			return err
		}

		progressed, err := c.progressed(ctx, q, res)
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// progressed reports whether the most recent promotion UPDATE changed
// any rows. Profiles with a reliable rowcount answer directly from
// res; others are asked via their progress-probe query, per spec
// section 9's note on unreliable bulk-UPDATE rowcounts.
func (c *Controller) progressed(ctx context.Context, q types.Querier, res types.Result) (bool, error) {
	if c.Profile.ReliableRowcount() {
		n, err := res.RowsAffected()
		if err != nil {
			return false, errors.WithStack(err)
		}
		return n > 0, nil
	}

	row := q.QueryRowContext(ctx, c.Profile.ProgressProbeQuery())
	var probe int
	switch err := row.Scan(&probe); {
	case err == nil:
		return true, nil
	case isNoRows(err):
		return false, nil
	default:
		return false, errors.WithStack(err)
	}
}

// fillNonpackedRefs implements spec section 4.6 phase A for
// transactions that will survive packing: every tid > pack_tid not
// yet present in object_refs_added.
func (c *Controller) fillNonpackedRefs(
	ctx context.Context, q types.Querier, packTID types.TID, extractor types.RefExtractor,
) error {
	const stmt = `
SELECT DISTINCT tid
FROM object_state
WHERE tid > :pack_tid
  AND NOT EXISTS (SELECT 1 FROM object_refs_added WHERE tid = object_state.tid)`

	tids, err := c.queryTIDs(ctx, q, stmt, map[string]any{"pack_tid": int64(packTID)})
	if err != nil {
		return err
	}
	for _, tid := range tids {
		if err := c.addRefsForTID(ctx, q, tid, extractor); err != nil {
			return err
		}
	}
	return nil
}

// fillPackObjectRefs implements phase A's reuse inside the closure
// loop (phase C step 4): every keep_tid present in pack_object but not
// yet in object_refs_added.
func (c *Controller) fillPackObjectRefs(ctx context.Context, q types.Querier, extractor types.RefExtractor) error {
	const stmt = `
SELECT DISTINCT keep_tid
FROM pack_object
WHERE keep_tid IS NOT NULL
  AND NOT EXISTS (SELECT 1 FROM object_refs_added WHERE tid = pack_object.keep_tid)`

	tids, err := c.queryTIDs(ctx, q, stmt, nil)
	if err != nil {
		return err
	}
	for _, tid := range tids {
		if err := c.addRefsForTID(ctx, q, tid, extractor); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) queryTIDs(
	ctx context.Context, q types.Querier, stmt string, params map[string]any,
) ([]types.TID, error) {
	rewritten, args, err := c.rewrite(stmt, params)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, rewritten, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var out []types.TID
	for rows.Next() {
		var tid int64
		if err := rows.Scan(&tid); err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, types.TID(tid))
	}
	return out, errors.WithStack(rows.Err())
}

// addRefsForTID reads every (zoid, state) row committed at tid, calls
// extractor on each non-empty state, inserts the resulting edges into
// object_ref one row per statement, and marks tid as examined in
// object_refs_added.
//
// state is read through Runner.RunLOB so the blob-reader and
// inline/streaming retry contract of spec section 4.2 applies here
// too: above this call, a state is always a plain []byte, never a
// driver-specific LOB handle a caller would have to duck-type (spec
// section 9's redesign flag).
func (c *Controller) addRefsForTID(ctx context.Context, q types.Querier, tid types.TID, extractor types.RefExtractor) error {
	const stmt = `SELECT zoid, state FROM object_state WHERE tid = :tid`

	type edge struct {
		from, to types.OID
	}
	var edges []edge

	err := c.Runner.RunLOB(ctx, q, stmt, map[string]any{"tid": int64(tid)}, 2, 1, func(cols []any) error {
		zoid, ok := asOID(cols[0])
		if !ok {
			return errors.Errorf("addRefsForTID: unexpected zoid column type %T", cols[0])
		}
		state, _ := cols[1].([]byte)
		if len(state) == 0 {
			return nil
		}
		refs, err := extractor.ExtractRefs(state)
		if err != nil {
			return &types.CorruptedStateError{TID: tid, ZOID: zoid, Cause: err}
		}
		for _, to := range refs {
			edges = append(edges, edge{from: zoid, to: to})
		}
		return nil
	})
	if err != nil {
		var corrupted *types.CorruptedStateError
		if errors.As(err, &corrupted) {
			return corrupted
		}
		return err
	}

	for _, e := range edges {
		const ins = `INSERT INTO object_ref (zoid, tid, to_zoid) VALUES (:zoid, :tid, :to_zoid)`
		if _, err := c.Runner.Run(ctx, q, ins, map[string]any{
			"zoid": int64(e.from), "tid": int64(tid), "to_zoid": int64(e.to),
		}); err != nil {
			return err
		}
	}

	const mark = `INSERT INTO object_refs_added (tid) VALUES (:tid)`
	if _, err := c.Runner.Run(ctx, q, mark, map[string]any{"tid": int64(tid)}); err != nil {
		// object_refs_added.tid is a primary key; a concurrent pack run
		// examining the same tid is tolerated rather than fatal, per
		// spec section 5's shared-resource policy.
		if isUniqueViolation(err) {
			log.WithField("dialect", c.Profile.Name()).Debugf("tid %d already marked by a concurrent run", tid)
			return nil
		}
		return err
	}
	return nil
}

func (c *Controller) rewrite(stmt string, params map[string]any) (string, []any, error) {
	return dialectRewrite(c.Profile, stmt, params)
}

// countTempVisit reports how many zoids the most recent admit step
// placed into temp_pack_visit, purely for the gc_objects_visited
// metric -- the closure loop does not consult this count; whether it
// keeps looping is decided by progressed.
func (c *Controller) countTempVisit(ctx context.Context, q types.Querier) (int, error) {
	rewritten, args, err := c.rewrite(`SELECT COUNT(*) FROM temp_pack_visit`, nil)
	if err != nil {
		return 0, err
	}
	var n int
	if err := q.QueryRowContext(ctx, rewritten, args...).Scan(&n); err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}
