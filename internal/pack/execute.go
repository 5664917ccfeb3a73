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

	"github.com/relstore/packd/internal/types"
)

// packTables lists the three tables culled by Pack, in the order spec
// section 4.7 requires: object_ref before current_object before
// object_state, so that no foreign-key-shaped reference ever points
// at a row deleted later in the same run.
var packTables = []string{"object_ref", "current_object", "object_state"}

// Pack deletes the dead revisions and superseded history pack_object
// describes, per spec section 4.7. q must be a transactional Querier
// already inside the one transaction Pack's caller will commit or
// roll back; Pack itself never calls Commit or Rollback.
//
// sleeper is invoked once after each of the three per-table delete
// steps, win or lose, satisfying the duty-cycle hook spec section 8
// scenario 6 requires even when c.DutySleep is zero. The commit lock
// acquired in step 1 is held for Pack's entire duration: the original
// adapter never releases it mid-pack, and releasing a table- or
// session-scoped lock mid-transaction is not uniformly possible across
// the dialects this engine targets (see DESIGN.md).
func (c *Controller) Pack(ctx context.Context, q types.Querier, packTID types.TID, sleeper types.Sleeper) error {
	start := time.Now()
	defer func() { c.Metrics.packDuration().Observe(time.Since(start).Seconds()) }()

	if err := c.pack(ctx, q, packTID, sleeper); err != nil {
		c.Metrics.packError().Inc()
		return err
	}
	return nil
}

func (c *Controller) pack(ctx context.Context, q types.Querier, packTID types.TID, sleeper types.Sleeper) error {
	if err := c.Locker.HoldCommitLock(ctx, q); err != nil {
		return err
	}

	for _, table := range packTables {
		if err := c.deleteDeadRows(ctx, q, table, packTID); err != nil {
			return err
		}
		c.pace(ctx, sleeper)
	}

	if err := c.finish(ctx, q, packTID); err != nil {
		return err
	}
	return nil
}

// deleteDeadRows performs both delete steps of spec section 4.7 step 2
// for one table: rows whose zoid is marked dead, and -- for every
// table but current_object -- rows whose zoid is kept but whose tid
// predates keep_tid.
func (c *Controller) deleteDeadRows(ctx context.Context, q types.Querier, table string, packTID types.TID) error {
	deadStmt := `DELETE FROM ` + table + ` WHERE zoid IN (
		SELECT zoid FROM pack_object WHERE keep = %(FALSE)s
	)`
	res, err := c.Runner.Run(ctx, q, deadStmt, nil)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil {
		c.Metrics.rowsDeleted(table+":dead", n)
	}

	if table == "current_object" {
		return nil
	}

	historyStmt := `DELETE FROM ` + table + ` WHERE zoid IN (
		SELECT zoid FROM pack_object WHERE keep = %(TRUE)s
	) AND tid < (
		SELECT keep_tid FROM pack_object WHERE pack_object.zoid = ` + table + `.zoid
	)`
	res, err = c.Runner.Run(ctx, q, historyStmt, nil)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil {
		c.Metrics.rowsDeleted(table+":history", n)
	}
	return nil
}

// finish performs spec section 4.7 steps 3 through 7: terminate
// prev_tid chains, drop orphaned object_refs_added and transaction
// rows, mark survivors packed, and empty pack_object.
func (c *Controller) finish(ctx context.Context, q types.Querier, packTID types.TID) error {
	stmt := `
-- Terminate prev_tid chains. Spec section 9 flags this as
-- intentionally broad: it clears prev_tid for every surviving
-- revision at or before pack_tid, not only those whose predecessor
-- was actually deleted.
UPDATE object_state SET prev_tid = 0
WHERE tid <= :pack_tid AND prev_tid != 0;

DELETE FROM object_refs_added
WHERE tid > 0 AND tid <= :pack_tid
  AND NOT EXISTS (SELECT 1 FROM object_state WHERE tid = object_refs_added.tid);

DELETE FROM transaction
WHERE tid > 0 AND tid <= :pack_tid
  AND NOT EXISTS (SELECT 1 FROM object_state WHERE tid = transaction.tid);

UPDATE transaction SET packed = %(TRUE)s
WHERE tid > 0 AND tid <= :pack_tid;

DELETE FROM pack_object`

	return c.Runner.RunScript(ctx, q, stmt, map[string]any{"pack_tid": int64(packTID)})
}

// pace invokes sleeper between per-table delete batches. It is called
// unconditionally -- with a zero duration when c.DutySleep is unset --
// so the injected hook is always exercised, matching spec section 8
// scenario 6.
func (c *Controller) pace(ctx context.Context, sleeper types.Sleeper) {
	if sleeper == nil {
		return
	}
	c.Metrics.dutyCycle()
	sleeper.Sleep(ctx, c.DutySleep)
}
