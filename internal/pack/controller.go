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

// Package pack implements the pre-pack analysis and pack execution
// algorithm: given a pack horizon, decide which object revisions and
// transactions can be reclaimed, optionally walk the pickled-object
// reference graph to compute a transitive live set, and physically
// delete the dead rows atomically with respect to concurrent
// committers.
package pack

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/relstore/packd/internal/dialect"
	"github.com/relstore/packd/internal/lock"
	"github.com/relstore/packd/internal/script"
	"github.com/relstore/packd/internal/types"
)

// Controller orchestrates the pre-pack and pack phases described in
// spec sections 4.4 through 4.7. One Controller is bound to one
// dialect.Profile; it is safe to reuse across pack runs, but not to
// drive two concurrent runs against the same schema (the commit lock
// and pack_object's single-writer convention both assume this).
type Controller struct {
	Profile dialect.Profile
	Runner  *script.Runner
	Locker  *lock.Locker
	Metrics *Metrics

	// DutySleep is the duration passed to the injected Sleeper
	// between per-table delete batches during Pack. Zero is valid and
	// is what spec section 8's scenario 6 exercises: the hook must
	// still be invoked even when there is nothing to wait for.
	DutySleep time.Duration
}

// New returns a Controller for profile, wiring a Runner and Locker
// bound to the same profile and a fresh Metrics registry entry.
func New(profile dialect.Profile) *Controller {
	return &Controller{
		Profile: profile,
		Runner:  script.New(profile),
		Locker:  lock.New(profile),
		Metrics: NewMetrics(profile.Name()),
	}
}

// ChoosePackTransaction returns the largest tid t such that
// 0 < t <= bound and transaction.packed = FALSE, or
// types.ErrNothingToPack if no such transaction exists.
func (c *Controller) ChoosePackTransaction(
	ctx context.Context, q types.Querier, bound types.TID,
) (types.TID, error) {
	const stmt = `
SELECT tid
FROM transaction
WHERE tid > 0
  AND tid <= :bound
  AND packed = %(FALSE)s
ORDER BY tid DESC
LIMIT 1`

	rewritten, args, err := dialect.Rewrite(c.Profile, stmt, map[string]any{"bound": int64(bound)})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	var found int64
	row := q.QueryRowContext(ctx, rewritten, args...)
	switch err := row.Scan(&found); {
	case err == nil:
		return types.TID(found), nil
	case isNoRows(err):
		return 0, types.ErrNothingToPack
	default:
		return 0, errors.WithStack(err)
	}
}

// logf is a small convenience so other files in this package log
// consistently with the profile's name attached.
func (c *Controller) logf() *log.Entry {
	return log.WithField("dialect", c.Profile.Name())
}
