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

// Package lock acquires the commit_lock that represents the serial
// section of commit. Holding it for the duration of pack's delete
// phase is what guarantees no committer can enter its vote phase
// while pack is deleting the rows that committer might otherwise
// reference.
package lock

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/relstore/packd/internal/dialect"
	"github.com/relstore/packd/internal/types"
)

// Locker acquires the commit lock on behalf of PackController.
type Locker struct {
	Profile dialect.Profile
}

// New returns a Locker bound to profile.
func New(profile dialect.Profile) *Locker {
	return &Locker{Profile: profile}
}

// HoldCommitLock executes the profile's commit-lock DDL on q. The
// lock is held for as long as the enclosing transaction remains open;
// it is released only when the caller commits or rolls back.
//
// A deadlock while acquiring the lock is reported as
// types.ConflictError so the caller knows it may retry.
func (l *Locker) HoldCommitLock(ctx context.Context, q types.Querier) error {
	stmt := l.Profile.CommitLockDDL()
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		if isDeadlock(err) {
			return &types.ConflictError{Cause: err}
		}
		log.WithField("dialect", l.Profile.Name()).Warnf("commit lock statement failed: %s", stmt)
		return errors.WithStack(err)
	}
	log.WithField("dialect", l.Profile.Name()).Debug("commit lock acquired")
	return nil
}

func isDeadlock(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock wait timeout") ||
		strings.Contains(msg, "could not obtain lock")
}
