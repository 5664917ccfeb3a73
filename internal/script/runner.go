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

// Package script executes dialect-neutral, multi-statement SQL
// scripts against a types.Querier, performing the template
// substitution and placeholder rewriting a dialect.Profile describes.
// It never interpolates a parameter value into SQL text; values are
// always passed through to the driver as bound arguments.
package script

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/relstore/packd/internal/dialect"
	"github.com/relstore/packd/internal/types"
)

// Runner executes SQL against a single dialect.Profile.
type Runner struct {
	Profile dialect.Profile
}

// New returns a Runner bound to profile.
func New(profile dialect.Profile) *Runner {
	return &Runner{Profile: profile}
}

// Run substitutes template variables in stmt, rewrites its
// placeholders for r.Profile, and executes it as a single statement.
// On a driver error, the fully substituted statement text (without
// parameter values) is logged at WARNING before the error is
// returned unchanged to the caller.
func (r *Runner) Run(
	ctx context.Context, q types.Querier, stmt string, params map[string]any,
) (types.Result, error) {
	rewritten, args, err := dialect.Rewrite(r.Profile, stmt, params)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	res, err := q.ExecContext(ctx, rewritten, args...)
	if err != nil {
		log.WithFields(log.Fields{
			"dialect": r.Profile.Name(),
		}).Warnf("script statement failed: %s", rewritten)
		return nil, classify(err)
	}
	return res, nil
}

// RunScript splits script on semicolon-terminated statements,
// stripping blank lines and "--"-prefixed comment lines, and submits
// each to Run in turn using the same parameter map. A trailing
// statement with no terminating ';' is still executed.
func (r *Runner) RunScript(
	ctx context.Context, q types.Querier, scr string, params map[string]any,
) error {
	var lines []string
	flush := func() error {
		if len(lines) == 0 {
			return nil
		}
		stmt := strings.Join(lines, "\n")
		lines = lines[:0]
		_, err := r.Run(ctx, q, stmt, params)
		return err
	}

	for _, raw := range strings.Split(scr, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if strings.HasSuffix(line, ";") {
			lines = append(lines, strings.TrimSuffix(line, ";"))
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		lines = append(lines, line)
	}
	return flush()
}

// RunLOB executes stmt, whose result is expected to contain numCols
// columns per row with a single large-object column at blobOrdinal
// (0-based), and invokes scan once per row with every column
// normalized to a concrete Go value -- the blob column decoded to
// []byte through r.Profile.ReadBlob.
//
// It implements the inline-then-streaming retry policy of spec
// section 4.2: r.Profile.PrepareBlobCursor is used to request inline
// delivery first. If the profile reports a truncated cell partway
// through iterating rows, the statement is re-executed exactly once
// with streaming output forced (a trailing comment is appended so a
// prepared-statement cache recompiles it), and scan is invoked again
// from the first row. If the query returns no rows at all, scan is
// never called and RunLOB returns nil.
func (r *Runner) RunLOB(
	ctx context.Context,
	q types.Querier,
	stmt string,
	params map[string]any,
	numCols int,
	blobOrdinal int,
	scan func(cols []any) error,
) error {
	rewritten, args, err := dialect.Rewrite(r.Profile, stmt, params)
	if err != nil {
		return errors.WithStack(err)
	}

	attempt := func(streaming bool) (truncated bool, err error) {
		text := rewritten
		if !streaming {
			if perr := r.Profile.PrepareBlobCursor(ctx, q); perr != nil {
				return false, errors.WithStack(perr)
			}
		} else {
			// Alter the statement text without changing its meaning
			// so a prepared-statement cache recompiles with the
			// streaming output policy in effect.
			text = rewritten + "\n-- streaming"
		}

		rows, err := q.QueryContext(ctx, text, args...)
		if err != nil {
			return false, classify(err)
		}
		defer rows.Close()

		for rows.Next() {
			cols := make([]any, numCols)
			ptrs := make([]any, numCols)
			for i := range cols {
				ptrs[i] = &cols[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return false, classify(err)
			}

			blob, berr := r.Profile.ReadBlob(cols[blobOrdinal])
			if berr != nil {
				if r.Profile.IsTruncated(berr) {
					return true, nil
				}
				return false, errors.WithStack(berr)
			}
			cols[blobOrdinal] = blob

			if err := scan(cols); err != nil {
				return false, err
			}
		}
		return false, rows.Err()
	}

	truncated, err := attempt(false)
	if err != nil {
		log.WithFields(log.Fields{"dialect": r.Profile.Name()}).Warnf(
			"script statement failed: %s", rewritten)
		return err
	}
	if !truncated {
		return nil
	}

	log.WithField("dialect", r.Profile.Name()).Debug("retrying with streaming LOB output after truncation")
	if _, err := attempt(true); err != nil {
		return err
	}
	return nil
}

// classify wraps a driver error as types.DisconnectedError when it
// looks like the connection was lost, so the engine never swallows or
// silently retries the underlying failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isDisconnected(err) {
		return &types.DisconnectedError{Cause: err}
	}
	return errors.WithStack(err)
}
