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
	"database/sql"
	"errors"
	"strings"

	"github.com/relstore/packd/internal/dialect"
	"github.com/relstore/packd/internal/types"
)

// isNoRows reports whether err is the no-rows sentinel a
// types.Row.Scan returns. types.Row is deliberately shaped like
// *sql.Row, so the standard sentinel is what every driver-backed
// implementation returns.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation recognizes the handful of phrasings Postgres,
// CockroachDB, MySQL, and SQLite each use for a primary-key or unique
// index conflict. It is intentionally loose: the cost of a false
// positive is tolerating a duplicate object_refs_added insert that was
// already going to be a no-op; the cost of a false negative is
// surfacing a spurious pack failure to a caller who could have safely
// ignored it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"unique constraint",
		"duplicate key",
		"duplicate entry",
		"unique_violation",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// dialectRewrite is a thin indirection to dialect.Rewrite so every
// file in this package goes through one name.
func dialectRewrite(p dialect.Profile, stmt string, params map[string]any) (string, []any, error) {
	return dialect.Rewrite(p, stmt, params)
}

// asOID converts one of the concrete types database/sql hands back
// when a column is scanned into a bare any (RunLOB's calling
// convention) into an OID. Drivers disagree on whether an integer
// column comes back as int64 or uint64.
func asOID(cell any) (types.OID, bool) {
	switch v := cell.(type) {
	case int64:
		return types.OID(v), true
	case uint64:
		return types.OID(v), true
	case int:
		return types.OID(v), true
	default:
		return 0, false
	}
}
