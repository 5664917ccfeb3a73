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

package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relstore/packd/internal/dialect"
)

func TestRewritePositionalDollar(t *testing.T) {
	profile := dialect.NewCockroachDB()
	stmt := `SELECT zoid FROM pack_object WHERE keep = %(FALSE)s AND tid <= :pack_tid`

	rewritten, args, err := dialect.Rewrite(profile, stmt, map[string]any{"pack_tid": int64(42)})
	require.NoError(t, err)
	assert.Equal(t, `SELECT zoid FROM pack_object WHERE keep = FALSE AND tid <= $1`, rewritten)
	assert.Equal(t, []any{int64(42)}, args)
}

func TestRewritePositionalQuestion(t *testing.T) {
	profile := dialect.NewMySQL()
	stmt := `SELECT zoid FROM pack_object WHERE keep = %(TRUE)s AND tid <= :pack_tid`

	rewritten, args, err := dialect.Rewrite(profile, stmt, map[string]any{"pack_tid": int64(7)})
	require.NoError(t, err)
	assert.Equal(t, `SELECT zoid FROM pack_object WHERE keep = 1 AND tid <= ?`, rewritten)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestRewriteNamedColon(t *testing.T) {
	profile := dialect.NewOracle()
	stmt := `SELECT zoid FROM pack_object WHERE keep = %(TRUE)s AND tid <= :pack_tid`

	rewritten, args, err := dialect.Rewrite(profile, stmt, map[string]any{"pack_tid": int64(7)})
	require.NoError(t, err)
	assert.Equal(t, `SELECT zoid FROM pack_object WHERE keep = 1 AND tid <= :pack_tid`, rewritten)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestRewriteMissingParameter(t *testing.T) {
	profile := dialect.NewSQLite()
	_, _, err := dialect.Rewrite(profile, `SELECT :missing`, nil)
	assert.Error(t, err)
}

func TestRewriteRepeatedParameter(t *testing.T) {
	profile := dialect.NewCockroachDB()
	stmt := `SELECT :oid, :oid`
	rewritten, args, err := dialect.Rewrite(profile, stmt, map[string]any{"oid": int64(9)})
	require.NoError(t, err)
	assert.Equal(t, `SELECT $1, $2`, rewritten)
	assert.Equal(t, []any{int64(9), int64(9)}, args)
}
