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

package script_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relstore/packd/internal/script"
	"github.com/relstore/packd/internal/sinktest"
)

func TestRunScript(t *testing.T) {
	ctx := context.Background()
	fx := sinktest.New(ctx, t)

	tx, err := fx.Conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	runner := script.New(fx.Profile)
	err = runner.RunScript(ctx, tx, `
		INSERT INTO transaction (tid, username, description, packed)
		VALUES (:tid, :username, :description, %(FALSE)s);
		-- comment lines are ignored
		UPDATE transaction SET description = :description2 WHERE tid = :tid
	`, map[string]any{
		"tid":          int64(10),
		"username":     "alice",
		"description":  "first",
		"description2": "second",
	})
	require.NoError(t, err)

	row := tx.QueryRowContext(ctx, "SELECT description FROM transaction WHERE tid = 10")
	var got string
	require.NoError(t, row.Scan(&got))
	require.Equal(t, "second", got)
}
