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

package dialect

import (
	"context"

	"github.com/relstore/packd/internal/types"
)

// mysqlProfile targets MySQL/MariaDB via github.com/go-sql-driver/mysql.
type mysqlProfile struct{}

// NewMySQL returns the Profile for a MySQL/MariaDB target.
func NewMySQL() Profile { return &mysqlProfile{} }

func (p *mysqlProfile) Name() string           { return "MySQL" }
func (p *mysqlProfile) Product() types.Product { return types.ProductMySQL }
func (p *mysqlProfile) BindStyle() BindStyle   { return BindPositionalQuestion }

func (p *mysqlProfile) Literal(name string) (string, bool) {
	switch name {
	case LiteralTrue:
		// Older MySQL releases this engine still needs to support
		// don't treat TRUE/FALSE as keywords; 1/0 always work.
		return "1", true
	case LiteralFalse:
		return "0", true
	case LiteralOctetLength:
		return "OCTET_LENGTH", true
	default:
		return "", false
	}
}

func (p *mysqlProfile) CreateTempTableDDL(table string) string {
	return "CREATE TEMPORARY TABLE " + table + " (zoid BIGINT UNSIGNED NOT NULL, " +
		"UNIQUE KEY (zoid)) ENGINE=InnoDB"
}

func (p *mysqlProfile) CommitLockDDL() string {
	return "SELECT GET_LOCK('commit_lock', -1)"
}

// ReliableRowcount is false: with the driver's default
// clientFoundRows=false, ROW_COUNT() (and sql.Result.RowsAffected)
// reports only rows whose values actually changed, which happens to
// be exactly what the fixed-point test wants -- but MySQL's
// affected-rows count for a multi-table UPDATE ... JOIN can undercount
// when the optimizer re-touches a row, so the probe query is used to
// be safe.
func (p *mysqlProfile) ReliableRowcount() bool { return false }

func (p *mysqlProfile) ProgressProbeQuery() string {
	return "SELECT 1 FROM pack_object WHERE keep = 1 AND keep_tid IS NULL LIMIT 1"
}

func (p *mysqlProfile) PrepareBlobCursor(context.Context, types.Querier) error { return nil }

func (p *mysqlProfile) ReadBlob(cell any) ([]byte, error) {
	return readInlineBytes(cell)
}

func (p *mysqlProfile) IsTruncated(err error) bool { return false }
