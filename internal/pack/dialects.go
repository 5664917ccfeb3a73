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

	"github.com/pkg/errors"

	"github.com/relstore/packd/internal/dialect"
	"github.com/relstore/packd/internal/types"
	"github.com/relstore/packd/internal/util/stdpool"
)

// profileForName resolves a Config.Dialect string to a dialect.Profile.
func profileForName(name string) (dialect.Profile, error) {
	switch name {
	case "cockroachdb":
		return dialect.NewCockroachDB(), nil
	case "postgresql", "postgresql-legacy":
		return dialect.NewPostgreSQL(), nil
	case "mysql":
		return dialect.NewMySQL(), nil
	case "sqlite":
		return dialect.NewSQLite(), nil
	default:
		return nil, errors.Errorf("unknown dialect %q", name)
	}
}

// openForName opens connectionString with the driver matching name.
func openForName(ctx context.Context, name, connectionString string) (types.Conn, func(), error) {
	var (
		c   types.Conn
		err error
	)
	switch name {
	case "cockroachdb", "postgresql":
		c, err = stdpool.OpenPostgresPgx(ctx, connectionString)
	case "postgresql-legacy":
		c, err = stdpool.OpenPostgresLegacy(ctx, connectionString)
	case "mysql":
		c, err = stdpool.OpenMySQL(ctx, connectionString)
	case "sqlite":
		c, err = stdpool.OpenSQLite(ctx, connectionString)
	default:
		return nil, nil, errors.Errorf("unknown dialect %q", name)
	}
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}
