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
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config is the user-visible configuration for one pack run, bound to
// flags the way the teacher's internal/source/server.Config binds its
// own fields.
type Config struct {
	ConnectionString string
	Dialect          string // "cockroachdb", "postgresql", "postgresql-legacy", "mysql", "sqlite"

	GC         bool
	HorizonTID int64
	DutySleep  time.Duration
}

// Bind registers c's flags on flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.ConnectionString, "connect", "",
		"the connection string for the target database")
	flags.StringVar(&c.Dialect, "dialect", "",
		"the SQL dialect to use: cockroachdb, postgresql, postgresql-legacy, mysql, or sqlite")
	flags.BoolVar(&c.GC, "gc", true,
		"walk the reference graph to reclaim unreachable objects, not just superseded history")
	flags.Int64Var(&c.HorizonTID, "horizon", 0,
		"the inclusive upper bound transaction id to pack to; 0 selects the newest unpacked transaction")
	flags.DurationVar(&c.DutySleep, "dutySleep", 0,
		"how long to pause between per-table delete batches during pack execution")
}

// Preflight validates c after flags have been parsed.
func (c *Config) Preflight() error {
	if c.ConnectionString == "" {
		return errors.New("connect unset")
	}
	switch c.Dialect {
	case "cockroachdb", "postgresql", "postgresql-legacy", "mysql", "sqlite":
	case "":
		return errors.New("dialect unset")
	default:
		return errors.Errorf("unknown dialect %q", c.Dialect)
	}
	if c.DutySleep < 0 {
		return errors.New("dutySleep must not be negative")
	}
	return nil
}
