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

// Command packctl is a thin CLI driving internal/pack against a
// single connection string. It has no wire protocol and no HTTP
// surface; spec.md section 6 places "the CLI conversion utility" out
// of scope for the core engine, so packctl's only job is to call the
// engine's exposed operations and report what happened.
package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/relstore/packd/internal/pack"
	"github.com/relstore/packd/internal/refs"
	"github.com/relstore/packd/internal/types"
)

func main() {
	cfg := &pack.Config{}
	cfg.Bind(pflag.CommandLine)
	pflag.Parse()

	if err := cfg.Preflight(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	if err := run(context.Background(), cfg); err != nil {
		log.WithError(err).Fatal("pack run failed")
	}
}

func run(ctx context.Context, cfg *pack.Config) error {
	controller, conn, cleanup, err := pack.NewController(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() { _ = tx.Rollback() }()

	bound := types.TID(cfg.HorizonTID)
	if bound.Zero() {
		var err error
		bound, err = maxTID(ctx, tx)
		if err != nil {
			return err
		}
	}

	packTID, err := controller.ChoosePackTransaction(ctx, tx, bound)
	if errors.Is(err, types.ErrNothingToPack) {
		log.Info("nothing to pack")
		return nil
	}
	if err != nil {
		return err
	}

	if err := controller.PrePack(ctx, tx, packTID, refs.None, cfg.GC); err != nil {
		return err
	}
	if err := controller.Pack(ctx, tx, packTID, defaultSleeper{}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.WithStack(err)
	}
	log.WithField("packTID", int64(packTID)).Info("pack complete")
	return nil
}

// maxTID reports the newest tid in the transaction table, used when
// --horizon is left at its zero value to mean "pack everything that
// can safely be packed right now".
func maxTID(ctx context.Context, q types.Querier) (types.TID, error) {
	var max int64
	row := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(tid), 0) FROM transaction")
	if err := row.Scan(&max); err != nil {
		return 0, errors.WithStack(err)
	}
	return types.TID(max), nil
}

type defaultSleeper struct{}

func (defaultSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
