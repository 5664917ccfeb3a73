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

//go:build wireinject
// +build wireinject

package pack

import (
	"context"

	"github.com/google/wire"

	"github.com/relstore/packd/internal/dialect"
	"github.com/relstore/packd/internal/types"
)

// Set is the provider set consumed by cmd/packctl: a Config produces a
// dialect.Profile and an open types.Conn, which together produce a
// Controller.
var Set = wire.NewSet(
	ProvideProfile,
	ProvideConn,
	ProvideController,
)

// ProvideProfile resolves cfg.Dialect to a concrete dialect.Profile.
func ProvideProfile(cfg *Config) (dialect.Profile, error) {
	return profileForName(cfg.Dialect)
}

// ProvideConn opens cfg's connection string with the driver matching
// cfg.Dialect, returning a cleanup func that closes it.
func ProvideConn(ctx context.Context, cfg *Config) (types.Conn, func(), error) {
	return openForName(ctx, cfg.Dialect, cfg.ConnectionString)
}

// ProvideController builds a Controller bound to profile, carrying
// cfg's duty-cycle sleep setting.
func ProvideController(profile dialect.Profile, cfg *Config) *Controller {
	c := New(profile)
	c.DutySleep = cfg.DutySleep
	return c
}

// NewController wires Config into a ready-to-use Controller and open
// Conn. It is implemented by wire_gen.go in non-wireinject builds.
func NewController(ctx context.Context, cfg *Config) (*Controller, types.Conn, func(), error) {
	wire.Build(Set)
	return nil, nil, nil, nil
}
