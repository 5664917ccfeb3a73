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

package stdpool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relstore/packd/internal/util/stdpool"
)

func TestReplicaSetNext(t *testing.T) {
	rs := stdpool.NewReplicaSet(
		stdpool.Endpoint{Dialect: "postgresql", DSN: "a"},
		stdpool.Endpoint{Dialect: "postgresql", DSN: "b"},
		stdpool.Endpoint{Dialect: "postgresql", DSN: "c"},
	)
	assert.Equal(t, 3, rs.Len())

	var got []string
	for i := 0; i < 3; i++ {
		var ep stdpool.Endpoint
		ep, rs = rs.Next()
		got = append(got, ep.DSN)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestReplicaSetWraps(t *testing.T) {
	rs := stdpool.NewReplicaSet(
		stdpool.Endpoint{Dialect: "mysql", DSN: "a"},
		stdpool.Endpoint{Dialect: "mysql", DSN: "b"},
	)

	var got []string
	for i := 0; i < 4; i++ {
		var ep stdpool.Endpoint
		ep, rs = rs.Next()
		got = append(got, ep.DSN)
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, got)
}

func TestReplicaSetNextPanicsWhenEmpty(t *testing.T) {
	rs := stdpool.NewReplicaSet()
	assert.Panics(t, func() { rs.Next() })
}
