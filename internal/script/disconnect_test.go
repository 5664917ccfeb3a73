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

package script

import (
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDisconnected(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"bad conn sentinel", driver.ErrBadConn, true},
		{"connection refused text", errors.New("dial tcp: connection refused"), true},
		{"server closed", errors.New("server closed the connection unexpectedly"), true},
		{"unrelated", errors.New("syntax error near SELECT"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				assert.False(t, isDisconnected(tc.err))
				return
			}
			assert.Equal(t, tc.want, isDisconnected(tc.err))
		})
	}
}
