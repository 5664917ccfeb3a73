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
	"io"
	"net"
	"strings"
)

// isDisconnected reports whether err looks like the database
// connection was broken rather than a statement-level failure. The
// calling layer (outside this engine's scope) is responsible for
// replica failover and retry; this engine only needs to classify the
// error so it can surface types.DisconnectedError instead of a bare
// driver error.
func isDisconnected(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"server closed the connection",
		"bad connection",
		"no connection to the server",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
