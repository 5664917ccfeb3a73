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
	"strings"

	"github.com/relstore/packd/internal/types"
)

// oracleProfile models the cx_Oracle-flavored dialect described in
// the original RelStorage Oracle adapter: named (:name) bind
// placeholders, and LOBs that come back as a streamable handle rather
// than inline bytes unless the cursor has been told to force inline
// delivery. No pure-Go Oracle driver is available in this module's
// dependency set, so this profile is never paired with a stdpool
// opener; it exists so the Profile contract is exercised and tested
// against a backend with materially different placeholder and LOB
// behavior than the other three.
type oracleProfile struct {
	// forceStreaming is a streaming-output preference flag. It is set
	// and read only through SetForceStreaming and ForceStreaming;
	// nothing else in the profile consults it.
	forceStreaming bool
}

// NewOracle returns the Profile for an Oracle target.
func NewOracle() Profile { return &oracleProfile{} }

func (p *oracleProfile) Name() string           { return "Oracle" }
func (p *oracleProfile) Product() types.Product { return types.ProductOracle }
func (p *oracleProfile) BindStyle() BindStyle   { return BindNamedColon }

func (p *oracleProfile) Literal(name string) (string, bool) {
	switch name {
	case LiteralTrue:
		return "1", true
	case LiteralFalse:
		return "0", true
	case LiteralOctetLength:
		// LENGTHB returns the length in bytes, matching OCTET_LENGTH;
		// LENGTH on a RAW/BLOB column is character-set dependent.
		return "LENGTHB", true
	default:
		return "", false
	}
}

func (p *oracleProfile) CreateTempTableDDL(table string) string {
	return "CREATE GLOBAL TEMPORARY TABLE " + table +
		" (zoid NUMBER(20) NOT NULL) ON COMMIT DELETE ROWS;" +
		"CREATE UNIQUE INDEX " + table + "_zoid ON " + table + " (zoid)"
}

func (p *oracleProfile) CommitLockDDL() string {
	return "LOCK TABLE commit_lock IN EXCLUSIVE MODE"
}

func (p *oracleProfile) ReliableRowcount() bool { return true }

func (p *oracleProfile) ProgressProbeQuery() string {
	return "SELECT 1 FROM pack_object WHERE keep = 1 AND keep_tid IS NULL AND ROWNUM = 1"
}

// PrepareBlobCursor is a no-op: with no Oracle driver bound, there is
// no cursor output policy to set, and it does not consult
// forceStreaming. The inline-then-streaming retry itself lives in
// script.Runner.RunLOB.
func (p *oracleProfile) PrepareBlobCursor(_ context.Context, _ types.Querier) error {
	return nil
}

// ReadBlob reads either the inline []byte RunLOB already obtained, or
// an io.Reader-shaped LOB handle (the Go equivalent of a cx_Oracle LOB
// or godror.Lob) by draining it.
func (p *oracleProfile) ReadBlob(cell any) ([]byte, error) {
	return readStreamed(cell)
}

// IsTruncated recognizes ORA-01406 ("fetched column value was
// truncated"), the exact error run_lob_stmt retries around in the
// original adapter.
func (p *oracleProfile) IsTruncated(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ORA-01406")
}

// ForceStreaming reports the value last set by SetForceStreaming.
// IsTruncated does not set it, and script.Runner does not read it.
func (p *oracleProfile) ForceStreaming() bool { return p.forceStreaming }

// SetForceStreaming latches or clears the streaming preference.
func (p *oracleProfile) SetForceStreaming(v bool) { p.forceStreaming = v }
