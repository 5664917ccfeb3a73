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
	"database/sql"
	"io"

	"github.com/pkg/errors"
)

// readInlineBytes handles the common case of a backend that always
// decodes a blob/bytea/BLOB column straight into []byte (or NULL),
// with no separate streaming mode. Shared by the profiles that don't
// have LOB-handle quirks.
func readInlineBytes(cell any) ([]byte, error) {
	switch v := cell.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case sql.RawBytes:
		// Copy: RawBytes is only valid until the next Scan/Next call.
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.Errorf("unsupported blob cell type %T", cell)
	}
}

// readStreamed handles a backend that may hand back either an inline
// []byte or a streamable handle (modeled after cx_Oracle's LOB and
// Go's io.Reader-shaped equivalents such as godror.Lob).
func readStreamed(cell any) ([]byte, error) {
	if r, ok := cell.(io.Reader); ok {
		return io.ReadAll(r)
	}
	return readInlineBytes(cell)
}
