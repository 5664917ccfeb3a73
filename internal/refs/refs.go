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

// Package refs provides reference implementations of
// types.RefExtractor. The engine itself never decodes an object's
// pickled state -- that format is owned by the caller's storage
// layer -- but a small, dependency-free extractor is useful for tests
// and as a template for a real one.
package refs

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/relstore/packd/internal/types"
)

// FixedWidthExtractor decodes a state encoded as a big-endian uint32
// reference count followed by that many big-endian uint64 OIDs. It is
// the format Encode produces, which the pack tests use to build
// fixture object states, and is deliberately trivial: real
// deployments supply their own
// RefExtractor that understands their actual pickle or protobuf
// encoding.
type FixedWidthExtractor struct{}

// ExtractRefs implements types.RefExtractor.
func (FixedWidthExtractor) ExtractRefs(state []byte) ([]types.OID, error) {
	if len(state) == 0 {
		return nil, nil
	}
	if len(state) < 4 {
		return nil, errors.New("refs: state too short for a reference count")
	}
	count := binary.BigEndian.Uint32(state[:4])
	state = state[4:]

	want := int(count) * 8
	if len(state) < want {
		return nil, errors.Errorf("refs: state declares %d references but only has room for %d", count, len(state)/8)
	}

	out := make([]types.OID, count)
	for i := range out {
		out[i] = types.OID(binary.BigEndian.Uint64(state[i*8 : i*8+8]))
	}
	return out, nil
}

// Encode is the inverse of ExtractRefs, used by tests to build fixture
// states without duplicating the wire format.
func Encode(refs []types.OID) []byte {
	buf := make([]byte, 4+8*len(refs))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(refs)))
	for i, r := range refs {
		binary.BigEndian.PutUint64(buf[4+i*8:4+i*8+8], uint64(r))
	}
	return buf
}

// None is a types.RefExtractor that reports no references for every
// state. It is useful with gc=false pre-pack runs, which never invoke
// the extractor, and in tests that only exercise the non-GC path.
var None = types.RefExtractorFunc(func([]byte) ([]types.OID, error) {
	return nil, nil
})
