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

package refs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relstore/packd/internal/refs"
	"github.com/relstore/packd/internal/types"
)

func TestFixedWidthExtractorRoundTrip(t *testing.T) {
	want := []types.OID{1, 2, 3, 400}
	encoded := refs.Encode(want)

	var e refs.FixedWidthExtractor
	got, err := e.ExtractRefs(encoded)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFixedWidthExtractorEmptyState(t *testing.T) {
	var e refs.FixedWidthExtractor
	got, err := e.ExtractRefs(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFixedWidthExtractorTruncated(t *testing.T) {
	var e refs.FixedWidthExtractor
	_, err := e.ExtractRefs([]byte{0, 0, 0, 2, 1, 2, 3})
	assert.Error(t, err)
}

func TestNoneExtractor(t *testing.T) {
	got, err := refs.None.ExtractRefs([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Nil(t, got)
}
