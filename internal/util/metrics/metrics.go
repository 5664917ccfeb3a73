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

// Package metrics holds shared Prometheus bucket definitions and label
// names so every package's promauto collectors stay consistent with
// one another.
package metrics

// LatencyBuckets is shared by every duration histogram in this
// module, from sub-millisecond script statements up to multi-minute
// pack runs against a large object_ref table.
var LatencyBuckets = []float64{
	.001, .002, .005, .01, .02, .05, .1, .2, .5, 1, 2, 5, 10, 20, 50, 100, 200, 500,
}

// DialectLabels is attached to metrics that vary per dialect.Profile,
// such as statement counts and delete-phase durations.
var DialectLabels = []string{"dialect"}

// PhaseLabels is attached to metrics that vary per pack phase so a
// dashboard can break down where time is spent within one pack run.
var PhaseLabels = []string{"dialect", "phase"}
