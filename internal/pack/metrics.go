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

package pack

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/relstore/packd/internal/util/metrics"
)

var (
	prePackDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pack_prepack_duration_seconds",
		Help:    "the length of time a pre-pack analysis run took, end to end",
		Buckets: metrics.LatencyBuckets,
	}, metrics.DialectLabels)
	prePackErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pack_prepack_errors_total",
		Help: "the number of pre-pack runs that failed",
	}, metrics.DialectLabels)
	prePackVisited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pack_gc_objects_visited_total",
		Help: "the number of distinct object ids visited while tracing reachability",
	}, metrics.DialectLabels)

	packDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pack_execute_duration_seconds",
		Help:    "the length of time a pack execution run took, end to end",
		Buckets: metrics.LatencyBuckets,
	}, metrics.DialectLabels)
	packErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pack_execute_errors_total",
		Help: "the number of pack execution runs that failed",
	}, metrics.DialectLabels)
	packRowsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pack_rows_deleted_total",
		Help: "the number of rows removed from a packed table",
	}, metrics.PhaseLabels)
	packDutyCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pack_duty_cycle_pauses_total",
		Help: "the number of times the pack loop invoked its Sleeper between table batches",
	}, metrics.DialectLabels)
)

// Metrics curries the package's shared collectors with a dialect
// label so callers in this package don't repeat WithLabelValues.
type Metrics struct {
	dialect string
}

// NewMetrics returns a Metrics curried for the given dialect name.
func NewMetrics(dialect string) *Metrics {
	return &Metrics{dialect: dialect}
}

func (m *Metrics) prePackDuration() prometheus.Observer {
	return prePackDurations.WithLabelValues(m.dialect)
}

func (m *Metrics) prePackError() prometheus.Counter {
	return prePackErrors.WithLabelValues(m.dialect)
}

func (m *Metrics) visited(n int) {
	prePackVisited.WithLabelValues(m.dialect).Add(float64(n))
}

func (m *Metrics) packDuration() prometheus.Observer {
	return packDurations.WithLabelValues(m.dialect)
}

func (m *Metrics) packError() prometheus.Counter {
	return packErrors.WithLabelValues(m.dialect)
}

func (m *Metrics) rowsDeleted(phase string, n int64) {
	if n <= 0 {
		return
	}
	packRowsDeleted.WithLabelValues(m.dialect, phase).Add(float64(n))
}

func (m *Metrics) dutyCycle() {
	packDutyCycles.WithLabelValues(m.dialect).Inc()
}
