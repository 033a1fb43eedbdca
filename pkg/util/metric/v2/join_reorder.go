// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v2

import "github.com/prometheus/client_golang/prometheus"

// join_reorder.go observes the dphyp join reorder optimizer

var (
	joinReorderCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "join_reorder",
			Name:      "total",
			Help:      "Total number of join reorder invocations by outcome.",
		}, []string{"type"})
	JoinReorderOptimizedCounter = joinReorderCounter.WithLabelValues("optimized")
	JoinReorderFallbackCounter  = joinReorderCounter.WithLabelValues("fallback")
	JoinReorderErrorCounter     = joinReorderCounter.WithLabelValues("error")

	JoinReorderDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "join_reorder",
			Name:      "duration_seconds",
			Help:      "Bucketed histogram of join reorder duration.",
			Buckets:   getDurationBuckets(),
		})

	JoinReorderRelationsHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "join_reorder",
			Name:      "relations",
			Help:      "Bucketed histogram of the number of relations in a join region.",
			Buckets:   prometheus.LinearBuckets(1, 2, 16),
		})

	JoinReorderCsgCmpPairsHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "join_reorder",
			Name:      "csg_cmp_pairs",
			Help:      "Bucketed histogram of the csg-cmp pairs emitted by one enumeration.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 20),
		})

	JoinReorderParallelTaskCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "join_reorder",
			Name:      "parallel_task_total",
			Help:      "Total number of sub-plans optimized by independent workers.",
		})
)
