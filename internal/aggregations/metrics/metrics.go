// Copyright 2021 FerretDB Inc.
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

// Package metrics exposes Prometheus metrics for the aggregation pipeline
// driver: per-stage call counts, failures, and latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "aggpipe"
	subsystem = "pipeline"
)

// Metrics holds the pipeline driver's Prometheus collectors.
type Metrics struct {
	stages   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     prometheus.Counter
}

// NewMetrics creates new, unregistered Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_total",
				Help:      "Total number of pipeline stages executed, by stage name and result.",
			},
			[]string{"stage", "result"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Stage execution duration in seconds, by stage name.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		runs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of aggregate() pipeline runs.",
			},
		),
	}
}

// Describe implements [prometheus.Collector].
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.stages.Describe(ch)
	m.duration.Describe(ch)
	m.runs.Describe(ch)
}

// Collect implements [prometheus.Collector].
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.stages.Collect(ch)
	m.duration.Collect(ch)
	m.runs.Collect(ch)
}

// ObserveStage records one stage execution's outcome and duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.stages.With(prometheus.Labels{"stage": stage, "result": result}).Inc()
	m.duration.With(prometheus.Labels{"stage": stage}).Observe(d.Seconds())
}

// ObserveRun records the start of one aggregate() call.
func (m *Metrics) ObserveRun() {
	m.runs.Inc()
}

// check interfaces
var (
	_ prometheus.Collector = (*Metrics)(nil)
)
