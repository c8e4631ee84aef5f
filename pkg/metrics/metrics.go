// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoprovider.
//
// go-cryptoprovider is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for algorithm
// resolution, provider initialization and capability operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all metrics
	Namespace = "cryptoprovider"

	// Label names
	LabelAlgorithm = "algorithm"
	LabelProvider  = "provider"
	LabelOperation = "operation"
	LabelStatus    = "status"

	// Status values
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"

	// Operation names
	OpHash        = "hash"
	OpSign        = "sign"
	OpVerify      = "verify"
	OpEncrypt     = "encrypt"
	OpDecrypt     = "decrypt"
	OpGenerateKey = "generate_key"
	OpDecodeKey   = "decode_key"
	OpEncodeKey   = "encode_key"
	OpDerive      = "derive"
)

// Recorder receives instrumentation events. Implementations must be safe
// for concurrent use.
type Recorder interface {
	// RecordResolution counts one identity resolution. provider is empty
	// when no provider resolved the identity.
	RecordResolution(algorithm, provider, status string)

	// RecordProviderInit counts one lazy provider initialization.
	RecordProviderInit(provider, status string)

	// RecordOperation counts one capability operation and its duration.
	RecordOperation(operation, status string, duration time.Duration)
}

// PrometheusRecorder is a Recorder backed by Prometheus collectors.
type PrometheusRecorder struct {
	resolutions       *prometheus.CounterVec
	initializations   *prometheus.CounterVec
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "resolutions_total",
				Help:      "Total number of algorithm resolutions by algorithm, provider, and status",
			},
			[]string{LabelAlgorithm, LabelProvider, LabelStatus},
		),
		initializations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "provider_initializations_total",
				Help:      "Total number of lazy provider initializations by provider and status",
			},
			[]string{LabelProvider, LabelStatus},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Total number of capability operations by type and status",
			},
			[]string{LabelOperation, LabelStatus},
		),
		// Buckets span in-memory digests through remote KMS round trips.
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of capability operations in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{LabelOperation},
		),
	}
}

// RecordResolution implements Recorder.
func (r *PrometheusRecorder) RecordResolution(algorithm, provider, status string) {
	r.resolutions.WithLabelValues(algorithm, provider, status).Inc()
}

// RecordProviderInit implements Recorder.
func (r *PrometheusRecorder) RecordProviderInit(provider, status string) {
	r.initializations.WithLabelValues(provider, status).Inc()
}

// RecordOperation implements Recorder.
func (r *PrometheusRecorder) RecordOperation(operation, status string, duration time.Duration) {
	r.operations.WithLabelValues(operation, status).Inc()
	r.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

type noOp struct{}

// NoOp discards every event.
var NoOp Recorder = noOp{}

func (noOp) RecordResolution(string, string, string)       {}
func (noOp) RecordProviderInit(string, string)             {}
func (noOp) RecordOperation(string, string, time.Duration) {}

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Observe runs op and records it under operation.
//
// Example:
//
//	sig, err := metrics.Observe(rec, metrics.OpSign, func() ([]byte, error) {
//	    return signer.SignContext(ctx, data)
//	})
func Observe[T any](rec Recorder, operation string, op func() (T, error)) (T, error) {
	if rec == nil {
		rec = NoOp
	}
	start := time.Now()
	v, err := op()
	rec.RecordOperation(operation, Status(err), time.Since(start))
	return v, err
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for the node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
