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

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_RecordResolution(t *testing.T) {
	rec := NewPrometheusRecorder(nil)

	rec.RecordResolution("SHA-256", "software", StatusSuccess)
	rec.RecordResolution("SHA-256", "software", StatusSuccess)
	rec.RecordResolution("HMAC", "", StatusNotFound)

	assert.Equal(t, 2, testutil.CollectAndCount(rec.resolutions))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.resolutions.WithLabelValues("SHA-256", "software", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.resolutions.WithLabelValues("HMAC", "", StatusNotFound)))
}

func TestPrometheusRecorder_RecordProviderInit(t *testing.T) {
	rec := NewPrometheusRecorder(nil)

	rec.RecordProviderInit("pkcs11", StatusError)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.initializations.WithLabelValues("pkcs11", StatusError)))
}

func TestPrometheusRecorder_RecordOperation(t *testing.T) {
	rec := NewPrometheusRecorder(nil)

	rec.RecordOperation(OpSign, StatusSuccess, 5*time.Millisecond)
	rec.RecordOperation(OpSign, StatusError, time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(rec.operations))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.operationDuration))
}

func TestPrometheusRecorder_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.RecordResolution("SHA-256", "software", StatusSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "cryptoprovider_resolutions_total")
}

func TestObserve(t *testing.T) {
	rec := NewPrometheusRecorder(nil)

	v, err := Observe(rec, OpHash, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Observe(rec, OpHash, func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues(OpHash, StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues(OpHash, StatusError)))
}

func TestObserve_NilRecorder(t *testing.T) {
	v, err := Observe(nil, OpHash, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestNoOp(t *testing.T) {
	assert.NotPanics(t, func() {
		NoOp.RecordResolution("a", "b", StatusSuccess)
		NoOp.RecordProviderInit("b", StatusError)
		NoOp.RecordOperation(OpDerive, StatusSuccess, time.Second)
	})
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.RecordOperation(OpEncrypt, StatusSuccess, time.Millisecond)

	path := filepath.Join(t.TempDir(), "cryptoprovider.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `cryptoprovider_operations_total{operation="encrypt",status="success"} 1`))
}
