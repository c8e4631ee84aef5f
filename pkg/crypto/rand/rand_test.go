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

package rand

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver(t *testing.T) {
	tests := []struct {
		name     string
		config   interface{}
		wantMode Mode
		wantErr  bool
	}{
		{name: "nil config", config: nil, wantMode: ModeSoftware},
		{name: "auto mode", config: ModeAuto, wantMode: ModeSoftware},
		{name: "software mode", config: ModeSoftware, wantMode: ModeSoftware},
		{name: "nil *Config", config: (*Config)(nil), wantMode: ModeSoftware},
		{name: "empty *Config", config: &Config{}, wantMode: ModeSoftware},
		{name: "unknown mode", config: Mode("quantum"), wantErr: true},
		{name: "unsupported type", config: 42, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, tt.wantMode, r.Mode())
			assert.True(t, r.Available())
		})
	}
}

func TestSoftware_NextBytes(t *testing.T) {
	r := Software()

	a := make([]byte, 32)
	b := make([]byte, 32)
	require.NoError(t, r.NextBytes(a))
	require.NoError(t, r.NextBytes(b))

	assert.NotEqual(t, make([]byte, 32), a)
	assert.NotEqual(t, a, b)
}

func TestBytes(t *testing.T) {
	buf, err := Bytes(Software(), 17)
	require.NoError(t, err)
	assert.Len(t, buf, 17)
}

func TestFromReader_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0xAB}, 64)
	r := FromReader(bytes.NewReader(seed))

	buf := make([]byte, 16)
	require.NoError(t, r.NextBytes(buf))
	assert.Equal(t, seed[:16], buf)

	// Exhausted readers fail instead of returning short data.
	big := make([]byte, 64)
	assert.Error(t, r.NextBytes(big))
}

func TestResolver_IsIOReader(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), Software())
	require.NoError(t, err)
	assert.NotNil(t, key)
}

type failingResolver struct {
	softwareResolver
	closed bool
}

func (f *failingResolver) NextBytes([]byte) error { return errors.New("device busy") }
func (f *failingResolver) Available() bool        { return false }
func (f *failingResolver) Close() error {
	f.closed = true
	return nil
}

func TestFallbackResolver(t *testing.T) {
	primary := &failingResolver{}
	r := &fallbackResolver{primary: primary, fallback: Software()}

	buf := make([]byte, 8)
	require.NoError(t, r.NextBytes(buf))
	assert.Equal(t, ModeSoftware, r.Mode())
	assert.True(t, r.Available())

	require.NoError(t, r.Close())
	assert.True(t, primary.closed)
}

func TestNewResolver_HardwareNotCompiled(t *testing.T) {
	if tpm2Available() || pkcs11Available() {
		t.Skip("hardware sources compiled in")
	}
	_, err := NewResolver(ModeTPM2)
	assert.ErrorIs(t, err, ErrNotCompiled)

	_, err = NewResolver(&Config{Mode: ModePKCS11, PKCS11: &PKCS11Config{Module: "/nonexistent.so"}})
	assert.ErrorIs(t, err, ErrNotCompiled)

	// Auto mode silently uses software when nothing else is compiled.
	r, err := NewResolver(&Config{Mode: ModeAuto, TPM2: &TPM2Config{}})
	require.NoError(t, err)
	assert.Equal(t, ModeSoftware, r.Mode())
}

func TestNewResolver_WithFallback(t *testing.T) {
	r, err := NewResolver(&Config{Mode: ModeAuto, FallbackMode: ModeSoftware})
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 4)
	assert.NoError(t, r.NextBytes(buf))
}
