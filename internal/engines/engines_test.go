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

//go:build !vault

package engines

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

func TestBuild_Default(t *testing.T) {
	set, err := Build(config.Default(), Options{})
	require.NoError(t, err)
	defer set.Close()

	regs := set.Registry.Providers()
	require.Len(t, regs, 1)
	assert.Equal(t, "software", regs[0].Provider.Name())
	assert.Equal(t, types.ProviderPending, regs[0].Provider.State())
	assert.Equal(t, rand.ModeSoftware, set.Rand.Mode())

	d, name, err := provider.ResolveWithProvider[algorithm.Digest](set.Registry, ids.SHA256)
	require.NoError(t, err)
	assert.Equal(t, "software", name)
	got, err := d.Hasher().Hash([]byte("abc"))
	require.NoError(t, err)
	want := sha256.Sum256([]byte("abc"))
	assert.Equal(t, want[:], got)
	assert.Equal(t, types.ProviderReady, regs[0].Provider.State())
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Software.Enabled = false
	_, err := Build(cfg, Options{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBuild_EngineNotCompiled(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Vault.Enabled = true
	cfg.Providers.Vault.Address = "http://127.0.0.1:8200"

	set, err := Build(cfg, Options{Rand: rand.Software()})
	require.NoError(t, err)
	defer set.Close()

	regs := set.Registry.Providers()
	require.Len(t, regs, 2)
	assert.Equal(t, "vault", regs[0].Provider.Name(), "higher priority first")

	d, name, err := provider.ResolveWithProvider[algorithm.Digest](set.Registry, ids.SHA256)
	require.NoError(t, err, "software answers below the failed slot")
	assert.Equal(t, "software", name)
	assert.NotNil(t, d)
	assert.Equal(t, types.ProviderFailed, regs[0].Provider.State())
	assert.ErrorIs(t, regs[0].Provider.Err(), ErrNotCompiled)

	assert.NotContains(t, Compiled(), "vault")
	assert.Contains(t, Compiled(), "software")
}

func TestBuild_EngineNotCompiledOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Vault.Address = "http://127.0.0.1:8200"
	require.True(t, cfg.Only("vault"))

	set, err := Build(cfg, Options{Rand: rand.Software()})
	require.NoError(t, err)
	defer set.Close()

	_, err = provider.Resolve[algorithm.Digest](set.Registry, ids.SHA256)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotCompiled)
	assert.ErrorIs(t, err, types.ErrProviderInitializationFailed)
	assert.ErrorIs(t, err, types.ErrAlgorithmNotFound)
}

func TestBuild_OnlyOverridesPriority(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Vault.Enabled = true
	cfg.Providers.Vault.Address = "http://127.0.0.1:8200"
	require.True(t, cfg.Only("software"))

	set, err := Build(cfg, Options{})
	require.NoError(t, err)
	defer set.Close()

	_, err = provider.Resolve[algorithm.Digest](set.Registry, ids.SHA256)
	assert.NoError(t, err)
}

type countingCloser struct{ n *int }

func (c countingCloser) Close() error {
	*c.n++
	return nil
}

func TestSet_Close(t *testing.T) {
	set, err := Build(config.Default(), Options{})
	require.NoError(t, err)

	var closed int
	set.track(countingCloser{&closed})
	require.NoError(t, set.Close())
	require.NoError(t, set.Close())
	assert.Equal(t, 1, closed)

	set.track(countingCloser{&closed})
	assert.Equal(t, 2, closed, "engines initialized after Close are closed at once")
}

func TestRandConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Rand = config.RandConfig{Mode: "pkcs11", FallbackMode: "software"}
	cfg.Providers.PKCS11.Library = "/usr/lib/softhsm/libsofthsm2.so"
	cfg.Providers.PKCS11.Slot = 3
	cfg.Providers.PKCS11.PIN = "1234"

	rc := randConfig(cfg)
	assert.Equal(t, rand.ModePKCS11, rc.Mode)
	assert.Equal(t, rand.ModeSoftware, rc.FallbackMode)
	require.NotNil(t, rc.PKCS11)
	assert.Equal(t, uint(3), rc.PKCS11.SlotID)
	require.NotNil(t, rc.TPM2)
	assert.Equal(t, "/dev/tpmrm0", rc.TPM2.Device)
}
