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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"software"}, cfg.EnabledProviders())
	assert.Equal(t, 100, cfg.Providers.PKCS11.Priority)
	assert.Equal(t, 75, cfg.Providers.TPM2.Priority)
	assert.Equal(t, "transit", cfg.Providers.Vault.TransitPath)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
metrics:
  enabled: true
  textfile_path: /tmp/cryptoprovider.prom
providers:
  software:
    enabled: true
  vault:
    enabled: true
    priority: 60
    address: http://127.0.0.1:8200
    token: root
    remote:
      workers: 4
      requests_per_second: 25
  gcpkms:
    key_timeout: 90s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"software", "vault"}, cfg.EnabledProviders())

	v := cfg.Providers.Vault
	assert.Equal(t, 60, v.Priority)
	assert.Equal(t, "http://127.0.0.1:8200", v.Address)
	assert.Equal(t, "transit", v.TransitPath, "unset keys keep their defaults")
	assert.Equal(t, 4, v.Remote.Workers)
	assert.Equal(t, 25.0, v.Remote.RequestsPerSecond)
	assert.Equal(t, 90*time.Second, cfg.Providers.GCPKMS.KeyTimeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
providers:
  pkcs11:
    enabled: true
    library: /usr/lib/softhsm/libsofthsm2.so
    token_label: file-token
`)
	t.Setenv("CRYPTOPROVIDER_PROVIDERS_PKCS11_PIN", "1234")
	t.Setenv("CRYPTOPROVIDER_PROVIDERS_PKCS11_TOKEN_LABEL", "env-token")
	t.Setenv("CRYPTOPROVIDER_LOGGING_LEVEL", "warn")
	t.Setenv("CRYPTOPROVIDER_PROVIDERS_SOFTWARE_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1234", cfg.Providers.PKCS11.PIN)
	assert.Equal(t, "env-token", cfg.Providers.PKCS11.TokenLabel)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, []string{"pkcs11"}, cfg.EnabledProviders())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrReadConfig)

	_, err = Load(writeConfig(t, "logging: [unclosed"))
	assert.ErrorIs(t, err, ErrReadConfig)

	_, err = Load(writeConfig(t, "logging:\n  level: loud\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad rand mode", func(c *Config) { c.Rand.Mode = "dice" }},
		{"bad fallback mode", func(c *Config) { c.Rand.FallbackMode = "dice" }},
		{"metrics without path", func(c *Config) { c.Metrics.Enabled = true }},
		{"nothing enabled", func(c *Config) { c.Providers.Software.Enabled = false }},
		{"pkcs11 without library", func(c *Config) { c.Providers.PKCS11.Enabled = true }},
		{"tpm2 without target", func(c *Config) {
			c.Providers.TPM2.Enabled = true
			c.Providers.TPM2.Device = ""
		}},
		{"awskms without region", func(c *Config) { c.Providers.AWSKMS.Enabled = true }},
		{"gcpkms without key ring", func(c *Config) {
			c.Providers.GCPKMS.Enabled = true
			c.Providers.GCPKMS.ProjectID = "p"
		}},
		{"azurekv without url", func(c *Config) { c.Providers.AzureKV.Enabled = true }},
		{"vault without address", func(c *Config) { c.Providers.Vault.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Providers.AWSKMS.Enabled = true
	cfg.Providers.AWSKMS.Region = "us-east-1"
	cfg.Providers.AWSKMS.Remote.Workers = 8
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestOnly(t *testing.T) {
	cfg := Default()
	cfg.Providers.Vault.Enabled = true

	require.True(t, cfg.Only("tpm2"))
	assert.Equal(t, []string{"tpm2"}, cfg.EnabledProviders())

	assert.False(t, cfg.Only("pkcs8"))
	assert.Equal(t, []string{"tpm2"}, cfg.EnabledProviders())
}
