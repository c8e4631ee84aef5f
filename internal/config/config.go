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

// Package config loads the cryptoprovider CLI configuration.
//
// Values come from a YAML file and CRYPTOPROVIDER_* environment variables,
// in that order of precedence from lowest to highest. Nested keys map to
// environment names by upper-casing and replacing dots with underscores:
//
//	providers.pkcs11.pin  ->  CRYPTOPROVIDER_PROVIDERS_PKCS11_PIN
//
// Engine settings are plain values here; internal/engines turns them into
// the engine package configurations.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRYPTOPROVIDER"

var (
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrReadConfig is returned when the file cannot be read or parsed.
	ErrReadConfig = errors.New("config: cannot read configuration")
)

// Config is the complete CLI configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Rand      RandConfig      `yaml:"rand" mapstructure:"rand"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// MetricsConfig controls the prometheus textfile dump.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

// RandConfig selects the randomness source handed to every engine.
type RandConfig struct {
	Mode         string `yaml:"mode" mapstructure:"mode"` // auto, software, tpm2, pkcs11
	FallbackMode string `yaml:"fallback_mode" mapstructure:"fallback_mode"`
}

// Registration holds the settings every provider has.
type Registration struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	Priority int  `yaml:"priority" mapstructure:"priority"`
}

// ProvidersConfig contains configuration for every engine.
type ProvidersConfig struct {
	Software SoftwareConfig `yaml:"software" mapstructure:"software"`
	PKCS11   PKCS11Config   `yaml:"pkcs11" mapstructure:"pkcs11"`
	TPM2     TPM2Config     `yaml:"tpm2" mapstructure:"tpm2"`
	AWSKMS   AWSKMSConfig   `yaml:"awskms" mapstructure:"awskms"`
	GCPKMS   GCPKMSConfig   `yaml:"gcpkms" mapstructure:"gcpkms"`
	AzureKV  AzureKVConfig  `yaml:"azurekv" mapstructure:"azurekv"`
	Vault    VaultConfig    `yaml:"vault" mapstructure:"vault"`
}

// SoftwareConfig contains software engine settings.
type SoftwareConfig struct {
	Registration         `yaml:",inline" mapstructure:",squash"`
	DisableNonceTracking bool  `yaml:"disable_nonce_tracking" mapstructure:"disable_nonce_tracking"`
	AEADBytesLimit       int64 `yaml:"aead_bytes_limit" mapstructure:"aead_bytes_limit"`
}

// PKCS11Config contains PKCS#11 engine settings.
type PKCS11Config struct {
	Registration `yaml:",inline" mapstructure:",squash"`
	Library      string `yaml:"library" mapstructure:"library"`
	TokenLabel   string `yaml:"token_label" mapstructure:"token_label"`
	Slot         int    `yaml:"slot" mapstructure:"slot"` // used when TokenLabel is empty
	PIN          string `yaml:"pin" mapstructure:"pin"`
	MaxSessions  int    `yaml:"max_sessions" mapstructure:"max_sessions"`
}

// TPM2Config contains TPM 2.0 engine settings.
type TPM2Config struct {
	Registration  `yaml:",inline" mapstructure:",squash"`
	Device        string `yaml:"device" mapstructure:"device"`
	SimulatorHost string `yaml:"simulator_host" mapstructure:"simulator_host"`
	SimulatorPort int    `yaml:"simulator_port" mapstructure:"simulator_port"`
	MaxBufferSize int    `yaml:"max_buffer_size" mapstructure:"max_buffer_size"`
}

// RemoteConfig holds the request pool settings shared by the cloud
// engines.
type RemoteConfig struct {
	Workers           int     `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// AWSKMSConfig contains AWS KMS engine settings.
type AWSKMSConfig struct {
	Registration    `yaml:",inline" mapstructure:",squash"`
	Remote          RemoteConfig `yaml:"remote" mapstructure:"remote"`
	Region          string       `yaml:"region" mapstructure:"region"`
	AccessKeyID     string       `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string       `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	SessionToken    string       `yaml:"session_token" mapstructure:"session_token"`
	Endpoint        string       `yaml:"endpoint" mapstructure:"endpoint"`
}

// GCPKMSConfig contains Google Cloud KMS engine settings.
type GCPKMSConfig struct {
	Registration    `yaml:",inline" mapstructure:",squash"`
	Remote          RemoteConfig  `yaml:"remote" mapstructure:"remote"`
	ProjectID       string        `yaml:"project_id" mapstructure:"project_id"`
	LocationID      string        `yaml:"location_id" mapstructure:"location_id"`
	KeyRingID       string        `yaml:"key_ring_id" mapstructure:"key_ring_id"`
	CredentialsFile string        `yaml:"credentials_file" mapstructure:"credentials_file"`
	Endpoint        string        `yaml:"endpoint" mapstructure:"endpoint"`
	KeyTimeout      time.Duration `yaml:"key_timeout" mapstructure:"key_timeout"`
}

// AzureKVConfig contains Azure Key Vault engine settings.
type AzureKVConfig struct {
	Registration `yaml:",inline" mapstructure:",squash"`
	Remote       RemoteConfig `yaml:"remote" mapstructure:"remote"`
	VaultURL     string       `yaml:"vault_url" mapstructure:"vault_url"`
	TenantID     string       `yaml:"tenant_id" mapstructure:"tenant_id"`
	ClientID     string       `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string       `yaml:"client_secret" mapstructure:"client_secret"`
	ManagedHSM   bool         `yaml:"managed_hsm" mapstructure:"managed_hsm"`
}

// VaultConfig contains HashiCorp Vault Transit engine settings.
type VaultConfig struct {
	Registration  `yaml:",inline" mapstructure:",squash"`
	Remote        RemoteConfig `yaml:"remote" mapstructure:"remote"`
	Address       string       `yaml:"address" mapstructure:"address"`
	Token         string       `yaml:"token" mapstructure:"token"`
	TransitPath   string       `yaml:"transit_path" mapstructure:"transit_path"`
	Namespace     string       `yaml:"namespace" mapstructure:"namespace"`
	TLSSkipVerify bool         `yaml:"tls_skip_verify" mapstructure:"tls_skip_verify"`
}

// Default returns a configuration with only the software engine enabled.
// Disabled engines carry their default priorities so enabling one is a
// single setting.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Rand:    RandConfig{Mode: "software"},
		Providers: ProvidersConfig{
			Software: SoftwareConfig{Registration: Registration{Enabled: true, Priority: 0}},
			PKCS11:   PKCS11Config{Registration: Registration{Priority: 100}},
			TPM2:     TPM2Config{Registration: Registration{Priority: 75}, Device: "/dev/tpmrm0"},
			AWSKMS:   AWSKMSConfig{Registration: Registration{Priority: 50}},
			GCPKMS:   GCPKMSConfig{Registration: Registration{Priority: 50}, LocationID: "global"},
			AzureKV:  AzureKVConfig{Registration: Registration{Priority: 50}},
			Vault:    VaultConfig{Registration: Registration{Priority: 50}, TransitPath: "transit"},
		},
	}
}

// Load reads the configuration at path over Default and applies
// environment overrides. An empty path loads the defaults and environment
// only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Seeding viper with every default key lets AutomaticEnv override
	// keys the file does not mention.
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("config: encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrReadConfig, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes c to path as YAML, creating parent directories. The file
// may hold PINs and secrets, so it is only readable by the owner.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, ok := logger.ParseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("%w: log level %q (must be debug, info, warn or error)", ErrInvalidConfig, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q (must be text or json)", ErrInvalidConfig, c.Logging.Format)
	}

	switch c.Rand.Mode {
	case "", "auto", "software", "tpm2", "pkcs11":
	default:
		return fmt.Errorf("%w: rand mode %q", ErrInvalidConfig, c.Rand.Mode)
	}
	switch c.Rand.FallbackMode {
	case "", "auto", "software", "tpm2", "pkcs11":
	default:
		return fmt.Errorf("%w: rand fallback mode %q", ErrInvalidConfig, c.Rand.FallbackMode)
	}

	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		return fmt.Errorf("%w: metrics textfile_path is required when metrics are enabled", ErrInvalidConfig)
	}

	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("%w: at least one provider must be enabled", ErrInvalidConfig)
	}

	p := c.Providers
	if p.PKCS11.Enabled && p.PKCS11.Library == "" {
		return fmt.Errorf("%w: pkcs11 library is required when enabled", ErrInvalidConfig)
	}
	if p.TPM2.Enabled && p.TPM2.Device == "" && p.TPM2.SimulatorHost == "" {
		return fmt.Errorf("%w: tpm2 device or simulator_host is required when enabled", ErrInvalidConfig)
	}
	if p.AWSKMS.Enabled && p.AWSKMS.Region == "" {
		return fmt.Errorf("%w: awskms region is required when enabled", ErrInvalidConfig)
	}
	if p.GCPKMS.Enabled && (p.GCPKMS.ProjectID == "" || p.GCPKMS.KeyRingID == "") {
		return fmt.Errorf("%w: gcpkms project_id and key_ring_id are required when enabled", ErrInvalidConfig)
	}
	if p.AzureKV.Enabled && p.AzureKV.VaultURL == "" {
		return fmt.Errorf("%w: azurekv vault_url is required when enabled", ErrInvalidConfig)
	}
	if p.Vault.Enabled && p.Vault.Address == "" {
		return fmt.Errorf("%w: vault address is required when enabled", ErrInvalidConfig)
	}
	return nil
}

// EnabledProviders returns the names of the enabled providers.
func (c *Config) EnabledProviders() []string {
	var names []string
	p := c.Providers
	if p.Software.Enabled {
		names = append(names, "software")
	}
	if p.PKCS11.Enabled {
		names = append(names, "pkcs11")
	}
	if p.TPM2.Enabled {
		names = append(names, "tpm2")
	}
	if p.AWSKMS.Enabled {
		names = append(names, "awskms")
	}
	if p.GCPKMS.Enabled {
		names = append(names, "gcpkms")
	}
	if p.AzureKV.Enabled {
		names = append(names, "azurekv")
	}
	if p.Vault.Enabled {
		names = append(names, "vault")
	}
	return names
}

// Only disables every provider except name. It reports false when name
// is not a known provider.
func (c *Config) Only(name string) bool {
	p := &c.Providers
	regs := map[string]*Registration{
		"software": &p.Software.Registration,
		"pkcs11":   &p.PKCS11.Registration,
		"tpm2":     &p.TPM2.Registration,
		"awskms":   &p.AWSKMS.Registration,
		"gcpkms":   &p.GCPKMS.Registration,
		"azurekv":  &p.AzureKV.Registration,
		"vault":    &p.Vault.Registration,
	}
	if _, ok := regs[name]; !ok {
		return false
	}
	for n, r := range regs {
		r.Enabled = n == name
	}
	return true
}
