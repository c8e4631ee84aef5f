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

//go:build azurekv

package azurekv

import (
	"fmt"
	"strings"
)

// Config contains configuration for the Azure Key Vault service.
// It specifies the vault URL and optional authentication credentials.
type Config struct {
	// VaultURL is the Azure Key Vault or Managed HSM URL.
	// Format: https://{vault-name}.vault.azure.net/ or
	// https://{hsm-name}.managedhsm.azure.net/
	// Required.
	VaultURL string `yaml:"vault_url" json:"vault_url" mapstructure:"vault_url"`

	// TenantID is the Azure Active Directory tenant ID.
	// Optional - if not provided, will use DefaultAzureCredential.
	TenantID string `yaml:"tenant_id,omitempty" json:"tenant_id,omitempty" mapstructure:"tenant_id"`

	// ClientID is the Azure service principal client ID.
	// Optional - if not provided, will use DefaultAzureCredential.
	ClientID string `yaml:"client_id,omitempty" json:"client_id,omitempty" mapstructure:"client_id"`

	// ClientSecret is the Azure service principal client secret.
	// Optional - if not provided, will use DefaultAzureCredential.
	ClientSecret string `yaml:"client_secret,omitempty" json:"client_secret,omitempty" mapstructure:"client_secret"`

	// ManagedHSM creates HSM-protected key types and enables AES-GCM.
	// It is implied by a managedhsm.azure.net URL.
	ManagedHSM bool `yaml:"managed_hsm,omitempty" json:"managed_hsm,omitempty" mapstructure:"managed_hsm"`
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if c.VaultURL == "" {
		return fmt.Errorf("%w: vault URL is required", ErrInvalidConfig)
	}
	if !isValidVaultURL(c.VaultURL) {
		return fmt.Errorf("%w: %s", ErrInvalidVaultURL, c.VaultURL)
	}

	// If service principal credentials are provided, all three must be present
	hasClientID := c.ClientID != ""
	hasClientSecret := c.ClientSecret != ""
	hasTenantID := c.TenantID != ""
	if hasClientID || hasClientSecret || hasTenantID {
		if !hasClientID || !hasClientSecret || !hasTenantID {
			return fmt.Errorf("%w: tenant_id, client_id, and client_secret must all be provided together", ErrInvalidConfig)
		}
	}
	return nil
}

// IsManagedHSM reports whether keys live in a Managed HSM.
func (c *Config) IsManagedHSM() bool {
	return c.ManagedHSM || strings.Contains(c.VaultURL, ".managedhsm.azure.net")
}

// String returns a string representation of the config with sensitive data masked.
// Credentials are masked with asterisks to prevent accidental exposure in logs.
func (c *Config) String() string {
	return fmt.Sprintf("Azure Key Vault Config{VaultURL: %s, TenantID: %s, ClientID: %s, ClientSecret: %s, ManagedHSM: %t}",
		c.VaultURL, maskID(c.TenantID), maskID(c.ClientID), maskSecret(c.ClientSecret), c.IsManagedHSM())
}

func maskID(s string) string {
	switch {
	case s == "":
		return "<not set>"
	case len(s) > 4:
		return "****" + s[len(s)-4:]
	}
	return "****"
}

func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	return "****"
}

// isValidVaultURL performs basic validation of the vault URL format.
func isValidVaultURL(url string) bool {
	if !strings.HasPrefix(url, "https://") {
		return false
	}
	url = strings.TrimPrefix(url, "https://")

	// Allow localhost for testing
	if strings.HasPrefix(url, "localhost") || strings.HasPrefix(url, "127.0.0.1") {
		return true
	}

	for _, domain := range []string{
		".vault.azure.net",
		".managedhsm.azure.net",
		".vault.azure.cn",
		".vault.usgovcloudapi.net",
		".vault.microsoftazure.de",
	} {
		if strings.Contains(url, domain) {
			return true
		}
	}
	return false
}
