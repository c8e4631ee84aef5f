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

//go:build vault

package vault

import (
	"fmt"
	"net/url"
)

// DefaultTransitPath is the mount path of the Transit secrets engine.
const DefaultTransitPath = "transit"

// Config holds the configuration for the Vault Transit service.
type Config struct {
	// Address is the Vault server address (e.g., "http://127.0.0.1:8200")
	Address string `yaml:"address" json:"address" mapstructure:"address"`

	// Token is the Vault authentication token
	Token string `yaml:"token" json:"token" mapstructure:"token"`

	// TransitPath is the path to the Transit secrets engine (default: "transit")
	TransitPath string `yaml:"transit_path,omitempty" json:"transit_path,omitempty" mapstructure:"transit_path"`

	// Namespace is the Vault namespace (Enterprise feature, optional)
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty" mapstructure:"namespace"`

	// TLSSkipVerify disables TLS certificate verification (not recommended for production)
	TLSSkipVerify bool `yaml:"tls_skip_verify,omitempty" json:"tls_skip_verify,omitempty" mapstructure:"tls_skip_verify"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if c.Address == "" {
		return fmt.Errorf("%w: vault address is required", ErrInvalidConfig)
	}
	if u, err := url.Parse(c.Address); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid vault address %q", ErrInvalidConfig, c.Address)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: vault token is required", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) transitPath() string {
	if c.TransitPath == "" {
		return DefaultTransitPath
	}
	return c.TransitPath
}

// String returns a string representation of the config with the token masked.
func (c *Config) String() string {
	token := "<not set>"
	if c.Token != "" {
		token = "****"
	}
	namespace := c.Namespace
	if namespace == "" {
		namespace = "<root>"
	}
	return fmt.Sprintf("Vault Config{Address: %s, Token: %s, TransitPath: %s, Namespace: %s, TLSSkipVerify: %t}",
		c.Address, token, c.transitPath(), namespace, c.TLSSkipVerify)
}
