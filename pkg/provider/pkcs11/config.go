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

//go:build pkcs11

package pkcs11

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
)

// Config contains configuration for the PKCS#11 provider. It specifies the
// library to load, the token to use and the user PIN.
type Config struct {
	// Library is the path to the PKCS#11 library file.
	// Examples:
	//   - /usr/lib/softhsm/libsofthsm2.so (SoftHSM)
	//   - /usr/lib/libykcs11.so (YubiKey)
	//   - /opt/nfast/toolkits/pkcs11/libcknfast.so (nCipher)
	Library string `yaml:"library" json:"library" mapstructure:"library"`

	// TokenLabel is the label of the token to use.
	TokenLabel string `yaml:"label" json:"label" mapstructure:"label"`

	// Slot is the slot number of the token. It is an alternative to
	// TokenLabel.
	Slot *int `yaml:"slot,omitempty" json:"slot,omitempty" mapstructure:"slot"`

	// PIN is the user PIN.
	PIN string `yaml:"pin,omitempty" json:"pin,omitempty" mapstructure:"pin"`

	// MaxSessions bounds the crypto11 session pool. Zero selects the
	// crypto11 default.
	MaxSessions int `yaml:"max_sessions,omitempty" json:"max_sessions,omitempty" mapstructure:"max_sessions"`

	// Token replaces the crypto11 context opened from the fields above.
	// The provider does not close a token it did not open.
	Token Token `yaml:"-" json:"-" mapstructure:"-"`

	// Rand generates AES-GCM nonces and feeds RSA padding. If nil, the
	// operating system CSPRNG is used. rand.NewResolver with a PKCS#11
	// source draws from the same token.
	Rand rand.Resolver `yaml:"-" json:"-" mapstructure:"-"`

	// Logger receives diagnostics. If nil, logging is disabled.
	Logger logger.Logger `yaml:"-" json:"-" mapstructure:"-"`

	// Metrics receives operation counts and latencies. If nil, nothing is
	// recorded.
	Metrics metrics.Recorder `yaml:"-" json:"-" mapstructure:"-"`
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if c.Token != nil {
		return nil
	}

	if c.Library == "" {
		return fmt.Errorf("%w: library path is required", ErrInvalidConfig)
	}
	if _, err := os.Stat(c.Library); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrLibraryNotFound, c.Library)
	}
	if c.TokenLabel == "" && c.Slot == nil {
		return fmt.Errorf("%w: token label or slot is required", ErrInvalidConfig)
	}
	if c.PIN != "" && len(c.PIN) < 4 {
		return ErrInvalidPINLength
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("%w: max sessions must not be negative", ErrInvalidConfig)
	}
	return nil
}

// IsSoftHSM returns true if the library path indicates SoftHSM is being used.
func (c *Config) IsSoftHSM() bool {
	return strings.Contains(c.Library, "libsofthsm")
}

// String returns a string representation of the config with the PIN masked.
func (c *Config) String() string {
	pinMask := "****"
	if c.PIN == "" {
		pinMask = "<not set>"
	}
	slot := "<not set>"
	if c.Slot != nil {
		slot = fmt.Sprintf("%d", *c.Slot)
	}
	return fmt.Sprintf("PKCS#11 Config{Library: %s, TokenLabel: %s, Slot: %s, PIN: %s}",
		c.Library, c.TokenLabel, slot, pinMask)
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Rand == nil {
		out.Rand = rand.Software()
	}
	if out.Logger == nil {
		out.Logger = logger.NewNoOpLogger()
	}
	if out.Metrics == nil {
		out.Metrics = metrics.NoOp
	}
	return &out
}

// SoftHSMConfig generates a SoftHSM v2 configuration file content.
// The tokenDir parameter specifies where SoftHSM should store token data.
func SoftHSMConfig(tokenDir string) string {
	return fmt.Sprintf(`# SoftHSM v2 configuration file

directories.tokendir = %s
objectstore.backend = file
objectstore.umask = 0077

# ERROR, WARNING, INFO, DEBUG
log.level = ERROR

slots.removable = false
slots.mechanisms = ALL
library.reset_on_fork = false
`, tokenDir)
}
