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

//go:build tpm2

package tpm2

import (
	"fmt"

	"github.com/google/go-tpm/tpm2/transport"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
)

const (
	// DefaultDevice is the kernel resource manager device.
	DefaultDevice = "/dev/tpmrm0"

	// DefaultSimulatorPort is the mssim command port.
	DefaultSimulatorPort = 2321

	// DefaultMaxBufferSize is MAX_DIGEST_BUFFER on common TPMs.
	DefaultMaxBufferSize = 1024
)

// Config contains configuration for the TPM provider.
type Config struct {
	// Device is the TPM character device, or a Unix socket path ending in
	// ".sock". Defaults to /dev/tpmrm0.
	Device string `yaml:"device" json:"device" mapstructure:"device"`

	// SimulatorHost connects to an mssim compatible simulator over TCP
	// instead of Device.
	SimulatorHost string `yaml:"simulator_host,omitempty" json:"simulator_host,omitempty" mapstructure:"simulator_host"`

	// SimulatorPort is the simulator command port. The platform port is
	// the next one.
	SimulatorPort int `yaml:"simulator_port,omitempty" json:"simulator_port,omitempty" mapstructure:"simulator_port"`

	// MaxBufferSize is the largest TPM2B_MAX_BUFFER the TPM accepts.
	MaxBufferSize int `yaml:"max_buffer_size,omitempty" json:"max_buffer_size,omitempty" mapstructure:"max_buffer_size"`

	// Transport replaces the connection opened from the fields above. The
	// provider does not close a transport it did not open.
	Transport transport.TPM `yaml:"-" json:"-" mapstructure:"-"`

	// Logger receives diagnostics. If nil, logging is disabled.
	Logger logger.Logger `yaml:"-" json:"-" mapstructure:"-"`

	// Metrics receives operation counts and latencies. If nil, nothing is
	// recorded.
	Metrics metrics.Recorder `yaml:"-" json:"-" mapstructure:"-"`
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if c.SimulatorPort < 0 || c.SimulatorPort > 65534 {
		return fmt.Errorf("%w: simulator port %d", ErrInvalidConfig, c.SimulatorPort)
	}
	if c.MaxBufferSize < 0 {
		return fmt.Errorf("%w: max buffer size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	target := c.device()
	switch {
	case c.Transport != nil:
		target = "<transport>"
	case c.SimulatorHost != "":
		target = fmt.Sprintf("simulator %s:%d", c.SimulatorHost, c.simulatorPort())
	}
	return fmt.Sprintf("TPM2 Config{Target: %s, MaxBufferSize: %d}", target, c.maxBuffer())
}

func (c *Config) device() string {
	if c.Device == "" {
		return DefaultDevice
	}
	return c.Device
}

func (c *Config) simulatorPort() int {
	if c.SimulatorPort == 0 {
		return DefaultSimulatorPort
	}
	return c.SimulatorPort
}

func (c *Config) maxBuffer() int {
	if c.MaxBufferSize == 0 {
		return DefaultMaxBufferSize
	}
	return c.MaxBufferSize
}

func (c *Config) withDefaults() *Config {
	out := *c
	out.MaxBufferSize = c.maxBuffer()
	if out.Logger == nil {
		out.Logger = logger.NewNoOpLogger()
	}
	if out.Metrics == nil {
		out.Metrics = metrics.NoOp
	}
	return &out
}
