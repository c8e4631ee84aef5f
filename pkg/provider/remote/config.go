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

package remote

import (
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
)

// DefaultWorkers is the worker pool size used when Config.Workers is zero.
const DefaultWorkers = 8

// Config contains configuration for the remote provider.
type Config struct {
	// Service is the key-management service client. Required.
	Service Service `yaml:"-" json:"-" mapstructure:"-"`

	// Workers is the number of requests in flight at once. Zero selects
	// DefaultWorkers.
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`

	// RequestsPerSecond caps the request rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" mapstructure:"requests_per_second"`

	// Burst is the limiter bucket size. Zero selects the per second rate,
	// rounded up.
	Burst int `yaml:"burst" json:"burst" mapstructure:"burst"`

	// Rand is used by the local public key operations. If nil, the
	// operating system CSPRNG is used.
	Rand rand.Resolver `yaml:"-" json:"-" mapstructure:"-"`

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
	if c.Service == nil {
		return fmt.Errorf("%w: service is required", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 || math.IsNaN(c.RequestsPerSecond) {
		return fmt.Errorf("%w: requests per second must not be negative", ErrInvalidConfig)
	}
	if c.Burst < 0 {
		return fmt.Errorf("%w: burst must not be negative", ErrInvalidConfig)
	}
	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	service := "<not set>"
	if c.Service != nil {
		service = c.Service.Name()
	}
	limit := "unlimited"
	if c.RequestsPerSecond > 0 {
		limit = fmt.Sprintf("%g/s burst %d", c.RequestsPerSecond, c.burst())
	}
	return fmt.Sprintf("Remote Config{Service: %s, Workers: %d, Limit: %s}", service, c.workers(), limit)
}

func (c *Config) workers() int {
	if c.Workers == 0 {
		return DefaultWorkers
	}
	return c.Workers
}

func (c *Config) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return int(math.Ceil(c.RequestsPerSecond))
}

func (c *Config) limiter() *rate.Limiter {
	if c.RequestsPerSecond == 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), c.burst())
}

func (c *Config) withDefaults() *Config {
	out := *c
	out.Workers = c.workers()
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
