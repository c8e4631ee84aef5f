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

package software

import (
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
)

// Config contains configuration for the software provider.
type Config struct {
	// Rand is the randomness source for key generation, IVs, nonces and
	// randomized signatures. If nil, the operating system CSPRNG is used.
	Rand rand.Resolver

	// DisableNonceTracking turns off the per-key record of caller supplied
	// AEAD nonces and CTR IVs. Tracking is on by default and refuses reuse
	// with aead.ErrNonceReuse.
	DisableNonceTracking bool

	// AEADBytesLimit bounds the plaintext bytes one AEAD key may seal.
	// Zero selects aead.DefaultBytesLimit.
	AEADBytesLimit int64

	// Logger receives diagnostics. If nil, logging is disabled.
	Logger logger.Logger

	// Metrics receives operation counts and latencies. If nil, nothing is
	// recorded.
	Metrics metrics.Recorder
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("software: config is nil")
	}
	if c.AEADBytesLimit < 0 {
		return fmt.Errorf("software: AEADBytesLimit must not be negative")
	}
	if c.Rand != nil && !c.Rand.Available() {
		return fmt.Errorf("software: randomness source %s is not available", c.Rand.Mode())
	}
	return nil
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
