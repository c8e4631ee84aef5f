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

package engines

import (
	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/tpm2"
)

const tpm2Compiled = true

func newTPM2(cfg *config.Config, opts *Options) (provider.Provider, error) {
	tc := cfg.Providers.TPM2
	return tpm2.New(&tpm2.Config{
		Device:        tc.Device,
		SimulatorHost: tc.SimulatorHost,
		SimulatorPort: tc.SimulatorPort,
		MaxBufferSize: tc.MaxBufferSize,
		Logger:        opts.Logger,
		Metrics:       opts.Metrics,
	})
}
