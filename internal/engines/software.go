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

package engines

import (
	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/software"
)

func newSoftware(cfg *config.Config, opts *Options) (provider.Provider, error) {
	sc := cfg.Providers.Software
	return software.New(&software.Config{
		Rand:                 opts.Rand,
		DisableNonceTracking: sc.DisableNonceTracking,
		AEADBytesLimit:       sc.AEADBytesLimit,
		Logger:               opts.Logger,
		Metrics:              opts.Metrics,
	})
}
