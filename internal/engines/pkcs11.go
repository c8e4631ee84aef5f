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

package engines

import (
	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/pkcs11"
)

const pkcs11Compiled = true

func newPKCS11(cfg *config.Config, opts *Options) (provider.Provider, error) {
	pc := cfg.Providers.PKCS11
	c := &pkcs11.Config{
		Library:     pc.Library,
		TokenLabel:  pc.TokenLabel,
		PIN:         pc.PIN,
		MaxSessions: pc.MaxSessions,
		Rand:        opts.Rand,
		Logger:      opts.Logger,
		Metrics:     opts.Metrics,
	}
	if pc.TokenLabel == "" {
		slot := pc.Slot
		c.Slot = &slot
	}
	return pkcs11.New(c)
}
