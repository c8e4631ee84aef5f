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

package engines

import (
	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote/vault"
)

const vaultCompiled = true

func newVault(cfg *config.Config, opts *Options) (provider.Provider, error) {
	vc := cfg.Providers.Vault
	svc, err := vault.New(&vault.Config{
		Address:       vc.Address,
		Token:         vc.Token,
		TransitPath:   vc.TransitPath,
		Namespace:     vc.Namespace,
		TLSSkipVerify: vc.TLSSkipVerify,
	})
	if err != nil {
		return nil, err
	}
	return newRemote(svc, vc.Remote, opts)
}
