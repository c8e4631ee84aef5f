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

//go:build !awskms

package engines

import (
	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
)

const awskmsCompiled = false

func newAWSKMS(*config.Config, *Options) (provider.Provider, error) {
	return nil, ErrNotCompiled
}
