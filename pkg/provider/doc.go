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

// Package provider resolves algorithm identities to capabilities across a
// prioritized set of engines.
//
// Engines register a lazily initialized provider from an init function,
// the way database/sql drivers do:
//
//	func init() {
//	    provider.Register(provider.NewLazy("software", func() (provider.Provider, error) {
//	        return New(nil), nil
//	    }), 0)
//	}
//
// Consumers import the engines they want for side effects and resolve
// through the default provider:
//
//	import _ "github.com/jeremyhahn/go-cryptoprovider/pkg/provider/software"
//
//	digest, err := provider.Get(provider.Default(), ids.SHA256)
//
// Resolution walks providers by descending priority, then registration
// order, and returns the first capability found. An error from a provider,
// including a failed initialization, is returned as is; resolution never
// falls through to the next provider on an error.
package provider
