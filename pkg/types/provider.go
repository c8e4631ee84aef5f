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

package types

// ProviderState is the initialization state of a lazily created provider.
type ProviderState string

const (
	// ProviderPending means the initializer has not run yet.
	ProviderPending ProviderState = "pending"
	// ProviderReady means the initializer succeeded.
	ProviderReady ProviderState = "ready"
	// ProviderFailed means the initializer failed. The error is cached.
	ProviderFailed ProviderState = "failed"
)

// ProviderInfo describes one registry entry for diagnostics.
type ProviderInfo struct {
	Name     string        `json:"name" yaml:"name"`
	Priority int           `json:"priority" yaml:"priority"`
	Sequence int           `json:"sequence" yaml:"sequence"`
	State    ProviderState `json:"state" yaml:"state"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}
