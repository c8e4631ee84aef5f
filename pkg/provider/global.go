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

package provider

var global = NewRegistry(nil)

// Global returns the process-wide registry that engines register with
// from their init functions.
func Global() *Registry {
	return global
}

// Register adds lazy to the process-wide registry.
func Register(lazy *Lazy, priority int) {
	global.Register(lazy, priority)
}

// Registered returns a snapshot of the process-wide registry.
func Registered() []Registration {
	return global.Providers()
}

// Default returns the composite provider of the process-wide registry.
func Default() Provider {
	return global.Default()
}
