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

// Package algorithm defines algorithm identities and the algorithm family
// interfaces they resolve to.
//
// An identity is a *ID[C] whose type parameter C is the family interface,
// so resolution is type safe without reflection:
//
//	digest, err := provider.Get(provider.Default(), ids.SHA256) // algorithm.Digest
//	sum, err := digest.Hasher().Hash(data)
//
// Identities compare by pointer. The standard set lives in package ids.
package algorithm
