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

// Package pkcs11 resolves algorithms to keys generated and held inside a
// PKCS#11 token, using github.com/ThalesGroup/crypto11.
//
// Private and secret keys never leave the token. They are referenced by
// their CKA_LABEL through the types.FormatKeyRef encoding. Public keys are
// exported and verify or encrypt in the software engine.
//
// The engine is synchronous: crypto11 calls complete on the calling
// goroutine, so both the blocking and the context forms are available.
//
// Build with -tags pkcs11. The library is loaded with cgo.
package pkcs11
