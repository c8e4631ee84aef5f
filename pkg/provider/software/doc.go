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

// Package software is the pure Go engine. It resolves every identity in
// pkg/algorithm/ids using the standard library and golang.org/x/crypto, runs
// synchronously, and registers itself with the global registry at priority
// DefaultPriority when imported.
//
// Key material lives in process memory and exports in the formats listed
// below. Any other (key type, format) pair fails with
// *types.UnsupportedKeyFormatError.
//
//	HMAC, AES                 RAW, JWK (oct)
//	ChaCha20-Poly1305         RAW
//	ECDSA, ECDH               RAW, DER, PEM, JWK
//	Ed25519, X25519           RAW, DER, PEM, JWK (OKP)
//	RSA                       DER, PEM, DER_PKCS1, PEM_PKCS1, JWK
//
// Caller supplied AES-GCM, ChaCha20-Poly1305 and AES-CTR nonces are tracked
// per key and reuse is refused with aead.ErrNonceReuse unless
// Config.DisableNonceTracking is set.
//
// Example:
//
//	import _ "github.com/jeremyhahn/go-cryptoprovider/pkg/provider/software"
//
//	digest, err := provider.Get(provider.Default(), ids.SHA256)
//	if err != nil {
//	    return err
//	}
//	sum, err := digest.Hasher().Hash([]byte("abc"))
package software
