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

// Package ids declares the standard algorithm identities. Each is a
// process lifetime singleton; engines match on them by pointer.
package ids

import (
	"strings"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
)

// =============================================================================
// Digests
// =============================================================================

var (
	MD5        = algorithm.NewID[algorithm.Digest]("MD5")
	SHA1       = algorithm.NewID[algorithm.Digest]("SHA-1")
	SHA224     = algorithm.NewID[algorithm.Digest]("SHA-224")
	SHA256     = algorithm.NewID[algorithm.Digest]("SHA-256")
	SHA384     = algorithm.NewID[algorithm.Digest]("SHA-384")
	SHA512     = algorithm.NewID[algorithm.Digest]("SHA-512")
	SHA3_224   = algorithm.NewID[algorithm.Digest]("SHA3-224")
	SHA3_256   = algorithm.NewID[algorithm.Digest]("SHA3-256")
	SHA3_384   = algorithm.NewID[algorithm.Digest]("SHA3-384")
	SHA3_512   = algorithm.NewID[algorithm.Digest]("SHA3-512")
	BLAKE2b256 = algorithm.NewID[algorithm.Digest]("BLAKE2b-256")
	BLAKE2b512 = algorithm.NewID[algorithm.Digest]("BLAKE2b-512")
)

// =============================================================================
// MACs and ciphers
// =============================================================================

var (
	HMAC             = algorithm.NewID[algorithm.HMAC]("HMAC")
	AESGCM           = algorithm.NewID[algorithm.AESGCM]("AES-GCM")
	AESCBC           = algorithm.NewID[algorithm.AESCBC]("AES-CBC")
	AESCTR           = algorithm.NewID[algorithm.AESCTR]("AES-CTR")
	ChaCha20Poly1305 = algorithm.NewID[algorithm.ChaCha20Poly1305]("ChaCha20-Poly1305")
)

// =============================================================================
// Public key algorithms
// =============================================================================

var (
	ECDSA    = algorithm.NewID[algorithm.ECDSA]("ECDSA")
	EdDSA    = algorithm.NewID[algorithm.EdDSA]("EdDSA")
	RSAPSS   = algorithm.NewID[algorithm.RSAPSS]("RSA-PSS")
	RSAPKCS1 = algorithm.NewID[algorithm.RSAPKCS1]("RSA-PKCS1")
	RSAOAEP  = algorithm.NewID[algorithm.RSAOAEP]("RSA-OAEP")
	ECDH     = algorithm.NewID[algorithm.ECDH]("ECDH")
	XDH      = algorithm.NewID[algorithm.XDH]("X25519")
)

// =============================================================================
// Key derivation
// =============================================================================

var (
	HKDF     = algorithm.NewID[algorithm.HKDF]("HKDF")
	PBKDF2   = algorithm.NewID[algorithm.PBKDF2]("PBKDF2")
	Argon2id = algorithm.NewID[algorithm.Argon2id]("Argon2id")
)

// Digests lists the digest identities.
func Digests() []*algorithm.ID[algorithm.Digest] {
	return []*algorithm.ID[algorithm.Digest]{
		MD5, SHA1, SHA224, SHA256, SHA384, SHA512,
		SHA3_224, SHA3_256, SHA3_384, SHA3_512,
		BLAKE2b256, BLAKE2b512,
	}
}

// All lists every standard identity. The order is stable.
func All() []algorithm.Identity {
	all := make([]algorithm.Identity, 0, 32)
	for _, d := range Digests() {
		all = append(all, d)
	}
	return append(all,
		HMAC, AESGCM, AESCBC, AESCTR, ChaCha20Poly1305,
		ECDSA, EdDSA, RSAPSS, RSAPKCS1, RSAOAEP, ECDH, XDH,
		HKDF, PBKDF2, Argon2id,
	)
}

// Lookup finds a standard identity by display name, ignoring case. It is a
// convenience for command line and configuration input; resolution itself
// never goes through names.
func Lookup(name string) (algorithm.Identity, bool) {
	for _, id := range All() {
		if strings.EqualFold(id.Name(), name) {
			return id, true
		}
	}
	return nil, false
}

// LookupDigest finds a digest identity by display name, ignoring case.
func LookupDigest(name string) (*algorithm.ID[algorithm.Digest], bool) {
	for _, d := range Digests() {
		if strings.EqualFold(d.Name(), name) {
			return d, true
		}
	}
	return nil, false
}
