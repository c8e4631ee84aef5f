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

// Package jwt signs and verifies JSON Web Tokens with provider
// capabilities, so tokens can be issued by keys that live in any engine:
// software, PKCS#11, TPM or a cloud KMS.
//
// The capability decides the digest and encoding. Map JWS algorithms to
// provider keys as follows:
//
//	HS256/384/512  HMAC key over SHA-256/384/512
//	RS256/384/512  RSA-PKCS1 key over SHA-256/384/512
//	PS256/384/512  RSA-PSS key over SHA-256/384/512
//	ES256/384/512  ECDSA key on P-256/384/521, SignatureFormatRAW
//	EdDSA          Ed25519 key
//
// Example:
//
//	signer := priv.Signer()
//	token, err := jwt.Sign(ctx, "EdDSA", signer, gojwt.MapClaims{"sub": "alice"}, kid)
//	...
//	parsed, err := jwt.Parse(ctx, token, "EdDSA", pub.Verifier(), nil)
//
// Parse never consults the golang-jwt method registry. The caller names
// the expected algorithm and the token must carry it.
package jwt
