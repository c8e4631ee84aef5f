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

package jwk

import (
	"crypto"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// Thumbprint returns the base64url RFC 7638 SHA-256 thumbprint of the
// JWK's public members.
func (j *JWK) Thumbprint() (string, error) {
	switch {
	case j.Kty == KeyTypeOct:
		return canonicalThumbprint(map[string]string{"k": j.K, "kty": j.Kty})
	case j.Kty == KeyTypeOKP && j.Crv == CurveX25519:
		// go-jose has no X25519 JSONWebKey support.
		return canonicalThumbprint(map[string]string{"crv": j.Crv, "kty": j.Kty, "x": j.X})
	}

	pub, err := j.ToPublicKey()
	if err != nil {
		return "", err
	}
	sum, err := (&jose.JSONWebKey{Key: pub}).Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("jwk: thumbprint: %w", err)
	}
	return b64.EncodeToString(sum), nil
}

// SetKeyID sets Kid to the thumbprint.
func (j *JWK) SetKeyID() error {
	kid, err := j.Thumbprint()
	if err != nil {
		return err
	}
	j.Kid = kid
	return nil
}

// canonicalThumbprint hashes the required members in lexicographic order
// with no whitespace. encoding/json sorts map keys.
func canonicalThumbprint(members map[string]string) (string, error) {
	data, err := json.Marshal(members)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return b64.EncodeToString(sum[:]), nil
}
