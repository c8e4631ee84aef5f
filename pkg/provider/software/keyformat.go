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

package software

import (
	"crypto"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// Format sets shared by the key types.
var (
	symmetricFormats  = []types.KeyFormat{types.FormatRAW, types.FormatJWK}
	rawFormats        = []types.KeyFormat{types.FormatRAW}
	asymmetricFormats = []types.KeyFormat{types.FormatRAW, types.FormatDER, types.FormatPEM, types.FormatJWK}

	rsaFormats = []types.KeyFormat{
		types.FormatDER, types.FormatPEM, types.FormatDERPKCS1, types.FormatPEMPKCS1, types.FormatJWK,
	}
)

// invalidKey marks malformed key material as an invalid parameter while
// keeping the decoding error in the chain.
func invalidKey(err error) error {
	return fmt.Errorf("%w: %w", types.ErrInvalidParameter, err)
}

// encodePublic handles the DER, PEM and JWK encodings of a public key.
func encodePublic(pub crypto.PublicKey, format types.KeyFormat) ([]byte, error) {
	switch format {
	case types.FormatDER:
		return encoding.EncodePKIX(pub)
	case types.FormatPEM:
		return encoding.EncodePublicKeyPEM(pub)
	case types.FormatJWK:
		j, err := jwk.FromPublicKey(pub)
		if err != nil {
			return nil, err
		}
		return marshalJWK(j)
	}
	return nil, fmt.Errorf("software: no shared encoder for %s", format)
}

// encodePrivate handles the DER, PEM and JWK encodings of a private key.
func encodePrivate(priv crypto.PrivateKey, format types.KeyFormat) ([]byte, error) {
	switch format {
	case types.FormatDER:
		return encoding.EncodePKCS8(priv, nil)
	case types.FormatPEM:
		return encoding.EncodePrivateKeyPEM(priv, nil)
	case types.FormatJWK:
		j, err := jwk.FromPrivateKey(priv)
		if err != nil {
			return nil, err
		}
		return marshalJWK(j)
	}
	return nil, fmt.Errorf("software: no shared encoder for %s", format)
}

// marshalJWK sets the thumbprint key ID and serializes j.
func marshalJWK(j *jwk.JWK) ([]byte, error) {
	if err := j.SetKeyID(); err != nil {
		return nil, err
	}
	return j.Marshal()
}

// decodePublic parses a DER, PEM or JWK public key.
func decodePublic(format types.KeyFormat, data []byte) (crypto.PublicKey, error) {
	var (
		pub crypto.PublicKey
		err error
	)
	switch format {
	case types.FormatDER:
		pub, err = encoding.DecodePKIX(data)
	case types.FormatPEM:
		pub, err = encoding.DecodePublicKeyPEM(data)
	case types.FormatJWK:
		var j *jwk.JWK
		if j, err = jwk.Unmarshal(data); err == nil {
			pub, err = j.ToPublicKey()
		}
	default:
		return nil, fmt.Errorf("software: no shared decoder for %s", format)
	}
	if err != nil {
		return nil, invalidKey(err)
	}
	return pub, nil
}

// decodePrivate parses a DER, PEM or JWK private key.
func decodePrivate(format types.KeyFormat, data []byte) (crypto.PrivateKey, error) {
	var (
		priv crypto.PrivateKey
		err  error
	)
	switch format {
	case types.FormatDER:
		priv, err = encoding.DecodePKCS8(data, nil)
	case types.FormatPEM:
		priv, err = encoding.DecodePrivateKeyPEM(data, nil)
	case types.FormatJWK:
		var j *jwk.JWK
		if j, err = jwk.Unmarshal(data); err == nil {
			priv, err = j.ToPrivateKey()
		}
	default:
		return nil, fmt.Errorf("software: no shared decoder for %s", format)
	}
	if err != nil {
		return nil, invalidKey(err)
	}
	return priv, nil
}

// encodeSecret handles RAW and JWK(oct) for symmetric keys.
func encodeSecret(secret []byte, alg string, format types.KeyFormat) ([]byte, error) {
	switch format {
	case types.FormatRAW:
		return append([]byte(nil), secret...), nil
	case types.FormatJWK:
		j, err := jwk.FromSymmetricKey(secret, alg)
		if err != nil {
			return nil, err
		}
		return marshalJWK(j)
	}
	return nil, fmt.Errorf("software: no secret encoder for %s", format)
}

// decodeSecret parses RAW or JWK(oct) symmetric key material.
func decodeSecret(format types.KeyFormat, data []byte) ([]byte, error) {
	switch format {
	case types.FormatRAW:
		return append([]byte(nil), data...), nil
	case types.FormatJWK:
		j, err := jwk.Unmarshal(data)
		if err != nil {
			return nil, invalidKey(err)
		}
		secret, err := j.ToSymmetricKey()
		if err != nil {
			return nil, invalidKey(err)
		}
		return secret, nil
	}
	return nil, fmt.Errorf("software: no secret decoder for %s", format)
}

// mismatch reports decoded material of the wrong type.
func mismatch(want string, got any) error {
	return fmt.Errorf("%w: want %s, got %T", ErrKeyMismatch, want, got)
}
