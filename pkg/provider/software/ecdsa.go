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
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

type ecdsaFamily struct {
	p *Provider
}

var _ algorithm.ECDSA = (*ecdsaFamily)(nil)

func checkCurve(curve types.Curve) error {
	if curve.Elliptic() == nil {
		return fmt.Errorf("%w: %q", ErrInvalidCurve, curve)
	}
	return nil
}

func (f *ecdsaFamily) KeyPairGenerator(curve types.Curve) (operation.KeyGenerator[algorithm.ECDSAKeyPair], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	return generator(f.p, func(ctx context.Context) (algorithm.ECDSAKeyPair, error) {
		priv, err := ecdsa.GenerateKey(curve.Elliptic(), f.p.rng)
		if err != nil {
			return nil, fmt.Errorf("software: generate ECDSA key: %w", err)
		}
		key := newECDSAPrivateKey(f.p, curve, priv)
		return algorithm.NewKeyPair[algorithm.ECDSAPublicKey, algorithm.ECDSAPrivateKey](key.public, key), nil
	}), nil
}

func (f *ecdsaFamily) PublicKeyDecoder(curve types.Curve) (operation.KeyDecoder[algorithm.ECDSAPublicKey], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	return decoder(f.p, types.KeyTypeECDSAPublic, asymmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.ECDSAPublicKey, error) {
			pub, err := decodeECDSAPublic(curve, format, data)
			if err != nil {
				return nil, err
			}
			return newECDSAPublicKey(f.p, curve, pub), nil
		}), nil
}

func (f *ecdsaFamily) PrivateKeyDecoder(curve types.Curve) (operation.KeyDecoder[algorithm.ECDSAPrivateKey], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	return decoder(f.p, types.KeyTypeECDSAPrivate, asymmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.ECDSAPrivateKey, error) {
			priv, err := decodeECDSAPrivate(curve, format, data)
			if err != nil {
				return nil, err
			}
			return newECDSAPrivateKey(f.p, curve, priv), nil
		}), nil
}

// decodeECDSAPublic parses a public key and checks that it is on curve.
func decodeECDSAPublic(curve types.Curve, format types.KeyFormat, data []byte) (*ecdsa.PublicKey, error) {
	if format == types.FormatRAW {
		pub, err := ecdsa.ParseUncompressedPublicKey(curve.Elliptic(), data)
		if err != nil {
			return nil, invalidKey(err)
		}
		return pub, nil
	}
	key, err := decodePublic(format, data)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, mismatch("EC public key", key)
	}
	if pub.Curve != curve.Elliptic() {
		return nil, fmt.Errorf("%w: key is on %s, want %s", ErrInvalidCurve, pub.Curve.Params().Name, curve)
	}
	return pub, nil
}

// decodeECDSAPrivate parses a private key and checks that it is on curve.
func decodeECDSAPrivate(curve types.Curve, format types.KeyFormat, data []byte) (*ecdsa.PrivateKey, error) {
	if format == types.FormatRAW {
		priv, err := ecdsa.ParseRawPrivateKey(curve.Elliptic(), data)
		if err != nil {
			return nil, invalidKey(err)
		}
		return priv, nil
	}
	key, err := decodePrivate(format, data)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, mismatch("EC private key", key)
	}
	if priv.Curve != curve.Elliptic() {
		return nil, fmt.Errorf("%w: key is on %s, want %s", ErrInvalidCurve, priv.Curve.Params().Name, curve)
	}
	return priv, nil
}

func encodeECDSAPublic(pub *ecdsa.PublicKey, format types.KeyFormat) ([]byte, error) {
	if format == types.FormatRAW {
		return pub.Bytes()
	}
	return encodePublic(pub, format)
}

func encodeECDSAPrivate(priv *ecdsa.PrivateKey, format types.KeyFormat) ([]byte, error) {
	if format == types.FormatRAW {
		return priv.Bytes()
	}
	return encodePrivate(priv, format)
}

// =============================================================================
// Keys
// =============================================================================

type ecdsaPublicKey struct {
	operation.KeyEncoding
	p     *Provider
	curve types.Curve
	pub   *ecdsa.PublicKey
}

func newECDSAPublicKey(p *Provider, curve types.Curve, pub *ecdsa.PublicKey) *ecdsaPublicKey {
	return &ecdsaPublicKey{
		KeyEncoding: keyEncoding(p, types.KeyTypeECDSAPublic, asymmetricFormats, func(format types.KeyFormat) ([]byte, error) {
			return encodeECDSAPublic(pub, format)
		}),
		p:     p,
		curve: curve,
		pub:   pub,
	}
}

func (k *ecdsaPublicKey) Verifier(digest *algorithm.ID[algorithm.Digest], format types.SignatureFormat) (operation.Verifier, error) {
	info, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	if err := checkSignatureFormat(format); err != nil {
		return nil, err
	}
	size := k.curve.ScalarSize()
	return operation.NewVerifier(operation.Synchronous, &signEngine{
		p:       k.p,
		newHash: info.new,
		verify: func(sum, signature []byte) bool {
			if format == types.SignatureFormatDER {
				return ecdsa.VerifyASN1(k.pub, sum, signature)
			}
			if len(signature) != 2*size {
				return false
			}
			r := new(big.Int).SetBytes(signature[:size])
			s := new(big.Int).SetBytes(signature[size:])
			return ecdsa.Verify(k.pub, sum, r, s)
		},
	}), nil
}

type ecdsaPrivateKey struct {
	operation.KeyEncoding
	p      *Provider
	curve  types.Curve
	priv   *ecdsa.PrivateKey
	public *ecdsaPublicKey
}

func newECDSAPrivateKey(p *Provider, curve types.Curve, priv *ecdsa.PrivateKey) *ecdsaPrivateKey {
	return &ecdsaPrivateKey{
		KeyEncoding: keyEncoding(p, types.KeyTypeECDSAPrivate, asymmetricFormats, func(format types.KeyFormat) ([]byte, error) {
			return encodeECDSAPrivate(priv, format)
		}),
		p:      p,
		curve:  curve,
		priv:   priv,
		public: newECDSAPublicKey(p, curve, &priv.PublicKey),
	}
}

func (k *ecdsaPrivateKey) Signer(digest *algorithm.ID[algorithm.Digest], format types.SignatureFormat) (operation.Signer, error) {
	info, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	if err := checkSignatureFormat(format); err != nil {
		return nil, err
	}
	size := k.curve.ScalarSize()
	engine := &signEngine{
		p:       k.p,
		newHash: info.new,
		sign: func(sum []byte) ([]byte, error) {
			der, err := ecdsa.SignASN1(k.p.rng, k.priv, sum)
			if err != nil {
				return nil, fmt.Errorf("software: ECDSA sign: %w", err)
			}
			if format == types.SignatureFormatDER {
				return der, nil
			}
			return encoding.ECDSASignatureToRaw(der, size)
		},
	}
	if format == types.SignatureFormatDER {
		engine.size = 2*size + 9
	} else {
		engine.size = 2 * size
	}
	return operation.NewSigner(operation.Synchronous, engine), nil
}

// =============================================================================
// Signature encodings
// =============================================================================

func checkSignatureFormat(format types.SignatureFormat) error {
	switch format {
	case types.SignatureFormatDER, types.SignatureFormatRAW:
		return nil
	}
	return fmt.Errorf("%w: signature format %q", types.ErrInvalidParameter, format)
}
