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

//go:build pkcs11

package pkcs11

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// sign asks the token to sign digest.
func (p *Provider) sign(signer crypto.Signer, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return observe(p, metrics.OpSign, func() ([]byte, error) {
		sig, err := signer.Sign(p.rng, digest, opts)
		if err != nil {
			return nil, fmt.Errorf("pkcs11: sign: %w", err)
		}
		return sig, nil
	})
}

// =============================================================================
// ECDSA
// =============================================================================

type ecdsaFamily struct {
	p *Provider
}

var _ algorithm.ECDSA = (*ecdsaFamily)(nil)

func (f *ecdsaFamily) KeyPairGenerator(curve types.Curve) (operation.KeyGenerator[algorithm.ECDSAKeyPair], error) {
	pubDec, err := f.PublicKeyDecoder(curve)
	if err != nil {
		return nil, err
	}
	return generator(f.p, func(ctx context.Context) (algorithm.ECDSAKeyPair, error) {
		label := newLabel()
		signer, err := f.p.token.GenerateECDSA(label, curve.Elliptic())
		if err != nil {
			return nil, fmt.Errorf("pkcs11: generate ECDSA %s key: %w", curve, err)
		}
		public, err := localPublic(ctx, pubDec, signer.Public())
		if err != nil {
			return nil, err
		}
		f.p.logger.Debug("token key generated",
			logger.String("label", string(label)),
			logger.String("curve", curve.String()))
		return algorithm.NewKeyPair[algorithm.ECDSAPublicKey, algorithm.ECDSAPrivateKey](
			public, newECDSAPrivateKey(f.p, string(label), signer, curve)), nil
	}), nil
}

// PublicKeyDecoder returns the software decoder. Public keys verify
// locally.
func (f *ecdsaFamily) PublicKeyDecoder(curve types.Curve) (operation.KeyDecoder[algorithm.ECDSAPublicKey], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	local, err := provider.Get(f.p.local, ids.ECDSA)
	if err != nil {
		return nil, err
	}
	return local.PublicKeyDecoder(curve)
}

// PrivateKeyDecoder returns a decoder for types.FormatKeyRef. The labelled
// key must be on curve.
func (f *ecdsaFamily) PrivateKeyDecoder(curve types.Curve) (operation.KeyDecoder[algorithm.ECDSAPrivateKey], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	return refDecoder(f.p, types.KeyTypeECDSAPrivate, func(label []byte) (algorithm.ECDSAPrivateKey, error) {
		signer, err := f.p.token.FindKeyPair(label)
		if err != nil {
			return nil, err
		}
		pub, ok := signer.Public().(*ecdsa.PublicKey)
		if !ok || pub.Curve != curve.Elliptic() {
			return nil, fmt.Errorf("%w: %s is not an ECDSA %s key", ErrKeyMismatch, label, curve)
		}
		return newECDSAPrivateKey(f.p, string(label), signer, curve), nil
	}), nil
}

type ecdsaPrivateKey struct {
	tokenKey
	signer crypto.Signer
	curve  types.Curve
}

func newECDSAPrivateKey(p *Provider, label string, signer crypto.Signer, curve types.Curve) *ecdsaPrivateKey {
	return &ecdsaPrivateKey{
		tokenKey: newTokenKey(p, types.KeyTypeECDSAPrivate, label),
		signer:   signer,
		curve:    curve,
	}
}

// Signer returns a signer that hashes locally and signs with CKM_ECDSA.
func (k *ecdsaPrivateKey) Signer(digest *algorithm.ID[algorithm.Digest], format types.SignatureFormat) (operation.Signer, error) {
	h, err := hashFor(digest)
	if err != nil {
		return nil, err
	}
	size := k.curve.ScalarSize()
	engine := &signEngine{hash: h}
	switch format {
	case types.SignatureFormatDER:
		engine.size = 2*size + 9
		engine.sign = func(digest []byte) ([]byte, error) {
			return k.p.sign(k.signer, digest, h)
		}
	case types.SignatureFormatRAW:
		engine.size = 2 * size
		engine.sign = func(digest []byte) ([]byte, error) {
			der, err := k.p.sign(k.signer, digest, h)
			if err != nil {
				return nil, err
			}
			return encoding.ECDSASignatureToRaw(der, size)
		}
	default:
		return nil, fmt.Errorf("%w: signature format %q", types.ErrInvalidParameter, format)
	}
	return operation.NewSigner(operation.Synchronous, engine), nil
}

// =============================================================================
// RSASSA-PSS
// =============================================================================

type rsaPSSFamily struct {
	p *Provider
}

var _ algorithm.RSAPSS = (*rsaPSSFamily)(nil)

func (f *rsaPSSFamily) KeyPairGenerator(bits int, digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.RSAPSSKeyPair], error) {
	if err := checkRSABits(bits); err != nil {
		return nil, err
	}
	h, err := hashFor(digest)
	if err != nil {
		return nil, err
	}
	pubDec, err := f.PublicKeyDecoder(digest)
	if err != nil {
		return nil, err
	}
	return generator(f.p, func(ctx context.Context) (algorithm.RSAPSSKeyPair, error) {
		signer, label, err := f.p.generateRSA(bits)
		if err != nil {
			return nil, err
		}
		public, err := localPublic(ctx, pubDec, signer.Public())
		if err != nil {
			return nil, err
		}
		return algorithm.NewKeyPair[algorithm.RSAPSSPublicKey, algorithm.RSAPSSPrivateKey](
			public, newRSAPSSPrivateKey(f.p, label, signer, h)), nil
	}), nil
}

func (f *rsaPSSFamily) PublicKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAPSSPublicKey], error) {
	local, err := provider.Get(f.p.local, ids.RSAPSS)
	if err != nil {
		return nil, err
	}
	return local.PublicKeyDecoder(digest)
}

func (f *rsaPSSFamily) PrivateKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAPSSPrivateKey], error) {
	h, err := hashFor(digest)
	if err != nil {
		return nil, err
	}
	return refDecoder(f.p, types.KeyTypeRSAPrivate, func(label []byte) (algorithm.RSAPSSPrivateKey, error) {
		signer, err := f.p.findRSA(label)
		if err != nil {
			return nil, err
		}
		return newRSAPSSPrivateKey(f.p, string(label), signer, h), nil
	}), nil
}

type rsaPSSPrivateKey struct {
	tokenKey
	signer crypto.Signer
	hash   crypto.Hash
}

func newRSAPSSPrivateKey(p *Provider, label string, signer crypto.Signer, h crypto.Hash) *rsaPSSPrivateKey {
	return &rsaPSSPrivateKey{
		tokenKey: newTokenKey(p, types.KeyTypeRSAPrivate, label),
		signer:   signer,
		hash:     h,
	}
}

// Signer signs with CKM_RSA_PKCS_PSS. The salt is as long as the digest.
func (k *rsaPSSPrivateKey) Signer() operation.Signer {
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: k.hash}
	return operation.NewSigner(operation.Synchronous, &signEngine{
		hash: k.hash,
		size: k.signer.Public().(*rsa.PublicKey).Size(),
		sign: func(digest []byte) ([]byte, error) {
			return k.p.sign(k.signer, digest, opts)
		},
	})
}

// =============================================================================
// Shared RSA helpers
// =============================================================================

func (p *Provider) generateRSA(bits int) (KeyPair, string, error) {
	label := newLabel()
	kp, err := p.token.GenerateRSA(label, bits)
	if err != nil {
		return nil, "", fmt.Errorf("pkcs11: generate RSA-%d key: %w", bits, err)
	}
	p.logger.Debug("token key generated",
		logger.String("label", string(label)),
		logger.Int("bits", bits))
	return kp, string(label), nil
}

// findRSA looks up an RSA key pair that can also decrypt.
func (p *Provider) findRSA(label []byte) (KeyPair, error) {
	signer, err := p.token.FindKeyPair(label)
	if err != nil {
		return nil, err
	}
	kp, ok := signer.(KeyPair)
	if _, isRSA := signer.Public().(*rsa.PublicKey); !ok || !isRSA {
		return nil, fmt.Errorf("%w: %s is not an RSA key", ErrKeyMismatch, label)
	}
	return kp, nil
}
