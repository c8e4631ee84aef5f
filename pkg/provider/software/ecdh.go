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
	"crypto/ecdh"
	"crypto/ecdsa"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// =============================================================================
// ECDH (NIST curves)
// =============================================================================

type ecdhFamily struct {
	p *Provider
}

var _ algorithm.ECDH = (*ecdhFamily)(nil)

func (f *ecdhFamily) KeyPairGenerator(curve types.Curve) (operation.KeyGenerator[algorithm.ECDHKeyPair], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	return generator(f.p, func(ctx context.Context) (algorithm.ECDHKeyPair, error) {
		priv, err := curve.ECDH().GenerateKey(f.p.rng)
		if err != nil {
			return nil, fmt.Errorf("software: generate ECDH key: %w", err)
		}
		key := newDHPrivateKey[algorithm.ECDHPublicKey](f.p, priv, types.KeyTypeECDHPublic, types.KeyTypeECDHPrivate)
		return algorithm.NewKeyPair[algorithm.ECDHPublicKey, algorithm.ECDHPrivateKey](key.public, key), nil
	}), nil
}

func (f *ecdhFamily) PublicKeyDecoder(curve types.Curve) (operation.KeyDecoder[algorithm.ECDHPublicKey], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	return decoder(f.p, types.KeyTypeECDHPublic, asymmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.ECDHPublicKey, error) {
			pub, err := decodeDHPublic(curve.ECDH(), format, data)
			if err != nil {
				return nil, err
			}
			return newDHPublicKey(f.p, pub, types.KeyTypeECDHPublic), nil
		}), nil
}

func (f *ecdhFamily) PrivateKeyDecoder(curve types.Curve) (operation.KeyDecoder[algorithm.ECDHPrivateKey], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	return decoder(f.p, types.KeyTypeECDHPrivate, asymmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.ECDHPrivateKey, error) {
			priv, err := decodeDHPrivate(curve.ECDH(), format, data)
			if err != nil {
				return nil, err
			}
			return newDHPrivateKey[algorithm.ECDHPublicKey](f.p, priv, types.KeyTypeECDHPublic, types.KeyTypeECDHPrivate), nil
		}), nil
}

// =============================================================================
// X25519
// =============================================================================

type xdhFamily struct {
	p *Provider
}

var _ algorithm.XDH = (*xdhFamily)(nil)

func (f *xdhFamily) KeyPairGenerator() operation.KeyGenerator[algorithm.XDHKeyPair] {
	return generator(f.p, func(ctx context.Context) (algorithm.XDHKeyPair, error) {
		priv, err := ecdh.X25519().GenerateKey(f.p.rng)
		if err != nil {
			return nil, fmt.Errorf("software: generate X25519 key: %w", err)
		}
		key := newDHPrivateKey[algorithm.XDHPublicKey](f.p, priv, types.KeyTypeX25519Public, types.KeyTypeX25519Private)
		return algorithm.NewKeyPair[algorithm.XDHPublicKey, algorithm.XDHPrivateKey](key.public, key), nil
	})
}

func (f *xdhFamily) PublicKeyDecoder() operation.KeyDecoder[algorithm.XDHPublicKey] {
	return decoder(f.p, types.KeyTypeX25519Public, asymmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.XDHPublicKey, error) {
			pub, err := decodeDHPublic(ecdh.X25519(), format, data)
			if err != nil {
				return nil, err
			}
			return newDHPublicKey(f.p, pub, types.KeyTypeX25519Public), nil
		})
}

func (f *xdhFamily) PrivateKeyDecoder() operation.KeyDecoder[algorithm.XDHPrivateKey] {
	return decoder(f.p, types.KeyTypeX25519Private, asymmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.XDHPrivateKey, error) {
			priv, err := decodeDHPrivate(ecdh.X25519(), format, data)
			if err != nil {
				return nil, err
			}
			return newDHPrivateKey[algorithm.XDHPublicKey](f.p, priv, types.KeyTypeX25519Public, types.KeyTypeX25519Private), nil
		})
}

// =============================================================================
// Shared key types
// =============================================================================

func decodeDHPublic(curve ecdh.Curve, format types.KeyFormat, data []byte) (*ecdh.PublicKey, error) {
	var pub *ecdh.PublicKey
	if format == types.FormatRAW {
		k, err := curve.NewPublicKey(data)
		if err != nil {
			return nil, invalidKey(err)
		}
		pub = k
	} else {
		key, err := decodePublic(format, data)
		if err != nil {
			return nil, err
		}
		switch k := key.(type) {
		case *ecdh.PublicKey:
			pub = k
		case *ecdsa.PublicKey:
			if pub, err = k.ECDH(); err != nil {
				return nil, invalidKey(err)
			}
		default:
			return nil, mismatch("ECDH public key", key)
		}
	}
	if pub.Curve() != curve {
		return nil, fmt.Errorf("%w: key is on another curve", ErrInvalidCurve)
	}
	return pub, nil
}

func decodeDHPrivate(curve ecdh.Curve, format types.KeyFormat, data []byte) (*ecdh.PrivateKey, error) {
	var priv *ecdh.PrivateKey
	if format == types.FormatRAW {
		k, err := curve.NewPrivateKey(data)
		if err != nil {
			return nil, invalidKey(err)
		}
		priv = k
	} else {
		key, err := decodePrivate(format, data)
		if err != nil {
			return nil, err
		}
		switch k := key.(type) {
		case *ecdh.PrivateKey:
			priv = k
		case *ecdsa.PrivateKey:
			if priv, err = k.ECDH(); err != nil {
				return nil, invalidKey(err)
			}
		default:
			return nil, mismatch("ECDH private key", key)
		}
	}
	if priv.Curve() != curve {
		return nil, fmt.Errorf("%w: key is on another curve", ErrInvalidCurve)
	}
	return priv, nil
}

// dhPublicKey is a peer key for both ECDH and X25519.
type dhPublicKey struct {
	operation.KeyEncoding
	pub *ecdh.PublicKey
}

func newDHPublicKey(p *Provider, pub *ecdh.PublicKey, keyType string) *dhPublicKey {
	return &dhPublicKey{
		KeyEncoding: keyEncoding(p, keyType, asymmetricFormats, func(format types.KeyFormat) ([]byte, error) {
			if format == types.FormatRAW {
				return pub.Bytes(), nil
			}
			return encodePublic(pub, format)
		}),
		pub: pub,
	}
}

// dhPrivateKey derives shared secrets with peer keys of type Pub, which
// must come from this provider.
type dhPrivateKey[Pub any] struct {
	operation.KeyEncoding
	public *dhPublicKey
	derive operation.SharedSecretDerivation[Pub]
}

func newDHPrivateKey[Pub any](p *Provider, priv *ecdh.PrivateKey, pubType, privType string) *dhPrivateKey[Pub] {
	return &dhPrivateKey[Pub]{
		KeyEncoding: keyEncoding(p, privType, asymmetricFormats, func(format types.KeyFormat) ([]byte, error) {
			if format == types.FormatRAW {
				return priv.Bytes(), nil
			}
			return encodePrivate(priv, format)
		}),
		public: newDHPublicKey(p, priv.PublicKey(), pubType),
		derive: operation.NewSharedSecretDerivation(operation.Synchronous, func(ctx context.Context, other Pub) ([]byte, error) {
			return observe(p, metrics.OpDerive, func() ([]byte, error) {
				peer, ok := any(other).(*dhPublicKey)
				if !ok {
					return nil, fmt.Errorf("%w: %T", ErrForeignKey, other)
				}
				if peer.pub.Curve() != priv.Curve() {
					return nil, ErrForeignKey
				}
				secret, err := priv.ECDH(peer.pub)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", types.ErrInvalidParameter, err)
				}
				return secret, nil
			})
		}),
	}
}

func (k *dhPrivateKey[Pub]) SharedSecretDerivation() operation.SharedSecretDerivation[Pub] {
	return k.derive
}
