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
	"crypto/ed25519"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

type eddsaFamily struct {
	p *Provider
}

var _ algorithm.EdDSA = (*eddsaFamily)(nil)

func (f *eddsaFamily) KeyPairGenerator() operation.KeyGenerator[algorithm.EdDSAKeyPair] {
	return generator(f.p, func(ctx context.Context) (algorithm.EdDSAKeyPair, error) {
		_, priv, err := ed25519.GenerateKey(f.p.rng)
		if err != nil {
			return nil, fmt.Errorf("software: generate Ed25519 key: %w", err)
		}
		key := newEd25519PrivateKey(f.p, priv)
		return algorithm.NewKeyPair[algorithm.EdDSAPublicKey, algorithm.EdDSAPrivateKey](key.public, key), nil
	})
}

func (f *eddsaFamily) PublicKeyDecoder() operation.KeyDecoder[algorithm.EdDSAPublicKey] {
	return decoder(f.p, types.KeyTypeEd25519Public, asymmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.EdDSAPublicKey, error) {
			if format == types.FormatRAW {
				if len(data) != ed25519.PublicKeySize {
					return nil, fmt.Errorf("%w: Ed25519 public key is %d bytes", ErrInvalidKeySize, len(data))
				}
				return newEd25519PublicKey(f.p, append(ed25519.PublicKey(nil), data...)), nil
			}
			key, err := decodePublic(format, data)
			if err != nil {
				return nil, err
			}
			pub, ok := key.(ed25519.PublicKey)
			if !ok {
				return nil, mismatch("Ed25519 public key", key)
			}
			return newEd25519PublicKey(f.p, pub), nil
		})
}

func (f *eddsaFamily) PrivateKeyDecoder() operation.KeyDecoder[algorithm.EdDSAPrivateKey] {
	return decoder(f.p, types.KeyTypeEd25519Private, asymmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.EdDSAPrivateKey, error) {
			if format == types.FormatRAW {
				if len(data) != ed25519.SeedSize {
					return nil, fmt.Errorf("%w: Ed25519 seed is %d bytes", ErrInvalidKeySize, len(data))
				}
				return newEd25519PrivateKey(f.p, ed25519.NewKeyFromSeed(data)), nil
			}
			key, err := decodePrivate(format, data)
			if err != nil {
				return nil, err
			}
			switch priv := key.(type) {
			case ed25519.PrivateKey:
				return newEd25519PrivateKey(f.p, priv), nil
			case *ed25519.PrivateKey:
				return newEd25519PrivateKey(f.p, *priv), nil
			}
			return nil, mismatch("Ed25519 private key", key)
		})
}

type ed25519PublicKey struct {
	operation.KeyEncoding
	verifier operation.Verifier
}

func newEd25519PublicKey(p *Provider, pub ed25519.PublicKey) *ed25519PublicKey {
	return &ed25519PublicKey{
		KeyEncoding: keyEncoding(p, types.KeyTypeEd25519Public, asymmetricFormats, func(format types.KeyFormat) ([]byte, error) {
			if format == types.FormatRAW {
				return append([]byte(nil), pub...), nil
			}
			return encodePublic(pub, format)
		}),
		verifier: operation.NewVerifier(operation.Synchronous, &signEngine{
			p: p,
			verify: func(message, signature []byte) bool {
				return ed25519.Verify(pub, message, signature)
			},
		}),
	}
}

func (k *ed25519PublicKey) Verifier() operation.Verifier {
	return k.verifier
}

type ed25519PrivateKey struct {
	operation.KeyEncoding
	signer operation.Signer
	public *ed25519PublicKey
}

func newEd25519PrivateKey(p *Provider, priv ed25519.PrivateKey) *ed25519PrivateKey {
	return &ed25519PrivateKey{
		KeyEncoding: keyEncoding(p, types.KeyTypeEd25519Private, asymmetricFormats, func(format types.KeyFormat) ([]byte, error) {
			if format == types.FormatRAW {
				return append([]byte(nil), priv.Seed()...), nil
			}
			return encodePrivate(priv, format)
		}),
		signer: operation.NewSigner(operation.Synchronous, &signEngine{
			p:    p,
			size: ed25519.SignatureSize,
			sign: func(message []byte) ([]byte, error) {
				return ed25519.Sign(priv, message), nil
			},
		}),
		public: newEd25519PublicKey(p, priv.Public().(ed25519.PublicKey)),
	}
}

func (k *ed25519PrivateKey) Signer() operation.Signer {
	return k.signer
}
