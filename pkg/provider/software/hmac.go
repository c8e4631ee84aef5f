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
	"crypto/hmac"
	"fmt"
	"hash"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

type hmacFamily struct {
	p *Provider
}

var _ algorithm.HMAC = (*hmacFamily)(nil)

// KeyGenerator generates keys one hash block long.
func (f *hmacFamily) KeyGenerator(digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.HMACKey], error) {
	info, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	return generator(f.p, func(ctx context.Context) (algorithm.HMACKey, error) {
		secret, err := rand.Bytes(f.p.rng, info.blockSize)
		if err != nil {
			return nil, fmt.Errorf("software: generate HMAC key: %w", err)
		}
		return newHMACKey(f.p, info, secret), nil
	}), nil
}

func (f *hmacFamily) KeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.HMACKey], error) {
	info, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	return decoder(f.p, types.KeyTypeHMAC, symmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (algorithm.HMACKey, error) {
			secret, err := decodeSecret(format, data)
			if err != nil {
				return nil, err
			}
			if len(secret) == 0 {
				return nil, fmt.Errorf("%w: empty HMAC key", ErrInvalidKeySize)
			}
			return newHMACKey(f.p, info, secret), nil
		}), nil
}

// hmacJWKAlg returns the JWS algorithm name for an HMAC digest.
func hmacJWKAlg(d *algorithm.ID[algorithm.Digest]) string {
	switch d {
	case ids.SHA256:
		return "HS256"
	case ids.SHA384:
		return "HS384"
	case ids.SHA512:
		return "HS512"
	}
	return ""
}

type hmacKey struct {
	operation.KeyEncoding
	signer   operation.Signer
	verifier operation.Verifier
}

func newHMACKey(p *Provider, info digestInfo, secret []byte) *hmacKey {
	engine := &signEngine{
		p:       p,
		size:    info.size,
		newHash: func() hash.Hash { return hmac.New(info.new, secret) },
		sign: func(mac []byte) ([]byte, error) {
			return mac, nil
		},
		verify: hmac.Equal,
	}
	return &hmacKey{
		KeyEncoding: keyEncoding(p, types.KeyTypeHMAC, symmetricFormats, func(format types.KeyFormat) ([]byte, error) {
			return encodeSecret(secret, hmacJWKAlg(info.id), format)
		}),
		signer:   operation.NewSigner(operation.Synchronous, engine),
		verifier: operation.NewVerifier(operation.Synchronous, engine),
	}
}

func (k *hmacKey) Signer() operation.Signer {
	return k.signer
}

func (k *hmacKey) Verifier() operation.Verifier {
	return k.verifier
}
