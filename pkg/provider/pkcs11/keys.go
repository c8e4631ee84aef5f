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
	_ "crypto/sha256"
	_ "crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"github.com/miekg/pkcs11"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

var refFormats = []types.KeyFormat{types.FormatKeyRef}

// RSA modulus sizes the provider generates.
var rsaSizes = []int{2048, 3072, 4096}

func checkRSABits(bits int) error {
	for _, n := range rsaSizes {
		if bits == n {
			return nil
		}
	}
	return fmt.Errorf("%w: RSA modulus of %d bits", ErrInvalidKeySize, bits)
}

func checkCurve(curve types.Curve) error {
	if curve.Elliptic() == nil {
		return fmt.Errorf("%w: %q", ErrInvalidCurve, curve)
	}
	return nil
}

func hashFor(digest *algorithm.ID[algorithm.Digest]) (crypto.Hash, error) {
	switch digest {
	case ids.SHA224:
		return crypto.SHA224, nil
	case ids.SHA256:
		return crypto.SHA256, nil
	case ids.SHA384:
		return crypto.SHA384, nil
	case ids.SHA512:
		return crypto.SHA512, nil
	case nil:
		return 0, fmt.Errorf("%w: nil digest", ErrUnsupportedDigest)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedDigest, digest.Name())
}

// tokenKey is a private or secret key inside the token. Its only encoding
// is the label.
type tokenKey struct {
	operation.KeyEncoding
	p     *Provider
	label string
}

func newTokenKey(p *Provider, keyType, label string) tokenKey {
	return tokenKey{
		KeyEncoding: operation.NewKeyEncoding(operation.Synchronous, keyType, refFormats,
			func(context.Context, types.KeyFormat) ([]byte, error) {
				return []byte(label), nil
			}),
		p:     p,
		label: label,
	}
}

// Label returns the CKA_LABEL of the key.
func (k *tokenKey) Label() string {
	return k.label
}

// generator wraps a key generation body with metrics.
func generator[K any](p *Provider, generate func(ctx context.Context) (K, error)) operation.KeyGenerator[K] {
	return operation.NewKeyGenerator(operation.Synchronous, func(ctx context.Context) (K, error) {
		return observe(p, metrics.OpGenerateKey, func() (K, error) {
			return generate(ctx)
		})
	})
}

// refDecoder returns a decoder for types.FormatKeyRef that looks the label
// up with load.
func refDecoder[K any](p *Provider, keyType string, load func(label []byte) (K, error)) operation.KeyDecoder[K] {
	return operation.NewKeyDecoder(operation.Synchronous, keyType, refFormats,
		func(_ context.Context, _ types.KeyFormat, data []byte) (K, error) {
			if len(data) == 0 {
				var zero K
				return zero, fmt.Errorf("%w: empty key label", types.ErrInvalidParameter)
			}
			return observe(p, metrics.OpDecodeKey, func() (K, error) {
				return load(data)
			})
		})
}

// localPublic converts a token public key into a software key through its
// PKIX encoding.
func localPublic[K any](ctx context.Context, dec operation.KeyDecoder[K], pub crypto.PublicKey) (K, error) {
	der, err := encoding.EncodePKIX(pub)
	if err != nil {
		var zero K
		return zero, fmt.Errorf("pkcs11: encode public key: %w", err)
	}
	return dec.DecodeFromContext(ctx, types.FormatDER, der)
}

// deviceError reports token failures that are not about the input.
func deviceError(err error) bool {
	var rv pkcs11.Error
	if !errors.As(err, &rv) {
		return false
	}
	switch rv {
	case pkcs11.CKR_DEVICE_ERROR,
		pkcs11.CKR_DEVICE_MEMORY,
		pkcs11.CKR_DEVICE_REMOVED,
		pkcs11.CKR_TOKEN_NOT_PRESENT,
		pkcs11.CKR_SESSION_HANDLE_INVALID,
		pkcs11.CKR_SESSION_CLOSED,
		pkcs11.CKR_USER_NOT_LOGGED_IN,
		pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED:
		return true
	}
	return false
}

// translateDecrypt maps a failed decryption to ErrAuthenticationFailed
// unless the token itself is unusable.
func translateDecrypt(err error) error {
	if errors.Is(err, ErrProviderClosed) || deviceError(err) {
		return fmt.Errorf("pkcs11: decrypt: %w", err)
	}
	return types.ErrAuthenticationFailed
}

// =============================================================================
// Signing sessions
// =============================================================================

// signEngine hashes locally and hands the digest to the token.
type signEngine struct {
	hash crypto.Hash
	size int
	sign func(digest []byte) ([]byte, error)
}

var _ operation.SignEngine = (*signEngine)(nil)

func (e *signEngine) SignatureSize() int {
	return e.size
}

func (e *signEngine) NewSignCore(context.Context) (operation.SignCore, error) {
	return &signCore{h: e.hash.New(), sign: e.sign}, nil
}

type signCore struct {
	h    hash.Hash
	sign func(digest []byte) ([]byte, error)
}

func (c *signCore) Update(_ context.Context, p []byte) error {
	c.h.Write(p)
	return nil
}

func (c *signCore) Finish(context.Context) ([]byte, error) {
	return c.sign(c.h.Sum(nil))
}

func (c *signCore) Reset() error {
	c.h.Reset()
	return nil
}

func (c *signCore) Release() error {
	c.h.Reset()
	return nil
}
