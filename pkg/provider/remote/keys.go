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

package remote

import (
	"context"
	"crypto"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"hash"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

var refFormats = []types.KeyFormat{FormatKeyRef}

// hashFor maps a digest identity to a hash the services sign with.
func hashFor(digest *algorithm.ID[algorithm.Digest]) (crypto.Hash, error) {
	switch digest {
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

// serviceKey is a private or secret key held by the service. Its only
// encoding is the key identifier.
type serviceKey struct {
	operation.KeyEncoding
	p    *Provider
	id   string
	spec KeySpec
}

func newServiceKey(p *Provider, keyType, id string, spec KeySpec) serviceKey {
	return serviceKey{
		KeyEncoding: operation.NewKeyEncoding(p.exec, keyType, refFormats,
			func(context.Context, types.KeyFormat) ([]byte, error) {
				return []byte(id), nil
			}),
		p:    p,
		id:   id,
		spec: spec,
	}
}

// KeyID returns the service key identifier.
func (k *serviceKey) KeyID() string {
	return k.id
}

// Spec returns the key description.
func (k *serviceKey) Spec() KeySpec {
	return k.spec
}

func (k *serviceKey) sign(ctx context.Context, spec KeySpec, digest []byte) ([]byte, error) {
	return invoke(ctx, k.p, metrics.OpSign, func(ctx context.Context) ([]byte, error) {
		return k.p.service.Sign(ctx, k.id, spec, digest)
	})
}

// refDecoder returns a decoder for FormatKeyRef that resolves the
// identifier with load.
func refDecoder[K any](p *Provider, keyType string, load func(ctx context.Context, keyID string) (K, error)) operation.KeyDecoder[K] {
	return operation.NewKeyDecoder(p.exec, keyType, refFormats,
		func(ctx context.Context, _ types.KeyFormat, data []byte) (K, error) {
			if len(data) == 0 {
				var zero K
				return zero, fmt.Errorf("%w: empty key identifier", types.ErrInvalidParameter)
			}
			return load(ctx, string(data))
		})
}

// localPublic converts a service public key into a software key through
// its PKIX encoding.
func localPublic[K any](ctx context.Context, dec operation.KeyDecoder[K], pub crypto.PublicKey) (K, error) {
	der, err := encoding.EncodePKIX(pub)
	if err != nil {
		var zero K
		return zero, fmt.Errorf("remote: encode public key: %w", err)
	}
	return dec.DecodeFromContext(ctx, types.FormatDER, der)
}

// =============================================================================
// Signing sessions
// =============================================================================

// signEngine hashes locally and sends only the digest to the service.
type signEngine struct {
	hash crypto.Hash
	size int
	sign func(ctx context.Context, digest []byte) ([]byte, error)
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
	sign func(ctx context.Context, digest []byte) ([]byte, error)
}

func (c *signCore) Update(_ context.Context, p []byte) error {
	c.h.Write(p)
	return nil
}

func (c *signCore) Finish(ctx context.Context) ([]byte, error) {
	return c.sign(ctx, c.h.Sum(nil))
}

func (c *signCore) Reset() error {
	c.h.Reset()
	return nil
}

func (c *signCore) Release() error {
	c.h.Reset()
	return nil
}

// =============================================================================
// Cipher sessions
// =============================================================================

// MaxCiphertextOverhead bounds the bytes a service adds to a symmetric
// ciphertext. Streaming seal functions report it in CompleteSize.
const MaxCiphertextOverhead = 1024

// serviceCipher sends whole messages to the service. Nonces are generated
// by the service, so caller supplied IVs are not supported.
type serviceCipher struct {
	key      *serviceKey
	tagSize  int
	overhead int
	sealable bool
}

var _ operation.AEADEngine = (*serviceCipher)(nil)

func (c *serviceCipher) NonceSize() int {
	return 0
}

func (c *serviceCipher) TagSize() int {
	return c.tagSize
}

func (c *serviceCipher) Seal(ctx context.Context, plaintext, associatedData []byte) ([]byte, error) {
	if !c.sealable {
		return nil, types.ErrOperationNotSupported
	}
	k := c.key
	return invoke(ctx, k.p, metrics.OpEncrypt, func(ctx context.Context) ([]byte, error) {
		return k.p.service.Encrypt(ctx, k.id, k.spec, plaintext, associatedData)
	})
}

func (c *serviceCipher) Open(ctx context.Context, ciphertext, associatedData []byte) ([]byte, error) {
	k := c.key
	return invoke(ctx, k.p, metrics.OpDecrypt, func(ctx context.Context) ([]byte, error) {
		return k.p.service.Decrypt(ctx, k.id, k.spec, ciphertext, associatedData)
	})
}

func (c *serviceCipher) SealWithIV(context.Context, []byte, []byte, []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: service generated nonces only", types.ErrOperationNotSupported)
}

func (c *serviceCipher) OpenWithIV(context.Context, []byte, []byte, []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: service generated nonces only", types.ErrOperationNotSupported)
}

func (c *serviceCipher) NewSealCore(_ context.Context, associatedData []byte) (operation.CipherCore, error) {
	if !c.sealable {
		return nil, types.ErrOperationNotSupported
	}
	ad := append([]byte(nil), associatedData...)
	return &bufferedCore{
		bound: func(n int) int { return n + c.overhead },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) {
			return c.Seal(ctx, buf, ad)
		},
	}, nil
}

func (c *serviceCipher) NewOpenCore(_ context.Context, associatedData []byte) (operation.CipherCore, error) {
	ad := append([]byte(nil), associatedData...)
	return &bufferedCore{
		bound: func(n int) int { return n },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) {
			return c.Open(ctx, buf, ad)
		},
	}, nil
}

// bufferedCore collects all input and sends it in Finish. FinishSize is
// an upper bound; Complete returns only the bytes written.
type bufferedCore struct {
	buf    []byte
	bound  func(n int) int
	finish func(ctx context.Context, buf []byte) ([]byte, error)
}

func (c *bufferedCore) UpdateSize(int) int {
	return 0
}

func (c *bufferedCore) Update(_ context.Context, p, _ []byte) (int, error) {
	c.buf = append(c.buf, p...)
	return 0, nil
}

func (c *bufferedCore) FinishSize() int {
	return c.bound(len(c.buf))
}

func (c *bufferedCore) Finish(ctx context.Context, out []byte) (int, error) {
	result, err := c.finish(ctx, c.buf)
	if err != nil {
		return 0, err
	}
	defer clear(result)
	if len(result) > len(out) {
		return 0, &types.BufferTooSmallError{Need: len(result), Have: len(out)}
	}
	n := copy(out, result)
	c.drop()
	return n, nil
}

func (c *bufferedCore) Reset() error {
	c.drop()
	return nil
}

func (c *bufferedCore) Release() error {
	c.drop()
	c.buf = nil
	return nil
}

func (c *bufferedCore) drop() {
	clear(c.buf)
	c.buf = c.buf[:0]
}
