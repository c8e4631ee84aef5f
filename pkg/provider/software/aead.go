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
	"crypto/cipher"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/aead"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// aeadEngine adapts a cipher.AEAD. Seal output is nonce || ciphertext || tag.
type aeadEngine struct {
	p      *Provider
	aead   cipher.AEAD
	nonces *aead.NonceTracker
	usage  *aead.BytesTracker
}

var _ operation.AEADEngine = (*aeadEngine)(nil)

// newAEADEngine binds a to the nonce and usage trackers of its key, which
// are shared by every cipher created from that key.
func newAEADEngine(p *Provider, a cipher.AEAD, nonces *aead.NonceTracker, usage *aead.BytesTracker) *aeadEngine {
	return &aeadEngine{
		p:      p,
		aead:   a,
		nonces: nonces,
		usage:  usage,
	}
}

func (e *aeadEngine) NonceSize() int {
	return e.aead.NonceSize()
}

func (e *aeadEngine) TagSize() int {
	return e.aead.Overhead()
}

func (e *aeadEngine) Seal(ctx context.Context, plaintext, associatedData []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		if err := e.usage.Reserve(len(plaintext)); err != nil {
			return nil, err
		}
		ns := e.aead.NonceSize()
		out := make([]byte, ns, ns+len(plaintext)+e.aead.Overhead())
		if err := e.p.rng.NextBytes(out); err != nil {
			return nil, fmt.Errorf("software: generate nonce: %w", err)
		}
		return e.aead.Seal(out, out[:ns], plaintext, associatedData), nil
	})
}

func (e *aeadEngine) Open(ctx context.Context, ciphertext, associatedData []byte) ([]byte, error) {
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		ns := e.aead.NonceSize()
		if len(ciphertext) < ns+e.aead.Overhead() {
			return nil, types.ErrAuthenticationFailed
		}
		return e.open(ciphertext[:ns], ciphertext[ns:], associatedData)
	})
}

func (e *aeadEngine) SealWithIV(ctx context.Context, iv, plaintext, associatedData []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		if len(iv) != e.aead.NonceSize() {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIV, len(iv), e.aead.NonceSize())
		}
		if err := e.nonces.CheckAndRecordNonce(iv); err != nil {
			return nil, err
		}
		if err := e.usage.Reserve(len(plaintext)); err != nil {
			return nil, err
		}
		return e.aead.Seal(nil, iv, plaintext, associatedData), nil
	})
}

func (e *aeadEngine) OpenWithIV(ctx context.Context, iv, ciphertext, associatedData []byte) ([]byte, error) {
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		if len(iv) != e.aead.NonceSize() {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIV, len(iv), e.aead.NonceSize())
		}
		return e.open(iv, ciphertext, associatedData)
	})
}

func (e *aeadEngine) open(nonce, ciphertext, associatedData []byte) ([]byte, error) {
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, types.ErrAuthenticationFailed
	}
	return plaintext, nil
}

func (e *aeadEngine) NewSealCore(ctx context.Context, associatedData []byte) (operation.CipherCore, error) {
	ad := append([]byte(nil), associatedData...)
	overhead := e.aead.NonceSize() + e.aead.Overhead()
	return &bufferedCore{
		size: func(n int) int { return n + overhead },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) {
			return e.Seal(ctx, buf, ad)
		},
	}, nil
}

func (e *aeadEngine) NewOpenCore(ctx context.Context, associatedData []byte) (operation.CipherCore, error) {
	ad := append([]byte(nil), associatedData...)
	overhead := e.aead.NonceSize() + e.aead.Overhead()
	return &bufferedCore{
		size: func(n int) int { return max(0, n-overhead) },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) {
			return e.Open(ctx, buf, ad)
		},
	}, nil
}

// bufferedCore collects all input and transforms it in Finish. When size
// is nil the output length is not known in advance, so FinishSize runs
// the transformation once and caches the result until the next Update.
type bufferedCore struct {
	buf    []byte
	size   func(n int) int
	finish func(ctx context.Context, buf []byte) ([]byte, error)

	cached    []byte
	cachedErr error
	hasCache  bool
}

func (c *bufferedCore) UpdateSize(int) int {
	return 0
}

func (c *bufferedCore) Update(_ context.Context, p, _ []byte) (int, error) {
	c.buf = append(c.buf, p...)
	c.dropCache()
	return 0, nil
}

func (c *bufferedCore) FinishSize() int {
	if c.size != nil {
		return c.size(len(c.buf))
	}
	if !c.hasCache {
		c.cached, c.cachedErr = c.finish(context.Background(), c.buf)
		c.hasCache = true
	}
	return len(c.cached)
}

func (c *bufferedCore) Finish(ctx context.Context, out []byte) (int, error) {
	result, err := c.cached, c.cachedErr
	if !c.hasCache {
		result, err = c.finish(ctx, c.buf)
	}
	if err != nil {
		c.dropCache()
		return 0, err
	}
	n := copy(out, result)
	clear(result)
	c.cached, c.cachedErr, c.hasCache = nil, nil, false
	return n, nil
}

func (c *bufferedCore) dropCache() {
	clear(c.cached)
	c.cached, c.cachedErr, c.hasCache = nil, nil, false
}

func (c *bufferedCore) Release() error {
	clear(c.buf)
	c.buf = nil
	c.dropCache()
	return nil
}

// randomIV returns n bytes from the provider randomness source.
func (p *Provider) randomIV(n int) ([]byte, error) {
	iv, err := rand.Bytes(p.rng, n)
	if err != nil {
		return nil, fmt.Errorf("software: generate IV: %w", err)
	}
	return iv, nil
}
