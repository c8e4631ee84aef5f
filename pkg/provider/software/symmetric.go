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
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/aead"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// =============================================================================
// AES key material
// =============================================================================

// aesSecret is the state shared by the AES key types.
type aesSecret struct {
	block  cipher.Block
	nonces *aead.NonceTracker
}

func (p *Provider) generateAES(size types.AESKeySize) ([]byte, error) {
	secret, err := rand.Bytes(p.rng, size.Bytes())
	if err != nil {
		return nil, fmt.Errorf("software: generate AES key: %w", err)
	}
	return secret, nil
}

func checkAESKeySize(size types.AESKeySize) error {
	if !size.Valid() {
		return fmt.Errorf("%w: AES key size %d", ErrInvalidKeySize, size)
	}
	return nil
}

// decodeAES parses a RAW or JWK(oct) AES key and checks its length.
func decodeAES(format types.KeyFormat, data []byte) ([]byte, error) {
	secret, err := decodeSecret(format, data)
	if err != nil {
		return nil, err
	}
	if !types.AESKeySize(len(secret) * 8).Valid() {
		return nil, fmt.Errorf("%w: AES key is %d bytes", ErrInvalidKeySize, len(secret))
	}
	return secret, nil
}

func (p *Provider) newAESSecret(secret []byte) (aesSecret, error) {
	block, err := aes.NewCipher(secret)
	if err != nil {
		return aesSecret{}, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	return aesSecret{block: block, nonces: p.nonceTracker()}, nil
}

// aesKeyFamily builds the generator and decoder of one AES mode from a
// key constructor.
func aesKeyFamily[K any](p *Provider, alg func(n int) string, newKey func(secret []byte, enc operation.KeyEncoding) (K, error)) (
	func(types.AESKeySize) (operation.KeyGenerator[K], error), operation.KeyDecoder[K]) {

	build := func(secret []byte) (K, error) {
		enc := keyEncoding(p, types.KeyTypeAES, symmetricFormats, func(format types.KeyFormat) ([]byte, error) {
			return encodeSecret(secret, alg(len(secret)), format)
		})
		return newKey(secret, enc)
	}
	gen := func(size types.AESKeySize) (operation.KeyGenerator[K], error) {
		if err := checkAESKeySize(size); err != nil {
			return nil, err
		}
		return generator(p, func(ctx context.Context) (K, error) {
			secret, err := p.generateAES(size)
			if err != nil {
				var zero K
				return zero, err
			}
			return build(secret)
		}), nil
	}
	dec := decoder(p, types.KeyTypeAES, symmetricFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (K, error) {
			secret, err := decodeAES(format, data)
			if err != nil {
				var zero K
				return zero, err
			}
			return build(secret)
		})
	return gen, dec
}

func noJWKAlg(int) string {
	return ""
}

// =============================================================================
// AES-GCM
// =============================================================================

type aesGCMFamily struct {
	p *Provider
}

var _ algorithm.AESGCM = (*aesGCMFamily)(nil)

func (f *aesGCMFamily) family() (func(types.AESKeySize) (operation.KeyGenerator[algorithm.AESGCMKey], error), operation.KeyDecoder[algorithm.AESGCMKey]) {
	return aesKeyFamily(f.p, gcmJWKAlg, func(secret []byte, enc operation.KeyEncoding) (algorithm.AESGCMKey, error) {
		s, err := f.p.newAESSecret(secret)
		if err != nil {
			return nil, err
		}
		return &aesGCMKey{KeyEncoding: enc, p: f.p, aesSecret: s, usage: f.p.bytesTracker()}, nil
	})
}

func (f *aesGCMFamily) KeyGenerator(size types.AESKeySize) (operation.KeyGenerator[algorithm.AESGCMKey], error) {
	gen, _ := f.family()
	return gen(size)
}

func (f *aesGCMFamily) KeyDecoder() operation.KeyDecoder[algorithm.AESGCMKey] {
	_, dec := f.family()
	return dec
}

func gcmJWKAlg(n int) string {
	return fmt.Sprintf("A%dGCM", n*8)
}

type aesGCMKey struct {
	operation.KeyEncoding
	aesSecret
	p     *Provider
	usage *aead.BytesTracker
}

// Cipher accepts tag sizes from 12 to 16 bytes. All ciphers of one key
// share its nonce and usage tracking.
func (k *aesGCMKey) Cipher(tagSize int) (operation.AEADIVCipher, error) {
	if tagSize < 12 || tagSize > 16 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTagSize, tagSize)
	}
	gcm, err := cipher.NewGCMWithTagSize(k.block, tagSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTagSize, err)
	}
	return operation.NewAEADCipher(operation.Synchronous, newAEADEngine(k.p, gcm, k.nonces, k.usage)), nil
}

// =============================================================================
// AES-CBC
// =============================================================================

type aesCBCFamily struct {
	p *Provider
}

var _ algorithm.AESCBC = (*aesCBCFamily)(nil)

func (f *aesCBCFamily) family() (func(types.AESKeySize) (operation.KeyGenerator[algorithm.AESCBCKey], error), operation.KeyDecoder[algorithm.AESCBCKey]) {
	return aesKeyFamily(f.p, noJWKAlg, func(secret []byte, enc operation.KeyEncoding) (algorithm.AESCBCKey, error) {
		s, err := f.p.newAESSecret(secret)
		if err != nil {
			return nil, err
		}
		return &aesCBCKey{KeyEncoding: enc, p: f.p, aesSecret: s}, nil
	})
}

func (f *aesCBCFamily) KeyGenerator(size types.AESKeySize) (operation.KeyGenerator[algorithm.AESCBCKey], error) {
	gen, _ := f.family()
	return gen(size)
}

func (f *aesCBCFamily) KeyDecoder() operation.KeyDecoder[algorithm.AESCBCKey] {
	_, dec := f.family()
	return dec
}

type aesCBCKey struct {
	operation.KeyEncoding
	aesSecret
	p *Provider
}

func (k *aesCBCKey) Cipher(padding bool) operation.IVCipher {
	return operation.NewIVCipher(operation.Synchronous, &cbcEngine{p: k.p, block: k.block, padding: padding})
}

// =============================================================================
// AES-CTR
// =============================================================================

type aesCTRFamily struct {
	p *Provider
}

var _ algorithm.AESCTR = (*aesCTRFamily)(nil)

func (f *aesCTRFamily) family() (func(types.AESKeySize) (operation.KeyGenerator[algorithm.AESCTRKey], error), operation.KeyDecoder[algorithm.AESCTRKey]) {
	return aesKeyFamily(f.p, noJWKAlg, func(secret []byte, enc operation.KeyEncoding) (algorithm.AESCTRKey, error) {
		s, err := f.p.newAESSecret(secret)
		if err != nil {
			return nil, err
		}
		return &aesCTRKey{
			KeyEncoding: enc,
			cipher:      operation.NewIVCipher(operation.Synchronous, &ctrEngine{p: f.p, block: s.block, nonces: s.nonces}),
		}, nil
	})
}

func (f *aesCTRFamily) KeyGenerator(size types.AESKeySize) (operation.KeyGenerator[algorithm.AESCTRKey], error) {
	gen, _ := f.family()
	return gen(size)
}

func (f *aesCTRFamily) KeyDecoder() operation.KeyDecoder[algorithm.AESCTRKey] {
	_, dec := f.family()
	return dec
}

type aesCTRKey struct {
	operation.KeyEncoding
	cipher operation.IVCipher
}

func (k *aesCTRKey) Cipher() operation.IVCipher {
	return k.cipher
}

// =============================================================================
// ChaCha20-Poly1305
// =============================================================================

type chachaFamily struct {
	p *Provider
}

var _ algorithm.ChaCha20Poly1305 = (*chachaFamily)(nil)

func (f *chachaFamily) newKey(secret []byte) (algorithm.ChaCha20Poly1305Key, error) {
	a, err := chacha20poly1305.New(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	engine := newAEADEngine(f.p, a, f.p.nonceTracker(), f.p.bytesTracker())
	return &chachaKey{
		KeyEncoding: keyEncoding(f.p, types.KeyTypeChaCha20Poly1305, rawFormats, func(types.KeyFormat) ([]byte, error) {
			return append([]byte(nil), secret...), nil
		}),
		cipher: operation.NewAEADCipher(operation.Synchronous, engine),
	}, nil
}

func (f *chachaFamily) KeyGenerator() operation.KeyGenerator[algorithm.ChaCha20Poly1305Key] {
	return generator(f.p, func(ctx context.Context) (algorithm.ChaCha20Poly1305Key, error) {
		secret, err := rand.Bytes(f.p.rng, chacha20poly1305.KeySize)
		if err != nil {
			return nil, fmt.Errorf("software: generate ChaCha20-Poly1305 key: %w", err)
		}
		return f.newKey(secret)
	})
}

func (f *chachaFamily) KeyDecoder() operation.KeyDecoder[algorithm.ChaCha20Poly1305Key] {
	return decoder(f.p, types.KeyTypeChaCha20Poly1305, rawFormats,
		func(ctx context.Context, _ types.KeyFormat, data []byte) (algorithm.ChaCha20Poly1305Key, error) {
			if len(data) != chacha20poly1305.KeySize {
				return nil, fmt.Errorf("%w: ChaCha20-Poly1305 key is %d bytes", ErrInvalidKeySize, len(data))
			}
			return f.newKey(append([]byte(nil), data...))
		})
}

type chachaKey struct {
	operation.KeyEncoding
	cipher operation.AEADIVCipher
}

func (k *chachaKey) Cipher() operation.AEADIVCipher {
	return k.cipher
}
