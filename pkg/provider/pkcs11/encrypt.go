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
	"crypto/cipher"
	"crypto/rsa"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/aead"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// =============================================================================
// RSAES-OAEP
// =============================================================================

type rsaOAEPFamily struct {
	p *Provider
}

var _ algorithm.RSAOAEP = (*rsaOAEPFamily)(nil)

func (f *rsaOAEPFamily) KeyPairGenerator(bits int, digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.RSAOAEPKeyPair], error) {
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
	return generator(f.p, func(ctx context.Context) (algorithm.RSAOAEPKeyPair, error) {
		kp, label, err := f.p.generateRSA(bits)
		if err != nil {
			return nil, err
		}
		public, err := localPublic(ctx, pubDec, kp.Public())
		if err != nil {
			return nil, err
		}
		return algorithm.NewKeyPair[algorithm.RSAOAEPPublicKey, algorithm.RSAOAEPPrivateKey](
			public, newRSAOAEPPrivateKey(f.p, label, kp, h)), nil
	}), nil
}

// PublicKeyDecoder returns the software decoder. Encryption runs locally.
func (f *rsaOAEPFamily) PublicKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAOAEPPublicKey], error) {
	local, err := provider.Get(f.p.local, ids.RSAOAEP)
	if err != nil {
		return nil, err
	}
	return local.PublicKeyDecoder(digest)
}

func (f *rsaOAEPFamily) PrivateKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAOAEPPrivateKey], error) {
	h, err := hashFor(digest)
	if err != nil {
		return nil, err
	}
	return refDecoder(f.p, types.KeyTypeRSAPrivate, func(label []byte) (algorithm.RSAOAEPPrivateKey, error) {
		kp, err := f.p.findRSA(label)
		if err != nil {
			return nil, err
		}
		return newRSAOAEPPrivateKey(f.p, string(label), kp, h), nil
	}), nil
}

type rsaOAEPPrivateKey struct {
	tokenKey
	decryptor operation.AEADDecryptor
}

func newRSAOAEPPrivateKey(p *Provider, label string, kp KeyPair, h crypto.Hash) *rsaOAEPPrivateKey {
	return &rsaOAEPPrivateKey{
		tokenKey:  newTokenKey(p, types.KeyTypeRSAPrivate, label),
		decryptor: operation.NewAEADCipher(operation.Synchronous, &oaepEngine{p: p, key: kp, hash: h}),
	}
}

// Decryptor decrypts with CKM_RSA_PKCS_OAEP. Associated data is the OAEP
// label.
func (k *rsaOAEPPrivateKey) Decryptor() operation.AEADDecryptor {
	return k.decryptor
}

// oaepEngine decrypts in the token and encrypts with the exported public
// key.
type oaepEngine struct {
	p    *Provider
	key  KeyPair
	hash crypto.Hash
}

var _ operation.AEADEngine = (*oaepEngine)(nil)

func (e *oaepEngine) NonceSize() int {
	return 0
}

func (e *oaepEngine) TagSize() int {
	return 0
}

func (e *oaepEngine) Seal(_ context.Context, plaintext, associatedData []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		pub := e.key.Public().(*rsa.PublicKey)
		ct, err := rsa.EncryptOAEP(e.hash.New(), e.p.rng, pub, plaintext, associatedData)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidParameter, err)
		}
		return ct, nil
	})
}

func (e *oaepEngine) Open(_ context.Context, ciphertext, associatedData []byte) ([]byte, error) {
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		pt, err := e.key.Decrypt(e.p.rng, ciphertext, &rsa.OAEPOptions{
			Hash:  e.hash,
			Label: associatedData,
		})
		if err != nil {
			return nil, translateDecrypt(err)
		}
		return pt, nil
	})
}

func (e *oaepEngine) SealWithIV(context.Context, []byte, []byte, []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: RSA-OAEP has no IV", types.ErrOperationNotSupported)
}

func (e *oaepEngine) OpenWithIV(context.Context, []byte, []byte, []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: RSA-OAEP has no IV", types.ErrOperationNotSupported)
}

func (e *oaepEngine) NewSealCore(_ context.Context, associatedData []byte) (operation.CipherCore, error) {
	ad := append([]byte(nil), associatedData...)
	size := e.key.Public().(*rsa.PublicKey).Size()
	return &bufferedCore{
		size:   func(int) int { return size },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) { return e.Seal(ctx, buf, ad) },
	}, nil
}

func (e *oaepEngine) NewOpenCore(_ context.Context, associatedData []byte) (operation.CipherCore, error) {
	ad := append([]byte(nil), associatedData...)
	return &bufferedCore{
		size:   func(n int) int { return n },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) { return e.Open(ctx, buf, ad) },
	}, nil
}

// =============================================================================
// AES-GCM
// =============================================================================

// gcmNonceSize is the CKM_AES_GCM IV length crypto11 uses.
const gcmNonceSize = 12

type aesGCMFamily struct {
	p *Provider
}

var _ algorithm.AESGCM = (*aesGCMFamily)(nil)

func (f *aesGCMFamily) KeyGenerator(size types.AESKeySize) (operation.KeyGenerator[algorithm.AESGCMKey], error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: AES key size %d", ErrInvalidKeySize, size)
	}
	return generator(f.p, func(context.Context) (algorithm.AESGCMKey, error) {
		label := newLabel()
		key, err := f.p.token.GenerateAES(label, int(size))
		if err != nil {
			return nil, fmt.Errorf("pkcs11: generate AES-%d key: %w", size, err)
		}
		f.p.logger.Debug("token key generated",
			logger.String("label", string(label)),
			logger.Int("bits", int(size)))
		return newAESGCMKey(f.p, string(label), key), nil
	}), nil
}

// KeyDecoder returns a decoder for types.FormatKeyRef.
func (f *aesGCMFamily) KeyDecoder() operation.KeyDecoder[algorithm.AESGCMKey] {
	return refDecoder(f.p, types.KeyTypeAES, func(label []byte) (algorithm.AESGCMKey, error) {
		key, err := f.p.token.FindSecretKey(label)
		if err != nil {
			return nil, err
		}
		return newAESGCMKey(f.p, string(label), key), nil
	})
}

type aesGCMKey struct {
	tokenKey
	key    SecretKey
	nonces *aead.NonceTracker
	usage  *aead.BytesTracker
}

func newAESGCMKey(p *Provider, label string, key SecretKey) *aesGCMKey {
	return &aesGCMKey{
		tokenKey: newTokenKey(p, types.KeyTypeAES, label),
		key:      key,
		nonces:   aead.NewNonceTracker(true),
		usage:    aead.NewBytesTracker(0),
	}
}

// Cipher returns a CKM_AES_GCM cipher. Only 16 byte tags are available.
// Nonces are drawn from the provider randomness source and passed to the
// token as the IV.
func (k *aesGCMKey) Cipher(tagSize int) (operation.AEADIVCipher, error) {
	if tagSize != algorithm.DefaultTagSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTagSize, tagSize)
	}
	gcm, err := k.key.NewGCM()
	if err != nil {
		return nil, fmt.Errorf("pkcs11: GCM: %w", err)
	}
	return operation.NewAEADCipher(operation.Synchronous, &gcmEngine{key: k, aead: gcm}), nil
}

// gcmEngine drives a token cipher.AEAD. Seal output is
// nonce || ciphertext || tag.
type gcmEngine struct {
	key  *aesGCMKey
	aead cipher.AEAD
}

var _ operation.AEADEngine = (*gcmEngine)(nil)

func (e *gcmEngine) NonceSize() int {
	return gcmNonceSize
}

func (e *gcmEngine) TagSize() int {
	return algorithm.DefaultTagSize
}

func (e *gcmEngine) Seal(_ context.Context, plaintext, associatedData []byte) ([]byte, error) {
	p := e.key.p
	return observe(p, metrics.OpEncrypt, func() ([]byte, error) {
		if err := e.key.usage.Reserve(len(plaintext)); err != nil {
			return nil, err
		}
		nonce := make([]byte, gcmNonceSize)
		if err := p.rng.NextBytes(nonce); err != nil {
			return nil, fmt.Errorf("pkcs11: generate nonce: %w", err)
		}
		sealed, err := e.seal(nonce, plaintext, associatedData)
		if err != nil {
			return nil, err
		}
		return append(nonce, sealed...), nil
	})
}

func (e *gcmEngine) Open(_ context.Context, ciphertext, associatedData []byte) ([]byte, error) {
	return observe(e.key.p, metrics.OpDecrypt, func() ([]byte, error) {
		if len(ciphertext) < gcmNonceSize+algorithm.DefaultTagSize {
			return nil, types.ErrAuthenticationFailed
		}
		return e.open(ciphertext[:gcmNonceSize], ciphertext[gcmNonceSize:], associatedData)
	})
}

func (e *gcmEngine) SealWithIV(_ context.Context, iv, plaintext, associatedData []byte) ([]byte, error) {
	return observe(e.key.p, metrics.OpEncrypt, func() ([]byte, error) {
		if len(iv) != gcmNonceSize {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIV, len(iv), gcmNonceSize)
		}
		if err := e.key.nonces.CheckAndRecordNonce(iv); err != nil {
			return nil, err
		}
		if err := e.key.usage.Reserve(len(plaintext)); err != nil {
			return nil, err
		}
		return e.seal(iv, plaintext, associatedData)
	})
}

func (e *gcmEngine) OpenWithIV(_ context.Context, iv, ciphertext, associatedData []byte) ([]byte, error) {
	return observe(e.key.p, metrics.OpDecrypt, func() ([]byte, error) {
		if len(iv) != gcmNonceSize {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIV, len(iv), gcmNonceSize)
		}
		return e.open(iv, ciphertext, associatedData)
	})
}

// seal converts the panic crypto11 raises for token errors into an error.
func (e *gcmEngine) seal(nonce, plaintext, associatedData []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("pkcs11: seal: %v", r)
		}
	}()
	return e.aead.Seal(nil, nonce, plaintext, associatedData), nil
}

func (e *gcmEngine) open(nonce, ciphertext, associatedData []byte) ([]byte, error) {
	pt, err := e.aead.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, translateDecrypt(err)
	}
	return pt, nil
}

func (e *gcmEngine) NewSealCore(_ context.Context, associatedData []byte) (operation.CipherCore, error) {
	ad := append([]byte(nil), associatedData...)
	return &bufferedCore{
		size:   func(n int) int { return n + gcmNonceSize + algorithm.DefaultTagSize },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) { return e.Seal(ctx, buf, ad) },
	}, nil
}

func (e *gcmEngine) NewOpenCore(_ context.Context, associatedData []byte) (operation.CipherCore, error) {
	ad := append([]byte(nil), associatedData...)
	return &bufferedCore{
		size:   func(n int) int { return max(0, n-gcmNonceSize-algorithm.DefaultTagSize) },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) { return e.Open(ctx, buf, ad) },
	}, nil
}

// bufferedCore collects all input and transforms it in Finish. size is an
// upper bound on the output; Complete returns only the bytes written.
type bufferedCore struct {
	buf    []byte
	size   func(n int) int
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
	return c.size(len(c.buf))
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
	clear(c.buf)
	c.buf = c.buf[:0]
	return n, nil
}

func (c *bufferedCore) Reset() error {
	clear(c.buf)
	c.buf = c.buf[:0]
	return nil
}

func (c *bufferedCore) Release() error {
	clear(c.buf)
	c.buf = nil
	return nil
}
