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
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/aead"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
)

const blockSize = aes.BlockSize

// =============================================================================
// PKCS#7
// =============================================================================

func pkcs7Pad(data []byte) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte(nil), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidBlockSize
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}

func checkIV(iv []byte) error {
	if len(iv) != blockSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIV, len(iv), blockSize)
	}
	return nil
}

// =============================================================================
// CBC
// =============================================================================

// cbcEngine is AES-CBC with optional PKCS#7 padding. Encrypt prefixes a
// random IV.
type cbcEngine struct {
	p       *Provider
	block   cipher.Block
	padding bool
}

var _ operation.IVCipherEngine = (*cbcEngine)(nil)

func (e *cbcEngine) IVSize() int {
	return blockSize
}

func (e *cbcEngine) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		iv, err := e.p.randomIV(blockSize)
		if err != nil {
			return nil, err
		}
		ct, err := e.encrypt(iv, plaintext)
		if err != nil {
			return nil, err
		}
		return append(iv, ct...), nil
	})
}

func (e *cbcEngine) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		if len(ciphertext) < blockSize {
			return nil, fmt.Errorf("%w: ciphertext shorter than the IV", ErrInvalidBlockSize)
		}
		return e.decrypt(ciphertext[:blockSize], ciphertext[blockSize:])
	})
}

func (e *cbcEngine) EncryptWithIV(ctx context.Context, iv, plaintext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		if err := checkIV(iv); err != nil {
			return nil, err
		}
		return e.encrypt(iv, plaintext)
	})
}

func (e *cbcEngine) DecryptWithIV(ctx context.Context, iv, ciphertext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		if err := checkIV(iv); err != nil {
			return nil, err
		}
		return e.decrypt(iv, ciphertext)
	})
}

func (e *cbcEngine) encrypt(iv, plaintext []byte) ([]byte, error) {
	if e.padding {
		plaintext = pkcs7Pad(plaintext)
	} else if len(plaintext)%blockSize != 0 {
		return nil, ErrInvalidBlockSize
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(out, plaintext)
	return out, nil
}

func (e *cbcEngine) decrypt(iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%blockSize != 0 || (e.padding && len(ciphertext) == 0) {
		return nil, ErrInvalidBlockSize
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(out, ciphertext)
	if !e.padding {
		return out, nil
	}
	return pkcs7Unpad(out)
}

func (e *cbcEngine) NewEncryptCore(ctx context.Context) (operation.CipherCore, error) {
	iv, err := e.p.randomIV(blockSize)
	if err != nil {
		return nil, err
	}
	return &cbcEncryptCore{
		block:     e.block,
		padding:   e.padding,
		ivPending: iv,
		prev:      append([]byte(nil), iv...),
	}, nil
}

func (e *cbcEngine) NewDecryptCore(ctx context.Context) (operation.CipherCore, error) {
	return &cbcDecryptCore{block: e.block, padding: e.padding}, nil
}

// cbcEncryptCore emits the IV with its first output and keeps the partial
// trailing block until more input or Finish.
type cbcEncryptCore struct {
	block     cipher.Block
	padding   bool
	ivPending []byte
	prev      []byte
	pending   []byte
}

func (c *cbcEncryptCore) UpdateSize(n int) int {
	return len(c.ivPending) + (len(c.pending)+n)/blockSize*blockSize
}

func (c *cbcEncryptCore) Update(_ context.Context, p, out []byte) (int, error) {
	written := copy(out, c.ivPending)
	c.ivPending = nil

	data := append(c.pending, p...)
	full := len(data) / blockSize * blockSize
	if full > 0 {
		cipher.NewCBCEncrypter(c.block, c.prev).CryptBlocks(out[written:written+full], data[:full])
		c.prev = append(c.prev[:0], out[written+full-blockSize:written+full]...)
	}
	c.pending = append([]byte(nil), data[full:]...)
	return written + full, nil
}

func (c *cbcEncryptCore) FinishSize() int {
	if c.padding {
		return len(c.ivPending) + blockSize
	}
	return len(c.ivPending)
}

func (c *cbcEncryptCore) Finish(_ context.Context, out []byte) (int, error) {
	if !c.padding && len(c.pending) != 0 {
		return 0, ErrInvalidBlockSize
	}
	written := copy(out, c.ivPending)
	c.ivPending = nil
	if !c.padding {
		return written, nil
	}
	last := pkcs7Pad(c.pending)
	cipher.NewCBCEncrypter(c.block, c.prev).CryptBlocks(out[written:written+blockSize], last)
	c.pending = nil
	return written + blockSize, nil
}

func (c *cbcEncryptCore) Release() error {
	clear(c.pending)
	c.pending = nil
	return nil
}

// cbcDecryptCore reads the IV from the first block of input. With padding
// it holds back the final block until Finish.
type cbcDecryptCore struct {
	block   cipher.Block
	padding bool
	haveIV  bool
	prev    []byte
	pending []byte
}

// decryptable returns how many of n buffered ciphertext bytes can be
// decrypted now.
func (c *cbcDecryptCore) decryptable(n int) int {
	if c.padding {
		if n == 0 {
			return 0
		}
		return (n - 1) / blockSize * blockSize
	}
	return n / blockSize * blockSize
}

func (c *cbcDecryptCore) UpdateSize(n int) int {
	total := len(c.pending) + n
	if !c.haveIV {
		if total < blockSize {
			return 0
		}
		total -= blockSize
	}
	return c.decryptable(total)
}

func (c *cbcDecryptCore) Update(_ context.Context, p, out []byte) (int, error) {
	data := append(c.pending, p...)
	if !c.haveIV {
		if len(data) < blockSize {
			c.pending = data
			return 0, nil
		}
		c.prev = append([]byte(nil), data[:blockSize]...)
		data = data[blockSize:]
		c.haveIV = true
	}
	k := c.decryptable(len(data))
	if k > 0 {
		cipher.NewCBCDecrypter(c.block, c.prev).CryptBlocks(out[:k], data[:k])
		c.prev = append(c.prev[:0], data[k-blockSize:k]...)
	}
	c.pending = append([]byte(nil), data[k:]...)
	return k, nil
}

// last decrypts the held back block without consuming it.
func (c *cbcDecryptCore) last() ([]byte, error) {
	if !c.haveIV || len(c.pending) != blockSize {
		return nil, ErrInvalidBlockSize
	}
	out := make([]byte, blockSize)
	cipher.NewCBCDecrypter(c.block, c.prev).CryptBlocks(out, c.pending)
	return pkcs7Unpad(out)
}

func (c *cbcDecryptCore) FinishSize() int {
	if !c.padding {
		return 0
	}
	plain, err := c.last()
	if err != nil {
		return 0
	}
	return len(plain)
}

func (c *cbcDecryptCore) Finish(_ context.Context, out []byte) (int, error) {
	if !c.haveIV {
		return 0, fmt.Errorf("%w: ciphertext shorter than the IV", ErrInvalidBlockSize)
	}
	if !c.padding {
		if len(c.pending) != 0 {
			return 0, ErrInvalidBlockSize
		}
		return 0, nil
	}
	plain, err := c.last()
	if err != nil {
		return 0, err
	}
	c.pending = nil
	return copy(out, plain), nil
}

func (c *cbcDecryptCore) Release() error {
	c.pending = nil
	return nil
}

// =============================================================================
// CTR
// =============================================================================

// ctrEngine is AES-CTR. Caller supplied IVs are checked against the key's
// nonce tracker.
type ctrEngine struct {
	p      *Provider
	block  cipher.Block
	nonces *aead.NonceTracker
}

var _ operation.IVCipherEngine = (*ctrEngine)(nil)

func (e *ctrEngine) IVSize() int {
	return blockSize
}

func (e *ctrEngine) xor(iv, in []byte) []byte {
	out := make([]byte, len(in))
	cipher.NewCTR(e.block, iv).XORKeyStream(out, in)
	return out
}

func (e *ctrEngine) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		iv, err := e.p.randomIV(blockSize)
		if err != nil {
			return nil, err
		}
		return append(iv, e.xor(iv, plaintext)...), nil
	})
}

func (e *ctrEngine) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		if len(ciphertext) < blockSize {
			return nil, fmt.Errorf("%w: ciphertext shorter than the IV", ErrInvalidIV)
		}
		return e.xor(ciphertext[:blockSize], ciphertext[blockSize:]), nil
	})
}

func (e *ctrEngine) EncryptWithIV(ctx context.Context, iv, plaintext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		if err := checkIV(iv); err != nil {
			return nil, err
		}
		if err := e.nonces.CheckAndRecordNonce(iv); err != nil {
			return nil, err
		}
		return e.xor(iv, plaintext), nil
	})
}

func (e *ctrEngine) DecryptWithIV(ctx context.Context, iv, ciphertext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		if err := checkIV(iv); err != nil {
			return nil, err
		}
		return e.xor(iv, ciphertext), nil
	})
}

func (e *ctrEngine) NewEncryptCore(ctx context.Context) (operation.CipherCore, error) {
	iv, err := e.p.randomIV(blockSize)
	if err != nil {
		return nil, err
	}
	return &ctrEncryptCore{stream: cipher.NewCTR(e.block, iv), ivPending: iv}, nil
}

func (e *ctrEngine) NewDecryptCore(ctx context.Context) (operation.CipherCore, error) {
	return &ctrDecryptCore{block: e.block}, nil
}

type ctrEncryptCore struct {
	stream    cipher.Stream
	ivPending []byte
}

func (c *ctrEncryptCore) UpdateSize(n int) int {
	return len(c.ivPending) + n
}

func (c *ctrEncryptCore) Update(_ context.Context, p, out []byte) (int, error) {
	written := copy(out, c.ivPending)
	c.ivPending = nil
	c.stream.XORKeyStream(out[written:written+len(p)], p)
	return written + len(p), nil
}

func (c *ctrEncryptCore) FinishSize() int {
	return len(c.ivPending)
}

func (c *ctrEncryptCore) Finish(_ context.Context, out []byte) (int, error) {
	written := copy(out, c.ivPending)
	c.ivPending = nil
	return written, nil
}

func (c *ctrEncryptCore) Release() error {
	return nil
}

type ctrDecryptCore struct {
	block  cipher.Block
	iv     []byte
	stream cipher.Stream
}

func (c *ctrDecryptCore) UpdateSize(n int) int {
	if c.stream != nil {
		return n
	}
	return max(0, n-(blockSize-len(c.iv)))
}

func (c *ctrDecryptCore) Update(_ context.Context, p, out []byte) (int, error) {
	if c.stream == nil {
		take := min(blockSize-len(c.iv), len(p))
		c.iv = append(c.iv, p[:take]...)
		p = p[take:]
		if len(c.iv) < blockSize {
			return 0, nil
		}
		c.stream = cipher.NewCTR(c.block, c.iv)
	}
	c.stream.XORKeyStream(out[:len(p)], p)
	return len(p), nil
}

func (c *ctrDecryptCore) FinishSize() int {
	return 0
}

func (c *ctrDecryptCore) Finish(context.Context, []byte) (int, error) {
	if c.stream == nil {
		return 0, fmt.Errorf("%w: ciphertext shorter than the IV", ErrInvalidIV)
	}
	return 0, nil
}

func (c *ctrDecryptCore) Release() error {
	return nil
}
