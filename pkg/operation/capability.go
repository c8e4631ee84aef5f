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

package operation

import (
	"context"
)

// =============================================================================
// Capability Interfaces
// =============================================================================
// Every operation has a blocking form and a suspending ...Context form. On
// engines that only support asynchronous calls the blocking form fails with
// types.ErrBlockingNotSupported; portable callers use the Context forms.

// Hasher computes message digests.
type Hasher interface {
	DigestSize() int
	Hash(data []byte) ([]byte, error)
	HashContext(ctx context.Context, data []byte) ([]byte, error)
	CreateHashFunction() (*HashFunction, error)
	CreateHashFunctionContext(ctx context.Context) (*HashFunction, error)
}

// Signer produces signatures (or MACs) over messages.
type Signer interface {
	SignatureSize() int
	Sign(data []byte) ([]byte, error)
	SignContext(ctx context.Context, data []byte) ([]byte, error)
	CreateSignFunction() (*SignFunction, error)
	CreateSignFunctionContext(ctx context.Context) (*SignFunction, error)
}

// Verifier checks signatures. A signature that does not match is reported
// as false with a nil error.
type Verifier interface {
	Verify(data, signature []byte) (bool, error)
	VerifyContext(ctx context.Context, data, signature []byte) (bool, error)
	CreateVerifyFunction() (*VerifyFunction, error)
	CreateVerifyFunctionContext(ctx context.Context) (*VerifyFunction, error)
}

// Encryptor transforms plaintext into ciphertext.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	EncryptContext(ctx context.Context, plaintext []byte) ([]byte, error)
	CreateEncryptFunction() (*CipherFunction, error)
	CreateEncryptFunctionContext(ctx context.Context) (*CipherFunction, error)
}

// Decryptor reverses an Encryptor.
type Decryptor interface {
	Decrypt(ciphertext []byte) ([]byte, error)
	DecryptContext(ctx context.Context, ciphertext []byte) ([]byte, error)
	CreateDecryptFunction() (*CipherFunction, error)
	CreateDecryptFunctionContext(ctx context.Context) (*CipherFunction, error)
}

// Cipher is an Encryptor and Decryptor over one key.
type Cipher interface {
	Encryptor
	Decryptor
}

// IVCipher is a Cipher that also accepts caller supplied IVs. Ciphertexts
// produced WithIV do not carry the IV.
type IVCipher interface {
	Cipher
	IVSize() int
	EncryptWithIV(iv, plaintext []byte) ([]byte, error)
	EncryptWithIVContext(ctx context.Context, iv, plaintext []byte) ([]byte, error)
	DecryptWithIV(iv, ciphertext []byte) ([]byte, error)
	DecryptWithIVContext(ctx context.Context, iv, ciphertext []byte) ([]byte, error)
}

// AEADEncryptor encrypts and authenticates plaintext plus optional
// associated data.
type AEADEncryptor interface {
	Encryptor
	Seal(plaintext, associatedData []byte) ([]byte, error)
	SealContext(ctx context.Context, plaintext, associatedData []byte) ([]byte, error)
	CreateSealFunction(associatedData []byte) (*CipherFunction, error)
	CreateSealFunctionContext(ctx context.Context, associatedData []byte) (*CipherFunction, error)
}

// AEADDecryptor authenticates and decrypts. Any mismatch fails with
// types.ErrAuthenticationFailed and no plaintext.
type AEADDecryptor interface {
	Decryptor
	Open(ciphertext, associatedData []byte) ([]byte, error)
	OpenContext(ctx context.Context, ciphertext, associatedData []byte) ([]byte, error)
	CreateOpenFunction(associatedData []byte) (*CipherFunction, error)
	CreateOpenFunctionContext(ctx context.Context, associatedData []byte) (*CipherFunction, error)
}

// AEADCipher is an authenticated cipher over one key.
type AEADCipher interface {
	AEADEncryptor
	AEADDecryptor
	NonceSize() int
	TagSize() int
}

// AEADIVCipher is an AEADCipher that also accepts caller supplied nonces.
type AEADIVCipher interface {
	AEADCipher
	SealWithIV(iv, plaintext, associatedData []byte) ([]byte, error)
	SealWithIVContext(ctx context.Context, iv, plaintext, associatedData []byte) ([]byte, error)
	OpenWithIV(iv, ciphertext, associatedData []byte) ([]byte, error)
	OpenWithIVContext(ctx context.Context, iv, ciphertext, associatedData []byte) ([]byte, error)
}

// SecretDerivation derives a secret from input keying material. Parameters
// such as salt and output size are bound when the derivation is created.
type SecretDerivation interface {
	DeriveSecret(input []byte) ([]byte, error)
	DeriveSecretContext(ctx context.Context, input []byte) ([]byte, error)
}

// SharedSecretDerivation derives a shared secret with a peer key.
type SharedSecretDerivation[K any] interface {
	DeriveSharedSecret(other K) ([]byte, error)
	DeriveSharedSecretContext(ctx context.Context, other K) ([]byte, error)
}

// =============================================================================
// Derived Implementations
// =============================================================================

type hasher struct {
	exec   Executor
	engine HashEngine
}

// NewHasher derives a Hasher from an engine.
func NewHasher(exec Executor, engine HashEngine) Hasher {
	return &hasher{exec: exec, engine: engine}
}

func (h *hasher) DigestSize() int {
	return h.engine.DigestSize()
}

func (h *hasher) Hash(data []byte) ([]byte, error) {
	return Call(h.exec, func(ctx context.Context) ([]byte, error) {
		return h.hash(ctx, data)
	})
}

func (h *hasher) HashContext(ctx context.Context, data []byte) ([]byte, error) {
	return CallContext(ctx, h.exec, func(ctx context.Context) ([]byte, error) {
		return h.hash(ctx, data)
	})
}

func (h *hasher) hash(ctx context.Context, data []byte) ([]byte, error) {
	if o, ok := h.engine.(OneShotHashEngine); ok {
		return o.Digest(ctx, data)
	}
	core, err := h.engine.NewHashCore(ctx)
	if err != nil {
		return nil, err
	}
	defer core.Release()

	if err := core.Update(ctx, data); err != nil {
		return nil, err
	}
	out := make([]byte, h.engine.DigestSize())
	if err := core.Finish(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *hasher) newFunction(ctx context.Context) (*HashFunction, error) {
	core, err := h.engine.NewHashCore(ctx)
	if err != nil {
		return nil, err
	}
	return newHashFunction(h.exec, core, h.engine.DigestSize()), nil
}

func (h *hasher) CreateHashFunction() (*HashFunction, error) {
	return Call(h.exec, h.newFunction)
}

func (h *hasher) CreateHashFunctionContext(ctx context.Context) (*HashFunction, error) {
	return CallAtomic(ctx, h.exec, h.newFunction)
}

type signer struct {
	exec   Executor
	engine SignEngine
}

// NewSigner derives a Signer from an engine.
func NewSigner(exec Executor, engine SignEngine) Signer {
	return &signer{exec: exec, engine: engine}
}

func (s *signer) SignatureSize() int {
	return s.engine.SignatureSize()
}

func (s *signer) Sign(data []byte) ([]byte, error) {
	return Call(s.exec, func(ctx context.Context) ([]byte, error) {
		return s.sign(ctx, data)
	})
}

func (s *signer) SignContext(ctx context.Context, data []byte) ([]byte, error) {
	return CallContext(ctx, s.exec, func(ctx context.Context) ([]byte, error) {
		return s.sign(ctx, data)
	})
}

func (s *signer) sign(ctx context.Context, data []byte) ([]byte, error) {
	core, err := s.engine.NewSignCore(ctx)
	if err != nil {
		return nil, err
	}
	defer core.Release()

	if err := core.Update(ctx, data); err != nil {
		return nil, err
	}
	return core.Finish(ctx)
}

func (s *signer) newFunction(ctx context.Context) (*SignFunction, error) {
	core, err := s.engine.NewSignCore(ctx)
	if err != nil {
		return nil, err
	}
	return newSignFunction(s.exec, core, s.engine.SignatureSize()), nil
}

func (s *signer) CreateSignFunction() (*SignFunction, error) {
	return Call(s.exec, s.newFunction)
}

func (s *signer) CreateSignFunctionContext(ctx context.Context) (*SignFunction, error) {
	return CallAtomic(ctx, s.exec, s.newFunction)
}

type verifier struct {
	exec   Executor
	engine VerifyEngine
}

// NewVerifier derives a Verifier from an engine.
func NewVerifier(exec Executor, engine VerifyEngine) Verifier {
	return &verifier{exec: exec, engine: engine}
}

func (v *verifier) Verify(data, signature []byte) (bool, error) {
	return Call(v.exec, func(ctx context.Context) (bool, error) {
		return v.verify(ctx, data, signature)
	})
}

func (v *verifier) VerifyContext(ctx context.Context, data, signature []byte) (bool, error) {
	return CallContext(ctx, v.exec, func(ctx context.Context) (bool, error) {
		return v.verify(ctx, data, signature)
	})
}

func (v *verifier) verify(ctx context.Context, data, signature []byte) (bool, error) {
	core, err := v.engine.NewVerifyCore(ctx)
	if err != nil {
		return false, err
	}
	defer core.Release()

	if err := core.Update(ctx, data); err != nil {
		return false, err
	}
	return core.Finish(ctx, signature)
}

func (v *verifier) newFunction(ctx context.Context) (*VerifyFunction, error) {
	core, err := v.engine.NewVerifyCore(ctx)
	if err != nil {
		return nil, err
	}
	return newVerifyFunction(v.exec, core), nil
}

func (v *verifier) CreateVerifyFunction() (*VerifyFunction, error) {
	return Call(v.exec, v.newFunction)
}

func (v *verifier) CreateVerifyFunctionContext(ctx context.Context) (*VerifyFunction, error) {
	return CallAtomic(ctx, v.exec, v.newFunction)
}

type cipherImpl struct {
	exec   Executor
	engine CipherEngine
}

// NewCipher derives a Cipher from an engine.
func NewCipher(exec Executor, engine CipherEngine) Cipher {
	return &cipherImpl{exec: exec, engine: engine}
}

func (c *cipherImpl) Encrypt(plaintext []byte) ([]byte, error) {
	return Call(c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.Encrypt(ctx, plaintext)
	})
}

func (c *cipherImpl) EncryptContext(ctx context.Context, plaintext []byte) ([]byte, error) {
	return CallContext(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.Encrypt(ctx, plaintext)
	})
}

func (c *cipherImpl) Decrypt(ciphertext []byte) ([]byte, error) {
	return Call(c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.Decrypt(ctx, ciphertext)
	})
}

func (c *cipherImpl) DecryptContext(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return CallContext(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.Decrypt(ctx, ciphertext)
	})
}

func (c *cipherImpl) cipherFunction(newCore func(ctx context.Context) (CipherCore, error)) func(ctx context.Context) (*CipherFunction, error) {
	return func(ctx context.Context) (*CipherFunction, error) {
		core, err := newCore(ctx)
		if err != nil {
			return nil, err
		}
		return newCipherFunction(c.exec, core), nil
	}
}

func (c *cipherImpl) CreateEncryptFunction() (*CipherFunction, error) {
	return Call(c.exec, c.cipherFunction(c.engine.NewEncryptCore))
}

func (c *cipherImpl) CreateEncryptFunctionContext(ctx context.Context) (*CipherFunction, error) {
	return CallAtomic(ctx, c.exec, c.cipherFunction(c.engine.NewEncryptCore))
}

func (c *cipherImpl) CreateDecryptFunction() (*CipherFunction, error) {
	return Call(c.exec, c.cipherFunction(c.engine.NewDecryptCore))
}

func (c *cipherImpl) CreateDecryptFunctionContext(ctx context.Context) (*CipherFunction, error) {
	return CallAtomic(ctx, c.exec, c.cipherFunction(c.engine.NewDecryptCore))
}

type ivCipher struct {
	*cipherImpl
	engine IVCipherEngine
}

// NewIVCipher derives an IVCipher from an engine.
func NewIVCipher(exec Executor, engine IVCipherEngine) IVCipher {
	return &ivCipher{
		cipherImpl: &cipherImpl{exec: exec, engine: engine},
		engine:     engine,
	}
}

func (c *ivCipher) IVSize() int {
	return c.engine.IVSize()
}

func (c *ivCipher) EncryptWithIV(iv, plaintext []byte) ([]byte, error) {
	return Call(c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.EncryptWithIV(ctx, iv, plaintext)
	})
}

func (c *ivCipher) EncryptWithIVContext(ctx context.Context, iv, plaintext []byte) ([]byte, error) {
	return CallContext(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.EncryptWithIV(ctx, iv, plaintext)
	})
}

func (c *ivCipher) DecryptWithIV(iv, ciphertext []byte) ([]byte, error) {
	return Call(c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.DecryptWithIV(ctx, iv, ciphertext)
	})
}

func (c *ivCipher) DecryptWithIVContext(ctx context.Context, iv, ciphertext []byte) ([]byte, error) {
	return CallContext(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.DecryptWithIV(ctx, iv, ciphertext)
	})
}

type aeadCipher struct {
	exec   Executor
	engine AEADEngine
}

// NewAEADCipher derives an AEADIVCipher from an engine.
func NewAEADCipher(exec Executor, engine AEADEngine) AEADIVCipher {
	return &aeadCipher{exec: exec, engine: engine}
}

func (c *aeadCipher) NonceSize() int {
	return c.engine.NonceSize()
}

func (c *aeadCipher) TagSize() int {
	return c.engine.TagSize()
}

func (c *aeadCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return c.Seal(plaintext, nil)
}

func (c *aeadCipher) EncryptContext(ctx context.Context, plaintext []byte) ([]byte, error) {
	return c.SealContext(ctx, plaintext, nil)
}

func (c *aeadCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return c.Open(ciphertext, nil)
}

func (c *aeadCipher) DecryptContext(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return c.OpenContext(ctx, ciphertext, nil)
}

func (c *aeadCipher) Seal(plaintext, associatedData []byte) ([]byte, error) {
	return Call(c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.Seal(ctx, plaintext, associatedData)
	})
}

func (c *aeadCipher) SealContext(ctx context.Context, plaintext, associatedData []byte) ([]byte, error) {
	return CallContext(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.Seal(ctx, plaintext, associatedData)
	})
}

func (c *aeadCipher) Open(ciphertext, associatedData []byte) ([]byte, error) {
	return Call(c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.Open(ctx, ciphertext, associatedData)
	})
}

func (c *aeadCipher) OpenContext(ctx context.Context, ciphertext, associatedData []byte) ([]byte, error) {
	return CallContext(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.Open(ctx, ciphertext, associatedData)
	})
}

func (c *aeadCipher) SealWithIV(iv, plaintext, associatedData []byte) ([]byte, error) {
	return Call(c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.SealWithIV(ctx, iv, plaintext, associatedData)
	})
}

func (c *aeadCipher) SealWithIVContext(ctx context.Context, iv, plaintext, associatedData []byte) ([]byte, error) {
	return CallContext(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.SealWithIV(ctx, iv, plaintext, associatedData)
	})
}

func (c *aeadCipher) OpenWithIV(iv, ciphertext, associatedData []byte) ([]byte, error) {
	return Call(c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.OpenWithIV(ctx, iv, ciphertext, associatedData)
	})
}

func (c *aeadCipher) OpenWithIVContext(ctx context.Context, iv, ciphertext, associatedData []byte) ([]byte, error) {
	return CallContext(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		return c.engine.OpenWithIV(ctx, iv, ciphertext, associatedData)
	})
}

func (c *aeadCipher) cipherFunction(newCore func(ctx context.Context, ad []byte) (CipherCore, error), associatedData []byte) func(ctx context.Context) (*CipherFunction, error) {
	return func(ctx context.Context) (*CipherFunction, error) {
		core, err := newCore(ctx, associatedData)
		if err != nil {
			return nil, err
		}
		return newCipherFunction(c.exec, core), nil
	}
}

func (c *aeadCipher) CreateEncryptFunction() (*CipherFunction, error) {
	return c.CreateSealFunction(nil)
}

func (c *aeadCipher) CreateEncryptFunctionContext(ctx context.Context) (*CipherFunction, error) {
	return c.CreateSealFunctionContext(ctx, nil)
}

func (c *aeadCipher) CreateDecryptFunction() (*CipherFunction, error) {
	return c.CreateOpenFunction(nil)
}

func (c *aeadCipher) CreateDecryptFunctionContext(ctx context.Context) (*CipherFunction, error) {
	return c.CreateOpenFunctionContext(ctx, nil)
}

func (c *aeadCipher) CreateSealFunction(associatedData []byte) (*CipherFunction, error) {
	return Call(c.exec, c.cipherFunction(c.engine.NewSealCore, associatedData))
}

func (c *aeadCipher) CreateSealFunctionContext(ctx context.Context, associatedData []byte) (*CipherFunction, error) {
	return CallAtomic(ctx, c.exec, c.cipherFunction(c.engine.NewSealCore, associatedData))
}

func (c *aeadCipher) CreateOpenFunction(associatedData []byte) (*CipherFunction, error) {
	return Call(c.exec, c.cipherFunction(c.engine.NewOpenCore, associatedData))
}

func (c *aeadCipher) CreateOpenFunctionContext(ctx context.Context, associatedData []byte) (*CipherFunction, error) {
	return CallAtomic(ctx, c.exec, c.cipherFunction(c.engine.NewOpenCore, associatedData))
}

type secretDerivation struct {
	exec   Executor
	derive func(ctx context.Context, input []byte) ([]byte, error)
}

// NewSecretDerivation derives a SecretDerivation from a body.
func NewSecretDerivation(exec Executor, derive func(ctx context.Context, input []byte) ([]byte, error)) SecretDerivation {
	return &secretDerivation{exec: exec, derive: derive}
}

func (d *secretDerivation) DeriveSecret(input []byte) ([]byte, error) {
	return Call(d.exec, func(ctx context.Context) ([]byte, error) {
		return d.derive(ctx, input)
	})
}

func (d *secretDerivation) DeriveSecretContext(ctx context.Context, input []byte) ([]byte, error) {
	return CallContext(ctx, d.exec, func(ctx context.Context) ([]byte, error) {
		return d.derive(ctx, input)
	})
}

type sharedSecretDerivation[K any] struct {
	exec   Executor
	derive func(ctx context.Context, other K) ([]byte, error)
}

// NewSharedSecretDerivation derives a SharedSecretDerivation from a body.
func NewSharedSecretDerivation[K any](exec Executor, derive func(ctx context.Context, other K) ([]byte, error)) SharedSecretDerivation[K] {
	return &sharedSecretDerivation[K]{exec: exec, derive: derive}
}

func (d *sharedSecretDerivation[K]) DeriveSharedSecret(other K) ([]byte, error) {
	return Call(d.exec, func(ctx context.Context) ([]byte, error) {
		return d.derive(ctx, other)
	})
}

func (d *sharedSecretDerivation[K]) DeriveSharedSecretContext(ctx context.Context, other K) ([]byte, error) {
	return CallContext(ctx, d.exec, func(ctx context.Context) ([]byte, error) {
		return d.derive(ctx, other)
	})
}
