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
	"crypto"
	"crypto/cipher"
	"crypto/elliptic"
	"fmt"

	"github.com/ThalesGroup/crypto11"
)

// Token is the subset of a PKCS#11 token the provider uses. Keys are
// addressed by CKA_LABEL; the generated CKA_ID equals the label.
type Token interface {
	// GenerateECDSA creates a key pair on curve.
	GenerateECDSA(label []byte, curve elliptic.Curve) (crypto.Signer, error)

	// GenerateRSA creates a key pair with a modulus of bits.
	GenerateRSA(label []byte, bits int) (KeyPair, error)

	// GenerateAES creates a secret key of bits.
	GenerateAES(label []byte, bits int) (SecretKey, error)

	// FindKeyPair returns the private key labelled label. RSA keys also
	// implement crypto.Decrypter. It returns ErrKeyNotFound when no
	// key pair carries the label.
	FindKeyPair(label []byte) (crypto.Signer, error)

	// FindSecretKey returns the secret key labelled label, or
	// ErrKeyNotFound.
	FindSecretKey(label []byte) (SecretKey, error)

	Close() error
}

// KeyPair is a token private key that signs and decrypts.
type KeyPair interface {
	crypto.Signer
	crypto.Decrypter
}

// SecretKey is a token secret key.
type SecretKey interface {
	// NewGCM returns CKM_AES_GCM with 12 byte nonces and 16 byte tags.
	// Nonces passed to Seal are used as the IV.
	NewGCM() (cipher.AEAD, error)
}

// contextToken adapts a crypto11 context.
type contextToken struct {
	ctx *crypto11.Context
}

var _ Token = (*contextToken)(nil)

// OpenToken logs in to the token named by config.
func OpenToken(config *Config) (Token, error) {
	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:        config.Library,
		TokenLabel:  config.TokenLabel,
		SlotNumber:  config.Slot,
		Pin:         config.PIN,
		MaxSessions: config.MaxSessions,
	})
	if err != nil {
		return nil, fmt.Errorf("pkcs11: configure context: %w", err)
	}
	return &contextToken{ctx: ctx}, nil
}

// NewToken wraps an existing crypto11 context. Closing the token closes
// the context.
func NewToken(ctx *crypto11.Context) Token {
	return &contextToken{ctx: ctx}
}

func (t *contextToken) GenerateECDSA(label []byte, curve elliptic.Curve) (crypto.Signer, error) {
	return t.ctx.GenerateECDSAKeyPairWithLabel(label, label, curve)
}

func (t *contextToken) GenerateRSA(label []byte, bits int) (KeyPair, error) {
	return t.ctx.GenerateRSAKeyPairWithLabel(label, label, bits)
}

func (t *contextToken) GenerateAES(label []byte, bits int) (SecretKey, error) {
	return t.ctx.GenerateSecretKeyWithLabel(label, label, bits, crypto11.CipherAES)
}

func (t *contextToken) FindKeyPair(label []byte) (crypto.Signer, error) {
	signer, err := t.ctx.FindKeyPair(nil, label)
	if err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, label)
	}
	return signer, nil
}

func (t *contextToken) FindSecretKey(label []byte) (SecretKey, error) {
	key, err := t.ctx.FindKey(nil, label)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, label)
	}
	return key, nil
}

func (t *contextToken) Close() error {
	return t.ctx.Close()
}
