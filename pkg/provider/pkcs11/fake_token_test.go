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
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
)

// fakeToken keeps software keys under their labels.
type fakeToken struct {
	mu      sync.Mutex
	pairs   map[string]crypto.Signer
	secrets map[string]*fakeSecret
	closed  bool
	failGen error
}

var _ Token = (*fakeToken)(nil)

func newFakeToken() *fakeToken {
	return &fakeToken{
		pairs:   make(map[string]crypto.Signer),
		secrets: make(map[string]*fakeSecret),
	}
}

func (t *fakeToken) GenerateECDSA(label []byte, curve elliptic.Curve) (crypto.Signer, error) {
	if t.failGen != nil {
		return nil, t.failGen
	}
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, err
	}
	t.put(label, key)
	return key, nil
}

func (t *fakeToken) GenerateRSA(label []byte, bits int) (KeyPair, error) {
	if t.failGen != nil {
		return nil, t.failGen
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	t.put(label, key)
	return key, nil
}

func (t *fakeToken) GenerateAES(label []byte, bits int) (SecretKey, error) {
	if t.failGen != nil {
		return nil, t.failGen
	}
	key := &fakeSecret{key: make([]byte, bits/8)}
	if _, err := rand.Read(key.key); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.secrets[string(label)] = key
	return key, nil
}

func (t *fakeToken) FindKeyPair(label []byte) (crypto.Signer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, ok := t.pairs[string(label)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, label)
	}
	return key, nil
}

func (t *fakeToken) FindSecretKey(label []byte) (SecretKey, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, ok := t.secrets[string(label)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, label)
	}
	return key, nil
}

func (t *fakeToken) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeToken) put(label []byte, key crypto.Signer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs[string(label)] = key
}

type fakeSecret struct {
	key []byte
}

func (s *fakeSecret) NewGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
