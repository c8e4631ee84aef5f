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
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// memoryKMS backs a MockService with keys held in memory.
type memoryKMS struct {
	mu    sync.Mutex
	keys  map[string]any
	calls atomic.Int32
}

func newMemoryService() (*MockService, *memoryKMS) {
	kms := &memoryKMS{keys: make(map[string]any)}
	return &MockService{
		NameFunc:      func() string { return "memory-kms" },
		CreateKeyFunc: kms.createKey,
		PublicKeyFunc: kms.publicKey,
		SignFunc:      kms.sign,
		EncryptFunc:   kms.encrypt,
		DecryptFunc:   kms.decrypt,
	}, kms
}

func (m *memoryKMS) key(id string) (any, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return k, nil
}

func (m *memoryKMS) createKey(_ context.Context, spec KeySpec) (string, error) {
	m.calls.Add(1)
	var (
		key any
		err error
	)
	switch spec.Kind {
	case KindECDSA:
		key, err = ecdsa.GenerateKey(spec.Curve.Elliptic(), rand.Reader)
	case KindRSAPSS, KindRSAOAEP:
		key, err = rsa.GenerateKey(rand.Reader, spec.Bits)
	case KindAESGCM:
		secret := make([]byte, spec.Bits/8)
		_, err = rand.Read(secret)
		key = secret
	default:
		return "", types.ErrOperationNotSupported
	}
	if err != nil {
		return "", err
	}
	id := "key-" + uuid.NewString()
	m.mu.Lock()
	m.keys[id] = key
	m.mu.Unlock()
	return id, nil
}

func (m *memoryKMS) publicKey(_ context.Context, id string) (crypto.PublicKey, error) {
	k, err := m.key(id)
	if err != nil {
		return nil, err
	}
	signer, ok := k.(crypto.Signer)
	if !ok {
		return nil, types.ErrOperationNotSupported
	}
	return signer.Public(), nil
}

func (m *memoryKMS) sign(_ context.Context, id string, spec KeySpec, digest []byte) ([]byte, error) {
	k, err := m.key(id)
	if err != nil {
		return nil, err
	}
	switch key := k.(type) {
	case *ecdsa.PrivateKey:
		return ecdsa.SignASN1(rand.Reader, key, digest)
	case *rsa.PrivateKey:
		return rsa.SignPSS(rand.Reader, key, spec.Hash, digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	}
	return nil, types.ErrOperationNotSupported
}

func (m *memoryKMS) gcm(id string) (cipher.AEAD, error) {
	k, err := m.key(id)
	if err != nil {
		return nil, err
	}
	secret, ok := k.([]byte)
	if !ok {
		return nil, types.ErrOperationNotSupported
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (m *memoryKMS) encrypt(_ context.Context, id string, _ KeySpec, plaintext, ad []byte) ([]byte, error) {
	aead, err := m.gcm(id)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, ad), nil
}

func (m *memoryKMS) decrypt(_ context.Context, id string, spec KeySpec, ciphertext, ad []byte) ([]byte, error) {
	if spec.Kind == KindRSAOAEP {
		k, err := m.key(id)
		if err != nil {
			return nil, err
		}
		pt, err := rsa.DecryptOAEP(spec.Hash.New(), nil, k.(*rsa.PrivateKey), ciphertext, ad)
		if err != nil {
			return nil, types.ErrAuthenticationFailed
		}
		return pt, nil
	}
	aead, err := m.gcm(id)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, types.ErrAuthenticationFailed
	}
	n := aead.NonceSize()
	pt, err := aead.Open(nil, ciphertext[:n], ciphertext[n:], ad)
	if err != nil {
		return nil, types.ErrAuthenticationFailed
	}
	return pt, nil
}
