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
)

// MockService is a Service whose methods call the matching function
// field. Unset fields return zero values.
type MockService struct {
	NameFunc      func() string
	KindsFunc     func() []KeyKind
	CreateKeyFunc func(ctx context.Context, spec KeySpec) (string, error)
	PublicKeyFunc func(ctx context.Context, keyID string) (crypto.PublicKey, error)
	SignFunc      func(ctx context.Context, keyID string, spec KeySpec, digest []byte) ([]byte, error)
	EncryptFunc   func(ctx context.Context, keyID string, spec KeySpec, plaintext, associatedData []byte) ([]byte, error)
	DecryptFunc   func(ctx context.Context, keyID string, spec KeySpec, ciphertext, associatedData []byte) ([]byte, error)
	CloseFunc     func() error
}

var _ Service = (*MockService)(nil)

// Name returns "mock" unless NameFunc is set.
func (m *MockService) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// Kinds returns every kind unless KindsFunc is set.
func (m *MockService) Kinds() []KeyKind {
	if m.KindsFunc != nil {
		return m.KindsFunc()
	}
	return []KeyKind{KindECDSA, KindRSAPSS, KindRSAOAEP, KindAESGCM}
}

func (m *MockService) CreateKey(ctx context.Context, spec KeySpec) (string, error) {
	if m.CreateKeyFunc != nil {
		return m.CreateKeyFunc(ctx, spec)
	}
	return "", nil
}

func (m *MockService) PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	if m.PublicKeyFunc != nil {
		return m.PublicKeyFunc(ctx, keyID)
	}
	return nil, nil
}

func (m *MockService) Sign(ctx context.Context, keyID string, spec KeySpec, digest []byte) ([]byte, error) {
	if m.SignFunc != nil {
		return m.SignFunc(ctx, keyID, spec, digest)
	}
	return nil, nil
}

func (m *MockService) Encrypt(ctx context.Context, keyID string, spec KeySpec, plaintext, associatedData []byte) ([]byte, error) {
	if m.EncryptFunc != nil {
		return m.EncryptFunc(ctx, keyID, spec, plaintext, associatedData)
	}
	return nil, nil
}

func (m *MockService) Decrypt(ctx context.Context, keyID string, spec KeySpec, ciphertext, associatedData []byte) ([]byte, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ctx, keyID, spec, ciphertext, associatedData)
	}
	return nil, nil
}

func (m *MockService) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
