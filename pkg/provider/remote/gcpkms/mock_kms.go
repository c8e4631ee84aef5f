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

//go:build gcpkms

package gcpkms

import (
	"context"

	"cloud.google.com/go/kms/apiv1/kmspb"
)

// MockKMSClient is a mock implementation of the KMSClient interface for testing.
// Each operation can be customized by setting the corresponding function field.
type MockKMSClient struct {
	CreateCryptoKeyFunc     func(ctx context.Context, req *kmspb.CreateCryptoKeyRequest) (*kmspb.CryptoKey, error)
	GetCryptoKeyVersionFunc func(ctx context.Context, req *kmspb.GetCryptoKeyVersionRequest) (*kmspb.CryptoKeyVersion, error)
	GetPublicKeyFunc        func(ctx context.Context, req *kmspb.GetPublicKeyRequest) (*kmspb.PublicKey, error)
	AsymmetricSignFunc      func(ctx context.Context, req *kmspb.AsymmetricSignRequest) (*kmspb.AsymmetricSignResponse, error)
	AsymmetricDecryptFunc   func(ctx context.Context, req *kmspb.AsymmetricDecryptRequest) (*kmspb.AsymmetricDecryptResponse, error)
	EncryptFunc             func(ctx context.Context, req *kmspb.EncryptRequest) (*kmspb.EncryptResponse, error)
	DecryptFunc             func(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error)
	CloseFunc               func() error
}

var _ KMSClient = (*MockKMSClient)(nil)

// CreateCryptoKey mocks the CreateCryptoKey operation.
func (m *MockKMSClient) CreateCryptoKey(ctx context.Context, req *kmspb.CreateCryptoKeyRequest, opts ...interface{}) (*kmspb.CryptoKey, error) {
	if m.CreateCryptoKeyFunc != nil {
		return m.CreateCryptoKeyFunc(ctx, req)
	}
	return nil, nil
}

// GetCryptoKeyVersion mocks the GetCryptoKeyVersion operation.
func (m *MockKMSClient) GetCryptoKeyVersion(ctx context.Context, req *kmspb.GetCryptoKeyVersionRequest, opts ...interface{}) (*kmspb.CryptoKeyVersion, error) {
	if m.GetCryptoKeyVersionFunc != nil {
		return m.GetCryptoKeyVersionFunc(ctx, req)
	}
	return &kmspb.CryptoKeyVersion{Name: req.GetName(), State: kmspb.CryptoKeyVersion_ENABLED}, nil
}

// GetPublicKey mocks the GetPublicKey operation.
func (m *MockKMSClient) GetPublicKey(ctx context.Context, req *kmspb.GetPublicKeyRequest, opts ...interface{}) (*kmspb.PublicKey, error) {
	if m.GetPublicKeyFunc != nil {
		return m.GetPublicKeyFunc(ctx, req)
	}
	return nil, nil
}

// AsymmetricSign mocks the AsymmetricSign operation.
func (m *MockKMSClient) AsymmetricSign(ctx context.Context, req *kmspb.AsymmetricSignRequest, opts ...interface{}) (*kmspb.AsymmetricSignResponse, error) {
	if m.AsymmetricSignFunc != nil {
		return m.AsymmetricSignFunc(ctx, req)
	}
	return nil, nil
}

// AsymmetricDecrypt mocks the AsymmetricDecrypt operation.
func (m *MockKMSClient) AsymmetricDecrypt(ctx context.Context, req *kmspb.AsymmetricDecryptRequest, opts ...interface{}) (*kmspb.AsymmetricDecryptResponse, error) {
	if m.AsymmetricDecryptFunc != nil {
		return m.AsymmetricDecryptFunc(ctx, req)
	}
	return nil, nil
}

// Encrypt mocks the Encrypt operation.
func (m *MockKMSClient) Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...interface{}) (*kmspb.EncryptResponse, error) {
	if m.EncryptFunc != nil {
		return m.EncryptFunc(ctx, req)
	}
	return nil, nil
}

// Decrypt mocks the Decrypt operation.
func (m *MockKMSClient) Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...interface{}) (*kmspb.DecryptResponse, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ctx, req)
	}
	return nil, nil
}

// Close mocks the Close operation.
func (m *MockKMSClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
