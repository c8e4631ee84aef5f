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

//go:build vault

package vault

import (
	"context"

	vault "github.com/hashicorp/vault/api"
)

// LogicalClient is the part of the Vault logical API the service uses.
// *vault.Logical implements it.
type LogicalClient interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error)
}

var _ LogicalClient = (*vault.Logical)(nil)

// MockLogicalClient is a mock implementation of LogicalClient for testing.
// Each operation can be customized by setting the corresponding function field.
type MockLogicalClient struct {
	ReadFunc  func(ctx context.Context, path string) (*vault.Secret, error)
	WriteFunc func(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error)
}

var _ LogicalClient = (*MockLogicalClient)(nil)

// ReadWithContext mocks a logical read.
func (m *MockLogicalClient) ReadWithContext(ctx context.Context, path string) (*vault.Secret, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, path)
	}
	return nil, nil
}

// WriteWithContext mocks a logical write.
func (m *MockLogicalClient) WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error) {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, path, data)
	}
	return nil, nil
}
