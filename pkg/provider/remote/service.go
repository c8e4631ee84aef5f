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
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// FormatKeyRef is the encoding of service-held keys: the service key
// identifier as UTF-8 bytes.
const FormatKeyRef = types.FormatKeyRef

// KeyKind is the purpose a service key is created for.
type KeyKind string

const (
	KindECDSA   KeyKind = "ECDSA"
	KindRSAPSS  KeyKind = "RSA-PSS"
	KindRSAOAEP KeyKind = "RSA-OAEP"
	KindAESGCM  KeyKind = "AES-GCM"
)

// KeySpec describes a service key and the algorithm a request uses it
// with.
type KeySpec struct {
	Kind KeyKind

	// Curve is set for KindECDSA.
	Curve types.Curve

	// Bits is the RSA modulus or AES key length.
	Bits int

	// Hash is the signing digest, or the OAEP hash. It is zero for AES.
	Hash crypto.Hash
}

// String returns a compact description for logs and errors.
func (s KeySpec) String() string {
	switch s.Kind {
	case KindECDSA:
		return fmt.Sprintf("%s/%s/%s", s.Kind, s.Curve, s.Hash)
	case KindAESGCM:
		return fmt.Sprintf("%s/%d", s.Kind, s.Bits)
	}
	return fmt.Sprintf("%s/%d/%s", s.Kind, s.Bits, s.Hash)
}

// Service is a key-management service client. Implementations translate
// their SDK errors: a failed authentication of ciphertext becomes
// types.ErrAuthenticationFailed and an unknown key ErrKeyNotFound.
//
// Methods are called from the engine worker pool and may block on the
// network. They must honor ctx.
type Service interface {
	// Name identifies the service in logs and as the provider name.
	Name() string

	// Kinds lists the key kinds the service can create and use.
	Kinds() []KeyKind

	// CreateKey creates a key and returns its identifier.
	CreateKey(ctx context.Context, spec KeySpec) (string, error)

	// PublicKey returns the public half of an asymmetric key.
	PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error)

	// Sign signs a digest computed with spec.Hash. ECDSA signatures are
	// returned ASN.1 DER encoded.
	Sign(ctx context.Context, keyID string, spec KeySpec, digest []byte) ([]byte, error)

	// Encrypt seals plaintext under a symmetric key. The ciphertext format
	// is service specific.
	Encrypt(ctx context.Context, keyID string, spec KeySpec, plaintext, associatedData []byte) ([]byte, error)

	// Decrypt opens a symmetric ciphertext, or decrypts an RSA-OAEP
	// ciphertext with associatedData as the label.
	Decrypt(ctx context.Context, keyID string, spec KeySpec, ciphertext, associatedData []byte) ([]byte, error)

	Close() error
}
