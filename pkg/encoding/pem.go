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

package encoding

import (
	"crypto"
	"encoding/pem"
	"fmt"
	"slices"
)

// PEM block types
const (
	PEMTypePrivateKey          = "PRIVATE KEY"
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	PEMTypePublicKey           = "PUBLIC KEY"
	PEMTypeRSAPrivateKey       = "RSA PRIVATE KEY"
	PEMTypeRSAPublicKey        = "RSA PUBLIC KEY"
)

// EncodePEM wraps der in a PEM block of blockType.
func EncodePEM(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

// DecodePEM returns the DER of the first PEM block in data whose type is
// one of blockTypes. Blocks of other types are skipped.
func DecodePEM(data []byte, blockTypes ...string) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no %v block", ErrInvalidPEMEncoding, blockTypes)
		}
		if slices.Contains(blockTypes, block.Type) {
			return block.Bytes, nil
		}
	}
}

// EncodePrivateKeyPEM encodes privateKey as a PKCS#8 PEM block. With a
// password the block is ENCRYPTED PRIVATE KEY.
func EncodePrivateKeyPEM(privateKey crypto.PrivateKey, password []byte) ([]byte, error) {
	der, err := EncodePKCS8(privateKey, password)
	if err != nil {
		return nil, err
	}
	blockType := PEMTypePrivateKey
	if len(password) > 0 {
		blockType = PEMTypeEncryptedPrivateKey
	}
	return EncodePEM(blockType, der), nil
}

// DecodePrivateKeyPEM decodes a PRIVATE KEY or ENCRYPTED PRIVATE KEY block.
func DecodePrivateKeyPEM(data []byte, password []byte) (crypto.PrivateKey, error) {
	der, err := DecodePEM(data, PEMTypePrivateKey, PEMTypeEncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	return DecodePKCS8(der, password)
}

// EncodePublicKeyPEM encodes publicKey as a PKIX PUBLIC KEY block.
func EncodePublicKeyPEM(publicKey crypto.PublicKey) ([]byte, error) {
	der, err := EncodePKIX(publicKey)
	if err != nil {
		return nil, err
	}
	return EncodePEM(PEMTypePublicKey, der), nil
}

// DecodePublicKeyPEM decodes a PKIX PUBLIC KEY block.
func DecodePublicKeyPEM(data []byte) (crypto.PublicKey, error) {
	der, err := DecodePEM(data, PEMTypePublicKey)
	if err != nil {
		return nil, err
	}
	return DecodePKIX(der)
}
