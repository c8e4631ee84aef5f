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

// Package encoding converts key material between Go key types and the DER
// and PEM encodings the engines export: PKIX for public keys, PKCS#8 for
// private keys and PKCS#1 for legacy RSA.
package encoding

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

// EncodePKCS8 marshals privateKey as PKCS#8 DER. A non-empty password
// produces an encrypted PKCS#8 structure (PBES2, AES-256-CBC, PBKDF2).
func EncodePKCS8(privateKey crypto.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}
	der, err := pkcs8.MarshalPrivateKey(privateKey, password, nil)
	if err != nil {
		return nil, fmt.Errorf("encoding: marshal PKCS#8: %w", err)
	}
	return der, nil
}

// DecodePKCS8 parses PKCS#8 DER, decrypting it when password is set.
func DecodePKCS8(der []byte, password []byte) (crypto.PrivateKey, error) {
	if len(der) == 0 {
		return nil, ErrInvalidData
	}
	var (
		key any
		err error
	)
	if len(password) == 0 {
		key, err = pkcs8.ParsePKCS8PrivateKey(der)
	} else {
		key, err = pkcs8.ParsePKCS8PrivateKey(der, password)
	}
	if err != nil {
		if len(password) > 0 && isPasswordError(err) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("%w: PKCS#8: %v", ErrInvalidData, err)
	}
	return key, nil
}

// EncodePKIX marshals publicKey as SubjectPublicKeyInfo DER.
func EncodePKIX(publicKey crypto.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, ErrInvalidPublicKey
	}
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("encoding: marshal PKIX: %w", err)
	}
	return der, nil
}

// DecodePKIX parses SubjectPublicKeyInfo DER.
func DecodePKIX(der []byte) (crypto.PublicKey, error) {
	if len(der) == 0 {
		return nil, ErrInvalidData
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: PKIX: %v", ErrInvalidData, err)
	}
	return pub, nil
}

// EncodePKCS1PublicKey marshals an RSA public key as PKCS#1 DER.
func EncodePKCS1PublicKey(publicKey *rsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, ErrInvalidPublicKey
	}
	return x509.MarshalPKCS1PublicKey(publicKey), nil
}

// DecodePKCS1PublicKey parses PKCS#1 RSA public key DER.
func DecodePKCS1PublicKey(der []byte) (*rsa.PublicKey, error) {
	if len(der) == 0 {
		return nil, ErrInvalidData
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: PKCS#1: %v", ErrInvalidData, err)
	}
	return pub, nil
}

// EncodePKCS1PrivateKey marshals an RSA private key as PKCS#1 DER.
func EncodePKCS1PrivateKey(privateKey *rsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}
	return x509.MarshalPKCS1PrivateKey(privateKey), nil
}

// DecodePKCS1PrivateKey parses PKCS#1 RSA private key DER.
func DecodePKCS1PrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if len(der) == 0 {
		return nil, ErrInvalidData
	}
	priv, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: PKCS#1: %v", ErrInvalidData, err)
	}
	return priv, nil
}

// isPasswordError recognizes the failures youmark/pkcs8 reports when the
// derived key is wrong: a padding error from the block cipher or an ASN.1
// error parsing garbage plaintext.
func isPasswordError(err error) bool {
	if errors.Is(err, x509.IncorrectPasswordError) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"incorrect password", "asn1: structure error", "tags don't match", "invalid padding"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
