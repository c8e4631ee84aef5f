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
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
)

// fakeTransit answers Transit requests with in-memory keys.
type fakeTransit struct {
	mu     sync.Mutex
	keys   map[string]any
	writes []map[string]interface{}
}

func newFakeTransit() (*MockLogicalClient, *fakeTransit) {
	f := &fakeTransit{keys: make(map[string]any)}
	return &MockLogicalClient{
		ReadFunc: func(_ context.Context, path string) (*vault.Secret, error) {
			return f.read(path)
		},
		WriteFunc: func(_ context.Context, path string, data map[string]interface{}) (*vault.Secret, error) {
			f.mu.Lock()
			f.writes = append(f.writes, data)
			f.mu.Unlock()
			return f.write(path, data)
		},
	}, f
}

func responseError(status int, msg string) error {
	return &vault.ResponseError{HTTPMethod: http.MethodPost, StatusCode: status, Errors: []string{msg}}
}

func (f *fakeTransit) key(name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[name]
	if !ok {
		return nil, responseError(http.StatusBadRequest, "encryption key not found")
	}
	return k, nil
}

func (f *fakeTransit) read(path string) (*vault.Secret, error) {
	name, ok := strings.CutPrefix(path, "transit/keys/")
	if !ok {
		return nil, responseError(http.StatusNotFound, "no handler for route")
	}
	f.mu.Lock()
	k, ok := f.keys[name]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}

	var pub any
	switch key := k.(type) {
	case *ecdsa.PrivateKey:
		pub = &key.PublicKey
	case *rsa.PrivateKey:
		pub = &key.PublicKey
	default:
		return &vault.Secret{Data: map[string]interface{}{
			"keys":           map[string]interface{}{"1": json.Number("1700000000")},
			"latest_version": json.Number("1"),
		}}, nil
	}
	pemData, err := encoding.EncodePublicKeyPEM(pub)
	if err != nil {
		return nil, err
	}
	return &vault.Secret{Data: map[string]interface{}{
		"keys": map[string]interface{}{
			"1": map[string]interface{}{"public_key": string(pemData)},
		},
		"latest_version": json.Number("1"),
	}}, nil
}

func (f *fakeTransit) write(path string, data map[string]interface{}) (*vault.Secret, error) {
	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] != "transit" {
		return nil, responseError(http.StatusNotFound, "no handler for route")
	}
	switch parts[1] {
	case "keys":
		return nil, f.create(parts[2], data["type"].(string))
	case "sign":
		return f.sign(parts[2], data)
	case "encrypt":
		return f.encrypt(parts[2], data)
	case "decrypt":
		return f.decrypt(parts[2], data)
	}
	return nil, responseError(http.StatusNotFound, "no handler for route")
}

func (f *fakeTransit) create(name, keyType string) error {
	var (
		key any
		err error
	)
	switch keyType {
	case "ecdsa-p256":
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case "ecdsa-p384":
		key, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case "ecdsa-p521":
		key, err = ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	case "rsa-2048":
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	case "aes128-gcm96", "aes256-gcm96":
		secret := make([]byte, 16)
		if keyType == "aes256-gcm96" {
			secret = make([]byte, 32)
		}
		_, err = rand.Read(secret)
		key = secret
	default:
		return responseError(http.StatusBadRequest, "unknown key type "+keyType)
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.keys[name] = key
	f.mu.Unlock()
	return nil
}

func decodeField(data map[string]interface{}, name string) ([]byte, error) {
	v, _ := data[name].(string)
	return base64.StdEncoding.DecodeString(v)
}

func (f *fakeTransit) sign(name string, data map[string]interface{}) (*vault.Secret, error) {
	k, err := f.key(name)
	if err != nil {
		return nil, err
	}
	digest, err := decodeField(data, "input")
	if err != nil {
		return nil, err
	}
	if data["prehashed"] != true {
		return nil, responseError(http.StatusBadRequest, "expected prehashed input")
	}

	var sig []byte
	switch key := k.(type) {
	case *ecdsa.PrivateKey:
		if data["marshaling_algorithm"] != "asn1" {
			return nil, responseError(http.StatusBadRequest, "expected asn1 marshaling")
		}
		sig, err = ecdsa.SignASN1(rand.Reader, key, digest)
	case *rsa.PrivateKey:
		if data["signature_algorithm"] != "pss" || data["salt_length"] != "hash" {
			return nil, responseError(http.StatusBadRequest, "expected pss with hash salt length")
		}
		h := map[int]crypto.Hash{32: crypto.SHA256, 48: crypto.SHA384, 64: crypto.SHA512}[len(digest)]
		sig, err = rsa.SignPSS(rand.Reader, key, h, digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	default:
		return nil, responseError(http.StatusBadRequest, "key does not support signing")
	}
	if err != nil {
		return nil, err
	}
	return &vault.Secret{Data: map[string]interface{}{
		"signature":   formatVaultValue(1, sig),
		"key_version": json.Number("1"),
	}}, nil
}

func (f *fakeTransit) gcm(name string) (cipher.AEAD, error) {
	k, err := f.key(name)
	if err != nil {
		return nil, err
	}
	secret, ok := k.([]byte)
	if !ok {
		return nil, responseError(http.StatusBadRequest, "key does not support encryption")
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *fakeTransit) encrypt(name string, data map[string]interface{}) (*vault.Secret, error) {
	aead, err := f.gcm(name)
	if err != nil {
		return nil, err
	}
	plaintext, err := decodeField(data, "plaintext")
	if err != nil {
		return nil, err
	}
	ad, err := decodeField(data, "associated_data")
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &vault.Secret{Data: map[string]interface{}{
		"ciphertext":  formatVaultValue(1, aead.Seal(nonce, nonce, plaintext, ad)),
		"key_version": json.Number("1"),
	}}, nil
}

func (f *fakeTransit) decrypt(name string, data map[string]interface{}) (*vault.Secret, error) {
	invalid := responseError(http.StatusBadRequest, "cipher: message authentication failed")
	value, _ := data["ciphertext"].(string)
	version, raw, err := parseVaultValue(value)
	if err != nil || version != 1 {
		return nil, responseError(http.StatusBadRequest, fmt.Sprintf("invalid ciphertext %q", value))
	}

	k, err := f.key(name)
	if err != nil {
		return nil, err
	}
	var plaintext []byte
	switch key := k.(type) {
	case *rsa.PrivateKey:
		plaintext, err = rsa.DecryptOAEP(sha256.New(), nil, key, raw, nil)
		if err != nil {
			return nil, invalid
		}
	default:
		aead, err := f.gcm(name)
		if err != nil {
			return nil, err
		}
		ad, err := decodeField(data, "associated_data")
		if err != nil {
			return nil, err
		}
		n := aead.NonceSize()
		if len(raw) < n {
			return nil, invalid
		}
		plaintext, err = aead.Open(nil, raw[:n], raw[n:], ad)
		if err != nil {
			return nil, invalid
		}
	}
	return &vault.Secret{Data: map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	}}, nil
}
