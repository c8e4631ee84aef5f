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

// Package vault implements remote.Service over the HashiCorp Vault Transit
// secrets engine.
//
// Transit returns ciphertexts as "vault:v<N>:<base64>". The service stores
// them as a 4-byte big-endian key version followed by the decoded bytes, so
// the overhead stays fixed.
package vault

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	vault "github.com/hashicorp/vault/api"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// Name is the service name.
const Name = "vault"

// Service is a Vault Transit remote.Service.
type Service struct {
	config  *Config
	logical LogicalClient
}

var _ remote.Service = (*Service)(nil)

// New creates a Vault client authenticated with the configured token.
func New(config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	if config.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("vault: failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultConnection, err)
	}
	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}
	return NewWithClient(config, client.Logical())
}

// NewWithClient creates a service over an existing logical client.
func NewWithClient(config *Config, logical LogicalClient) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logical == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidConfig)
	}
	return &Service{config: config, logical: logical}, nil
}

// Name returns "vault".
func (s *Service) Name() string {
	return Name
}

// Kinds reports every kind.
func (s *Service) Kinds() []remote.KeyKind {
	return []remote.KeyKind{remote.KindECDSA, remote.KindRSAPSS, remote.KindRSAOAEP, remote.KindAESGCM}
}

func (s *Service) path(op, name string) string {
	return s.config.transitPath() + "/" + op + "/" + name
}

// CreateKey creates a non-exportable Transit key named "cp-<uuid>".
func (s *Service) CreateKey(ctx context.Context, spec remote.KeySpec) (string, error) {
	keyType, err := keyTypeFor(spec)
	if err != nil {
		return "", err
	}
	name := "cp-" + uuid.NewString()
	_, err = s.logical.WriteWithContext(ctx, s.path("keys", name), map[string]interface{}{
		"type":                   keyType,
		"exportable":             false,
		"allow_plaintext_backup": false,
	})
	if err != nil {
		return "", translate(err)
	}
	return name, nil
}

// PublicKey reads the PEM public key of the latest key version.
func (s *Service) PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	secret, err := s.logical.ReadWithContext(ctx, s.path("keys", keyID))
	if err != nil {
		return nil, translate(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", remote.ErrKeyNotFound, keyID)
	}

	keys, ok := secret.Data["keys"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: no keys data", ErrInvalidResponse)
	}
	latest := fmt.Sprintf("%v", secret.Data["latest_version"])
	keyData, ok := keys[latest].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: version %s has no public key", ErrInvalidResponse, latest)
	}
	pemData, ok := keyData["public_key"].(string)
	if !ok || pemData == "" {
		return nil, fmt.Errorf("%w: no public key in response", ErrInvalidResponse)
	}
	return encoding.DecodePublicKeyPEM([]byte(pemData))
}

// Sign signs a prehashed digest. ECDSA signatures are requested in ASN.1
// form and PSS signatures with a salt as long as the digest.
func (s *Service) Sign(ctx context.Context, keyID string, spec remote.KeySpec, digest []byte) ([]byte, error) {
	hashName, err := hashAlgorithm(spec.Hash)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"input":     base64.StdEncoding.EncodeToString(digest),
		"prehashed": true,
	}
	switch spec.Kind {
	case remote.KindECDSA:
		data["marshaling_algorithm"] = "asn1"
	case remote.KindRSAPSS:
		data["signature_algorithm"] = "pss"
		data["salt_length"] = "hash"
	default:
		return nil, fmt.Errorf("%w: %s signing", types.ErrOperationNotSupported, spec.Kind)
	}

	secret, err := s.logical.WriteWithContext(ctx, s.path("sign", keyID)+"/"+hashName, data)
	if err != nil {
		return nil, translate(err)
	}
	value, err := field(secret, "signature")
	if err != nil {
		return nil, err
	}
	_, sig, err := parseVaultValue(value)
	return sig, err
}

// Encrypt seals plaintext under an AES-GCM Transit key.
func (s *Service) Encrypt(ctx context.Context, keyID string, spec remote.KeySpec, plaintext, associatedData []byte) ([]byte, error) {
	if spec.Kind != remote.KindAESGCM {
		return nil, fmt.Errorf("%w: %s encryption", types.ErrOperationNotSupported, spec.Kind)
	}
	data := map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	}
	if len(associatedData) > 0 {
		data["associated_data"] = base64.StdEncoding.EncodeToString(associatedData)
	}

	secret, err := s.logical.WriteWithContext(ctx, s.path("encrypt", keyID), data)
	if err != nil {
		return nil, translate(err)
	}
	value, err := field(secret, "ciphertext")
	if err != nil {
		return nil, err
	}
	version, raw, err := parseVaultValue(value)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 4, 4+len(raw))
	binary.BigEndian.PutUint32(out, version)
	return append(out, raw...), nil
}

// Decrypt opens an AES-GCM ciphertext, or decrypts RSA-OAEP with version 1
// of the key.
func (s *Service) Decrypt(ctx context.Context, keyID string, spec remote.KeySpec, ciphertext, associatedData []byte) ([]byte, error) {
	data := map[string]interface{}{}
	switch spec.Kind {
	case remote.KindAESGCM:
		if len(ciphertext) < 4 {
			return nil, fmt.Errorf("%w: ciphertext too short", types.ErrAuthenticationFailed)
		}
		version := binary.BigEndian.Uint32(ciphertext)
		data["ciphertext"] = formatVaultValue(version, ciphertext[4:])
		if len(associatedData) > 0 {
			data["associated_data"] = base64.StdEncoding.EncodeToString(associatedData)
		}
	case remote.KindRSAOAEP:
		if len(associatedData) > 0 {
			return nil, ErrLabelNotSupported
		}
		data["ciphertext"] = formatVaultValue(1, ciphertext)
	default:
		return nil, fmt.Errorf("%w: %s decryption", types.ErrOperationNotSupported, spec.Kind)
	}

	secret, err := s.logical.WriteWithContext(ctx, s.path("decrypt", keyID), data)
	if err != nil {
		return nil, translateDecrypt(err)
	}
	value, err := field(secret, "plaintext")
	if err != nil {
		return nil, err
	}
	plaintext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: plaintext is not base64: %v", ErrInvalidResponse, err)
	}
	return plaintext, nil
}

// Close is a no-op; the Vault client holds no connections of its own.
func (s *Service) Close() error {
	return nil
}

func keyTypeFor(spec remote.KeySpec) (string, error) {
	switch spec.Kind {
	case remote.KindECDSA:
		switch spec.Curve {
		case types.CurveP256:
			return "ecdsa-p256", nil
		case types.CurveP384:
			return "ecdsa-p384", nil
		case types.CurveP521:
			return "ecdsa-p521", nil
		}
	case remote.KindRSAPSS, remote.KindRSAOAEP:
		if spec.Kind == remote.KindRSAOAEP && spec.Hash != crypto.SHA256 {
			return "", fmt.Errorf("%w: Transit OAEP uses SHA-256, not %s", remote.ErrUnsupportedDigest, spec.Hash)
		}
		switch spec.Bits {
		case 2048, 3072, 4096:
			return "rsa-" + strconv.Itoa(spec.Bits), nil
		}
	case remote.KindAESGCM:
		switch spec.Bits {
		case 128:
			return "aes128-gcm96", nil
		case 256:
			return "aes256-gcm96", nil
		}
		return "", fmt.Errorf("%w: AES-%d, Transit offers AES-128 and AES-256", remote.ErrInvalidKeySize, spec.Bits)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedKeySpec, spec)
}

func hashAlgorithm(h crypto.Hash) (string, error) {
	switch h {
	case crypto.SHA256:
		return "sha2-256", nil
	case crypto.SHA384:
		return "sha2-384", nil
	case crypto.SHA512:
		return "sha2-512", nil
	}
	return "", fmt.Errorf("%w: %s", remote.ErrUnsupportedDigest, h)
}

func field(secret *vault.Secret, name string) (string, error) {
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	v, ok := secret.Data[name].(string)
	if !ok {
		return "", fmt.Errorf("%w: no %s in response", ErrInvalidResponse, name)
	}
	return v, nil
}

// parseVaultValue splits "vault:v<N>:<base64>".
func parseVaultValue(value string) (uint32, []byte, error) {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 || parts[0] != "vault" || !strings.HasPrefix(parts[1], "v") {
		return 0, nil, fmt.Errorf("%w: malformed value %q", ErrInvalidResponse, value)
	}
	version, err := strconv.ParseUint(parts[1][1:], 10, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: malformed version %q", ErrInvalidResponse, parts[1])
	}
	raw, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return uint32(version), raw, nil
}

func formatVaultValue(version uint32, raw []byte) string {
	return "vault:v" + strconv.FormatUint(uint64(version), 10) + ":" + base64.StdEncoding.EncodeToString(raw)
}

// translate maps Vault HTTP errors onto the error taxonomy.
func translate(err error) error {
	var respErr *vault.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", remote.ErrKeyNotFound, err)
	}
	return err
}

// translateDecrypt treats a rejected ciphertext as an authentication
// failure. Transit reports a missing key on decrypt as a 400 too, so the
// error text is checked first.
func translateDecrypt(err error) error {
	var respErr *vault.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusBadRequest {
		for _, msg := range respErr.Errors {
			if strings.Contains(msg, "encryption key not found") {
				return fmt.Errorf("%w: %v", remote.ErrKeyNotFound, err)
			}
		}
		return fmt.Errorf("%w: %v", types.ErrAuthenticationFailed, err)
	}
	return translate(err)
}
