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

//go:build azurekv

// Package azurekv implements remote.Service over Azure Key Vault and
// Managed HSM.
//
// Key identifiers are key names, or full key IDs when a specific version
// is meant. AES-GCM is only available on Managed HSM; its ciphertexts are
// the service IV, the ciphertext and the tag concatenated.
package azurekv

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	"github.com/google/uuid"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

const (
	// Name is the service name.
	Name = "azurekv"

	// gcmIVSize and gcmTagSize are the IV and tag lengths Managed HSM uses
	// for AES-GCM.
	gcmIVSize  = 12
	gcmTagSize = 16

	// sizeTag records the AES key length on creation. Decoded key
	// references carry no size, so it is read back from the key bundle.
	sizeTag = "cryptoprovider-bits"
)

// KeyVaultClient defines the Key Vault operations the service uses.
// This interface allows for mocking in tests.
type KeyVaultClient interface {
	CreateKey(ctx context.Context, name string, params azkeys.CreateKeyParameters, options *azkeys.CreateKeyOptions) (azkeys.CreateKeyResponse, error)
	GetKey(ctx context.Context, name, version string, options *azkeys.GetKeyOptions) (azkeys.GetKeyResponse, error)
	Sign(ctx context.Context, name, version string, params azkeys.SignParameters, options *azkeys.SignOptions) (azkeys.SignResponse, error)
	Encrypt(ctx context.Context, name, version string, params azkeys.KeyOperationParameters, options *azkeys.EncryptOptions) (azkeys.EncryptResponse, error)
	Decrypt(ctx context.Context, name, version string, params azkeys.KeyOperationParameters, options *azkeys.DecryptOptions) (azkeys.DecryptResponse, error)
}

// Service is an Azure Key Vault remote.Service.
type Service struct {
	config *Config
	client KeyVaultClient
}

var _ remote.Service = (*Service)(nil)

// New creates a Key Vault client. A service principal is used when its
// credentials are configured, otherwise DefaultAzureCredential.
func New(config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		cred azcore.TokenCredential
		err  error
	)
	if config.ClientID != "" {
		cred, err = azidentity.NewClientSecretCredential(config.TenantID, config.ClientID, config.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{AdditionallyAllowedTenants: []string{"*"}})
		if err != nil {
			return nil, fmt.Errorf("azurekv: failed to create client secret credential: %w", err)
		}
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(
			&azidentity.DefaultAzureCredentialOptions{AdditionallyAllowedTenants: []string{"*"}})
		if err != nil {
			return nil, fmt.Errorf("azurekv: failed to create Azure credential: %w", err)
		}
	}

	client, err := azkeys.NewClient(config.VaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azurekv: failed to create Key Vault client: %w", err)
	}
	return NewWithClient(config, client)
}

// NewWithClient creates a service over an existing client.
func NewWithClient(config *Config, client KeyVaultClient) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidConfig)
	}
	return &Service{config: config, client: client}, nil
}

// Name returns "azurekv".
func (s *Service) Name() string {
	return Name
}

// Kinds reports the asymmetric kinds, plus AES-GCM on Managed HSM.
func (s *Service) Kinds() []remote.KeyKind {
	kinds := []remote.KeyKind{remote.KindECDSA, remote.KindRSAPSS, remote.KindRSAOAEP}
	if s.config.IsManagedHSM() {
		kinds = append(kinds, remote.KindAESGCM)
	}
	return kinds
}

// CreateKey creates a key named "cp-<uuid>" and returns its name.
func (s *Service) CreateKey(ctx context.Context, spec remote.KeySpec) (string, error) {
	params, err := s.keyParameters(spec)
	if err != nil {
		return "", err
	}
	name := "cp-" + uuid.NewString()
	params.Tags = map[string]*string{"created-by": to.Ptr("go-cryptoprovider")}
	if spec.Kind == remote.KindAESGCM {
		params.Tags[sizeTag] = to.Ptr(strconv.Itoa(spec.Bits))
	}

	resp, err := s.client.CreateKey(ctx, name, params, nil)
	if err != nil {
		return "", translate(err)
	}
	if resp.Key == nil || resp.Key.KID == nil {
		return "", fmt.Errorf("azurekv: invalid CreateKey response")
	}
	return name, nil
}

func (s *Service) keyParameters(spec remote.KeySpec) (azkeys.CreateKeyParameters, error) {
	hsm := s.config.IsManagedHSM()
	kty := func(soft, hard azkeys.KeyType) *azkeys.KeyType {
		if hsm {
			return to.Ptr(hard)
		}
		return to.Ptr(soft)
	}

	switch spec.Kind {
	case remote.KindECDSA:
		curve, err := curveName(spec.Curve)
		if err != nil {
			return azkeys.CreateKeyParameters{}, err
		}
		return azkeys.CreateKeyParameters{
			Kty:    kty(azkeys.KeyTypeEC, azkeys.KeyTypeECHSM),
			Curve:  to.Ptr(curve),
			KeyOps: keyOps(azkeys.KeyOperationSign, azkeys.KeyOperationVerify),
		}, nil
	case remote.KindRSAPSS, remote.KindRSAOAEP:
		switch spec.Bits {
		case 2048, 3072, 4096:
		default:
			return azkeys.CreateKeyParameters{}, fmt.Errorf("%w: RSA-%d", ErrUnsupportedKeySpec, spec.Bits)
		}
		ops := keyOps(azkeys.KeyOperationSign, azkeys.KeyOperationVerify)
		if spec.Kind == remote.KindRSAOAEP {
			if spec.Hash != crypto.SHA256 {
				return azkeys.CreateKeyParameters{}, fmt.Errorf("%w: Key Vault OAEP uses SHA-256, not %s", remote.ErrUnsupportedDigest, spec.Hash)
			}
			ops = keyOps(azkeys.KeyOperationEncrypt, azkeys.KeyOperationDecrypt)
		}
		return azkeys.CreateKeyParameters{
			Kty:     kty(azkeys.KeyTypeRSA, azkeys.KeyTypeRSAHSM),
			KeySize: to.Ptr(int32(spec.Bits)),
			KeyOps:  ops,
		}, nil
	case remote.KindAESGCM:
		if !hsm {
			return azkeys.CreateKeyParameters{}, fmt.Errorf("%w: AES-GCM requires a Managed HSM", ErrUnsupportedKeySpec)
		}
		if _, err := gcmFor(spec.Bits); err != nil {
			return azkeys.CreateKeyParameters{}, err
		}
		return azkeys.CreateKeyParameters{
			Kty:     to.Ptr(azkeys.KeyTypeOctHSM),
			KeySize: to.Ptr(int32(spec.Bits)),
			KeyOps:  keyOps(azkeys.KeyOperationEncrypt, azkeys.KeyOperationDecrypt),
		}, nil
	}
	return azkeys.CreateKeyParameters{}, fmt.Errorf("%w: %s", ErrUnsupportedKeySpec, spec)
}

// PublicKey converts the key bundle's JWK.
func (s *Service) PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	name, version := splitKeyID(keyID)
	resp, err := s.client.GetKey(ctx, name, version, nil)
	if err != nil {
		return nil, translate(err)
	}
	return jwkToPublicKey(resp.Key)
}

// Sign signs a digest. Key Vault returns ECDSA signatures as r||s; they
// are re-encoded as DER.
func (s *Service) Sign(ctx context.Context, keyID string, spec remote.KeySpec, digest []byte) ([]byte, error) {
	alg, err := signatureAlgorithm(spec)
	if err != nil {
		return nil, err
	}
	name, version := splitKeyID(keyID)
	resp, err := s.client.Sign(ctx, name, version, azkeys.SignParameters{
		Algorithm: to.Ptr(alg),
		Value:     digest,
	}, nil)
	if err != nil {
		return nil, translate(err)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("azurekv: empty Sign response")
	}
	if spec.Kind == remote.KindECDSA {
		return encoding.ECDSASignatureToDER(resp.Result)
	}
	return resp.Result, nil
}

// Encrypt seals plaintext under a Managed HSM AES key.
func (s *Service) Encrypt(ctx context.Context, keyID string, spec remote.KeySpec, plaintext, associatedData []byte) ([]byte, error) {
	if spec.Kind != remote.KindAESGCM {
		return nil, fmt.Errorf("%w: %s encryption", types.ErrOperationNotSupported, spec.Kind)
	}
	name, version := splitKeyID(keyID)
	alg, err := s.gcmAlgorithm(ctx, name, version, spec.Bits)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Encrypt(ctx, name, version, azkeys.KeyOperationParameters{
		Algorithm:                   to.Ptr(alg),
		Value:                       plaintext,
		AdditionalAuthenticatedData: associatedData,
	}, nil)
	if err != nil {
		return nil, translate(err)
	}
	if len(resp.IV) != gcmIVSize || len(resp.AuthenticationTag) != gcmTagSize {
		return nil, fmt.Errorf("azurekv: invalid Encrypt response")
	}

	out := make([]byte, 0, gcmIVSize+len(resp.Result)+gcmTagSize)
	out = append(out, resp.IV...)
	out = append(out, resp.Result...)
	return append(out, resp.AuthenticationTag...), nil
}

// Decrypt opens an AES-GCM ciphertext or decrypts RSA-OAEP-256.
func (s *Service) Decrypt(ctx context.Context, keyID string, spec remote.KeySpec, ciphertext, associatedData []byte) ([]byte, error) {
	name, version := splitKeyID(keyID)
	var params azkeys.KeyOperationParameters
	switch spec.Kind {
	case remote.KindAESGCM:
		alg, err := s.gcmAlgorithm(ctx, name, version, spec.Bits)
		if err != nil {
			return nil, err
		}
		if len(ciphertext) < gcmIVSize+gcmTagSize {
			return nil, fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, ErrInvalidCiphertext)
		}
		tag := len(ciphertext) - gcmTagSize
		params = azkeys.KeyOperationParameters{
			Algorithm:                   to.Ptr(alg),
			IV:                          ciphertext[:gcmIVSize],
			Value:                       ciphertext[gcmIVSize:tag],
			AuthenticationTag:           ciphertext[tag:],
			AdditionalAuthenticatedData: associatedData,
		}
	case remote.KindRSAOAEP:
		if len(associatedData) > 0 {
			return nil, ErrLabelNotSupported
		}
		params = azkeys.KeyOperationParameters{
			Algorithm: to.Ptr(azkeys.EncryptionAlgorithmRSAOAEP256),
			Value:     ciphertext,
		}
	default:
		return nil, fmt.Errorf("%w: %s decryption", types.ErrOperationNotSupported, spec.Kind)
	}

	resp, err := s.client.Decrypt(ctx, name, version, params, nil)
	if err != nil {
		return nil, translateDecrypt(err)
	}
	return resp.Result, nil
}

// gcmAlgorithm selects the AES-GCM algorithm, reading the key length from
// the key bundle when the caller does not know it.
func (s *Service) gcmAlgorithm(ctx context.Context, name, version string, bits int) (azkeys.EncryptionAlgorithm, error) {
	if bits == 0 {
		resp, err := s.client.GetKey(ctx, name, version, nil)
		if err != nil {
			return "", translate(err)
		}
		if v := resp.Tags[sizeTag]; v != nil {
			bits, _ = strconv.Atoi(*v)
		} else {
			bits = 256
		}
	}
	return gcmFor(bits)
}

// Close is a no-op; the Key Vault client holds no connections.
func (s *Service) Close() error {
	return nil
}

// splitKeyID accepts a key name or a full key ID URL.
func splitKeyID(keyID string) (name, version string) {
	if !strings.HasPrefix(keyID, "https://") {
		return keyID, ""
	}
	id := azkeys.ID(keyID)
	return id.Name(), id.Version()
}

func keyOps(ops ...azkeys.KeyOperation) []*azkeys.KeyOperation {
	out := make([]*azkeys.KeyOperation, len(ops))
	for i := range ops {
		out[i] = to.Ptr(ops[i])
	}
	return out
}

func curveName(curve types.Curve) (azkeys.CurveName, error) {
	switch curve {
	case types.CurveP256:
		return azkeys.CurveNameP256, nil
	case types.CurveP384:
		return azkeys.CurveNameP384, nil
	case types.CurveP521:
		return azkeys.CurveNameP521, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedKeySpec, curve)
}

// signatureAlgorithm maps a key and digest onto a JWA algorithm. ES*
// algorithms are bound to their curve.
func signatureAlgorithm(spec remote.KeySpec) (azkeys.SignatureAlgorithm, error) {
	switch spec.Kind {
	case remote.KindECDSA:
		var (
			alg  azkeys.SignatureAlgorithm
			want crypto.Hash
		)
		switch spec.Curve {
		case types.CurveP256:
			alg, want = azkeys.SignatureAlgorithmES256, crypto.SHA256
		case types.CurveP384:
			alg, want = azkeys.SignatureAlgorithmES384, crypto.SHA384
		case types.CurveP521:
			alg, want = azkeys.SignatureAlgorithmES512, crypto.SHA512
		default:
			return "", fmt.Errorf("%w: %s", ErrUnsupportedKeySpec, spec.Curve)
		}
		if spec.Hash != want {
			return "", fmt.Errorf("%w: Key Vault %s keys sign %s digests", remote.ErrUnsupportedDigest, spec.Curve, want)
		}
		return alg, nil
	case remote.KindRSAPSS:
		switch spec.Hash {
		case crypto.SHA256:
			return azkeys.SignatureAlgorithmPS256, nil
		case crypto.SHA384:
			return azkeys.SignatureAlgorithmPS384, nil
		case crypto.SHA512:
			return azkeys.SignatureAlgorithmPS512, nil
		}
		return "", fmt.Errorf("%w: %s", remote.ErrUnsupportedDigest, spec.Hash)
	}
	return "", fmt.Errorf("%w: %s signing", types.ErrOperationNotSupported, spec.Kind)
}

func gcmFor(bits int) (azkeys.EncryptionAlgorithm, error) {
	switch bits {
	case 128:
		return azkeys.EncryptionAlgorithmA128GCM, nil
	case 192:
		return azkeys.EncryptionAlgorithmA192GCM, nil
	case 256:
		return azkeys.EncryptionAlgorithmA256GCM, nil
	}
	return "", fmt.Errorf("%w: AES-%d", remote.ErrInvalidKeySize, bits)
}

// jwkToPublicKey converts a Key Vault JWK to a crypto.PublicKey.
func jwkToPublicKey(jwk *azkeys.JSONWebKey) (crypto.PublicKey, error) {
	if jwk == nil || jwk.Kty == nil {
		return nil, fmt.Errorf("%w: missing key", ErrInvalidJWK)
	}

	switch *jwk.Kty {
	case azkeys.KeyTypeRSA, azkeys.KeyTypeRSAHSM:
		if jwk.N == nil || jwk.E == nil {
			return nil, fmt.Errorf("%w: RSA key missing N or E", ErrInvalidJWK)
		}
		e := new(big.Int).SetBytes(jwk.E)
		if !e.IsInt64() || e.Int64() > 1<<31-1 {
			return nil, fmt.Errorf("%w: RSA exponent too large", ErrInvalidJWK)
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(jwk.N), E: int(e.Int64())}, nil

	case azkeys.KeyTypeEC, azkeys.KeyTypeECHSM:
		if jwk.X == nil || jwk.Y == nil || jwk.Crv == nil {
			return nil, fmt.Errorf("%w: EC key missing X, Y, or Crv", ErrInvalidJWK)
		}
		var curve elliptic.Curve
		switch *jwk.Crv {
		case azkeys.CurveNameP256:
			curve = elliptic.P256()
		case azkeys.CurveNameP384:
			curve = elliptic.P384()
		case azkeys.CurveNameP521:
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("%w: unsupported curve %s", ErrInvalidJWK, *jwk.Crv)
		}
		return &ecdsa.PublicKey{
			Curve: curve,
			X:     new(big.Int).SetBytes(jwk.X),
			Y:     new(big.Int).SetBytes(jwk.Y),
		}, nil
	}
	return nil, fmt.Errorf("%w: key type %s has no public key", ErrInvalidJWK, *jwk.Kty)
}

// translate maps Key Vault HTTP errors onto the error taxonomy.
func translate(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", remote.ErrKeyNotFound, err)
	}
	return err
}

// translateDecrypt also treats a rejected ciphertext as an authentication
// failure.
func translateDecrypt(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: %v", types.ErrAuthenticationFailed, err)
	}
	return translate(err)
}
