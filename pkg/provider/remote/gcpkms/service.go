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

// Package gcpkms implements remote.Service over Google Cloud KMS.
//
// Key identifiers are CryptoKey resource names. Asymmetric operations use
// version 1 unless the identifier names a version. Every request and
// response carries a CRC32C checksum that is verified.
package gcpkms

import (
	"context"
	"crypto"
	"fmt"
	"hash/crc32"
	"strings"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/google/uuid"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// Name is the service name.
const Name = "gcpkms"

// KMSClient is the subset of the Cloud KMS API the service uses.
type KMSClient interface {
	CreateCryptoKey(ctx context.Context, req *kmspb.CreateCryptoKeyRequest, opts ...interface{}) (*kmspb.CryptoKey, error)
	GetCryptoKeyVersion(ctx context.Context, req *kmspb.GetCryptoKeyVersionRequest, opts ...interface{}) (*kmspb.CryptoKeyVersion, error)
	GetPublicKey(ctx context.Context, req *kmspb.GetPublicKeyRequest, opts ...interface{}) (*kmspb.PublicKey, error)
	AsymmetricSign(ctx context.Context, req *kmspb.AsymmetricSignRequest, opts ...interface{}) (*kmspb.AsymmetricSignResponse, error)
	AsymmetricDecrypt(ctx context.Context, req *kmspb.AsymmetricDecryptRequest, opts ...interface{}) (*kmspb.AsymmetricDecryptResponse, error)
	Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...interface{}) (*kmspb.EncryptResponse, error)
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...interface{}) (*kmspb.DecryptResponse, error)
	Close() error
}

// realKMSClient wraps the Cloud KMS client to implement KMSClient.
type realKMSClient struct {
	*kms.KeyManagementClient
}

func (r *realKMSClient) CreateCryptoKey(ctx context.Context, req *kmspb.CreateCryptoKeyRequest, opts ...interface{}) (*kmspb.CryptoKey, error) {
	return r.KeyManagementClient.CreateCryptoKey(ctx, req)
}

func (r *realKMSClient) GetCryptoKeyVersion(ctx context.Context, req *kmspb.GetCryptoKeyVersionRequest, opts ...interface{}) (*kmspb.CryptoKeyVersion, error) {
	return r.KeyManagementClient.GetCryptoKeyVersion(ctx, req)
}

func (r *realKMSClient) GetPublicKey(ctx context.Context, req *kmspb.GetPublicKeyRequest, opts ...interface{}) (*kmspb.PublicKey, error) {
	return r.KeyManagementClient.GetPublicKey(ctx, req)
}

func (r *realKMSClient) AsymmetricSign(ctx context.Context, req *kmspb.AsymmetricSignRequest, opts ...interface{}) (*kmspb.AsymmetricSignResponse, error) {
	return r.KeyManagementClient.AsymmetricSign(ctx, req)
}

func (r *realKMSClient) AsymmetricDecrypt(ctx context.Context, req *kmspb.AsymmetricDecryptRequest, opts ...interface{}) (*kmspb.AsymmetricDecryptResponse, error) {
	return r.KeyManagementClient.AsymmetricDecrypt(ctx, req)
}

func (r *realKMSClient) Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...interface{}) (*kmspb.EncryptResponse, error) {
	return r.KeyManagementClient.Encrypt(ctx, req)
}

func (r *realKMSClient) Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...interface{}) (*kmspb.DecryptResponse, error) {
	return r.KeyManagementClient.Decrypt(ctx, req)
}

// Service is a Cloud KMS remote.Service.
type Service struct {
	config *Config
	client KMSClient
}

var _ remote.Service = (*Service)(nil)

// New creates a Cloud KMS client. Credentials come from the config when
// set, otherwise from Application Default Credentials.
func New(ctx context.Context, config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if len(config.CredentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(config.CredentialsJSON))
	} else if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	client, err := kms.NewKeyManagementClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcpkms: failed to create KMS client: %w", err)
	}
	return NewWithClient(config, &realKMSClient{KeyManagementClient: client})
}

// NewWithClient creates a service over an existing client.
func NewWithClient(config *Config, client KMSClient) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidConfig)
	}
	return &Service{config: config, client: client}, nil
}

// Name returns "gcpkms".
func (s *Service) Name() string {
	return Name
}

// Kinds reports every kind.
func (s *Service) Kinds() []remote.KeyKind {
	return []remote.KeyKind{remote.KindECDSA, remote.KindRSAPSS, remote.KindRSAOAEP, remote.KindAESGCM}
}

// CreateKey creates a CryptoKey in the configured key ring and waits for
// its first version to be enabled.
func (s *Service) CreateKey(ctx context.Context, spec remote.KeySpec) (string, error) {
	purpose, alg, err := algorithmFor(spec)
	if err != nil {
		return "", err
	}

	key, err := s.client.CreateCryptoKey(ctx, &kmspb.CreateCryptoKeyRequest{
		Parent:      s.config.KeyRingName(),
		CryptoKeyId: "cp-" + uuid.NewString(),
		CryptoKey: &kmspb.CryptoKey{
			Purpose: purpose,
			VersionTemplate: &kmspb.CryptoKeyVersionTemplate{
				Algorithm: alg,
			},
			Labels: map[string]string{
				"created-by": "go-cryptoprovider",
			},
		},
	})
	if err != nil {
		return "", translate(err)
	}
	if key.GetName() == "" {
		return "", fmt.Errorf("gcpkms: empty CreateCryptoKey response")
	}
	if key.GetPrimary().GetState() == kmspb.CryptoKeyVersion_ENABLED {
		return key.GetName(), nil
	}
	if err := s.waitEnabled(ctx, versionName(key.GetName())); err != nil {
		return "", err
	}
	return key.GetName(), nil
}

// waitEnabled polls a key version until it leaves PENDING_GENERATION.
func (s *Service) waitEnabled(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.keyTimeout())
	defer cancel()
	ticker := time.NewTicker(s.config.pollInterval())
	defer ticker.Stop()

	for {
		version, err := s.client.GetCryptoKeyVersion(ctx, &kmspb.GetCryptoKeyVersionRequest{Name: name})
		if err != nil {
			return translate(err)
		}
		switch version.GetState() {
		case kmspb.CryptoKeyVersion_ENABLED:
			return nil
		case kmspb.CryptoKeyVersion_PENDING_GENERATION:
		default:
			return fmt.Errorf("%w: %s is %s", ErrKeyNotEnabled, name, version.GetState())
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("gcpkms: waiting for %s: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// PublicKey fetches the PEM public key of the key version.
func (s *Service) PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	resp, err := s.client.GetPublicKey(ctx, &kmspb.GetPublicKeyRequest{Name: versionName(keyID)})
	if err != nil {
		return nil, translate(err)
	}
	if err := checkCRC(resp.GetPemCrc32C(), []byte(resp.GetPem())); err != nil {
		return nil, err
	}
	return encoding.DecodePublicKeyPEM([]byte(resp.GetPem()))
}

// Sign signs a digest. Cloud KMS binds EC keys to one digest: SHA-256 for
// P-256 and SHA-384 for P-384.
func (s *Service) Sign(ctx context.Context, keyID string, spec remote.KeySpec, digest []byte) ([]byte, error) {
	if spec.Kind == remote.KindECDSA {
		if want := curveHash(spec.Curve); want != spec.Hash {
			return nil, fmt.Errorf("%w: Cloud KMS %s keys sign %s digests", remote.ErrUnsupportedDigest, spec.Curve, want)
		}
	}

	msg := &kmspb.Digest{}
	switch spec.Hash {
	case crypto.SHA256:
		msg.Digest = &kmspb.Digest_Sha256{Sha256: digest}
	case crypto.SHA384:
		msg.Digest = &kmspb.Digest_Sha384{Sha384: digest}
	case crypto.SHA512:
		msg.Digest = &kmspb.Digest_Sha512{Sha512: digest}
	default:
		return nil, fmt.Errorf("%w: %s", remote.ErrUnsupportedDigest, spec.Hash)
	}

	resp, err := s.client.AsymmetricSign(ctx, &kmspb.AsymmetricSignRequest{
		Name:         versionName(keyID),
		Digest:       msg,
		DigestCrc32C: wrapperspb.Int64(int64(crc32c(digest))),
	})
	if err != nil {
		return nil, translate(err)
	}
	if err := checkCRC(resp.GetSignatureCrc32C(), resp.GetSignature()); err != nil {
		return nil, err
	}
	return resp.GetSignature(), nil
}

// Encrypt encrypts under a GOOGLE_SYMMETRIC_ENCRYPTION key.
func (s *Service) Encrypt(ctx context.Context, keyID string, spec remote.KeySpec, plaintext, associatedData []byte) ([]byte, error) {
	if spec.Kind != remote.KindAESGCM {
		return nil, fmt.Errorf("%w: %s encryption", types.ErrOperationNotSupported, spec.Kind)
	}
	resp, err := s.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:                              keyID,
		Plaintext:                         plaintext,
		AdditionalAuthenticatedData:       associatedData,
		PlaintextCrc32C:                   wrapperspb.Int64(int64(crc32c(plaintext))),
		AdditionalAuthenticatedDataCrc32C: wrapperspb.Int64(int64(crc32c(associatedData))),
	})
	if err != nil {
		return nil, translate(err)
	}
	if err := checkCRC(resp.GetCiphertextCrc32C(), resp.GetCiphertext()); err != nil {
		return nil, err
	}
	return resp.GetCiphertext(), nil
}

// Decrypt decrypts a symmetric ciphertext or an RSAES-OAEP ciphertext.
func (s *Service) Decrypt(ctx context.Context, keyID string, spec remote.KeySpec, ciphertext, associatedData []byte) ([]byte, error) {
	var (
		plaintext []byte
		sum       *wrapperspb.Int64Value
	)
	switch spec.Kind {
	case remote.KindAESGCM:
		resp, err := s.client.Decrypt(ctx, &kmspb.DecryptRequest{
			Name:                              keyID,
			Ciphertext:                        ciphertext,
			AdditionalAuthenticatedData:       associatedData,
			CiphertextCrc32C:                  wrapperspb.Int64(int64(crc32c(ciphertext))),
			AdditionalAuthenticatedDataCrc32C: wrapperspb.Int64(int64(crc32c(associatedData))),
		})
		if err != nil {
			return nil, translateDecrypt(err)
		}
		plaintext, sum = resp.GetPlaintext(), resp.GetPlaintextCrc32C()
	case remote.KindRSAOAEP:
		if len(associatedData) > 0 {
			return nil, ErrLabelNotSupported
		}
		resp, err := s.client.AsymmetricDecrypt(ctx, &kmspb.AsymmetricDecryptRequest{
			Name:             versionName(keyID),
			Ciphertext:       ciphertext,
			CiphertextCrc32C: wrapperspb.Int64(int64(crc32c(ciphertext))),
		})
		if err != nil {
			return nil, translateDecrypt(err)
		}
		plaintext, sum = resp.GetPlaintext(), resp.GetPlaintextCrc32C()
	default:
		return nil, fmt.Errorf("%w: %s decryption", types.ErrOperationNotSupported, spec.Kind)
	}
	if err := checkCRC(sum, plaintext); err != nil {
		return nil, err
	}
	return plaintext, nil
}

// Close closes the client connection.
func (s *Service) Close() error {
	return s.client.Close()
}

// versionName returns the key version a key identifier refers to.
func versionName(keyID string) string {
	if strings.Contains(keyID, "/cryptoKeyVersions/") {
		return keyID
	}
	return keyID + "/cryptoKeyVersions/1"
}

func curveHash(curve types.Curve) crypto.Hash {
	if curve == types.CurveP384 {
		return crypto.SHA384
	}
	return crypto.SHA256
}

func algorithmFor(spec remote.KeySpec) (kmspb.CryptoKey_CryptoKeyPurpose, kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm, error) {
	switch spec.Kind {
	case remote.KindECDSA:
		switch spec.Curve {
		case types.CurveP256:
			return kmspb.CryptoKey_ASYMMETRIC_SIGN, kmspb.CryptoKeyVersion_EC_SIGN_P256_SHA256, nil
		case types.CurveP384:
			return kmspb.CryptoKey_ASYMMETRIC_SIGN, kmspb.CryptoKeyVersion_EC_SIGN_P384_SHA384, nil
		}
	case remote.KindRSAPSS:
		switch {
		case spec.Hash == crypto.SHA256 && spec.Bits == 2048:
			return kmspb.CryptoKey_ASYMMETRIC_SIGN, kmspb.CryptoKeyVersion_RSA_SIGN_PSS_2048_SHA256, nil
		case spec.Hash == crypto.SHA256 && spec.Bits == 3072:
			return kmspb.CryptoKey_ASYMMETRIC_SIGN, kmspb.CryptoKeyVersion_RSA_SIGN_PSS_3072_SHA256, nil
		case spec.Hash == crypto.SHA256 && spec.Bits == 4096:
			return kmspb.CryptoKey_ASYMMETRIC_SIGN, kmspb.CryptoKeyVersion_RSA_SIGN_PSS_4096_SHA256, nil
		case spec.Hash == crypto.SHA512 && spec.Bits == 4096:
			return kmspb.CryptoKey_ASYMMETRIC_SIGN, kmspb.CryptoKeyVersion_RSA_SIGN_PSS_4096_SHA512, nil
		}
	case remote.KindRSAOAEP:
		switch {
		case spec.Hash == crypto.SHA256 && spec.Bits == 2048:
			return kmspb.CryptoKey_ASYMMETRIC_DECRYPT, kmspb.CryptoKeyVersion_RSA_DECRYPT_OAEP_2048_SHA256, nil
		case spec.Hash == crypto.SHA256 && spec.Bits == 3072:
			return kmspb.CryptoKey_ASYMMETRIC_DECRYPT, kmspb.CryptoKeyVersion_RSA_DECRYPT_OAEP_3072_SHA256, nil
		case spec.Hash == crypto.SHA256 && spec.Bits == 4096:
			return kmspb.CryptoKey_ASYMMETRIC_DECRYPT, kmspb.CryptoKeyVersion_RSA_DECRYPT_OAEP_4096_SHA256, nil
		case spec.Hash == crypto.SHA512 && spec.Bits == 4096:
			return kmspb.CryptoKey_ASYMMETRIC_DECRYPT, kmspb.CryptoKeyVersion_RSA_DECRYPT_OAEP_4096_SHA512, nil
		}
	case remote.KindAESGCM:
		if spec.Bits == 256 {
			return kmspb.CryptoKey_ENCRYPT_DECRYPT, kmspb.CryptoKeyVersion_GOOGLE_SYMMETRIC_ENCRYPTION, nil
		}
		return 0, 0, fmt.Errorf("%w: AES-%d, only AES-256 is available", remote.ErrInvalidKeySize, spec.Bits)
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedKeySpec, spec)
}

// crc32c computes the CRC32C checksum used by Cloud KMS for data integrity.
func crc32c(data []byte) uint32 {
	return crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli))
}

func checkCRC(sum *wrapperspb.Int64Value, data []byte) error {
	if sum != nil && sum.GetValue() != int64(crc32c(data)) {
		return ErrChecksumMismatch
	}
	return nil
}

// translate maps gRPC status codes onto the error taxonomy.
func translate(err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %v", remote.ErrKeyNotFound, err)
	}
	return err
}

// translateDecrypt also treats a rejected ciphertext as an authentication
// failure.
func translateDecrypt(err error) error {
	if status.Code(err) == codes.InvalidArgument {
		return fmt.Errorf("%w: %v", types.ErrAuthenticationFailed, err)
	}
	return translate(err)
}
