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

//go:build awskms

// Package awskms implements remote.Service over AWS Key Management Service.
//
// Signing keys are created with KeyUsage SIGN_VERIFY and signed with
// MessageType DIGEST. AES-GCM keys are SYMMETRIC_DEFAULT (256 bit); their
// ciphertexts are the opaque KMS blobs and associated data is bound as the
// encryption context entry "aad".
package awskms

import (
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	awstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/google/uuid"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// Name is the service name.
const Name = "awskms"

// contextKey is the encryption context entry carrying associated data.
const contextKey = "aad"

// KMSClient is the subset of the AWS KMS API the service uses.
type KMSClient interface {
	CreateKey(ctx context.Context, params *kms.CreateKeyInput, optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error)
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Service is an AWS KMS remote.Service.
type Service struct {
	config *Config
	client KMSClient
}

var _ remote.Service = (*Service)(nil)

// New loads the AWS configuration and creates a KMS client. Static
// credentials are used when configured, otherwise the default credential
// chain.
func New(ctx context.Context, config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" {
		creds := credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.SecretAccessKey,
			config.SessionToken,
		)
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("awskms: failed to load AWS config: %w", err)
	}

	var clientOpts []func(*kms.Options)
	if config.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *kms.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}
	return NewWithClient(config, kms.NewFromConfig(cfg, clientOpts...))
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

// Name returns "awskms".
func (s *Service) Name() string {
	return Name
}

// Kinds reports every kind.
func (s *Service) Kinds() []remote.KeyKind {
	return []remote.KeyKind{remote.KindECDSA, remote.KindRSAPSS, remote.KindRSAOAEP, remote.KindAESGCM}
}

// CreateKey creates a customer managed key and returns its key ID.
func (s *Service) CreateKey(ctx context.Context, spec remote.KeySpec) (string, error) {
	keySpec, usage, err := keySpecFor(spec)
	if err != nil {
		return "", err
	}
	description := s.config.Description
	if description == "" {
		description = "cryptoprovider " + spec.String()
	}

	out, err := s.client.CreateKey(ctx, &kms.CreateKeyInput{
		KeySpec:     keySpec,
		KeyUsage:    usage,
		Description: aws.String(description),
		Tags: []awstypes.Tag{{
			TagKey:   aws.String("cryptoprovider:label"),
			TagValue: aws.String(uuid.NewString()),
		}},
	})
	if err != nil {
		return "", translate(err)
	}
	if out == nil || out.KeyMetadata == nil {
		return "", errors.New("awskms: empty CreateKey response")
	}
	return aws.ToString(out.KeyMetadata.KeyId), nil
}

// PublicKey fetches and parses the PKIX public key.
func (s *Service) PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	out, err := s.client.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(keyID),
	})
	if err != nil {
		return nil, translate(err)
	}
	if out == nil {
		return nil, errors.New("awskms: empty GetPublicKey response")
	}
	return encoding.DecodePKIX(out.PublicKey)
}

// Sign signs a digest. ECDSA signatures are DER encoded.
func (s *Service) Sign(ctx context.Context, keyID string, spec remote.KeySpec, digest []byte) ([]byte, error) {
	alg, err := signingAlgorithm(spec)
	if err != nil {
		return nil, err
	}
	out, err := s.client.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(keyID),
		Message:          digest,
		MessageType:      awstypes.MessageTypeDigest,
		SigningAlgorithm: alg,
	})
	if err != nil {
		return nil, translate(err)
	}
	if out == nil {
		return nil, errors.New("awskms: empty Sign response")
	}
	return out.Signature, nil
}

// Encrypt encrypts under a symmetric key.
func (s *Service) Encrypt(ctx context.Context, keyID string, spec remote.KeySpec, plaintext, associatedData []byte) ([]byte, error) {
	if spec.Kind != remote.KindAESGCM {
		return nil, fmt.Errorf("%w: %s encryption", types.ErrOperationNotSupported, spec.Kind)
	}
	out, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(keyID),
		Plaintext:         plaintext,
		EncryptionContext: encryptionContext(associatedData),
	})
	if err != nil {
		return nil, translate(err)
	}
	if out == nil {
		return nil, errors.New("awskms: empty Encrypt response")
	}
	return out.CiphertextBlob, nil
}

// Decrypt decrypts a KMS ciphertext blob or an RSAES-OAEP ciphertext.
func (s *Service) Decrypt(ctx context.Context, keyID string, spec remote.KeySpec, ciphertext, associatedData []byte) ([]byte, error) {
	input := &kms.DecryptInput{
		KeyId:          aws.String(keyID),
		CiphertextBlob: ciphertext,
	}
	switch spec.Kind {
	case remote.KindAESGCM:
		input.EncryptionContext = encryptionContext(associatedData)
	case remote.KindRSAOAEP:
		if len(associatedData) > 0 {
			return nil, ErrLabelNotSupported
		}
		if spec.Hash != crypto.SHA256 {
			return nil, fmt.Errorf("%w: OAEP with %s", remote.ErrUnsupportedDigest, spec.Hash)
		}
		input.EncryptionAlgorithm = awstypes.EncryptionAlgorithmSpecRsaesOaepSha256
	default:
		return nil, fmt.Errorf("%w: %s decryption", types.ErrOperationNotSupported, spec.Kind)
	}

	out, err := s.client.Decrypt(ctx, input)
	if err != nil {
		return nil, translate(err)
	}
	if out == nil {
		return nil, errors.New("awskms: empty Decrypt response")
	}
	return out.Plaintext, nil
}

// Close is a no-op. The SDK client holds no resources that need release.
func (s *Service) Close() error {
	return nil
}

func encryptionContext(associatedData []byte) map[string]string {
	if len(associatedData) == 0 {
		return nil
	}
	return map[string]string{contextKey: base64.StdEncoding.EncodeToString(associatedData)}
}

func keySpecFor(spec remote.KeySpec) (awstypes.KeySpec, awstypes.KeyUsageType, error) {
	switch spec.Kind {
	case remote.KindECDSA:
		switch spec.Curve {
		case types.CurveP256:
			return awstypes.KeySpecEccNistP256, awstypes.KeyUsageTypeSignVerify, nil
		case types.CurveP384:
			return awstypes.KeySpecEccNistP384, awstypes.KeyUsageTypeSignVerify, nil
		case types.CurveP521:
			return awstypes.KeySpecEccNistP521, awstypes.KeyUsageTypeSignVerify, nil
		}
	case remote.KindRSAPSS, remote.KindRSAOAEP:
		usage := awstypes.KeyUsageTypeSignVerify
		if spec.Kind == remote.KindRSAOAEP {
			if spec.Hash != crypto.SHA256 {
				return "", "", fmt.Errorf("%w: OAEP with %s", remote.ErrUnsupportedDigest, spec.Hash)
			}
			usage = awstypes.KeyUsageTypeEncryptDecrypt
		}
		switch spec.Bits {
		case 2048:
			return awstypes.KeySpecRsa2048, usage, nil
		case 3072:
			return awstypes.KeySpecRsa3072, usage, nil
		case 4096:
			return awstypes.KeySpecRsa4096, usage, nil
		}
	case remote.KindAESGCM:
		if spec.Bits == 256 {
			return awstypes.KeySpecSymmetricDefault, awstypes.KeyUsageTypeEncryptDecrypt, nil
		}
		return "", "", fmt.Errorf("%w: AES-%d, only AES-256 is available", remote.ErrInvalidKeySize, spec.Bits)
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedKeySpec, spec)
}

func signingAlgorithm(spec remote.KeySpec) (awstypes.SigningAlgorithmSpec, error) {
	switch {
	case spec.Kind == remote.KindECDSA && spec.Hash == crypto.SHA256:
		return awstypes.SigningAlgorithmSpecEcdsaSha256, nil
	case spec.Kind == remote.KindECDSA && spec.Hash == crypto.SHA384:
		return awstypes.SigningAlgorithmSpecEcdsaSha384, nil
	case spec.Kind == remote.KindECDSA && spec.Hash == crypto.SHA512:
		return awstypes.SigningAlgorithmSpecEcdsaSha512, nil
	case spec.Kind == remote.KindRSAPSS && spec.Hash == crypto.SHA256:
		return awstypes.SigningAlgorithmSpecRsassaPssSha256, nil
	case spec.Kind == remote.KindRSAPSS && spec.Hash == crypto.SHA384:
		return awstypes.SigningAlgorithmSpecRsassaPssSha384, nil
	case spec.Kind == remote.KindRSAPSS && spec.Hash == crypto.SHA512:
		return awstypes.SigningAlgorithmSpecRsassaPssSha512, nil
	}
	return "", fmt.Errorf("%w: signing with %s", ErrUnsupportedKeySpec, spec)
}

// translate maps KMS exceptions onto the error taxonomy.
func translate(err error) error {
	var (
		invalidCiphertext *awstypes.InvalidCiphertextException
		incorrectKey      *awstypes.IncorrectKeyException
		notFound          *awstypes.NotFoundException
	)
	switch {
	case errors.As(err, &invalidCiphertext), errors.As(err, &incorrectKey):
		return fmt.Errorf("%w: %v", types.ErrAuthenticationFailed, err)
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %v", remote.ErrKeyNotFound, err)
	}
	return err
}
