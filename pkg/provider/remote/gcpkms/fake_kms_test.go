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
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"sync"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeKey struct {
	key       any
	algorithm kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm
}

// fakeKMS answers Cloud KMS requests with in-memory keys. New asymmetric
// versions report PENDING_GENERATION on their first poll.
type fakeKMS struct {
	mu      sync.Mutex
	keys    map[string]*fakeKey
	polls   map[string]int
	creates []*kmspb.CreateCryptoKeyRequest
	signs   []*kmspb.AsymmetricSignRequest
}

func newFakeKMS() (*MockKMSClient, *fakeKMS) {
	f := &fakeKMS{keys: make(map[string]*fakeKey), polls: make(map[string]int)}
	return &MockKMSClient{
		CreateCryptoKeyFunc: func(_ context.Context, req *kmspb.CreateCryptoKeyRequest) (*kmspb.CryptoKey, error) {
			return f.createCryptoKey(req)
		},
		GetCryptoKeyVersionFunc: func(_ context.Context, req *kmspb.GetCryptoKeyVersionRequest) (*kmspb.CryptoKeyVersion, error) {
			return f.getCryptoKeyVersion(req)
		},
		GetPublicKeyFunc: func(_ context.Context, req *kmspb.GetPublicKeyRequest) (*kmspb.PublicKey, error) {
			return f.getPublicKey(req)
		},
		AsymmetricSignFunc: func(_ context.Context, req *kmspb.AsymmetricSignRequest) (*kmspb.AsymmetricSignResponse, error) {
			return f.asymmetricSign(req)
		},
		AsymmetricDecryptFunc: func(_ context.Context, req *kmspb.AsymmetricDecryptRequest) (*kmspb.AsymmetricDecryptResponse, error) {
			return f.asymmetricDecrypt(req)
		},
		EncryptFunc: func(_ context.Context, req *kmspb.EncryptRequest) (*kmspb.EncryptResponse, error) {
			return f.encrypt(req)
		},
		DecryptFunc: func(_ context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error) {
			return f.decrypt(req)
		},
	}, f
}

func (f *fakeKMS) key(name string) (*fakeKey, error) {
	name, _, _ = strings.Cut(name, "/cryptoKeyVersions/")
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%s not found", name)
	}
	return k, nil
}

func (f *fakeKMS) createCryptoKey(req *kmspb.CreateCryptoKeyRequest) (*kmspb.CryptoKey, error) {
	alg := req.GetCryptoKey().GetVersionTemplate().GetAlgorithm()
	var (
		key any
		err error
	)
	switch alg {
	case kmspb.CryptoKeyVersion_EC_SIGN_P256_SHA256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case kmspb.CryptoKeyVersion_EC_SIGN_P384_SHA384:
		key, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case kmspb.CryptoKeyVersion_RSA_SIGN_PSS_2048_SHA256, kmspb.CryptoKeyVersion_RSA_DECRYPT_OAEP_2048_SHA256:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	case kmspb.CryptoKeyVersion_GOOGLE_SYMMETRIC_ENCRYPTION:
		secret := make([]byte, 32)
		_, err = rand.Read(secret)
		key = secret
	default:
		return nil, status.Errorf(codes.InvalidArgument, "algorithm %s not supported by fake", alg)
	}
	if err != nil {
		return nil, err
	}

	name := req.GetParent() + "/cryptoKeys/" + req.GetCryptoKeyId()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	f.keys[name] = &fakeKey{key: key, algorithm: alg}

	out := &kmspb.CryptoKey{Name: name, Purpose: req.GetCryptoKey().GetPurpose()}
	if alg == kmspb.CryptoKeyVersion_GOOGLE_SYMMETRIC_ENCRYPTION {
		out.Primary = &kmspb.CryptoKeyVersion{
			Name:  name + "/cryptoKeyVersions/1",
			State: kmspb.CryptoKeyVersion_ENABLED,
		}
	}
	return out, nil
}

func (f *fakeKMS) getCryptoKeyVersion(req *kmspb.GetCryptoKeyVersionRequest) (*kmspb.CryptoKeyVersion, error) {
	if _, err := f.key(req.GetName()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls[req.GetName()]++
	state := kmspb.CryptoKeyVersion_ENABLED
	if f.polls[req.GetName()] == 1 {
		state = kmspb.CryptoKeyVersion_PENDING_GENERATION
	}
	return &kmspb.CryptoKeyVersion{Name: req.GetName(), State: state}, nil
}

func (f *fakeKMS) getPublicKey(req *kmspb.GetPublicKeyRequest) (*kmspb.PublicKey, error) {
	k, err := f.key(req.GetName())
	if err != nil {
		return nil, err
	}
	var pub any
	switch key := k.key.(type) {
	case *ecdsa.PrivateKey:
		pub = &key.PublicKey
	case *rsa.PrivateKey:
		pub = &key.PublicKey
	default:
		return nil, status.Error(codes.FailedPrecondition, "symmetric key has no public key")
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return &kmspb.PublicKey{
		Pem:       string(data),
		Algorithm: k.algorithm,
		PemCrc32C: wrapperspb.Int64(int64(crc32c(data))),
		Name:      req.GetName(),
	}, nil
}

func (f *fakeKMS) asymmetricSign(req *kmspb.AsymmetricSignRequest) (*kmspb.AsymmetricSignResponse, error) {
	f.mu.Lock()
	f.signs = append(f.signs, req)
	f.mu.Unlock()

	k, err := f.key(req.GetName())
	if err != nil {
		return nil, err
	}
	digest := req.GetDigest()
	var (
		d []byte
		h crypto.Hash
	)
	switch {
	case digest.GetSha256() != nil:
		d, h = digest.GetSha256(), crypto.SHA256
	case digest.GetSha384() != nil:
		d, h = digest.GetSha384(), crypto.SHA384
	case digest.GetSha512() != nil:
		d, h = digest.GetSha512(), crypto.SHA512
	default:
		return nil, status.Error(codes.InvalidArgument, "digest is required")
	}
	if req.GetDigestCrc32C().GetValue() != int64(crc32c(d)) {
		return nil, status.Error(codes.InvalidArgument, "digest checksum mismatch")
	}

	var sig []byte
	switch key := k.key.(type) {
	case *ecdsa.PrivateKey:
		sig, err = ecdsa.SignASN1(rand.Reader, key, d)
	case *rsa.PrivateKey:
		sig, err = rsa.SignPSS(rand.Reader, key, h, d, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	default:
		return nil, status.Error(codes.FailedPrecondition, "not a signing key")
	}
	if err != nil {
		return nil, err
	}
	return &kmspb.AsymmetricSignResponse{
		Signature:            sig,
		SignatureCrc32C:      wrapperspb.Int64(int64(crc32c(sig))),
		VerifiedDigestCrc32C: true,
		Name:                 req.GetName(),
	}, nil
}

func (f *fakeKMS) asymmetricDecrypt(req *kmspb.AsymmetricDecryptRequest) (*kmspb.AsymmetricDecryptResponse, error) {
	k, err := f.key(req.GetName())
	if err != nil {
		return nil, err
	}
	key, ok := k.key.(*rsa.PrivateKey)
	if !ok {
		return nil, status.Error(codes.FailedPrecondition, "not a decryption key")
	}
	pt, err := rsa.DecryptOAEP(sha256.New(), nil, key, req.GetCiphertext(), nil)
	if k.algorithm == kmspb.CryptoKeyVersion_RSA_DECRYPT_OAEP_4096_SHA512 {
		pt, err = rsa.DecryptOAEP(sha512.New(), nil, key, req.GetCiphertext(), nil)
	}
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "decryption failed")
	}
	return &kmspb.AsymmetricDecryptResponse{
		Plaintext:       pt,
		PlaintextCrc32C: wrapperspb.Int64(int64(crc32c(pt))),
	}, nil
}

func (f *fakeKMS) gcm(name string) (cipher.AEAD, error) {
	k, err := f.key(name)
	if err != nil {
		return nil, err
	}
	secret, ok := k.key.([]byte)
	if !ok {
		return nil, status.Error(codes.FailedPrecondition, "not a symmetric key")
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *fakeKMS) encrypt(req *kmspb.EncryptRequest) (*kmspb.EncryptResponse, error) {
	aead, err := f.gcm(req.GetName())
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nonce, nonce, req.GetPlaintext(), req.GetAdditionalAuthenticatedData())
	return &kmspb.EncryptResponse{
		Name:                    req.GetName(),
		Ciphertext:              ct,
		CiphertextCrc32C:        wrapperspb.Int64(int64(crc32c(ct))),
		VerifiedPlaintextCrc32C: true,
	}, nil
}

func (f *fakeKMS) decrypt(req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error) {
	aead, err := f.gcm(req.GetName())
	if err != nil {
		return nil, err
	}
	ct := req.GetCiphertext()
	n := aead.NonceSize()
	if len(ct) < n {
		return nil, status.Error(codes.InvalidArgument, "ciphertext is invalid")
	}
	pt, err := aead.Open(nil, ct[:n], ct[n:], req.GetAdditionalAuthenticatedData())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "decryption failed")
	}
	return &kmspb.DecryptResponse{
		Plaintext:       pt,
		PlaintextCrc32C: wrapperspb.Int64(int64(crc32c(pt))),
	}, nil
}
