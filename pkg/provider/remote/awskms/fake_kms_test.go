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

package awskms

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
	"crypto/x509"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	awstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/google/uuid"
)

// fakeKMS answers KMS requests with in-memory keys.
type fakeKMS struct {
	mu    sync.Mutex
	keys  map[string]any
	specs map[string]awstypes.KeySpec
	signs []*kms.SignInput
}

func newFakeKMS() (*MockKMSClient, *fakeKMS) {
	f := &fakeKMS{keys: make(map[string]any), specs: make(map[string]awstypes.KeySpec)}
	return &MockKMSClient{
		CreateKeyFunc: func(_ context.Context, in *kms.CreateKeyInput, _ ...func(*kms.Options)) (*kms.CreateKeyOutput, error) {
			return f.createKey(in)
		},
		GetPublicKeyFunc: func(_ context.Context, in *kms.GetPublicKeyInput, _ ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error) {
			return f.getPublicKey(in)
		},
		SignFunc: func(_ context.Context, in *kms.SignInput, _ ...func(*kms.Options)) (*kms.SignOutput, error) {
			return f.sign(in)
		},
		EncryptFunc: func(_ context.Context, in *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
			return f.encrypt(in)
		},
		DecryptFunc: func(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
			return f.decrypt(in)
		},
	}, f
}

func (f *fakeKMS) key(id *string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[aws.ToString(id)]
	if !ok {
		return nil, &awstypes.NotFoundException{Message: aws.String("key " + aws.ToString(id) + " does not exist")}
	}
	return k, nil
}

func (f *fakeKMS) createKey(in *kms.CreateKeyInput) (*kms.CreateKeyOutput, error) {
	var (
		key any
		err error
	)
	switch in.KeySpec {
	case awstypes.KeySpecEccNistP256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case awstypes.KeySpecEccNistP384:
		key, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case awstypes.KeySpecRsa2048:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	case awstypes.KeySpecSymmetricDefault:
		secret := make([]byte, 32)
		_, err = rand.Read(secret)
		key = secret
	default:
		return nil, &awstypes.UnsupportedOperationException{Message: aws.String(string(in.KeySpec))}
	}
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	f.mu.Lock()
	f.keys[id] = key
	f.specs[id] = in.KeySpec
	f.mu.Unlock()
	return &kms.CreateKeyOutput{KeyMetadata: &awstypes.KeyMetadata{
		KeyId:    aws.String(id),
		KeySpec:  in.KeySpec,
		KeyUsage: in.KeyUsage,
	}}, nil
}

func (f *fakeKMS) getPublicKey(in *kms.GetPublicKeyInput) (*kms.GetPublicKeyOutput, error) {
	k, err := f.key(in.KeyId)
	if err != nil {
		return nil, err
	}
	var pub any
	switch key := k.(type) {
	case *ecdsa.PrivateKey:
		pub = &key.PublicKey
	case *rsa.PrivateKey:
		pub = &key.PublicKey
	default:
		return nil, &awstypes.UnsupportedOperationException{Message: aws.String("symmetric key")}
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &kms.GetPublicKeyOutput{KeyId: in.KeyId, PublicKey: der}, nil
}

func (f *fakeKMS) sign(in *kms.SignInput) (*kms.SignOutput, error) {
	f.mu.Lock()
	f.signs = append(f.signs, in)
	f.mu.Unlock()

	k, err := f.key(in.KeyId)
	if err != nil {
		return nil, err
	}
	if in.MessageType != awstypes.MessageTypeDigest {
		return nil, fmt.Errorf("unexpected message type %s", in.MessageType)
	}
	var sig []byte
	switch key := k.(type) {
	case *ecdsa.PrivateKey:
		sig, err = ecdsa.SignASN1(rand.Reader, key, in.Message)
	case *rsa.PrivateKey:
		h := crypto.SHA256
		switch in.SigningAlgorithm {
		case awstypes.SigningAlgorithmSpecRsassaPssSha384:
			h = crypto.SHA384
		case awstypes.SigningAlgorithmSpecRsassaPssSha512:
			h = crypto.SHA512
		}
		sig, err = rsa.SignPSS(rand.Reader, key, h, in.Message, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	default:
		return nil, &awstypes.InvalidKeyUsageException{Message: aws.String("not a signing key")}
	}
	if err != nil {
		return nil, err
	}
	return &kms.SignOutput{KeyId: in.KeyId, Signature: sig, SigningAlgorithm: in.SigningAlgorithm}, nil
}

func (f *fakeKMS) gcm(id *string) (cipher.AEAD, error) {
	k, err := f.key(id)
	if err != nil {
		return nil, err
	}
	secret, ok := k.([]byte)
	if !ok {
		return nil, &awstypes.InvalidKeyUsageException{Message: aws.String("not a symmetric key")}
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func contextBytes(ec map[string]string) []byte {
	if len(ec) == 0 {
		return nil
	}
	return []byte(ec[contextKey])
}

func (f *fakeKMS) encrypt(in *kms.EncryptInput) (*kms.EncryptOutput, error) {
	aead, err := f.gcm(in.KeyId)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	blob := aead.Seal(nonce, nonce, in.Plaintext, contextBytes(in.EncryptionContext))
	return &kms.EncryptOutput{KeyId: in.KeyId, CiphertextBlob: blob}, nil
}

func (f *fakeKMS) decrypt(in *kms.DecryptInput) (*kms.DecryptOutput, error) {
	invalid := &awstypes.InvalidCiphertextException{Message: aws.String("invalid ciphertext")}
	if in.EncryptionAlgorithm == awstypes.EncryptionAlgorithmSpecRsaesOaepSha256 {
		k, err := f.key(in.KeyId)
		if err != nil {
			return nil, err
		}
		key, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, &awstypes.IncorrectKeyException{Message: aws.String("not an RSA key")}
		}
		pt, err := rsa.DecryptOAEP(sha256.New(), nil, key, in.CiphertextBlob, nil)
		if err != nil {
			return nil, invalid
		}
		return &kms.DecryptOutput{KeyId: in.KeyId, Plaintext: pt}, nil
	}

	aead, err := f.gcm(in.KeyId)
	if err != nil {
		return nil, err
	}
	n := aead.NonceSize()
	if len(in.CiphertextBlob) < n {
		return nil, invalid
	}
	pt, err := aead.Open(nil, in.CiphertextBlob[:n], in.CiphertextBlob[n:], contextBytes(in.EncryptionContext))
	if err != nil {
		return nil, errors.Join(invalid, err)
	}
	return &kms.DecryptOutput{KeyId: in.KeyId, Plaintext: pt}, nil
}
