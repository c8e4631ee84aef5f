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

package azurekv

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
	"math/big"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
)

type fakeKey struct {
	key  any
	tags map[string]*string
}

// fakeVault answers Key Vault requests with in-memory keys.
type fakeVault struct {
	mu      sync.Mutex
	keys    map[string]*fakeKey
	creates []azkeys.CreateKeyParameters
	signs   []azkeys.SignParameters
}

func newFakeVault() (*MockKeyVaultClient, *fakeVault) {
	f := &fakeVault{keys: make(map[string]*fakeKey)}
	return &MockKeyVaultClient{
		CreateKeyFunc: func(_ context.Context, name string, params azkeys.CreateKeyParameters, _ *azkeys.CreateKeyOptions) (azkeys.CreateKeyResponse, error) {
			return f.createKey(name, params)
		},
		GetKeyFunc: func(_ context.Context, name, _ string, _ *azkeys.GetKeyOptions) (azkeys.GetKeyResponse, error) {
			return f.getKey(name)
		},
		SignFunc: func(_ context.Context, name, _ string, params azkeys.SignParameters, _ *azkeys.SignOptions) (azkeys.SignResponse, error) {
			return f.sign(name, params)
		},
		EncryptFunc: func(_ context.Context, name, _ string, params azkeys.KeyOperationParameters, _ *azkeys.EncryptOptions) (azkeys.EncryptResponse, error) {
			return f.encrypt(name, params)
		},
		DecryptFunc: func(_ context.Context, name, _ string, params azkeys.KeyOperationParameters, _ *azkeys.DecryptOptions) (azkeys.DecryptResponse, error) {
			return f.decrypt(name, params)
		},
	}, f
}

func responseError(status int, code string) error {
	return &azcore.ResponseError{StatusCode: status, ErrorCode: code}
}

func (f *fakeVault) key(name string) (*fakeKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[name]
	if !ok {
		return nil, responseError(http.StatusNotFound, "KeyNotFound")
	}
	return k, nil
}

func (f *fakeVault) createKey(name string, params azkeys.CreateKeyParameters) (azkeys.CreateKeyResponse, error) {
	var (
		key any
		err error
	)
	switch *params.Kty {
	case azkeys.KeyTypeEC, azkeys.KeyTypeECHSM:
		var curve elliptic.Curve
		switch *params.Curve {
		case azkeys.CurveNameP256:
			curve = elliptic.P256()
		case azkeys.CurveNameP384:
			curve = elliptic.P384()
		default:
			curve = elliptic.P521()
		}
		key, err = ecdsa.GenerateKey(curve, rand.Reader)
	case azkeys.KeyTypeRSA, azkeys.KeyTypeRSAHSM:
		key, err = rsa.GenerateKey(rand.Reader, int(*params.KeySize))
	case azkeys.KeyTypeOctHSM:
		secret := make([]byte, *params.KeySize/8)
		_, err = rand.Read(secret)
		key = secret
	default:
		return azkeys.CreateKeyResponse{}, responseError(http.StatusBadRequest, "BadParameter")
	}
	if err != nil {
		return azkeys.CreateKeyResponse{}, err
	}

	f.mu.Lock()
	f.keys[name] = &fakeKey{key: key, tags: params.Tags}
	f.creates = append(f.creates, params)
	f.mu.Unlock()

	bundle, err := f.bundle(name)
	return azkeys.CreateKeyResponse{KeyBundle: bundle}, err
}

func (f *fakeVault) bundle(name string) (azkeys.KeyBundle, error) {
	k, err := f.key(name)
	if err != nil {
		return azkeys.KeyBundle{}, err
	}
	kid := azkeys.ID("https://test.managedhsm.azure.net/keys/" + name + "/0123456789abcdef")
	jwk := &azkeys.JSONWebKey{KID: &kid}
	switch key := k.key.(type) {
	case *ecdsa.PrivateKey:
		jwk.Kty = to.Ptr(azkeys.KeyTypeEC)
		jwk.Crv = to.Ptr(azkeys.CurveName(key.Curve.Params().Name))
		jwk.X = key.X.Bytes()
		jwk.Y = key.Y.Bytes()
	case *rsa.PrivateKey:
		jwk.Kty = to.Ptr(azkeys.KeyTypeRSA)
		jwk.N = key.N.Bytes()
		jwk.E = big.NewInt(int64(key.E)).Bytes()
	default:
		jwk.Kty = to.Ptr(azkeys.KeyTypeOctHSM)
	}
	return azkeys.KeyBundle{Key: jwk, Tags: k.tags}, nil
}

func (f *fakeVault) getKey(name string) (azkeys.GetKeyResponse, error) {
	bundle, err := f.bundle(name)
	return azkeys.GetKeyResponse{KeyBundle: bundle}, err
}

func (f *fakeVault) sign(name string, params azkeys.SignParameters) (azkeys.SignResponse, error) {
	f.mu.Lock()
	f.signs = append(f.signs, params)
	f.mu.Unlock()

	k, err := f.key(name)
	if err != nil {
		return azkeys.SignResponse{}, err
	}
	var sig []byte
	switch key := k.key.(type) {
	case *ecdsa.PrivateKey:
		der, err := ecdsa.SignASN1(rand.Reader, key, params.Value)
		if err != nil {
			return azkeys.SignResponse{}, err
		}
		sig, err = encoding.ECDSASignatureToRaw(der, (key.Curve.Params().BitSize+7)/8)
		if err != nil {
			return azkeys.SignResponse{}, err
		}
	case *rsa.PrivateKey:
		h := crypto.SHA256
		switch *params.Algorithm {
		case azkeys.SignatureAlgorithmPS384:
			h = crypto.SHA384
		case azkeys.SignatureAlgorithmPS512:
			h = crypto.SHA512
		}
		sig, err = rsa.SignPSS(rand.Reader, key, h, params.Value, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
		if err != nil {
			return azkeys.SignResponse{}, err
		}
	default:
		return azkeys.SignResponse{}, responseError(http.StatusBadRequest, "BadParameter")
	}
	return azkeys.SignResponse{KeyOperationResult: azkeys.KeyOperationResult{Result: sig}}, nil
}

func (f *fakeVault) gcm(name string) (cipher.AEAD, error) {
	k, err := f.key(name)
	if err != nil {
		return nil, err
	}
	secret, ok := k.key.([]byte)
	if !ok {
		return nil, responseError(http.StatusBadRequest, "BadParameter")
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *fakeVault) encrypt(name string, params azkeys.KeyOperationParameters) (azkeys.EncryptResponse, error) {
	aead, err := f.gcm(name)
	if err != nil {
		return azkeys.EncryptResponse{}, err
	}
	iv := make([]byte, gcmIVSize)
	if _, err := rand.Read(iv); err != nil {
		return azkeys.EncryptResponse{}, err
	}
	sealed := aead.Seal(nil, iv, params.Value, params.AdditionalAuthenticatedData)
	n := len(sealed) - gcmTagSize
	return azkeys.EncryptResponse{KeyOperationResult: azkeys.KeyOperationResult{
		IV:                iv,
		Result:            sealed[:n],
		AuthenticationTag: sealed[n:],
	}}, nil
}

func (f *fakeVault) decrypt(name string, params azkeys.KeyOperationParameters) (azkeys.DecryptResponse, error) {
	invalid := responseError(http.StatusBadRequest, "BadParameter")
	if *params.Algorithm == azkeys.EncryptionAlgorithmRSAOAEP256 {
		k, err := f.key(name)
		if err != nil {
			return azkeys.DecryptResponse{}, err
		}
		key, ok := k.key.(*rsa.PrivateKey)
		if !ok {
			return azkeys.DecryptResponse{}, invalid
		}
		pt, err := rsa.DecryptOAEP(sha256.New(), nil, key, params.Value, nil)
		if err != nil {
			return azkeys.DecryptResponse{}, invalid
		}
		return azkeys.DecryptResponse{KeyOperationResult: azkeys.KeyOperationResult{Result: pt}}, nil
	}

	aead, err := f.gcm(name)
	if err != nil {
		return azkeys.DecryptResponse{}, err
	}
	sealed := append(append([]byte{}, params.Value...), params.AuthenticationTag...)
	pt, err := aead.Open(nil, params.IV, sealed, params.AdditionalAuthenticatedData)
	if err != nil {
		return azkeys.DecryptResponse{}, invalid
	}
	return azkeys.DecryptResponse{KeyOperationResult: azkeys.KeyOperationResult{Result: pt}}, nil
}
