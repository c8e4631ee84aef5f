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
	"encoding/binary"
	"errors"
	"net/http"
	"os"
	"testing"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

func testConfig() *Config {
	return &Config{Address: "http://127.0.0.1:8200", Token: "root"}
}

func newTestProvider(t *testing.T) (*remote.Provider, *fakeTransit) {
	t.Helper()
	client, fake := newFakeTransit()
	svc, err := NewWithClient(testConfig(), client)
	require.NoError(t, err)
	p, err := remote.New(&remote.Config{Service: svc})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, fake
}

func TestNewWithClient(t *testing.T) {
	_, err := NewWithClient(testConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewWithClient(&Config{}, &MockLogicalClient{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	svc, err := NewWithClient(testConfig(), &MockLogicalClient{})
	require.NoError(t, err)
	assert.Equal(t, "vault", svc.Name())
	assert.Len(t, svc.Kinds(), 4)
	assert.Equal(t, "transit/sign/k", svc.path("sign", "k"))
	assert.NoError(t, svc.Close())
}

func TestKeyTypeFor(t *testing.T) {
	tests := []struct {
		name    string
		spec    remote.KeySpec
		want    string
		wantErr error
	}{
		{"P-384", remote.KeySpec{Kind: remote.KindECDSA, Curve: types.CurveP384}, "ecdsa-p384", nil},
		{"P-521", remote.KeySpec{Kind: remote.KindECDSA, Curve: types.CurveP521}, "ecdsa-p521", nil},
		{"unknown curve", remote.KeySpec{Kind: remote.KindECDSA, Curve: "P-224"}, "", ErrUnsupportedKeySpec},
		{"PSS 4096", remote.KeySpec{Kind: remote.KindRSAPSS, Bits: 4096, Hash: crypto.SHA512}, "rsa-4096", nil},
		{"RSA 1024", remote.KeySpec{Kind: remote.KindRSAPSS, Bits: 1024, Hash: crypto.SHA256}, "", ErrUnsupportedKeySpec},
		{"OAEP SHA-512", remote.KeySpec{Kind: remote.KindRSAOAEP, Bits: 2048, Hash: crypto.SHA512}, "", remote.ErrUnsupportedDigest},
		{"AES-128", remote.KeySpec{Kind: remote.KindAESGCM, Bits: 128}, "aes128-gcm96", nil},
		{"AES-192", remote.KeySpec{Kind: remote.KindAESGCM, Bits: 192}, "", remote.ErrInvalidKeySize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyTypeFor(tt.spec)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVaultValue(t *testing.T) {
	version, raw, err := parseVaultValue(formatVaultValue(7, []byte("bytes")))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), version)
	assert.Equal(t, []byte("bytes"), raw)

	for _, bad := range []string{"", "vault:v1", "other:v1:Ynl0ZXM=", "vault:x1:Ynl0ZXM=", "vault:v1:!!"} {
		_, _, err := parseVaultValue(bad)
		assert.ErrorIs(t, err, ErrInvalidResponse, bad)
	}
}

func TestService_ECDSA(t *testing.T) {
	p, fake := newTestProvider(t)
	ctx := context.Background()

	family, err := provider.Get(p, ids.ECDSA)
	require.NoError(t, err)
	gen, err := family.KeyPairGenerator(types.CurveP521)
	require.NoError(t, err)
	pair, err := gen.GenerateKeyContext(ctx)
	require.NoError(t, err)

	signer, err := pair.PrivateKey().Signer(ids.SHA512, types.SignatureFormatRAW)
	require.NoError(t, err)
	sig, err := signer.SignContext(ctx, []byte("to be signed"))
	require.NoError(t, err)
	assert.Len(t, sig, 132)

	verifier, err := pair.PublicKey().Verifier(ids.SHA512, types.SignatureFormatRAW)
	require.NoError(t, err)
	ok, err := verifier.VerifyContext(ctx, []byte("to be signed"), sig)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, fake.writes, 2)
	assert.Equal(t, "ecdsa-p521", fake.writes[0]["type"])
	assert.Equal(t, false, fake.writes[0]["exportable"])
}

func TestService_RSAPSS(t *testing.T) {
	if testing.Short() {
		t.Skip("RSA key generation")
	}
	p, _ := newTestProvider(t)
	ctx := context.Background()

	family, err := provider.Get(p, ids.RSAPSS)
	require.NoError(t, err)
	gen, err := family.KeyPairGenerator(2048, ids.SHA256)
	require.NoError(t, err)
	pair, err := gen.GenerateKeyContext(ctx)
	require.NoError(t, err)

	sig, err := pair.PrivateKey().Signer().SignContext(ctx, []byte("pss"))
	require.NoError(t, err)
	ok, err := pair.PublicKey().Verifier().VerifyContext(ctx, []byte("pss"), sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_RSAOAEP(t *testing.T) {
	if testing.Short() {
		t.Skip("RSA key generation")
	}
	p, _ := newTestProvider(t)
	ctx := context.Background()

	family, err := provider.Get(p, ids.RSAOAEP)
	require.NoError(t, err)
	gen, err := family.KeyPairGenerator(2048, ids.SHA256)
	require.NoError(t, err)
	pair, err := gen.GenerateKeyContext(ctx)
	require.NoError(t, err)

	ct, err := pair.PublicKey().Encryptor().Seal([]byte("wrapped key"), nil)
	require.NoError(t, err)
	pt, err := pair.PrivateKey().Decryptor().OpenContext(ctx, ct, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("wrapped key"), pt)

	_, err = pair.PrivateKey().Decryptor().OpenContext(ctx, ct, []byte("label"))
	assert.ErrorIs(t, err, ErrLabelNotSupported)
}

func TestService_AESGCM(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	family, err := provider.Get(p, ids.AESGCM)
	require.NoError(t, err)
	gen, err := family.KeyGenerator(types.AES256)
	require.NoError(t, err)
	key, err := gen.GenerateKeyContext(ctx)
	require.NoError(t, err)
	c, err := key.Cipher(algorithm.DefaultTagSize)
	require.NoError(t, err)

	ct, err := c.SealContext(ctx, []byte("payload"), []byte("header"))
	require.NoError(t, err)
	assert.Len(t, ct, 4+12+len("payload")+16)
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(ct))

	pt, err := c.OpenContext(ctx, ct, []byte("header"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), pt)

	_, err = c.OpenContext(ctx, ct, []byte("other"))
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
	_, err = c.OpenContext(ctx, ct[:2], nil)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
}

func TestService_UnknownKey(t *testing.T) {
	p, _ := newTestProvider(t)
	family, err := provider.Get(p, ids.ECDSA)
	require.NoError(t, err)
	dec, err := family.PrivateKeyDecoder(types.CurveP256)
	require.NoError(t, err)

	_, err = dec.DecodeFromContext(context.Background(), remote.FormatKeyRef, []byte("cp-missing"))
	assert.ErrorIs(t, err, remote.ErrKeyNotFound)

	client, _ := newFakeTransit()
	svc, err := NewWithClient(testConfig(), client)
	require.NoError(t, err)
	_, err = svc.Decrypt(context.Background(), "cp-missing", remote.KeySpec{Kind: remote.KindAESGCM, Bits: 256},
		[]byte{0, 0, 0, 1, 1, 2, 3}, nil)
	assert.ErrorIs(t, err, remote.ErrKeyNotFound)
}

func TestService_InvalidResponses(t *testing.T) {
	svc, err := NewWithClient(testConfig(), &MockLogicalClient{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Sign(ctx, "k", remote.KeySpec{Kind: remote.KindECDSA, Hash: crypto.SHA256}, make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidResponse)
	_, err = svc.Sign(ctx, "k", remote.KeySpec{Kind: remote.KindECDSA, Hash: crypto.SHA1}, make([]byte, 20))
	assert.ErrorIs(t, err, remote.ErrUnsupportedDigest)
	_, err = svc.Encrypt(ctx, "k", remote.KeySpec{Kind: remote.KindAESGCM, Bits: 256}, []byte("x"), nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	_, err = svc.Encrypt(ctx, "k", remote.KeySpec{Kind: remote.KindRSAOAEP}, nil, nil)
	assert.ErrorIs(t, err, types.ErrOperationNotSupported)
	_, err = svc.PublicKey(ctx, "k")
	assert.ErrorIs(t, err, remote.ErrKeyNotFound)

	svc, err = NewWithClient(testConfig(), &MockLogicalClient{
		WriteFunc: func(_ context.Context, _ string, _ map[string]interface{}) (*vault.Secret, error) {
			return &vault.Secret{Data: map[string]interface{}{"signature": "not-a-vault-value"}}, nil
		},
	})
	require.NoError(t, err)
	_, err = svc.Sign(ctx, "k", remote.KeySpec{Kind: remote.KindRSAPSS, Hash: crypto.SHA256}, make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestTranslate(t *testing.T) {
	other := errors.New("sealed")
	notFound := responseError(http.StatusNotFound, "no handler")
	authFailed := responseError(http.StatusBadRequest, "cipher: message authentication failed")
	missing := responseError(http.StatusBadRequest, "encryption key not found")

	assert.ErrorIs(t, translate(notFound), remote.ErrKeyNotFound)
	assert.Equal(t, other, translate(other))
	assert.ErrorIs(t, translateDecrypt(authFailed), types.ErrAuthenticationFailed)
	assert.ErrorIs(t, translateDecrypt(missing), remote.ErrKeyNotFound)
}

// TestIntegration_Transit runs against a live Vault with the Transit engine
// mounted. Requires VAULT_TOKEN; VAULT_ADDR defaults to the dev server.
func TestIntegration_Transit(t *testing.T) {
	token := os.Getenv("VAULT_TOKEN")
	if token == "" {
		t.Skip("VAULT_TOKEN not set, skipping Vault integration test")
	}
	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		addr = "http://127.0.0.1:8200"
	}

	svc, err := New(&Config{Address: addr, Token: token, TLSSkipVerify: true})
	require.NoError(t, err)
	p, err := remote.New(&remote.Config{Service: svc})
	require.NoError(t, err)
	defer p.Close()
	ctx := context.Background()

	family, err := provider.Get(p, ids.AESGCM)
	require.NoError(t, err)
	gen, err := family.KeyGenerator(types.AES256)
	require.NoError(t, err)
	key, err := gen.GenerateKeyContext(ctx)
	require.NoError(t, err)
	c, err := key.Cipher(algorithm.DefaultTagSize)
	require.NoError(t, err)

	ct, err := c.SealContext(ctx, []byte("integration"), []byte("ad"))
	require.NoError(t, err)
	pt, err := c.OpenContext(ctx, ct, []byte("ad"))
	require.NoError(t, err)
	assert.Equal(t, []byte("integration"), pt)
}
