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

package jwt_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding/jwt"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/software"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

type keyPair struct {
	signer   operation.Signer
	verifier operation.Verifier
}

func newProvider(t *testing.T) *software.Provider {
	t.Helper()
	p, err := software.New(nil)
	require.NoError(t, err)
	return p
}

func hmacPair(t *testing.T, p *software.Provider) keyPair {
	t.Helper()
	family, err := provider.Get(p, ids.HMAC)
	require.NoError(t, err)
	gen, err := family.KeyGenerator(ids.SHA256)
	require.NoError(t, err)
	key, err := gen.GenerateKey()
	require.NoError(t, err)
	return keyPair{key.Signer(), key.Verifier()}
}

func ecdsaPair(t *testing.T, p *software.Provider) keyPair {
	t.Helper()
	family, err := provider.Get(p, ids.ECDSA)
	require.NoError(t, err)
	gen, err := family.KeyPairGenerator(types.CurveP256)
	require.NoError(t, err)
	pair, err := gen.GenerateKey()
	require.NoError(t, err)
	signer, err := pair.PrivateKey().Signer(ids.SHA256, types.SignatureFormatRAW)
	require.NoError(t, err)
	verifier, err := pair.PublicKey().Verifier(ids.SHA256, types.SignatureFormatRAW)
	require.NoError(t, err)
	return keyPair{signer, verifier}
}

func eddsaPair(t *testing.T, p *software.Provider) keyPair {
	t.Helper()
	family, err := provider.Get(p, ids.EdDSA)
	require.NoError(t, err)
	pair, err := family.KeyPairGenerator().GenerateKey()
	require.NoError(t, err)
	return keyPair{pair.PrivateKey().Signer(), pair.PublicKey().Verifier()}
}

func rsaDER(t *testing.T) []byte {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	return der
}

func TestSignParse(t *testing.T) {
	p := newProvider(t)
	der := rsaDER(t)

	pss, err := provider.Get(p, ids.RSAPSS)
	require.NoError(t, err)
	pssDec, err := pss.PrivateKeyDecoder(ids.SHA256)
	require.NoError(t, err)
	pssPriv, err := pssDec.DecodeFrom(types.FormatDER, der)
	require.NoError(t, err)
	std, err := x509.ParsePKCS8PrivateKey(der)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&std.(*rsa.PrivateKey).PublicKey)
	require.NoError(t, err)
	pssPubDec, err := pss.PublicKeyDecoder(ids.SHA256)
	require.NoError(t, err)
	pssPub, err := pssPubDec.DecodeFrom(types.FormatDER, pubDER)
	require.NoError(t, err)

	pkcs1, err := provider.Get(p, ids.RSAPKCS1)
	require.NoError(t, err)
	pkcs1Dec, err := pkcs1.PrivateKeyDecoder(ids.SHA256)
	require.NoError(t, err)
	pkcs1Priv, err := pkcs1Dec.DecodeFrom(types.FormatDER, der)
	require.NoError(t, err)
	pkcs1PubDec, err := pkcs1.PublicKeyDecoder(ids.SHA256)
	require.NoError(t, err)
	pkcs1Pub, err := pkcs1PubDec.DecodeFrom(types.FormatDER, pubDER)
	require.NoError(t, err)

	tests := []struct {
		alg  string
		pair keyPair
	}{
		{"HS256", hmacPair(t, p)},
		{"ES256", ecdsaPair(t, p)},
		{"EdDSA", eddsaPair(t, p)},
		{"PS256", keyPair{pssPriv.Signer(), pssPub.Verifier()}},
		{"RS256", keyPair{pkcs1Priv.Signer(), pkcs1Pub.Verifier()}},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.alg, func(t *testing.T) {
			claims := gojwt.RegisteredClaims{
				Subject:   "alice",
				ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
			}
			token, err := jwt.Sign(ctx, tt.alg, tt.pair.signer, claims, "key-1")
			require.NoError(t, err)

			kid, err := jwt.KeyID(token)
			require.NoError(t, err)
			assert.Equal(t, "key-1", kid)

			var got gojwt.RegisteredClaims
			parsed, err := jwt.Parse(ctx, token, tt.alg, tt.pair.verifier, &got)
			require.NoError(t, err)
			assert.True(t, parsed.Valid)
			assert.Equal(t, tt.alg, parsed.Method.Alg())
			assert.Equal(t, "alice", got.Subject)
		})
	}
}

func TestParse_InteroperatesWithGolangJWT(t *testing.T) {
	p := newProvider(t)
	family, err := provider.Get(p, ids.HMAC)
	require.NoError(t, err)
	dec, err := family.KeyDecoder(ids.SHA256)
	require.NoError(t, err)
	secret := []byte("0123456789abcdef0123456789abcdef")
	key, err := dec.DecodeFrom(types.FormatRAW, secret)
	require.NoError(t, err)

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{"sub": "bob"}).SignedString(secret)
	require.NoError(t, err)

	claims := gojwt.MapClaims{}
	_, err = jwt.Parse(context.Background(), token, "HS256", key.Verifier(), claims)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims["sub"])

	ours, err := jwt.Sign(context.Background(), "HS256", key.Signer(), gojwt.MapClaims{"sub": "carol"}, "")
	require.NoError(t, err)
	parsed, err := gojwt.Parse(ours, func(*gojwt.Token) (interface{}, error) { return secret, nil })
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
}

func TestParse_Failures(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()
	hs := hmacPair(t, p)
	other := hmacPair(t, p)

	valid, err := jwt.Sign(ctx, "HS256", hs.signer, gojwt.MapClaims{"sub": "alice"}, "")
	require.NoError(t, err)

	t.Run("algorithm mismatch", func(t *testing.T) {
		_, err := jwt.Parse(ctx, valid, "HS384", hs.verifier, nil)
		assert.ErrorIs(t, err, gojwt.ErrTokenSignatureInvalid)
		assert.ErrorIs(t, err, jwt.ErrInvalidSignatureAlgorithm)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := jwt.Parse(ctx, valid, "HS256", other.verifier, nil)
		assert.ErrorIs(t, err, gojwt.ErrTokenSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		claims := gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute))}
		token, err := jwt.Sign(ctx, "HS256", hs.signer, claims, "")
		require.NoError(t, err)
		_, err = jwt.Parse(ctx, token, "HS256", hs.verifier, &gojwt.RegisteredClaims{})
		assert.ErrorIs(t, err, gojwt.ErrTokenExpired)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := jwt.Parse(ctx, "not.a-token", "HS256", hs.verifier, nil)
		assert.ErrorIs(t, err, gojwt.ErrTokenMalformed)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := jwt.Sign(ctx, "none", hs.signer, gojwt.MapClaims{}, "")
		assert.ErrorIs(t, err, jwt.ErrInvalidSignatureAlgorithm)
		_, err = jwt.Parse(ctx, valid, "HS1", hs.verifier, nil)
		assert.ErrorIs(t, err, jwt.ErrInvalidSignatureAlgorithm)
	})
}

func TestSigningMethod_InvalidKeyType(t *testing.T) {
	method, err := jwt.NewSigningMethod("EdDSA")
	require.NoError(t, err)
	assert.Equal(t, "EdDSA", method.Alg())

	_, err = method.Sign("header.payload", []byte("secret"))
	assert.ErrorIs(t, err, jwt.ErrInvalidKey)
	assert.ErrorIs(t, method.Verify("header.payload", []byte("sig"), "key"), jwt.ErrInvalidKey)
}
