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

package jwk

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type privateKey interface {
	Public() crypto.PublicKey
	Equal(x crypto.PrivateKey) bool
}

type publicKey interface {
	Equal(x crypto.PublicKey) bool
}

func TestRoundTrip(t *testing.T) {
	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	p521, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	require.NoError(t, err)
	_, ed, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	x, err := ecdh.X25519().GenerateKey(rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name string
		key  privateKey
		kty  string
		crv  string
	}{
		{"P-256", p256, KeyTypeEC, CurveP256},
		{"P-521", p521, KeyTypeEC, CurveP521},
		{"Ed25519", ed, KeyTypeOKP, CurveEd25519},
		{"RSA", rsaKey, KeyTypeRSA, ""},
		{"X25519", x, KeyTypeOKP, CurveX25519},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := FromPrivateKey(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.kty, j.Kty)
			assert.Equal(t, tt.crv, j.Crv)
			assert.True(t, j.IsPrivate())

			data, err := j.Marshal()
			require.NoError(t, err)
			parsed, err := Unmarshal(data)
			require.NoError(t, err)

			priv, err := parsed.ToPrivateKey()
			require.NoError(t, err)
			assert.True(t, tt.key.Equal(priv))

			pub, err := parsed.ToPublicKey()
			require.NoError(t, err)
			assert.True(t, tt.key.Public().(publicKey).Equal(pub))

			pubJWK, err := FromPublicKey(tt.key.Public())
			require.NoError(t, err)
			assert.False(t, pubJWK.IsPrivate())
			_, err = pubJWK.ToPrivateKey()
			assert.ErrorIs(t, err, ErrInvalidJWK)
		})
	}
}

func TestECCoordinatesArePadded(t *testing.T) {
	// About 1 in 128 P-256 keys has a coordinate with a leading zero byte.
	for i := 0; i < 2048; i++ {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		j, err := FromPublicKey(&key.PublicKey)
		require.NoError(t, err)

		x, err := b64.DecodeString(j.X)
		require.NoError(t, err)
		y, err := b64.DecodeString(j.Y)
		require.NoError(t, err)
		require.Len(t, x, 32)
		require.Len(t, y, 32)
	}
}

func TestECDHPublicKeyEncodesAsEC(t *testing.T) {
	key, err := ecdh.P384().GenerateKey(rand.Reader)
	require.NoError(t, err)

	j, err := FromPublicKey(key.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, KeyTypeEC, j.Kty)
	assert.Equal(t, CurveP384, j.Crv)

	pub, err := j.ToPublicKey()
	require.NoError(t, err)
	ec, ok := pub.(*ecdsa.PublicKey)
	require.True(t, ok)
	converted, err := ec.ECDH()
	require.NoError(t, err)
	assert.True(t, key.PublicKey().Equal(converted))
}

func TestSymmetricKey(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	j, err := FromSymmetricKey(secret, "HS256")
	require.NoError(t, err)
	assert.Equal(t, KeyTypeOct, j.Kty)
	assert.Equal(t, "HS256", j.Alg)

	got, err := j.ToSymmetricKey()
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	_, err = FromSymmetricKey(nil, "")
	assert.ErrorIs(t, err, ErrInvalidJWK)

	_, err = (&JWK{Kty: KeyTypeEC}).ToSymmetricKey()
	assert.ErrorIs(t, err, ErrInvalidJWK)
}

func TestThumbprint(t *testing.T) {
	// RFC 7638 section 3.1
	const n = "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMs" +
		"tn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91Cb" +
		"OpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw"
	j := &JWK{Kty: KeyTypeRSA, N: n, E: "AQAB"}
	kid, err := j.Thumbprint()
	require.NoError(t, err)
	assert.Equal(t, "NzbLsXh8uDCcd-6MNwXF4W_7noWXFZAfHkxZsRGC9Xs", kid)

	require.NoError(t, j.SetKeyID())
	assert.Equal(t, kid, j.Kid)
}

func TestThumbprintIgnoresPrivateMembers(t *testing.T) {
	keys := []privateKey{}
	_, ed, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	x, err := ecdh.X25519().GenerateKey(rand.Reader)
	require.NoError(t, err)
	ec, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	keys = append(keys, ed, x, ec)

	for _, key := range keys {
		priv, err := FromPrivateKey(key)
		require.NoError(t, err)
		pub, err := FromPublicKey(key.Public())
		require.NoError(t, err)

		a, err := priv.Thumbprint()
		require.NoError(t, err)
		b, err := pub.Thumbprint()
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.NotEmpty(t, a)
	}
}

func TestInvalid(t *testing.T) {
	_, err := Unmarshal([]byte(`{"crv":"P-256"}`))
	assert.ErrorIs(t, err, ErrInvalidJWK)

	_, err = Unmarshal([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidJWK)

	_, err = (&JWK{Kty: "XYZ"}).ToPublicKey()
	assert.ErrorIs(t, err, ErrUnsupportedKey)

	_, err = (&JWK{Kty: KeyTypeEC, Crv: "P-192", X: "AA", Y: "AA"}).ToPublicKey()
	assert.ErrorIs(t, err, ErrUnsupportedKey)

	_, err = (&JWK{Kty: KeyTypeEC, Crv: CurveP256, X: "AAAA", Y: "AAAA"}).ToPublicKey()
	assert.ErrorIs(t, err, ErrInvalidJWK)

	_, err = (&JWK{Kty: KeyTypeOKP, Crv: CurveEd25519, X: "AAAA"}).ToPublicKey()
	assert.ErrorIs(t, err, ErrInvalidJWK)

	_, err = FromPublicKey("not a key")
	assert.ErrorIs(t, err, ErrUnsupportedKey)

	p224, err := ecdsa.GenerateKey(elliptic.P224(), rand.Reader)
	require.NoError(t, err)
	_, err = FromPublicKey(&p224.PublicKey)
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}
