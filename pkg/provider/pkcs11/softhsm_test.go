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

//go:build pkcs11

package pkcs11

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// TestIntegration_SoftHSM runs against an initialized SoftHSM token:
//
//	softhsm2-util --init-token --free --label cp-test --pin 1234 --so-pin 5678
//	PKCS11_LIBRARY=/usr/lib/softhsm/libsofthsm2.so go test -tags pkcs11 ./pkg/provider/pkcs11/
func TestIntegration_SoftHSM(t *testing.T) {
	lib := os.Getenv("PKCS11_LIBRARY")
	if lib == "" {
		t.Skip("PKCS11_LIBRARY not set")
	}
	label := os.Getenv("PKCS11_TOKEN_LABEL")
	if label == "" {
		label = "cp-test"
	}
	pin := os.Getenv("PKCS11_PIN")
	if pin == "" {
		pin = "1234"
	}

	p, err := New(&Config{Library: lib, TokenLabel: label, PIN: pin})
	require.NoError(t, err)
	defer p.Close()

	t.Run("ECDSA", func(t *testing.T) {
		gen, err := get(t, p, ids.ECDSA).KeyPairGenerator(types.CurveP256)
		require.NoError(t, err)
		pair, err := gen.GenerateKey()
		require.NoError(t, err)

		signer, err := pair.PrivateKey().Signer(ids.SHA256, types.SignatureFormatRAW)
		require.NoError(t, err)
		sig, err := signer.Sign([]byte("softhsm"))
		require.NoError(t, err)
		verifier, err := pair.PublicKey().Verifier(ids.SHA256, types.SignatureFormatRAW)
		require.NoError(t, err)
		ok, err := verifier.Verify([]byte("softhsm"), sig)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("AESGCM", func(t *testing.T) {
		gen, err := get(t, p, ids.AESGCM).KeyGenerator(types.AES256)
		require.NoError(t, err)
		key, err := gen.GenerateKey()
		require.NoError(t, err)
		c, err := key.Cipher(algorithm.DefaultTagSize)
		require.NoError(t, err)

		ct, err := c.Seal([]byte("softhsm"), []byte("ad"))
		require.NoError(t, err)
		pt, err := c.Open(ct, []byte("ad"))
		require.NoError(t, err)
		assert.Equal(t, []byte("softhsm"), pt)

		_, err = c.Open(ct, []byte("other"))
		assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
	})
}
