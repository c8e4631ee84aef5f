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

package jwt

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
)

var (
	// ErrInvalidSignatureAlgorithm is returned for "alg" values with no
	// provider mapping.
	ErrInvalidSignatureAlgorithm = errors.New("jwt: invalid signature algorithm")

	// ErrInvalidKey is returned when the key handed to Sign or Verify is not
	// an operation.Signer or operation.Verifier.
	ErrInvalidKey = errors.New("jwt: invalid key type")
)

// Algorithms lists the JWS "alg" values a provider capability can serve.
// ES* tokens require a signer created with types.SignatureFormatRAW.
var Algorithms = []string{
	"HS256", "HS384", "HS512",
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// SigningMethod implements jwt.SigningMethod on top of provider
// capabilities. Sign takes an operation.Signer and Verify an
// operation.Verifier; the digest, padding and signature encoding are
// properties of the capability, fixed when its key was created.
type SigningMethod struct {
	alg string
	ctx context.Context
}

var _ jwt.SigningMethod = (*SigningMethod)(nil)

// NewSigningMethod returns a SigningMethod for alg.
func NewSigningMethod(alg string) (*SigningMethod, error) {
	for _, a := range Algorithms {
		if a == alg {
			return &SigningMethod{alg: alg, ctx: context.Background()}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSignatureAlgorithm, alg)
}

// WithContext returns a copy of the method whose operations run under ctx.
// The context forms are always used, so capabilities of asynchronous
// engines work too.
func (m *SigningMethod) WithContext(ctx context.Context) *SigningMethod {
	return &SigningMethod{alg: m.alg, ctx: ctx}
}

// Alg returns the JWS "alg" value.
func (m *SigningMethod) Alg() string {
	return m.alg
}

// Sign signs signingString with key, which must be an operation.Signer.
func (m *SigningMethod) Sign(signingString string, key interface{}) ([]byte, error) {
	signer, ok := key.(operation.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvalidKey, key)
	}
	return signer.SignContext(m.ctx, []byte(signingString))
}

// Verify checks sig over signingString with key, which must be an
// operation.Verifier.
func (m *SigningMethod) Verify(signingString string, sig []byte, key interface{}) error {
	verifier, ok := key.(operation.Verifier)
	if !ok {
		return fmt.Errorf("%w: %T", ErrInvalidKey, key)
	}
	valid, err := verifier.VerifyContext(m.ctx, []byte(signingString), sig)
	if err != nil {
		return err
	}
	if !valid {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
