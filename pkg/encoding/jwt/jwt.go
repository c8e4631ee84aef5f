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
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
)

// Sign creates a compact JWS over claims. kid is set in the header when
// not empty.
func Sign(ctx context.Context, alg string, signer operation.Signer, claims jwt.Claims, kid string) (string, error) {
	method, err := NewSigningMethod(alg)
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(method.WithContext(ctx), claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	return token.SignedString(signer)
}

// Parse verifies tokenString with verifier and validates its registered
// claims into claims. The header "alg" must equal alg; the global
// golang-jwt method registry is not consulted, so a token cannot switch
// algorithms on the verifier.
func Parse(ctx context.Context, tokenString, alg string, verifier operation.Verifier, claims jwt.Claims, opts ...jwt.ParserOption) (*jwt.Token, error) {
	method, err := NewSigningMethod(alg)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		claims = jwt.MapClaims{}
	}

	parser := jwt.NewParser(opts...)
	token, parts, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, err
	}
	if got, _ := token.Header["alg"].(string); got != alg {
		return nil, fmt.Errorf("%w: %w: token alg %q, want %q",
			jwt.ErrTokenSignatureInvalid, ErrInvalidSignatureAlgorithm, got, alg)
	}

	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jwt.ErrTokenMalformed, err)
	}
	signingString := strings.Join(parts[:2], ".")
	if err := method.WithContext(ctx).Verify(signingString, sig, verifier); err != nil {
		return nil, fmt.Errorf("%w: %w", jwt.ErrTokenSignatureInvalid, err)
	}
	token.Method = method
	token.Signature = sig

	if err := jwt.NewValidator(opts...).Validate(claims); err != nil {
		return nil, err
	}
	token.Valid = true
	return token, nil
}

// KeyID returns the "kid" header of tokenString without verifying it.
func KeyID(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", err
	}
	kid, _ := token.Header["kid"].(string)
	return kid, nil
}
