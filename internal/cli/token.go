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

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding/jwt"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// jwsParams maps a JWS "alg" to the key parameters that serve it.
func jwsParams(alg string, s *signatureFlags) error {
	digests := map[string]string{"256": "SHA-256", "384": "SHA-384", "512": "SHA-512"}
	curves := map[string]types.Curve{"256": types.CurveP256, "384": types.CurveP384, "512": types.CurveP521}

	if alg == "EdDSA" {
		s.algorithm = "EdDSA"
		return nil
	}
	if len(alg) != 5 {
		return fmt.Errorf("%w: %s", jwt.ErrInvalidSignatureAlgorithm, alg)
	}
	bits := alg[2:]
	digest, ok := digests[bits]
	if !ok {
		return fmt.Errorf("%w: %s", jwt.ErrInvalidSignatureAlgorithm, alg)
	}
	s.digest = digest
	switch alg[:2] {
	case "HS":
		s.algorithm = "HMAC"
	case "RS":
		s.algorithm = "RSA-PKCS1"
	case "PS":
		s.algorithm = "RSA-PSS"
	case "ES":
		s.algorithm = "ECDSA"
		s.curve = string(curves[bits])
		s.signatureFormat = string(types.SignatureFormatRAW)
	default:
		return fmt.Errorf("%w: %s", jwt.ErrInvalidSignatureAlgorithm, alg)
	}
	return nil
}

// tokenFlags are shared by token sign and token verify.
type tokenFlags struct {
	alg       string
	keyPath   string
	keyFormat string
}

func (t *tokenFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.alg, "alg", "ES256", "JWS algorithm ("+strings.Join(jwt.Algorithms, ", ")+")")
	cmd.Flags().StringVarP(&t.keyPath, "key", "k", "", "key file")
	cmd.Flags().StringVar(&t.keyFormat, "key-format", "", "key encoding; detected when empty")
	_ = cmd.MarkFlagRequired("key")
}

func (t *tokenFlags) signatureFlags() (*signatureFlags, error) {
	s := &signatureFlags{
		keyPath:         t.keyPath,
		signatureFormat: string(types.SignatureFormatDER),
	}
	s.format = t.keyFormat
	s.curve = string(types.CurveP256)
	s.digest = "SHA-256"
	if err := jwsParams(t.alg, s); err != nil {
		return nil, err
	}
	return s, nil
}

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign and verify JSON Web Tokens with provider keys",
	}
	cmd.AddCommand(newTokenSignCmd(a), newTokenVerifyCmd(a))
	return cmd
}

func newTokenSignCmd(a *app) *cobra.Command {
	var (
		t   tokenFlags
		kid string
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sign [claims.json|-]",
		Short: "Sign a JSON claims set as a compact JWS",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := t.signatureFlags()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			claims := gojwt.MapClaims{}
			if len(bytes.TrimSpace(raw)) > 0 {
				if err := json.Unmarshal(raw, &claims); err != nil {
					return fmt.Errorf("%w: claims: %v", types.ErrInvalidParameter, err)
				}
			}
			if ttl > 0 {
				now := time.Now()
				claims["iat"] = now.Unix()
				claims["exp"] = now.Add(ttl).Unix()
			}

			signer, _, err := a.signer(cmd.Context(), s)
			if err != nil {
				return err
			}
			token, err := jwt.Sign(cmd.Context(), t.alg, signer, claims, kid)
			if err != nil {
				return err
			}
			return NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).PrintValue("token", token)
		},
	}
	t.register(cmd)
	cmd.Flags().StringVar(&kid, "kid", "", "key ID header")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "set iat and exp this far in the future")
	return cmd
}

func newTokenVerifyCmd(a *app) *cobra.Command {
	var t tokenFlags
	cmd := &cobra.Command{
		Use:   "verify [token|-]",
		Short: "Verify a compact JWS and print its claims",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := t.signatureFlags()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			verifier, _, err := a.verifier(cmd.Context(), s)
			if err != nil {
				return err
			}
			claims := gojwt.MapClaims{}
			if _, err := jwt.Parse(cmd.Context(), strings.TrimSpace(string(raw)), t.alg, verifier, claims); err != nil {
				return fmt.Errorf("%w: %w", errVerificationFailed, err)
			}
			format := a.flags.OutputFormat
			if format == string(OutputFormatText) {
				format = string(OutputFormatJSON)
			}
			return NewPrinter(format, cmd.OutOrStdout()).printData(claims)
		},
	}
	t.register(cmd)
	return cmd
}
