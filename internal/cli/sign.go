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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// signInput streams path through a signing function.
func signInput(cmd *cobra.Command, signer operation.Signer, path string) ([]byte, error) {
	fn, err := signer.CreateSignFunctionContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer fn.Close()

	in, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	if err := stream(in, func(p []byte) error {
		return fn.UpdateContext(cmd.Context(), p)
	}); err != nil {
		return nil, err
	}
	return fn.CompleteContext(cmd.Context())
}

// verifyInput streams path through a verification function and prints the
// result. A mismatch returns errVerificationFailed after printing.
func (a *app) verifyInput(cmd *cobra.Command, verifier operation.Verifier, path string, signature []byte) error {
	fn, err := verifier.CreateVerifyFunctionContext(cmd.Context())
	if err != nil {
		return err
	}
	defer fn.Close()

	in, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := stream(in, func(p []byte) error {
		return fn.UpdateContext(cmd.Context(), p)
	}); err != nil {
		return err
	}

	valid, err := fn.CompleteContext(cmd.Context(), signature)
	if err != nil {
		return err
	}
	if err := NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).PrintVerification(valid); err != nil {
		return err
	}
	if !valid {
		return errVerificationFailed
	}
	return nil
}

// signatureFlags extends keyFlags with the ECDSA signature encoding.
type signatureFlags struct {
	keyFlags
	keyPath         string
	signatureFormat string
}

func (s *signatureFlags) register(cmd *cobra.Command) {
	s.keyFlags.register(cmd, "ECDSA")
	cmd.Flags().StringVarP(&s.keyPath, "key", "k", "", "key file")
	cmd.Flags().StringVar(&s.signatureFormat, "signature-format", string(types.SignatureFormatDER), "ECDSA signature encoding (DER, RAW)")
	_ = cmd.MarkFlagRequired("key")
}

func (s *signatureFlags) parsedSignatureFormat() (types.SignatureFormat, error) {
	f, ok := types.ParseSignatureFormat(s.signatureFormat)
	if !ok {
		return "", fmt.Errorf("%w: unknown signature format %s", types.ErrInvalidParameter, s.signatureFormat)
	}
	return f, nil
}

// signer decodes the private key file and returns its signer.
func (a *app) signer(ctx context.Context, s *signatureFlags) (operation.Signer, string, error) {
	data, err := readFile(s.keyPath)
	if err != nil {
		return nil, "", err
	}
	id, err := s.identity()
	if err != nil {
		return nil, "", err
	}
	if id == ids.HMAC {
		key, name, err := a.hmacKey(ctx, &s.keyFlags, data)
		if err != nil {
			return nil, "", err
		}
		return key.Signer(), name, nil
	}
	format, err := detectFormat(s.format, data)
	if err != nil {
		return nil, "", err
	}
	reg := a.engines.Registry

	switch id {
	case ids.ECDSA:
		curve, err := s.parsedCurve()
		if err != nil {
			return nil, "", err
		}
		d, err := s.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		sf, err := s.parsedSignatureFormat()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.ECDSA](reg, ids.ECDSA)
		if err != nil {
			return nil, "", err
		}
		dec, err := fam.PrivateKeyDecoder(curve)
		if err != nil {
			return nil, "", err
		}
		key, err := dec.DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		signer, err := key.Signer(d, sf)
		return signer, name, err
	case ids.EdDSA:
		fam, name, err := provider.ResolveWithProvider[algorithm.EdDSA](reg, ids.EdDSA)
		if err != nil {
			return nil, "", err
		}
		key, err := fam.PrivateKeyDecoder().DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		return key.Signer(), name, nil
	case ids.RSAPSS:
		d, err := s.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.RSAPSS](reg, ids.RSAPSS)
		if err != nil {
			return nil, "", err
		}
		dec, err := fam.PrivateKeyDecoder(d)
		if err != nil {
			return nil, "", err
		}
		key, err := dec.DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		return key.Signer(), name, nil
	case ids.RSAPKCS1:
		d, err := s.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.RSAPKCS1](reg, ids.RSAPKCS1)
		if err != nil {
			return nil, "", err
		}
		dec, err := fam.PrivateKeyDecoder(d)
		if err != nil {
			return nil, "", err
		}
		key, err := dec.DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		return key.Signer(), name, nil
	}
	return nil, "", fmt.Errorf("%w: %s does not sign", types.ErrOperationNotSupported, id.Name())
}

// verifier decodes the public key file and returns its verifier.
func (a *app) verifier(ctx context.Context, s *signatureFlags) (operation.Verifier, string, error) {
	data, err := readFile(s.keyPath)
	if err != nil {
		return nil, "", err
	}
	id, err := s.identity()
	if err != nil {
		return nil, "", err
	}
	if id == ids.HMAC {
		key, name, err := a.hmacKey(ctx, &s.keyFlags, data)
		if err != nil {
			return nil, "", err
		}
		return key.Verifier(), name, nil
	}
	format, err := detectFormat(s.format, data)
	if err != nil {
		return nil, "", err
	}
	reg := a.engines.Registry

	switch id {
	case ids.ECDSA:
		curve, err := s.parsedCurve()
		if err != nil {
			return nil, "", err
		}
		d, err := s.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		sf, err := s.parsedSignatureFormat()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.ECDSA](reg, ids.ECDSA)
		if err != nil {
			return nil, "", err
		}
		dec, err := fam.PublicKeyDecoder(curve)
		if err != nil {
			return nil, "", err
		}
		key, err := dec.DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		verifier, err := key.Verifier(d, sf)
		return verifier, name, err
	case ids.EdDSA:
		fam, name, err := provider.ResolveWithProvider[algorithm.EdDSA](reg, ids.EdDSA)
		if err != nil {
			return nil, "", err
		}
		key, err := fam.PublicKeyDecoder().DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		return key.Verifier(), name, nil
	case ids.RSAPSS:
		d, err := s.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.RSAPSS](reg, ids.RSAPSS)
		if err != nil {
			return nil, "", err
		}
		dec, err := fam.PublicKeyDecoder(d)
		if err != nil {
			return nil, "", err
		}
		key, err := dec.DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		return key.Verifier(), name, nil
	case ids.RSAPKCS1:
		d, err := s.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.RSAPKCS1](reg, ids.RSAPKCS1)
		if err != nil {
			return nil, "", err
		}
		dec, err := fam.PublicKeyDecoder(d)
		if err != nil {
			return nil, "", err
		}
		key, err := dec.DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		return key.Verifier(), name, nil
	}
	return nil, "", fmt.Errorf("%w: %s does not verify", types.ErrOperationNotSupported, id.Name())
}

// hmacKey decodes a RAW or JWK HMAC key bound to the --digest flag.
func (a *app) hmacKey(ctx context.Context, k *keyFlags, data []byte) (algorithm.HMACKey, string, error) {
	d, err := k.parsedDigest()
	if err != nil {
		return nil, "", err
	}
	format, err := symmetricFormat(k.format, data)
	if err != nil {
		return nil, "", err
	}
	fam, name, err := provider.ResolveWithProvider[algorithm.HMAC](a.engines.Registry, ids.HMAC)
	if err != nil {
		return nil, "", err
	}
	dec, err := fam.KeyDecoder(d)
	if err != nil {
		return nil, "", err
	}
	key, err := dec.DecodeFromContext(ctx, format, data)
	return key, name, err
}

func newSignCmd(a *app) *cobra.Command {
	var (
		s   signatureFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "sign [file|-]",
		Short: "Sign a file with a private key",
		Long: `Stream a file, or standard input, through a signing function. The
signature is written raw to --out, or printed base64 encoded.

Algorithms: ECDSA, EdDSA, RSA-PSS, RSA-PKCS1, HMAC`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, name, err := a.signer(cmd.Context(), &s)
			if err != nil {
				return err
			}
			sig, err := signInput(cmd, signer, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			a.logger.Debug("signed",
				logger.Algorithm(s.algorithm),
				logger.Provider(name),
				logger.Int("signature_size", len(sig)))
			return a.emit(cmd, "signature", out, sig, false)
		},
	}
	s.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "write the raw signature to this file")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		s            signatureFlags
		sigPath      string
		sigValue     string
		base64Signed bool
	)
	cmd := &cobra.Command{
		Use:   "verify [file|-]",
		Short: "Verify a signature with a public key",
		Long: `Stream a file, or standard input, through a verification function. The
signature is read raw from --signature, or given inline with --signature-value
as hex or b64:<base64>. The exit status is non-zero when verification fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				sig []byte
				err error
			)
			switch {
			case sigValue != "":
				sig, err = decodeBinary(sigValue)
			case sigPath != "":
				sig, err = readFile(sigPath)
				if err == nil {
					sig, err = maybeBase64(sig, base64Signed)
				}
			default:
				err = fmt.Errorf("%w: --signature or --signature-value is required", types.ErrInvalidParameter)
			}
			if err != nil {
				return err
			}

			verifier, _, err := a.verifier(cmd.Context(), &s)
			if err != nil {
				return err
			}
			return a.verifyInput(cmd, verifier, argOr(args, 0, "-"), sig)
		},
	}
	s.register(cmd)
	cmd.Flags().StringVar(&sigPath, "signature", "", "raw signature file")
	cmd.Flags().StringVar(&sigValue, "signature-value", "", "signature as hex or b64:<base64>")
	cmd.Flags().BoolVar(&base64Signed, "base64", false, "the --signature file holds base64 text")
	return cmd
}
