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
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// errVerificationFailed is returned after a failed check has been printed,
// so the process exits non-zero.
var errVerificationFailed = errors.New("verification failed")

// keyFlags are the algorithm parameters shared by keygen, sign, verify,
// encrypt and decrypt.
type keyFlags struct {
	algorithm string
	curve     string
	digest    string
	bits      int
	size      int
	format    string
}

func (k *keyFlags) register(cmd *cobra.Command, defaultAlgorithm string) {
	f := cmd.Flags()
	f.StringVarP(&k.algorithm, "algorithm", "a", defaultAlgorithm, "algorithm name")
	f.StringVar(&k.curve, "curve", string(types.CurveP256), "curve for ECDSA and ECDH")
	f.StringVarP(&k.digest, "digest", "d", "SHA-256", "digest for RSA, ECDSA and HMAC")
	f.IntVar(&k.bits, "bits", 2048, "RSA modulus size")
	f.IntVar(&k.size, "size", 256, "AES key size in bits")
	f.StringVar(&k.format, "key-format", "", "key encoding (RAW, DER, PEM, JWK, DER_PKCS1, PEM_PKCS1, KEY_REF); detected when empty")
}

func (k *keyFlags) parsedCurve() (types.Curve, error) {
	c, ok := types.ParseCurve(k.curve)
	if !ok {
		return "", fmt.Errorf("%w: unknown curve %s", types.ErrInvalidParameter, k.curve)
	}
	return c, nil
}

func (k *keyFlags) parsedDigest() (*algorithm.ID[algorithm.Digest], error) {
	return lookupDigest(k.digest)
}

func (k *keyFlags) aesSize() (types.AESKeySize, error) {
	s := types.AESKeySize(k.size)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: AES key size %d", types.ErrInvalidParameter, k.size)
	}
	return s, nil
}

// identity maps the --algorithm value to a standard identity. Ed25519 is
// accepted for EdDSA.
func (k *keyFlags) identity() (algorithm.Identity, error) {
	name := k.algorithm
	if strings.EqualFold(name, "Ed25519") {
		name = ids.EdDSA.Name()
	}
	id, ok := ids.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown algorithm: %s", k.algorithm)
	}
	return id, nil
}

func parseKeyFormat(s string) (types.KeyFormat, error) {
	f, ok := types.ParseKeyFormat(s)
	if !ok {
		return "", fmt.Errorf("%w: unknown key format %s", types.ErrInvalidParameter, s)
	}
	return f, nil
}

// detectFormat returns the explicit format, or guesses one from data.
func detectFormat(explicit string, data []byte) (types.KeyFormat, error) {
	if explicit != "" {
		return parseKeyFormat(explicit)
	}
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("-----BEGIN RSA ")):
		return types.FormatPEMPKCS1, nil
	case bytes.HasPrefix(trimmed, []byte("-----BEGIN ")):
		return types.FormatPEM, nil
	case bytes.HasPrefix(trimmed, []byte("{")):
		return types.FormatJWK, nil
	}
	return types.FormatDER, nil
}

// pickFormat returns explicit when set, otherwise the first of prefs the
// key supports.
func pickFormat(key operation.EncodableKey, explicit string, prefs ...types.KeyFormat) (types.KeyFormat, error) {
	if explicit != "" {
		return parseKeyFormat(explicit)
	}
	supported := key.Formats()
	for _, f := range prefs {
		if types.ContainsFormat(supported, f) {
			return f, nil
		}
	}
	if len(supported) == 0 {
		return "", fmt.Errorf("%w: key is not exportable", types.ErrOperationNotSupported)
	}
	return supported[0], nil
}

var (
	privatePrefs   = []types.KeyFormat{types.FormatPEM, types.FormatKeyRef, types.FormatRAW}
	publicPrefs    = []types.KeyFormat{types.FormatPEM, types.FormatRAW}
	symmetricPrefs = []types.KeyFormat{types.FormatRAW, types.FormatKeyRef}
)

// textFormat reports whether keys in f are printable text.
func textFormat(f types.KeyFormat) bool {
	switch f {
	case types.FormatPEM, types.FormatPEMPKCS1, types.FormatJWK, types.FormatKeyRef:
		return true
	}
	return false
}

// emitKey writes key material to path, or prints it: text formats as is,
// binary formats base64 encoded.
func (a *app) emitKey(cmd *cobra.Command, path string, format types.KeyFormat, data []byte) error {
	if path != "" {
		return writeFile(path, data, true)
	}
	if textFormat(format) {
		_, err := cmd.OutOrStdout().Write(append(bytes.TrimRight(data, "\n"), '\n'))
		return err
	}
	return NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).
		PrintValue("key", base64.StdEncoding.EncodeToString(data))
}

// generated is the result of keygen before encoding.
type generated struct {
	private operation.EncodableKey
	public  operation.EncodableKey
}

// generate creates a key for k.algorithm on the highest priority provider
// that implements it.
func (a *app) generate(ctx context.Context, k *keyFlags) (*generated, string, error) {
	id, err := k.identity()
	if err != nil {
		return nil, "", err
	}
	reg := a.engines.Registry

	switch id {
	case ids.ECDSA:
		curve, err := k.parsedCurve()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.ECDSA](reg, ids.ECDSA)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyPairGenerator(curve)
		return pair(ctx, gen, err, name)
	case ids.EdDSA:
		fam, name, err := provider.ResolveWithProvider[algorithm.EdDSA](reg, ids.EdDSA)
		if err != nil {
			return nil, "", err
		}
		return pair(ctx, fam.KeyPairGenerator(), nil, name)
	case ids.RSAPSS:
		d, err := k.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.RSAPSS](reg, ids.RSAPSS)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyPairGenerator(k.bits, d)
		return pair(ctx, gen, err, name)
	case ids.RSAPKCS1:
		d, err := k.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.RSAPKCS1](reg, ids.RSAPKCS1)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyPairGenerator(k.bits, d)
		return pair(ctx, gen, err, name)
	case ids.RSAOAEP:
		d, err := k.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.RSAOAEP](reg, ids.RSAOAEP)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyPairGenerator(k.bits, d)
		return pair(ctx, gen, err, name)
	case ids.ECDH:
		curve, err := k.parsedCurve()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.ECDH](reg, ids.ECDH)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyPairGenerator(curve)
		return pair(ctx, gen, err, name)
	case ids.XDH:
		fam, name, err := provider.ResolveWithProvider[algorithm.XDH](reg, ids.XDH)
		if err != nil {
			return nil, "", err
		}
		return pair(ctx, fam.KeyPairGenerator(), nil, name)
	case ids.AESGCM:
		size, err := k.aesSize()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.AESGCM](reg, ids.AESGCM)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyGenerator(size)
		return secret(ctx, gen, err, name)
	case ids.AESCBC:
		size, err := k.aesSize()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.AESCBC](reg, ids.AESCBC)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyGenerator(size)
		return secret(ctx, gen, err, name)
	case ids.AESCTR:
		size, err := k.aesSize()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.AESCTR](reg, ids.AESCTR)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyGenerator(size)
		return secret(ctx, gen, err, name)
	case ids.ChaCha20Poly1305:
		fam, name, err := provider.ResolveWithProvider[algorithm.ChaCha20Poly1305](reg, ids.ChaCha20Poly1305)
		if err != nil {
			return nil, "", err
		}
		return secret(ctx, fam.KeyGenerator(), nil, name)
	case ids.HMAC:
		d, err := k.parsedDigest()
		if err != nil {
			return nil, "", err
		}
		fam, name, err := provider.ResolveWithProvider[algorithm.HMAC](reg, ids.HMAC)
		if err != nil {
			return nil, "", err
		}
		gen, err := fam.KeyGenerator(d)
		return secret(ctx, gen, err, name)
	}
	return nil, "", fmt.Errorf("%w: %s has no keys", types.ErrOperationNotSupported, id.Name())
}

// pair runs a key pair generator.
func pair[Pub, Priv operation.EncodableKey](ctx context.Context, gen operation.KeyGenerator[algorithm.KeyPair[Pub, Priv]], err error, name string) (*generated, string, error) {
	if err != nil {
		return nil, "", err
	}
	kp, err := gen.GenerateKeyContext(ctx)
	if err != nil {
		return nil, "", err
	}
	return &generated{private: kp.PrivateKey(), public: kp.PublicKey()}, name, nil
}

// secret runs a symmetric key generator.
func secret[K operation.EncodableKey](ctx context.Context, gen operation.KeyGenerator[K], err error, name string) (*generated, string, error) {
	if err != nil {
		return nil, "", err
	}
	key, err := gen.GenerateKeyContext(ctx)
	if err != nil {
		return nil, "", err
	}
	return &generated{private: key}, name, nil
}

func newKeygenCmd(a *app) *cobra.Command {
	var (
		k         keyFlags
		out       string
		publicOut string
		pubFormat string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key",
		Long: `Generate a key on the highest priority provider that implements the
algorithm and write it in the requested encoding. Keys held by an HSM or
key-management service are written as KEY_REF references.

Algorithms: ECDSA, EdDSA, RSA-PSS, RSA-PKCS1, RSA-OAEP, ECDH, X25519,
AES-GCM, AES-CBC, AES-CTR, ChaCha20-Poly1305, HMAC`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, name, err := a.generate(cmd.Context(), &k)
			if err != nil {
				return err
			}

			prefs := symmetricPrefs
			if g.public != nil {
				prefs = privatePrefs
			}
			format, err := pickFormat(g.private, k.format, prefs...)
			if err != nil {
				return err
			}
			data, err := g.private.EncodeToContext(cmd.Context(), format)
			if err != nil {
				return err
			}
			a.logger.Info("key generated",
				logger.Algorithm(k.algorithm),
				logger.Provider(name),
				logger.String("format", format.String()))

			if publicOut != "" {
				if g.public == nil {
					return fmt.Errorf("%w: %s keys have no public part", types.ErrInvalidParameter, k.algorithm)
				}
				pf, err := pickFormat(g.public, pubFormat, publicPrefs...)
				if err != nil {
					return err
				}
				pub, err := g.public.EncodeToContext(cmd.Context(), pf)
				if err != nil {
					return err
				}
				if err := writeFile(publicOut, pub, false); err != nil {
					return err
				}
			}
			return a.emitKey(cmd, out, format, data)
		},
	}
	k.register(cmd, "ECDSA")
	cmd.Flags().StringVar(&out, "out", "", "write the private or secret key to this file")
	cmd.Flags().StringVar(&publicOut, "public-out", "", "write the public key to this file")
	cmd.Flags().StringVar(&pubFormat, "public-format", "", "public key encoding; detected when empty")
	return cmd
}
