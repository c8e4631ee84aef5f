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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/aead"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// defaultTagSize is the AES-GCM tag size used by the CLI.
const defaultTagSize = 16

// cipherFlags are the flags shared by encrypt and decrypt.
type cipherFlags struct {
	keyFlags
	keyPath string
	aad     string
	out     string
}

func (c *cipherFlags) register(cmd *cobra.Command) {
	c.keyFlags.register(cmd, aead.SelectOptimal(false).Name())
	cmd.Flags().StringVarP(&c.keyPath, "key", "k", "", "key file")
	cmd.Flags().StringVar(&c.aad, "aad", "", "associated data (AEAD) or OAEP label, as text")
	cmd.Flags().StringVar(&c.out, "out", "", "write the result to this file")
	_ = cmd.MarkFlagRequired("key")
}

// symmetricFormat returns the explicit format, or JWK for JSON input and
// RAW otherwise.
func symmetricFormat(explicit string, data []byte) (types.KeyFormat, error) {
	if explicit != "" {
		return parseKeyFormat(explicit)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return types.FormatJWK, nil
	}
	return types.FormatRAW, nil
}

// decodeSymmetric decodes a symmetric key file with dec.
func decodeSymmetric[K any](ctx context.Context, c *cipherFlags, dec operation.KeyDecoder[K]) (K, error) {
	var zero K
	data, err := readFile(c.keyPath)
	if err != nil {
		return zero, err
	}
	format, err := symmetricFormat(c.format, data)
	if err != nil {
		return zero, err
	}
	return dec.DecodeFromContext(ctx, format, data)
}

// cipherFactory opens a streaming cipher function.
type cipherFactory func(ctx context.Context) (*operation.CipherFunction, error)

// cipher resolves the algorithm, decodes the key and returns a factory for
// the requested direction.
func (a *app) cipher(ctx context.Context, c *cipherFlags, encrypt bool) (cipherFactory, string, error) {
	id, err := c.identity()
	if err != nil {
		return nil, "", err
	}
	var aad []byte
	if c.aad != "" {
		aad = []byte(c.aad)
	}
	reg := a.engines.Registry

	aeadFactory := func(ci operation.AEADCipher) cipherFactory {
		if encrypt {
			return func(ctx context.Context) (*operation.CipherFunction, error) {
				return ci.CreateSealFunctionContext(ctx, aad)
			}
		}
		return func(ctx context.Context) (*operation.CipherFunction, error) {
			return ci.CreateOpenFunctionContext(ctx, aad)
		}
	}
	plainFactory := func(ci operation.Cipher) (cipherFactory, error) {
		if aad != nil {
			return nil, fmt.Errorf("%w: %s does not take associated data", types.ErrInvalidParameter, id.Name())
		}
		if encrypt {
			return ci.CreateEncryptFunctionContext, nil
		}
		return ci.CreateDecryptFunctionContext, nil
	}

	switch id {
	case ids.AESGCM:
		fam, name, err := provider.ResolveWithProvider[algorithm.AESGCM](reg, ids.AESGCM)
		if err != nil {
			return nil, "", err
		}
		key, err := decodeSymmetric(ctx, c, fam.KeyDecoder())
		if err != nil {
			return nil, "", err
		}
		ci, err := key.Cipher(defaultTagSize)
		if err != nil {
			return nil, "", err
		}
		return aeadFactory(ci), name, nil
	case ids.ChaCha20Poly1305:
		fam, name, err := provider.ResolveWithProvider[algorithm.ChaCha20Poly1305](reg, ids.ChaCha20Poly1305)
		if err != nil {
			return nil, "", err
		}
		key, err := decodeSymmetric(ctx, c, fam.KeyDecoder())
		if err != nil {
			return nil, "", err
		}
		return aeadFactory(key.Cipher()), name, nil
	case ids.AESCBC:
		fam, name, err := provider.ResolveWithProvider[algorithm.AESCBC](reg, ids.AESCBC)
		if err != nil {
			return nil, "", err
		}
		key, err := decodeSymmetric(ctx, c, fam.KeyDecoder())
		if err != nil {
			return nil, "", err
		}
		f, err := plainFactory(key.Cipher(true))
		return f, name, err
	case ids.AESCTR:
		fam, name, err := provider.ResolveWithProvider[algorithm.AESCTR](reg, ids.AESCTR)
		if err != nil {
			return nil, "", err
		}
		key, err := decodeSymmetric(ctx, c, fam.KeyDecoder())
		if err != nil {
			return nil, "", err
		}
		f, err := plainFactory(key.Cipher())
		return f, name, err
	case ids.RSAOAEP:
		return a.oaep(ctx, c, aad, encrypt)
	}
	return nil, "", fmt.Errorf("%w: %s is not a cipher", types.ErrOperationNotSupported, id.Name())
}

// oaep returns an RSA-OAEP factory. Encryption takes the public key and
// decryption the private key; aad is the OAEP label.
func (a *app) oaep(ctx context.Context, c *cipherFlags, label []byte, encrypt bool) (cipherFactory, string, error) {
	d, err := c.parsedDigest()
	if err != nil {
		return nil, "", err
	}
	fam, name, err := provider.ResolveWithProvider[algorithm.RSAOAEP](a.engines.Registry, ids.RSAOAEP)
	if err != nil {
		return nil, "", err
	}
	data, err := readFile(c.keyPath)
	if err != nil {
		return nil, "", err
	}
	format, err := detectFormat(c.format, data)
	if err != nil {
		return nil, "", err
	}

	if encrypt {
		dec, err := fam.PublicKeyDecoder(d)
		if err != nil {
			return nil, "", err
		}
		key, err := dec.DecodeFromContext(ctx, format, data)
		if err != nil {
			return nil, "", err
		}
		enc := key.Encryptor()
		return func(ctx context.Context) (*operation.CipherFunction, error) {
			return enc.CreateSealFunctionContext(ctx, label)
		}, name, nil
	}

	dec, err := fam.PrivateKeyDecoder(d)
	if err != nil {
		return nil, "", err
	}
	key, err := dec.DecodeFromContext(ctx, format, data)
	if err != nil {
		return nil, "", err
	}
	decryptor := key.Decryptor()
	return func(ctx context.Context) (*operation.CipherFunction, error) {
		return decryptor.CreateOpenFunctionContext(ctx, label)
	}, name, nil
}

// runCipher streams in through a cipher function. AEAD open functions
// withhold plaintext until the tag verifies, so nothing is written on
// authentication failure.
func runCipher(ctx context.Context, open cipherFactory, in io.Reader) ([]byte, error) {
	fn, err := open(ctx)
	if err != nil {
		return nil, err
	}
	defer fn.Close()

	var out bytes.Buffer
	if err := stream(in, func(p []byte) error {
		chunk, err := fn.UpdateContext(ctx, p)
		if err != nil {
			return err
		}
		out.Write(chunk)
		return nil
	}); err != nil {
		return nil, err
	}
	last, err := fn.CompleteContext(ctx)
	if err != nil {
		return nil, err
	}
	out.Write(last)
	return out.Bytes(), nil
}

func newEncryptCmd(a *app) *cobra.Command {
	var c cipherFlags
	cmd := &cobra.Command{
		Use:   "encrypt [file|-]",
		Short: "Encrypt a file",
		Long: `Encrypt a file, or standard input. Symmetric ciphers read a RAW or JWK
key and prepend the generated IV or nonce to the ciphertext. RSA-OAEP reads a
public key. The ciphertext is written raw to --out, or printed base64 encoded.

Algorithms: AES-GCM, AES-CBC, AES-CTR, ChaCha20-Poly1305, RSA-OAEP`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			open, name, err := a.cipher(cmd.Context(), &c, true)
			if err != nil {
				return err
			}
			in, err := openInput(cmd, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			defer in.Close()
			ct, err := runCipher(cmd.Context(), open, in)
			if err != nil {
				return err
			}
			a.logger.Debug("encrypted",
				logger.Algorithm(c.algorithm),
				logger.Provider(name),
				logger.Int("ciphertext_size", len(ct)))
			return a.emit(cmd, "ciphertext", c.out, ct, false)
		},
	}
	c.register(cmd)
	return cmd
}

func newDecryptCmd(a *app) *cobra.Command {
	var (
		c       cipherFlags
		encoded bool
	)
	cmd := &cobra.Command{
		Use:   "decrypt [file|-]",
		Short: "Decrypt a file",
		Long: `Decrypt a file, or standard input, produced by encrypt. Use --base64
when the input is the printed form. The plaintext is written to --out, or to
standard output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			open, name, err := a.cipher(cmd.Context(), &c, false)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			data, err = maybeBase64(data, encoded)
			if err != nil {
				return err
			}
			pt, err := runCipher(cmd.Context(), open, bytes.NewReader(data))
			if err != nil {
				return err
			}
			a.logger.Debug("decrypted",
				logger.Algorithm(c.algorithm),
				logger.Provider(name),
				logger.Int("plaintext_size", len(pt)))
			if c.out != "" {
				return writeFile(c.out, pt, true)
			}
			_, err = cmd.OutOrStdout().Write(pt)
			return err
		},
	}
	c.register(cmd)
	cmd.Flags().BoolVar(&encoded, "base64", false, "input is base64 text")
	return cmd
}
