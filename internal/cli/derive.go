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
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// deriveFlags are shared by the KDF subcommands.
type deriveFlags struct {
	digest string
	length int
	salt   string
}

func (d *deriveFlags) register(cmd *cobra.Command, withDigest bool) {
	if withDigest {
		cmd.Flags().StringVarP(&d.digest, "digest", "d", "SHA-256", "PRF digest")
	}
	cmd.Flags().IntVarP(&d.length, "length", "l", 32, "output length in bytes")
	cmd.Flags().StringVar(&d.salt, "salt", "", "salt as hex or b64:<base64>")
}

func (d *deriveFlags) parsedSalt() ([]byte, error) {
	if d.salt == "" {
		return nil, nil
	}
	salt, err := decodeBinary(d.salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", types.ErrInvalidParameter, err)
	}
	return salt, nil
}

// printSecret prints derived material as hex.
func (a *app) printSecret(cmd *cobra.Command, kdf string, secret []byte) error {
	a.logger.Debug("secret derived",
		logger.Algorithm(kdf),
		logger.Int("length", len(secret)))
	return NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).
		PrintValue("secret", hex.EncodeToString(secret))
}

func newDeriveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive secrets with HKDF, PBKDF2, Argon2id or key agreement",
		Long: `Derive secret material. The KDF subcommands read input keying material
or the password from a file, or standard input, and print the result in hex.`,
	}
	cmd.AddCommand(
		newHKDFCmd(a),
		newPBKDF2Cmd(a),
		newArgon2idCmd(a),
		newSharedCmd(a),
	)
	return cmd
}

func newHKDFCmd(a *app) *cobra.Command {
	var (
		d    deriveFlags
		info string
	)
	cmd := &cobra.Command{
		Use:   "hkdf [file|-]",
		Short: "HKDF extract and expand",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := lookupDigest(d.digest)
			if err != nil {
				return err
			}
			salt, err := d.parsedSalt()
			if err != nil {
				return err
			}
			kdf, err := provider.Resolve[algorithm.HKDF](a.engines.Registry, ids.HKDF)
			if err != nil {
				return err
			}
			derivation, err := kdf.SecretDerivation(digest, d.length, salt, []byte(info))
			if err != nil {
				return err
			}
			ikm, err := readInput(cmd, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			secret, err := derivation.DeriveSecretContext(cmd.Context(), ikm)
			if err != nil {
				return err
			}
			return a.printSecret(cmd, ids.HKDF.Name(), secret)
		},
	}
	d.register(cmd, true)
	cmd.Flags().StringVar(&info, "info", "", "context info, as text")
	return cmd
}

func newPBKDF2Cmd(a *app) *cobra.Command {
	var (
		d          deriveFlags
		iterations int
	)
	cmd := &cobra.Command{
		Use:   "pbkdf2 [file|-]",
		Short: "PBKDF2 password based derivation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := lookupDigest(d.digest)
			if err != nil {
				return err
			}
			salt, err := d.parsedSalt()
			if err != nil {
				return err
			}
			kdf, err := provider.Resolve[algorithm.PBKDF2](a.engines.Registry, ids.PBKDF2)
			if err != nil {
				return err
			}
			derivation, err := kdf.SecretDerivation(digest, iterations, d.length, salt)
			if err != nil {
				return err
			}
			password, err := readInput(cmd, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			secret, err := derivation.DeriveSecretContext(cmd.Context(), password)
			if err != nil {
				return err
			}
			return a.printSecret(cmd, ids.PBKDF2.Name(), secret)
		},
	}
	d.register(cmd, true)
	cmd.Flags().IntVar(&iterations, "iterations", 600000, "iteration count")
	return cmd
}

func newArgon2idCmd(a *app) *cobra.Command {
	var (
		d       deriveFlags
		passes  uint32
		memory  uint32
		threads uint8
	)
	defaults := algorithm.DefaultArgon2Params()
	cmd := &cobra.Command{
		Use:   "argon2id [file|-]",
		Short: "Argon2id password hashing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			salt, err := d.parsedSalt()
			if err != nil {
				return err
			}
			if d.length <= 0 {
				return fmt.Errorf("%w: length must be positive", types.ErrInvalidParameter)
			}
			kdf, err := provider.Resolve[algorithm.Argon2id](a.engines.Registry, ids.Argon2id)
			if err != nil {
				return err
			}
			derivation, err := kdf.SecretDerivation(algorithm.Argon2Params{
				Time:      passes,
				MemoryKiB: memory,
				Threads:   threads,
				KeyLength: uint32(d.length), // #nosec G115 - checked positive above
				Salt:      salt,
			})
			if err != nil {
				return err
			}
			password, err := readInput(cmd, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			secret, err := derivation.DeriveSecretContext(cmd.Context(), password)
			if err != nil {
				return err
			}
			return a.printSecret(cmd, ids.Argon2id.Name(), secret)
		},
	}
	d.register(cmd, false)
	cmd.Flags().Uint32Var(&passes, "time", defaults.Time, "passes over memory")
	cmd.Flags().Uint32Var(&memory, "memory", defaults.MemoryKiB, "memory in KiB")
	cmd.Flags().Uint8Var(&threads, "threads", defaults.Threads, "parallelism")
	return cmd
}

func newSharedCmd(a *app) *cobra.Command {
	var (
		k        keyFlags
		keyPath  string
		peerPath string
	)
	cmd := &cobra.Command{
		Use:   "shared",
		Short: "ECDH or X25519 shared secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := a.sharedSecret(cmd.Context(), &k, keyPath, peerPath)
			if err != nil {
				return err
			}
			return a.printSecret(cmd, k.algorithm, secret)
		},
	}
	k.register(cmd, ids.ECDH.Name())
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "private key file")
	cmd.Flags().StringVar(&peerPath, "peer", "", "peer public key file")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("peer")
	return cmd
}

func (a *app) sharedSecret(ctx context.Context, k *keyFlags, keyPath, peerPath string) ([]byte, error) {
	id, err := k.identity()
	if err != nil {
		return nil, err
	}
	priv, err := readFile(keyPath)
	if err != nil {
		return nil, err
	}
	pub, err := readFile(peerPath)
	if err != nil {
		return nil, err
	}
	privFormat, err := detectFormat(k.format, priv)
	if err != nil {
		return nil, err
	}
	pubFormat, err := detectFormat(k.format, pub)
	if err != nil {
		return nil, err
	}

	switch id {
	case ids.ECDH:
		curve, err := k.parsedCurve()
		if err != nil {
			return nil, err
		}
		fam, err := provider.Resolve[algorithm.ECDH](a.engines.Registry, ids.ECDH)
		if err != nil {
			return nil, err
		}
		privDec, err := fam.PrivateKeyDecoder(curve)
		if err != nil {
			return nil, err
		}
		pubDec, err := fam.PublicKeyDecoder(curve)
		if err != nil {
			return nil, err
		}
		key, err := privDec.DecodeFromContext(ctx, privFormat, priv)
		if err != nil {
			return nil, err
		}
		peer, err := pubDec.DecodeFromContext(ctx, pubFormat, pub)
		if err != nil {
			return nil, err
		}
		return key.SharedSecretDerivation().DeriveSharedSecretContext(ctx, peer)
	case ids.XDH:
		fam, err := provider.Resolve[algorithm.XDH](a.engines.Registry, ids.XDH)
		if err != nil {
			return nil, err
		}
		key, err := fam.PrivateKeyDecoder().DecodeFromContext(ctx, privFormat, priv)
		if err != nil {
			return nil, err
		}
		peer, err := fam.PublicKeyDecoder().DecodeFromContext(ctx, pubFormat, pub)
		if err != nil {
			return nil, err
		}
		return key.SharedSecretDerivation().DeriveSharedSecretContext(ctx, peer)
	}
	return nil, fmt.Errorf("%w: %s is not a key agreement", types.ErrOperationNotSupported, id.Name())
}
