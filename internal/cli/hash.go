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

// lookupDigest resolves a digest name given on the command line.
func lookupDigest(name string) (*algorithm.ID[algorithm.Digest], error) {
	d, ok := ids.LookupDigest(name)
	if !ok {
		return nil, fmt.Errorf("unknown digest: %s", name)
	}
	return d, nil
}

func newHashCmd(a *app) *cobra.Command {
	var digestName string
	cmd := &cobra.Command{
		Use:   "hash [file|-]",
		Short: "Compute a message digest",
		Long: `Stream a file, or standard input, through a streaming hash function and
print the digest in hex.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := lookupDigest(digestName)
			if err != nil {
				return err
			}
			d, name, err := provider.ResolveWithProvider[algorithm.Digest](a.engines.Registry, id)
			if err != nil {
				return err
			}
			a.logger.Debug("hashing", logger.Algorithm(id.Name()), logger.Provider(name))

			fn, err := d.Hasher().CreateHashFunctionContext(cmd.Context())
			if err != nil {
				return err
			}
			defer fn.Close()

			in, err := openInput(cmd, argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			defer in.Close()
			if err := stream(in, func(p []byte) error {
				return fn.UpdateContext(cmd.Context(), p)
			}); err != nil {
				return err
			}

			sum, err := fn.CompleteContext(cmd.Context())
			if err != nil {
				return err
			}
			return NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).
				PrintValue("digest", hex.EncodeToString(sum))
		},
	}
	cmd.Flags().StringVarP(&digestName, "algorithm", "a", "SHA-256", "digest algorithm")
	return cmd
}

func newHMACCmd(a *app) *cobra.Command {
	var (
		digestName string
		keyPath    string
		keyFormat  string
	)
	cmd := &cobra.Command{
		Use:   "hmac",
		Short: "Generate HMAC keys and compute or check MACs",
	}
	cmd.PersistentFlags().StringVarP(&digestName, "digest", "d", "SHA-256", "HMAC digest")
	cmd.PersistentFlags().StringVar(&keyFormat, "key-format", "RAW", "key encoding (RAW, JWK)")

	family := func() (algorithm.HMAC, *algorithm.ID[algorithm.Digest], error) {
		id, err := lookupDigest(digestName)
		if err != nil {
			return nil, nil, err
		}
		h, err := provider.Resolve[algorithm.HMAC](a.engines.Registry, ids.HMAC)
		return h, id, err
	}
	loadKey := func(ctx context.Context) (algorithm.HMACKey, error) {
		h, d, err := family()
		if err != nil {
			return nil, err
		}
		format, err := parseKeyFormat(keyFormat)
		if err != nil {
			return nil, err
		}
		data, err := readFile(keyPath)
		if err != nil {
			return nil, err
		}
		dec, err := h.KeyDecoder(d)
		if err != nil {
			return nil, err
		}
		return dec.DecodeFromContext(ctx, format, data)
	}

	var out string
	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an HMAC key sized to the digest block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, d, err := family()
			if err != nil {
				return err
			}
			format, err := parseKeyFormat(keyFormat)
			if err != nil {
				return err
			}
			gen, err := h.KeyGenerator(d)
			if err != nil {
				return err
			}
			key, err := gen.GenerateKeyContext(cmd.Context())
			if err != nil {
				return err
			}
			data, err := key.EncodeToContext(cmd.Context(), format)
			if err != nil {
				return err
			}
			return a.emitKey(cmd, out, format, data)
		},
	}
	keygenCmd.Flags().StringVar(&out, "out", "", "write the key to this file")

	signCmd := &cobra.Command{
		Use:   "sign [file|-]",
		Short: "Compute a MAC and print it in hex",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadKey(cmd.Context())
			if err != nil {
				return err
			}
			tag, err := signInput(cmd, key.Signer(), argOr(args, 0, "-"))
			if err != nil {
				return err
			}
			return NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).
				PrintValue("mac", hex.EncodeToString(tag))
		},
	}

	var expected string
	verifyCmd := &cobra.Command{
		Use:   "verify [file|-]",
		Short: "Check a MAC given in hex",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			want, err := decodeBinary(expected)
			if err != nil {
				return fmt.Errorf("%w: mac: %v", types.ErrInvalidParameter, err)
			}
			key, err := loadKey(cmd.Context())
			if err != nil {
				return err
			}
			return a.verifyInput(cmd, key.Verifier(), argOr(args, 0, "-"), want)
		},
	}
	verifyCmd.Flags().StringVar(&expected, "mac", "", "expected MAC in hex (or b64:...)")
	_ = verifyCmd.MarkFlagRequired("mac")

	for _, c := range []*cobra.Command{signCmd, verifyCmd} {
		c.Flags().StringVarP(&keyPath, "key", "k", "", "HMAC key file")
		_ = c.MarkFlagRequired("key")
	}
	cmd.AddCommand(keygenCmd, signCmd, verifyCmd)
	return cmd
}

// argOr returns args[i], or def when absent.
func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}
