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

package software

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
)

// derivation wraps a derivation body with metrics.
func (p *Provider) derivation(derive func(input []byte) ([]byte, error)) operation.SecretDerivation {
	return operation.NewSecretDerivation(operation.Synchronous, func(ctx context.Context, input []byte) ([]byte, error) {
		return observe(p, metrics.OpDerive, func() ([]byte, error) {
			return derive(input)
		})
	})
}

type hkdfFamily struct {
	p *Provider
}

var _ algorithm.HKDF = (*hkdfFamily)(nil)

// SecretDerivation returns HKDF extract-then-expand. outputSize is limited
// to 255 digest lengths.
func (f *hkdfFamily) SecretDerivation(digest *algorithm.ID[algorithm.Digest], outputSize int, salt, info []byte) (operation.SecretDerivation, error) {
	d, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	if outputSize < 1 || outputSize > 255*d.size {
		return nil, fmt.Errorf("%w: HKDF output of %d bytes, allowed 1..%d", ErrInvalidKeyLength, outputSize, 255*d.size)
	}
	salt = append([]byte(nil), salt...)
	info = append([]byte(nil), info...)
	return f.p.derivation(func(input []byte) ([]byte, error) {
		out := make([]byte, outputSize)
		if _, err := io.ReadFull(hkdf.New(d.new, input, salt, info), out); err != nil {
			return nil, fmt.Errorf("software: HKDF: %w", err)
		}
		return out, nil
	}), nil
}

type pbkdf2Family struct {
	p *Provider
}

var _ algorithm.PBKDF2 = (*pbkdf2Family)(nil)

func (f *pbkdf2Family) SecretDerivation(digest *algorithm.ID[algorithm.Digest], iterations, outputSize int, salt []byte) (operation.SecretDerivation, error) {
	d, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	if iterations < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIterations, iterations)
	}
	if outputSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeyLength, outputSize)
	}
	salt = append([]byte(nil), salt...)
	return f.p.derivation(func(password []byte) ([]byte, error) {
		return pbkdf2.Key(password, salt, iterations, outputSize, d.new), nil
	}), nil
}

type argon2Family struct {
	p *Provider
}

var _ algorithm.Argon2id = (*argon2Family)(nil)

// SecretDerivation validates params against the minimums of this package
// and returns Argon2id over the password input.
func (f *argon2Family) SecretDerivation(params algorithm.Argon2Params) (operation.SecretDerivation, error) {
	switch {
	case len(params.Salt) < MinArgon2SaltLength:
		return nil, fmt.Errorf("%w: salt must be at least %d bytes", ErrInvalidSalt, MinArgon2SaltLength)
	case params.MemoryKiB < MinArgon2Memory:
		return nil, fmt.Errorf("%w: memory must be at least %d KiB", ErrInvalidMemory, MinArgon2Memory)
	case params.Time < 1:
		return nil, fmt.Errorf("%w: time must be at least 1", ErrInvalidTime)
	case params.Threads < 1:
		return nil, fmt.Errorf("%w: threads must be at least 1", ErrInvalidThreads)
	case params.KeyLength < MinArgon2KeyLength:
		return nil, fmt.Errorf("%w: Argon2id output must be at least %d bytes", ErrInvalidKeyLength, MinArgon2KeyLength)
	}
	params.Salt = append([]byte(nil), params.Salt...)
	return f.p.derivation(func(password []byte) ([]byte, error) {
		return argon2.IDKey(password, params.Salt, params.Time, params.MemoryKiB, params.Threads, params.KeyLength), nil
	}), nil
}
