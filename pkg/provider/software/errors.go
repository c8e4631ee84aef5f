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
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// Parameter errors. Each matches types.ErrInvalidParameter.
var (
	ErrUnsupportedDigest = fmt.Errorf("%w: unsupported digest", types.ErrInvalidParameter)
	ErrInvalidKeySize    = fmt.Errorf("%w: invalid key size", types.ErrInvalidParameter)
	ErrInvalidCurve      = fmt.Errorf("%w: invalid curve", types.ErrInvalidParameter)
	ErrInvalidIV         = fmt.Errorf("%w: invalid IV length", types.ErrInvalidParameter)
	ErrInvalidTagSize    = fmt.Errorf("%w: invalid tag size", types.ErrInvalidParameter)
	ErrInvalidBlockSize  = fmt.Errorf("%w: input is not a multiple of the block size", types.ErrInvalidParameter)
	ErrInvalidPadding    = fmt.Errorf("%w: invalid padding", types.ErrInvalidParameter)
	ErrInvalidKeyLength  = fmt.Errorf("%w: invalid derived key length", types.ErrInvalidParameter)
	ErrInvalidSalt       = fmt.Errorf("%w: invalid salt", types.ErrInvalidParameter)
	ErrInvalidIterations = fmt.Errorf("%w: invalid iterations", types.ErrInvalidParameter)
	ErrInvalidMemory     = fmt.Errorf("%w: invalid memory cost", types.ErrInvalidParameter)
	ErrInvalidThreads    = fmt.Errorf("%w: invalid threads", types.ErrInvalidParameter)
	ErrInvalidTime       = fmt.Errorf("%w: invalid time cost", types.ErrInvalidParameter)

	// ErrForeignKey is returned when a key created by another provider, or
	// for another curve, is passed to a key agreement.
	ErrForeignKey = fmt.Errorf("%w: key belongs to another provider or curve", types.ErrInvalidParameter)

	// ErrKeyMismatch is returned when decoded key material is of a
	// different type than the decoder expects.
	ErrKeyMismatch = fmt.Errorf("%w: decoded key has the wrong type", types.ErrInvalidParameter)
)

const (
	// MinRSABits is the smallest RSA modulus the provider generates.
	MinRSABits = 2048

	// MinArgon2SaltLength is the minimum Argon2id salt length in bytes.
	MinArgon2SaltLength = 16

	// MinArgon2Memory is the minimum Argon2id memory cost in KiB.
	MinArgon2Memory = 8 * 1024

	// MinArgon2KeyLength is the shortest Argon2id output in bytes.
	MinArgon2KeyLength = 4
)
