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

//go:build pkcs11

package pkcs11

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("pkcs11: invalid configuration")

	// ErrLibraryNotFound is returned when the PKCS#11 library cannot be found.
	ErrLibraryNotFound = errors.New("pkcs11: library not found")

	// ErrInvalidPINLength is returned when the user PIN is too short.
	// PKCS#11 typically requires PINs to be at least 4 characters.
	ErrInvalidPINLength = errors.New("pkcs11: invalid pin length, must be at least 4 characters")

	// ErrKeyNotFound is returned when no object carries the label.
	ErrKeyNotFound = errors.New("pkcs11: key not found")

	// ErrProviderClosed is returned for operations after Close.
	ErrProviderClosed = errors.New("pkcs11: provider closed")

	// ErrKeyMismatch is returned when a labelled key has a different type,
	// curve or size than requested.
	ErrKeyMismatch = fmt.Errorf("%w: token key has the wrong type", types.ErrInvalidParameter)

	// ErrInvalidKeySize is returned for RSA or AES sizes the engine does
	// not generate.
	ErrInvalidKeySize = fmt.Errorf("%w: invalid key size", types.ErrInvalidParameter)

	// ErrInvalidCurve is returned for unknown curves.
	ErrInvalidCurve = fmt.Errorf("%w: invalid curve", types.ErrInvalidParameter)

	// ErrUnsupportedDigest is returned for digests the token mechanisms
	// are not used with.
	ErrUnsupportedDigest = fmt.Errorf("%w: digest not supported by the token", types.ErrInvalidParameter)

	// ErrInvalidTagSize is returned when a tag size other than 16 bytes is
	// requested. CKM_AES_GCM is driven with full length tags.
	ErrInvalidTagSize = fmt.Errorf("%w: token AES-GCM keys use 16 byte tags", types.ErrInvalidParameter)

	// ErrInvalidIV is returned when a caller supplied nonce is not 12 bytes.
	ErrInvalidIV = fmt.Errorf("%w: invalid IV length", types.ErrInvalidParameter)
)
