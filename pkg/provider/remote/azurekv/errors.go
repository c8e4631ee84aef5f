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

//go:build azurekv

package azurekv

import "errors"

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("azurekv: invalid configuration")

	// ErrInvalidVaultURL is returned when an invalid vault URL is specified.
	ErrInvalidVaultURL = errors.New("azurekv: invalid vault URL")

	// ErrUnsupportedKeySpec is returned for key descriptions Key Vault has
	// no key type or algorithm for.
	ErrUnsupportedKeySpec = errors.New("azurekv: unsupported key spec")

	// ErrLabelNotSupported is returned when an OAEP label is supplied.
	ErrLabelNotSupported = errors.New("azurekv: OAEP labels are not supported")

	// ErrInvalidJWK is returned when a key bundle carries an unusable key.
	ErrInvalidJWK = errors.New("azurekv: invalid JSON web key")

	// ErrInvalidCiphertext is returned when an AES-GCM ciphertext is too
	// short to hold its IV and tag.
	ErrInvalidCiphertext = errors.New("azurekv: invalid ciphertext")
)
