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

//go:build gcpkms

package gcpkms

import "errors"

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("gcpkms: invalid configuration")

	// ErrInvalidCredentials is returned when the credentials file is missing.
	ErrInvalidCredentials = errors.New("gcpkms: invalid credentials")

	// ErrUnsupportedKeySpec is returned for key descriptions Cloud KMS has
	// no algorithm for.
	ErrUnsupportedKeySpec = errors.New("gcpkms: unsupported key spec")

	// ErrLabelNotSupported is returned when an OAEP label is supplied.
	ErrLabelNotSupported = errors.New("gcpkms: OAEP labels are not supported")

	// ErrChecksumMismatch is returned when a response fails its CRC32C
	// integrity check.
	ErrChecksumMismatch = errors.New("gcpkms: checksum mismatch")

	// ErrKeyNotEnabled is returned when a new key version leaves
	// PENDING_GENERATION in a state other than ENABLED.
	ErrKeyNotEnabled = errors.New("gcpkms: key version not enabled")
)
