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

//go:build awskms

package awskms

import "errors"

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("awskms: invalid configuration")

	// ErrInvalidRegion is returned when an invalid AWS region is specified.
	ErrInvalidRegion = errors.New("awskms: invalid region")

	// ErrUnsupportedKeySpec is returned for key descriptions AWS KMS has no
	// key spec for.
	ErrUnsupportedKeySpec = errors.New("awskms: unsupported key spec")

	// ErrLabelNotSupported is returned when an OAEP label is supplied. AWS
	// KMS decrypts with an empty label only.
	ErrLabelNotSupported = errors.New("awskms: OAEP labels are not supported")
)
