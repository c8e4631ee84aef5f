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

//go:build tpm2

package tpm2

import "errors"

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("tpm2: invalid configuration")

	// ErrOpeningDevice is returned when the TPM device cannot be opened.
	ErrOpeningDevice = errors.New("tpm2: error opening device")

	// ErrProviderClosed is returned for operations after Close.
	ErrProviderClosed = errors.New("tpm2: provider closed")

	// ErrSequenceFlushed is returned when a hash sequence was lost, for
	// example after a TPM reset.
	ErrSequenceFlushed = errors.New("tpm2: hash sequence no longer loaded")
)
