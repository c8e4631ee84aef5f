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

package remote

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

var (
	// ErrServiceClosed is returned for requests still queued when the
	// provider is closed. Later requests fail with
	// operation.ErrExecutorClosed.
	ErrServiceClosed = errors.New("remote: service closed")

	// ErrInvalidConfig is returned when the provider configuration is
	// incomplete.
	ErrInvalidConfig = errors.New("remote: invalid configuration")

	// ErrKeyNotFound is returned by services when a key identifier does
	// not name a key.
	ErrKeyNotFound = errors.New("remote: key not found")

	// ErrKeyMismatch is returned when a referenced key is of a different
	// kind, curve or size than requested.
	ErrKeyMismatch = fmt.Errorf("%w: service key has the wrong type", types.ErrInvalidParameter)

	// ErrUnsupportedDigest is returned for digests the services cannot
	// sign with.
	ErrUnsupportedDigest = fmt.Errorf("%w: digest not supported by key-management services", types.ErrInvalidParameter)

	// ErrInvalidKeySize is returned for RSA or AES sizes outside what the
	// engine creates.
	ErrInvalidKeySize = fmt.Errorf("%w: invalid key size", types.ErrInvalidParameter)

	// ErrInvalidCurve is returned for unknown curves.
	ErrInvalidCurve = fmt.Errorf("%w: invalid curve", types.ErrInvalidParameter)

	// ErrInvalidTagSize is returned when a tag size other than 16 bytes is
	// requested from a service-held AES-GCM key.
	ErrInvalidTagSize = fmt.Errorf("%w: service AES-GCM keys use 16 byte tags", types.ErrInvalidParameter)
)
