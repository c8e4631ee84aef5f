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

package aead

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

var (
	// ErrNonceReuse is returned when a caller supplied nonce was already
	// used under the same key. The encryption is refused. It matches
	// types.ErrInvalidParameter.
	ErrNonceReuse = fmt.Errorf("%w: nonce reuse detected", types.ErrInvalidParameter)

	// ErrKeyUsageExceeded is returned when a key has sealed more bytes than
	// its configured limit and must be rotated.
	ErrKeyUsageExceeded = errors.New("aead: key usage limit exceeded")
)
