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
	"fmt"
	"sync/atomic"
)

// DefaultBytesLimit is the per-key sealing limit used when none is given.
// NIST SP 800-38D bounds random 96-bit nonces at 2^32 invocations; 64 GiB
// keeps typical message sizes well below that.
const DefaultBytesLimit int64 = 64 << 30

// BytesTracker counts the plaintext bytes sealed under one key and refuses
// to exceed a limit. It is safe for concurrent use.
type BytesTracker struct {
	limit  int64
	sealed atomic.Int64
}

// NewBytesTracker returns a tracker with limit bytes. A non-positive limit
// selects DefaultBytesLimit.
func NewBytesTracker(limit int64) *BytesTracker {
	if limit <= 0 {
		limit = DefaultBytesLimit
	}
	return &BytesTracker{limit: limit}
}

// Reserve accounts for n bytes, or returns ErrKeyUsageExceeded and leaves
// the count unchanged.
func (bt *BytesTracker) Reserve(n int) error {
	total := bt.sealed.Add(int64(n))
	if total > bt.limit {
		bt.sealed.Add(-int64(n))
		return fmt.Errorf("%w: %d of %d bytes used", ErrKeyUsageExceeded, total-int64(n), bt.limit)
	}
	return nil
}

// Used returns the bytes accounted so far.
func (bt *BytesTracker) Used() int64 {
	return bt.sealed.Load()
}

// Remaining returns the bytes left before the limit.
func (bt *BytesTracker) Remaining() int64 {
	return bt.limit - bt.sealed.Load()
}

// Limit returns the configured limit.
func (bt *BytesTracker) Limit() int64 {
	return bt.limit
}
