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
	"sync"
)

// NonceTracker records the nonces used under one key and rejects reuse.
// Reusing a GCM nonce exposes the authentication key; reusing a
// ChaCha20-Poly1305 nonce leaks keystream.
//
// Memory grows with every recorded nonce. Keys that see unbounded
// caller supplied nonces should be rotated.
//
// A NonceTracker is safe for concurrent use.
type NonceTracker struct {
	mu      sync.Mutex
	enabled bool
	nonces  map[string]struct{}
}

// NewNonceTracker returns a tracker. A disabled tracker accepts every
// nonce and records nothing.
func NewNonceTracker(enabled bool) *NonceTracker {
	return &NonceTracker{
		enabled: enabled,
		nonces:  make(map[string]struct{}),
	}
}

// CheckAndRecordNonce records nonce, or returns ErrNonceReuse if it was
// recorded before.
func (nt *NonceTracker) CheckAndRecordNonce(nonce []byte) error {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	if !nt.enabled {
		return nil
	}
	key := string(nonce)
	if _, seen := nt.nonces[key]; seen {
		return ErrNonceReuse
	}
	nt.nonces[key] = struct{}{}
	return nil
}

// Forget removes nonce so a failed encryption does not burn it.
func (nt *NonceTracker) Forget(nonce []byte) {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	delete(nt.nonces, string(nonce))
}

// Contains reports whether nonce was recorded.
func (nt *NonceTracker) Contains(nonce []byte) bool {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	_, seen := nt.nonces[string(nonce)]
	return seen
}

// Count returns the number of recorded nonces.
func (nt *NonceTracker) Count() int {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	return len(nt.nonces)
}

// IsEnabled reports whether tracking is active.
func (nt *NonceTracker) IsEnabled() bool {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	return nt.enabled
}
