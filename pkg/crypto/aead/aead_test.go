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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

func TestSelectOptimal(t *testing.T) {
	assert.Same(t, ids.AESGCM, SelectOptimal(true))

	got := SelectOptimal(false)
	if HasAESNI() {
		assert.Same(t, ids.AESGCM, got)
	} else {
		assert.Same(t, ids.ChaCha20Poly1305, got)
	}
}

func TestNonceTracker(t *testing.T) {
	nt := NewNonceTracker(true)
	nonce := []byte("123456789012")

	require.NoError(t, nt.CheckAndRecordNonce(nonce))
	assert.True(t, nt.Contains(nonce))
	assert.Equal(t, 1, nt.Count())

	err := nt.CheckAndRecordNonce(nonce)
	assert.ErrorIs(t, err, ErrNonceReuse)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)

	nt.Forget(nonce)
	assert.NoError(t, nt.CheckAndRecordNonce(nonce))
}

func TestNonceTracker_Disabled(t *testing.T) {
	nt := NewNonceTracker(false)
	nonce := make([]byte, 12)

	assert.False(t, nt.IsEnabled())
	assert.NoError(t, nt.CheckAndRecordNonce(nonce))
	assert.NoError(t, nt.CheckAndRecordNonce(nonce))
	assert.Equal(t, 0, nt.Count())
}

func TestNonceTracker_Concurrent(t *testing.T) {
	nt := NewNonceTracker(true)
	nonce := []byte("shared-nonce")

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if nt.CheckAndRecordNonce(nonce) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}

func TestBytesTracker(t *testing.T) {
	bt := NewBytesTracker(100)

	require.NoError(t, bt.Reserve(60))
	require.NoError(t, bt.Reserve(40))
	assert.Equal(t, int64(100), bt.Used())
	assert.Equal(t, int64(0), bt.Remaining())

	err := bt.Reserve(1)
	assert.ErrorIs(t, err, ErrKeyUsageExceeded)
	assert.Equal(t, int64(100), bt.Used())
}

func TestBytesTracker_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultBytesLimit, NewBytesTracker(0).Limit())
}
