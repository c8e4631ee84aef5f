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

package software

import (
	"bytes"
	"context"
	"encoding/hex"
	mathrand "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestDigest_KnownAnswers(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		id   *algorithm.ID[algorithm.Digest]
		want string
	}{
		{ids.MD5, "900150983cd24fb0d6963f7d28e17f72"},
		{ids.SHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{ids.SHA224, "23097d223405d8228642a477bda255b32aadbce4bda0b3f7e36c9da7"},
		{ids.SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{ids.SHA384, "cb00753f45a35e8bb5a03d699ac65007272c32ab0eded1631a8b605a43ff5bed8086072ba1e7cc2358baeca134c825a7"},
		{ids.SHA512, "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
		{ids.SHA3_256, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"},
		{ids.BLAKE2b512, "ba80a53f981c4d0d6a2797b69f12f6e94c212f14685ac4b74b12bb6fdbffa2d17d87c5392aab792dc252d5de4533cc9518d38aa8dbf1925ab92386edd4009923"},
	}

	for _, tt := range tests {
		t.Run(tt.id.Name(), func(t *testing.T) {
			hasher := resolve(t, p, tt.id).Hasher()
			want := mustHex(t, tt.want)
			assert.Equal(t, len(want), hasher.DigestSize())

			got, err := hasher.Hash([]byte("abc"))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDigest_StreamingMatchesOneShot(t *testing.T) {
	p := newTestProvider(t)
	rng := mathrand.New(mathrand.NewSource(1))
	data := make([]byte, 4096+17)
	rng.Read(data)

	for _, id := range ids.Digests() {
		digestID := id
		t.Run(digestID.Name(), func(t *testing.T) {
			hasher := resolve(t, p, digestID).Hasher()
			want, err := hasher.Hash(data)
			require.NoError(t, err)
			assert.Len(t, want, hasher.DigestSize())

			fn, err := hasher.CreateHashFunction()
			require.NoError(t, err)
			defer fn.Close()
			for _, c := range chunks(rng, data) {
				require.NoError(t, fn.Update(c))
			}
			got, err := fn.Complete()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDigest_BlockingMatchesContext(t *testing.T) {
	p := newTestProvider(t)
	hasher := resolve(t, p, ids.SHA384).Hasher()
	data := []byte("the quick brown fox")

	blocking, err := hasher.Hash(data)
	require.NoError(t, err)
	suspending, err := hasher.HashContext(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, blocking, suspending)

	fn, err := hasher.CreateHashFunctionContext(context.Background())
	require.NoError(t, err)
	require.NoError(t, fn.UpdateContext(context.Background(), data))
	streamed, err := fn.CompleteContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, blocking, streamed)
}

func TestDigest_ResetDiscardsInput(t *testing.T) {
	p := newTestProvider(t)
	hasher := resolve(t, p, ids.SHA256).Hasher()

	fn, err := hasher.CreateHashFunction()
	require.NoError(t, err)
	defer fn.Close()
	assert.True(t, fn.Resettable())

	require.NoError(t, fn.Update([]byte("discarded")))
	require.NoError(t, fn.Reset())
	require.NoError(t, fn.Update([]byte("abc")))
	got, err := fn.Complete()
	require.NoError(t, err)

	want, err := hasher.Hash([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Reset after completion starts a fresh computation.
	require.NoError(t, fn.Reset())
	empty, err := fn.Complete()
	require.NoError(t, err)
	wantEmpty, err := hasher.Hash(nil)
	require.NoError(t, err)
	assert.Equal(t, wantEmpty, empty)
}

func TestDigest_Writer(t *testing.T) {
	p := newTestProvider(t)
	hasher := resolve(t, p, ids.BLAKE2b256).Hasher()
	data := bytes.Repeat([]byte("0123456789"), 100)

	fn, err := hasher.CreateHashFunction()
	require.NoError(t, err)
	defer fn.Close()
	_, err = bytes.NewReader(data).WriteTo(fn)
	require.NoError(t, err)
	got, err := fn.Complete()
	require.NoError(t, err)

	want, err := hasher.Hash(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDigest_CompletedFunctionRejectsUpdate(t *testing.T) {
	p := newTestProvider(t)
	fn, err := resolve(t, p, ids.SHA1).Hasher().CreateHashFunction()
	require.NoError(t, err)
	defer fn.Close()

	_, err = fn.Complete()
	require.NoError(t, err)
	assert.Equal(t, operation.StateCompleted, fn.State())
	assert.Error(t, fn.Update([]byte("late")))
}

func TestLookupDigest(t *testing.T) {
	_, err := lookupDigest(nil)
	assert.ErrorIs(t, err, ErrUnsupportedDigest)

	_, err = lookupDigest(algorithm.NewID[algorithm.Digest]("SHAKE128"))
	assert.ErrorIs(t, err, ErrUnsupportedDigest)

	info, err := lookupDigest(ids.SHA3_512)
	require.NoError(t, err)
	assert.Equal(t, 64, info.size)
	assert.Equal(t, 72, info.blockSize)
}
