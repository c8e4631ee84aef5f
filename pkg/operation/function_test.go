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

package operation

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"hash"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// =============================================================================
// Test engines
// =============================================================================

type hashEngine struct {
	resettable bool
	released   *atomic.Int32
	block      chan struct{}
	started    chan struct{}
}

func (hashEngine) DigestSize() int { return sha256.Size }

func (e hashEngine) NewHashCore(context.Context) (HashCore, error) {
	c := &hashCore{h: sha256.New(), engine: e}
	if e.resettable {
		return &resettableHashCore{c}, nil
	}
	return c, nil
}

type hashCore struct {
	h       hash.Hash
	updates int
	engine  hashEngine
}

func (c *hashCore) Update(_ context.Context, p []byte) error {
	if c.engine.started != nil {
		close(c.engine.started)
		<-c.engine.block
	}
	c.updates++
	c.h.Write(p)
	return nil
}

func (c *hashCore) Finish(_ context.Context, out []byte) error {
	copy(out, c.h.Sum(nil))
	return nil
}

func (c *hashCore) Release() error {
	if c.engine.released != nil {
		c.engine.released.Add(1)
	}
	return nil
}

type resettableHashCore struct {
	*hashCore
}

func (c *resettableHashCore) Reset() error {
	c.h.Reset()
	return nil
}

// macEngine signs and verifies HMAC-SHA256 under a fixed key.
type macEngine struct {
	key []byte
}

func (macEngine) SignatureSize() int { return sha256.Size }

func (e macEngine) NewSignCore(context.Context) (SignCore, error) {
	return &macSignCore{h: hmac.New(sha256.New, e.key)}, nil
}

func (e macEngine) NewVerifyCore(context.Context) (VerifyCore, error) {
	return &macVerifyCore{h: hmac.New(sha256.New, e.key)}, nil
}

type macSignCore struct {
	h hash.Hash
}

func (c *macSignCore) Update(_ context.Context, p []byte) error {
	c.h.Write(p)
	return nil
}

func (c *macSignCore) Finish(context.Context) ([]byte, error) {
	return c.h.Sum(nil), nil
}

func (c *macSignCore) Release() error { return nil }

type macVerifyCore struct {
	h hash.Hash
}

func (c *macVerifyCore) Update(_ context.Context, p []byte) error {
	c.h.Write(p)
	return nil
}

func (c *macVerifyCore) Finish(_ context.Context, signature []byte) (bool, error) {
	return hmac.Equal(c.h.Sum(nil), signature), nil
}

func (c *macVerifyCore) Release() error { return nil }

// upperCipher is a toy cipher whose streaming form releases all output at
// Finish, the way authenticated decryption does.
type upperCipher struct{}

func (upperCipher) Encrypt(_ context.Context, p []byte) ([]byte, error) {
	return bytes.ToUpper(p), nil
}

func (upperCipher) Decrypt(_ context.Context, c []byte) ([]byte, error) {
	return bytes.ToLower(c), nil
}

func (upperCipher) NewEncryptCore(context.Context) (CipherCore, error) {
	return &bufferingCore{}, nil
}

func (upperCipher) NewDecryptCore(context.Context) (CipherCore, error) {
	return &bufferingCore{lower: true}, nil
}

type bufferingCore struct {
	buf   []byte
	lower bool
}

func (c *bufferingCore) UpdateSize(int) int { return 0 }

func (c *bufferingCore) Update(_ context.Context, p, _ []byte) (int, error) {
	c.buf = append(c.buf, p...)
	return 0, nil
}

func (c *bufferingCore) FinishSize() int { return len(c.buf) }

func (c *bufferingCore) Finish(_ context.Context, out []byte) (int, error) {
	if c.lower {
		return copy(out, bytes.ToLower(c.buf)), nil
	}
	return copy(out, bytes.ToUpper(c.buf)), nil
}

func (c *bufferingCore) Release() error { return nil }

func sum256(s string) []byte {
	d := sha256.Sum256([]byte(s))
	return d[:]
}

// =============================================================================
// Hash function
// =============================================================================

func TestHashFunction_StreamingMatchesOneShot(t *testing.T) {
	hasher := NewHasher(Synchronous, hashEngine{})

	oneShot, err := hasher.Hash([]byte("abc"))
	require.NoError(t, err)

	fn, err := hasher.CreateHashFunction()
	require.NoError(t, err)
	defer fn.Close()

	for _, part := range []string{"a", "b", "c"} {
		require.NoError(t, fn.Update([]byte(part)))
	}
	streamed, err := fn.Complete()
	require.NoError(t, err)

	assert.Equal(t, oneShot, streamed)
	assert.Equal(t, sum256("abc"), streamed)
	assert.Equal(t, sha256.Size, hasher.DigestSize())
	assert.Equal(t, sha256.Size, fn.CompleteSize())
}

func TestHashFunction_BlockingMatchesContext(t *testing.T) {
	hasher := NewHasher(Synchronous, hashEngine{})
	ctx := context.Background()

	a, err := hasher.Hash([]byte("payload"))
	require.NoError(t, err)
	b, err := hasher.HashContext(ctx, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	fn, err := hasher.CreateHashFunctionContext(ctx)
	require.NoError(t, err)
	defer fn.Close()
	require.NoError(t, fn.UpdateContext(ctx, []byte("pay")))
	require.NoError(t, fn.UpdateContext(ctx, []byte("load")))
	c, err := fn.CompleteContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestHashFunction_Lifecycle(t *testing.T) {
	var released atomic.Int32
	hasher := NewHasher(Synchronous, hashEngine{released: &released})

	fn, err := hasher.CreateHashFunction()
	require.NoError(t, err)
	assert.Equal(t, StateCreated, fn.State())

	require.NoError(t, fn.Update([]byte("x")))
	assert.Equal(t, StateUpdating, fn.State())

	_, err = fn.Complete()
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, fn.State())

	err = fn.Update([]byte("y"))
	assert.ErrorIs(t, err, types.ErrInvalidFunctionState)
	_, err = fn.Complete()
	assert.ErrorIs(t, err, types.ErrInvalidFunctionState)

	require.NoError(t, fn.Close())
	require.NoError(t, fn.Close())
	assert.Equal(t, StateClosed, fn.State())
	assert.Equal(t, int32(1), released.Load(), "engine session released exactly once")

	err = fn.Update([]byte("z"))
	var stateErr *types.FunctionStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Contains(t, err.Error(), "function is closed")

	_, err = fn.Complete()
	assert.ErrorIs(t, err, types.ErrInvalidFunctionState)
	assert.ErrorIs(t, fn.Reset(), types.ErrInvalidFunctionState)
}

func TestHashFunction_CompleteWithoutUpdate(t *testing.T) {
	fn, err := NewHasher(Synchronous, hashEngine{}).CreateHashFunction()
	require.NoError(t, err)
	defer fn.Close()

	digest, err := fn.Complete()
	require.NoError(t, err)
	assert.Equal(t, sum256(""), digest)
}

func TestHashFunction_Reset(t *testing.T) {
	t.Run("resettable", func(t *testing.T) {
		fn, err := NewHasher(Synchronous, hashEngine{resettable: true}).CreateHashFunction()
		require.NoError(t, err)
		defer fn.Close()
		assert.True(t, fn.Resettable())

		require.NoError(t, fn.Update([]byte("discarded")))
		require.NoError(t, fn.Reset())
		assert.Equal(t, StateCreated, fn.State())

		require.NoError(t, fn.Update([]byte("abc")))
		digest, err := fn.Complete()
		require.NoError(t, err)
		assert.Equal(t, sum256("abc"), digest)

		require.NoError(t, fn.Reset())
		require.NoError(t, fn.Update([]byte("abc")))
		again, err := fn.Complete()
		require.NoError(t, err)
		assert.Equal(t, digest, again)
	})

	t.Run("not resettable", func(t *testing.T) {
		fn, err := NewHasher(Synchronous, hashEngine{}).CreateHashFunction()
		require.NoError(t, err)
		defer fn.Close()
		assert.False(t, fn.Resettable())

		require.NoError(t, fn.Update([]byte("x")))
		err = fn.Reset()
		assert.ErrorIs(t, err, types.ErrInvalidFunctionState)
		assert.Equal(t, StateUpdating, fn.State())
	})
}

func TestHashFunction_CompleteIntoBufferTooSmall(t *testing.T) {
	fn, err := NewHasher(Synchronous, hashEngine{}).CreateHashFunction()
	require.NoError(t, err)
	defer fn.Close()
	require.NoError(t, fn.Update([]byte("abc")))

	_, err = fn.CompleteInto(make([]byte, 16))
	var small *types.BufferTooSmallError
	require.ErrorAs(t, err, &small)
	assert.Equal(t, sha256.Size, small.Need)
	assert.Equal(t, 16, small.Have)
	assert.Equal(t, StateUpdating, fn.State(), "state is unchanged")

	out := make([]byte, 40)
	n, err := fn.CompleteInto(out)
	require.NoError(t, err)
	assert.Equal(t, sha256.Size, n)
	assert.Equal(t, sum256("abc"), out[:n])
}

func TestHashFunction_Writer(t *testing.T) {
	fn, err := NewHasher(Synchronous, hashEngine{}).CreateHashFunction()
	require.NoError(t, err)
	defer fn.Close()

	data := strings.Repeat("streaming ", 10000)
	_, err = io.Copy(fn, strings.NewReader(data))
	require.NoError(t, err)

	digest, err := fn.Complete()
	require.NoError(t, err)
	assert.Equal(t, sum256(data), digest)
}

func TestHashFunction_AsyncExecutor(t *testing.T) {
	exec := NewAsyncExecutor(1)
	defer exec.Close()
	hasher := NewHasher(exec, hashEngine{})
	ctx := context.Background()

	_, err := hasher.Hash([]byte("abc"))
	assert.ErrorIs(t, err, types.ErrBlockingNotSupported)
	_, err = hasher.CreateHashFunction()
	assert.ErrorIs(t, err, types.ErrBlockingNotSupported)

	fn, err := hasher.CreateHashFunctionContext(ctx)
	require.NoError(t, err)
	defer fn.Close()

	err = fn.Update([]byte("a"))
	assert.ErrorIs(t, err, types.ErrBlockingNotSupported)
	assert.Equal(t, StateCreated, fn.State())

	for _, part := range []string{"a", "b", "c"} {
		require.NoError(t, fn.UpdateContext(ctx, []byte(part)))
	}
	digest, err := fn.CompleteContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, sum256("abc"), digest)

	oneShot, err := hasher.HashContext(ctx, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, digest, oneShot)
}

func TestHashFunction_CancelledUpdateLeavesStateIntact(t *testing.T) {
	fn, err := NewHasher(Synchronous, hashEngine{}).CreateHashFunction()
	require.NoError(t, err)
	defer fn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = fn.UpdateContext(ctx, []byte("lost"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCreated, fn.State())
	_, err = fn.CompleteContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCreated, fn.State())

	require.NoError(t, fn.Update([]byte("abc")))
	digest, err := fn.Complete()
	require.NoError(t, err)
	assert.Equal(t, sum256("abc"), digest, "cancelled update was never applied")
}

func TestHashFunction_CancelDuringUpdateCompletesUpdate(t *testing.T) {
	exec := NewAsyncExecutor(1)
	defer exec.Close()

	engine := hashEngine{block: make(chan struct{}), started: make(chan struct{})}
	fn, err := NewHasher(exec, engine).CreateHashFunctionContext(context.Background())
	require.NoError(t, err)
	defer fn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- fn.UpdateContext(ctx, []byte("abc"))
	}()

	<-engine.started
	cancel()
	close(engine.block)

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("update did not return")
	}
	assert.Equal(t, StateUpdating, fn.State())

	digest, err := fn.CompleteContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sum256("abc"), digest)
}

// =============================================================================
// Sign and verify functions
// =============================================================================

func TestSignVerify(t *testing.T) {
	engine := macEngine{key: []byte("secret")}
	signer := NewSigner(Synchronous, engine)
	verifier := NewVerifier(Synchronous, engine)

	mac, err := signer.Sign([]byte("abc"))
	require.NoError(t, err)
	assert.Len(t, mac, signer.SignatureSize())

	sfn, err := signer.CreateSignFunction()
	require.NoError(t, err)
	defer sfn.Close()
	for _, part := range []string{"a", "b", "c"} {
		_, err := sfn.Write([]byte(part))
		require.NoError(t, err)
	}
	streamed, err := sfn.Complete()
	require.NoError(t, err)
	assert.Equal(t, mac, streamed)

	ok, err := verifier.Verify([]byte("abc"), mac)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifier.Verify([]byte("abd"), mac)
	require.NoError(t, err)
	assert.False(t, ok, "mismatch is false, not an error")

	vfn, err := verifier.CreateVerifyFunction()
	require.NoError(t, err)
	defer vfn.Close()
	require.NoError(t, vfn.Update([]byte("ab")))
	require.NoError(t, vfn.Update([]byte("c")))
	ok, err = vfn.Complete(mac)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = vfn.Complete(mac)
	assert.ErrorIs(t, err, types.ErrInvalidFunctionState)
}

func TestSignFunction_CompleteInto(t *testing.T) {
	signer := NewSigner(Synchronous, macEngine{key: []byte("k")})
	fn, err := signer.CreateSignFunction()
	require.NoError(t, err)
	defer fn.Close()
	require.NoError(t, fn.Update([]byte("data")))

	_, err = fn.CompleteInto(make([]byte, 8))
	assert.ErrorIs(t, err, types.ErrBufferTooSmall)
	assert.Equal(t, StateUpdating, fn.State())

	out := make([]byte, fn.CompleteSize())
	n, err := fn.CompleteInto(out)
	require.NoError(t, err)
	assert.Equal(t, sha256.Size, n)

	want, err := signer.Sign([]byte("data"))
	require.NoError(t, err)
	assert.Equal(t, want, out[:n])
}

// =============================================================================
// Cipher function
// =============================================================================

func TestCipherFunction_BufferedOutput(t *testing.T) {
	cipher := NewCipher(Synchronous, upperCipher{})

	fn, err := cipher.CreateEncryptFunction()
	require.NoError(t, err)
	defer fn.Close()

	assert.Equal(t, 0, fn.UpdateSize(5))
	out, err := fn.Update([]byte("hello "))
	require.NoError(t, err)
	assert.Empty(t, out)
	out, err = fn.Update([]byte("world"))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 11, fn.CompleteSize())

	_, err = fn.CompleteInto(make([]byte, 4))
	var small *types.BufferTooSmallError
	require.ErrorAs(t, err, &small)
	assert.Equal(t, 11, small.Need)

	final, err := fn.Complete()
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", string(final))

	oneShot, err := cipher.Encrypt([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, final, oneShot)

	plain, err := cipher.DecryptContext(context.Background(), oneShot)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(plain))

	_, err = fn.Update([]byte("more"))
	assert.ErrorIs(t, err, types.ErrInvalidFunctionState)
}

// =============================================================================
// Keys
// =============================================================================

func TestKeyDecoder_RejectsUnlistedFormats(t *testing.T) {
	called := false
	decoder := NewKeyDecoder(Synchronous, types.KeyTypeAES, []types.KeyFormat{types.FormatRAW},
		func(ctx context.Context, format types.KeyFormat, data []byte) ([]byte, error) {
			called = true
			return data, nil
		})

	assert.Equal(t, []types.KeyFormat{types.FormatRAW}, decoder.Formats())

	_, err := decoder.DecodeFrom(types.FormatPEM, []byte("x"))
	var formatErr *types.UnsupportedKeyFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, types.FormatPEM, formatErr.Format)
	assert.Equal(t, types.KeyTypeAES, formatErr.KeyType)
	assert.False(t, called)

	got, err := decoder.DecodeFromContext(context.Background(), types.FormatRAW, []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("key"), got)
}

func TestKeyEncoding(t *testing.T) {
	enc := NewKeyEncoding(Synchronous, types.KeyTypeHMAC, []types.KeyFormat{types.FormatRAW, types.FormatJWK},
		func(ctx context.Context, format types.KeyFormat) ([]byte, error) {
			return []byte(format.String()), nil
		})

	got, err := enc.EncodeTo(types.FormatJWK)
	require.NoError(t, err)
	assert.Equal(t, "JWK", string(got))

	_, err = enc.EncodeToContext(context.Background(), types.FormatDER)
	assert.ErrorIs(t, err, types.ErrUnsupportedKeyFormat)
	assert.Equal(t, types.KeyTypeHMAC, enc.KeyType())

	formats := enc.Formats()
	formats[0] = types.FormatPEM
	assert.Equal(t, types.FormatRAW, enc.Formats()[0], "Formats returns a copy")
}

func TestKeyGenerator_AsyncOnly(t *testing.T) {
	exec := NewAsyncExecutor(1)
	defer exec.Close()

	gen := NewKeyGenerator(exec, func(ctx context.Context) (string, error) {
		return "key", nil
	})
	_, err := gen.GenerateKey()
	assert.ErrorIs(t, err, types.ErrBlockingNotSupported)

	key, err := gen.GenerateKeyContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key", key)
}

func TestDerivations(t *testing.T) {
	derive := NewSecretDerivation(Synchronous, func(ctx context.Context, input []byte) ([]byte, error) {
		return sum256(string(input)), nil
	})
	a, err := derive.DeriveSecret([]byte("ikm"))
	require.NoError(t, err)
	b, err := derive.DeriveSecretContext(context.Background(), []byte("ikm"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	shared := NewSharedSecretDerivation(Synchronous, func(ctx context.Context, other string) ([]byte, error) {
		return []byte("shared-" + other), nil
	})
	s, err := shared.DeriveSharedSecret("peer")
	require.NoError(t, err)
	assert.Equal(t, "shared-peer", string(s))
}
