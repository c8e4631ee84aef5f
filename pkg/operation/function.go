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
	"context"
	"io"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// =============================================================================
// Hash Function
// =============================================================================

// HashFunction is a streaming digest session. Callers must Close it on every
// path; it may hold engine handles that are not garbage collected.
type HashFunction struct {
	function
	core HashCore
	size int
}

var _ io.Writer = (*HashFunction)(nil)

func newHashFunction(exec Executor, core HashCore, size int) *HashFunction {
	return &HashFunction{
		function: function{exec: exec, core: core},
		core:     core,
		size:     size,
	}
}

// CompleteSize returns the number of bytes Complete produces.
func (f *HashFunction) CompleteSize() int {
	return f.size
}

// Update absorbs p.
func (f *HashFunction) Update(p []byte) error {
	if err := f.beginUpdate("update"); err != nil {
		return err
	}
	_, err := Call(f.exec, none(func(ctx context.Context) error {
		return f.core.Update(ctx, p)
	}))
	return f.updated(err)
}

// UpdateContext absorbs p. If ctx is done before the engine accepts the
// data the function is left unchanged.
func (f *HashFunction) UpdateContext(ctx context.Context, p []byte) error {
	if err := f.beginUpdate("update"); err != nil {
		return err
	}
	_, err := CallAtomic(ctx, f.exec, none(func(ctx context.Context) error {
		return f.core.Update(ctx, p)
	}))
	return f.updated(err)
}

// Write implements io.Writer.
func (f *HashFunction) Write(p []byte) (int, error) {
	if err := f.Update(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Complete returns the digest.
func (f *HashFunction) Complete() ([]byte, error) {
	out := make([]byte, f.size)
	if _, err := f.CompleteInto(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteContext returns the digest.
func (f *HashFunction) CompleteContext(ctx context.Context) ([]byte, error) {
	out := make([]byte, f.size)
	if _, err := f.CompleteIntoContext(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteInto writes the digest to out, which must hold CompleteSize bytes.
func (f *HashFunction) CompleteInto(out []byte) (int, error) {
	if err := f.beginComplete("complete"); err != nil {
		return 0, err
	}
	if err := types.CheckBuffer(out, f.size); err != nil {
		return 0, err
	}
	_, err := Call(f.exec, none(func(ctx context.Context) error {
		return f.core.Finish(ctx, out[:f.size])
	}))
	return f.completed(f.size, err)
}

// CompleteIntoContext writes the digest to out, which must hold
// CompleteSize bytes.
func (f *HashFunction) CompleteIntoContext(ctx context.Context, out []byte) (int, error) {
	if err := f.beginComplete("complete"); err != nil {
		return 0, err
	}
	if err := types.CheckBuffer(out, f.size); err != nil {
		return 0, err
	}
	_, err := CallAtomic(ctx, f.exec, none(func(ctx context.Context) error {
		return f.core.Finish(ctx, out[:f.size])
	}))
	return f.completed(f.size, err)
}

// =============================================================================
// Sign Function
// =============================================================================

// SignFunction is a streaming signing (or MAC) session.
type SignFunction struct {
	function
	core SignCore
	size int
}

var _ io.Writer = (*SignFunction)(nil)

func newSignFunction(exec Executor, core SignCore, size int) *SignFunction {
	return &SignFunction{
		function: function{exec: exec, core: core},
		core:     core,
		size:     size,
	}
}

// CompleteSize returns the maximum number of bytes Complete produces.
func (f *SignFunction) CompleteSize() int {
	return f.size
}

// Update absorbs p.
func (f *SignFunction) Update(p []byte) error {
	if err := f.beginUpdate("update"); err != nil {
		return err
	}
	_, err := Call(f.exec, none(func(ctx context.Context) error {
		return f.core.Update(ctx, p)
	}))
	return f.updated(err)
}

// UpdateContext absorbs p.
func (f *SignFunction) UpdateContext(ctx context.Context, p []byte) error {
	if err := f.beginUpdate("update"); err != nil {
		return err
	}
	_, err := CallAtomic(ctx, f.exec, none(func(ctx context.Context) error {
		return f.core.Update(ctx, p)
	}))
	return f.updated(err)
}

// Write implements io.Writer.
func (f *SignFunction) Write(p []byte) (int, error) {
	if err := f.Update(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Complete returns the signature.
func (f *SignFunction) Complete() ([]byte, error) {
	if err := f.beginComplete("complete"); err != nil {
		return nil, err
	}
	sig, err := Call(f.exec, f.core.Finish)
	if _, err := f.completed(len(sig), err); err != nil {
		return nil, err
	}
	return sig, nil
}

// CompleteContext returns the signature.
func (f *SignFunction) CompleteContext(ctx context.Context) ([]byte, error) {
	if err := f.beginComplete("complete"); err != nil {
		return nil, err
	}
	sig, err := CallAtomic(ctx, f.exec, f.core.Finish)
	if _, err := f.completed(len(sig), err); err != nil {
		return nil, err
	}
	return sig, nil
}

// CompleteInto writes the signature to out, which must hold CompleteSize
// bytes, and returns its length.
func (f *SignFunction) CompleteInto(out []byte) (int, error) {
	if err := types.CheckBuffer(out, f.size); err != nil {
		return 0, err
	}
	sig, err := f.Complete()
	if err != nil {
		return 0, err
	}
	return copy(out, sig), nil
}

// =============================================================================
// Verify Function
// =============================================================================

// VerifyFunction is a streaming verification session.
type VerifyFunction struct {
	function
	core VerifyCore
}

var _ io.Writer = (*VerifyFunction)(nil)

func newVerifyFunction(exec Executor, core VerifyCore) *VerifyFunction {
	return &VerifyFunction{
		function: function{exec: exec, core: core},
		core:     core,
	}
}

// Update absorbs p.
func (f *VerifyFunction) Update(p []byte) error {
	if err := f.beginUpdate("update"); err != nil {
		return err
	}
	_, err := Call(f.exec, none(func(ctx context.Context) error {
		return f.core.Update(ctx, p)
	}))
	return f.updated(err)
}

// UpdateContext absorbs p.
func (f *VerifyFunction) UpdateContext(ctx context.Context, p []byte) error {
	if err := f.beginUpdate("update"); err != nil {
		return err
	}
	_, err := CallAtomic(ctx, f.exec, none(func(ctx context.Context) error {
		return f.core.Update(ctx, p)
	}))
	return f.updated(err)
}

// Write implements io.Writer.
func (f *VerifyFunction) Write(p []byte) (int, error) {
	if err := f.Update(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Complete reports whether signature matches the absorbed data.
func (f *VerifyFunction) Complete(signature []byte) (bool, error) {
	if err := f.beginComplete("complete"); err != nil {
		return false, err
	}
	ok, err := Call(f.exec, func(ctx context.Context) (bool, error) {
		return f.core.Finish(ctx, signature)
	})
	if _, err := f.completed(0, err); err != nil {
		return false, err
	}
	return ok, nil
}

// CompleteContext reports whether signature matches the absorbed data.
func (f *VerifyFunction) CompleteContext(ctx context.Context, signature []byte) (bool, error) {
	if err := f.beginComplete("complete"); err != nil {
		return false, err
	}
	ok, err := CallAtomic(ctx, f.exec, func(ctx context.Context) (bool, error) {
		return f.core.Finish(ctx, signature)
	})
	if _, err := f.completed(0, err); err != nil {
		return false, err
	}
	return ok, nil
}

// =============================================================================
// Cipher Function
// =============================================================================

// CipherFunction is a streaming encryption or decryption session. Update
// may return output; Complete returns the remainder. Authenticated
// decryption returns no plaintext before the tag has been checked.
type CipherFunction struct {
	function
	core CipherCore
}

func newCipherFunction(exec Executor, core CipherCore) *CipherFunction {
	return &CipherFunction{
		function: function{exec: exec, core: core},
		core:     core,
	}
}

// UpdateSize returns the exact number of bytes an Update of n bytes
// produces in the current state.
func (f *CipherFunction) UpdateSize(n int) int {
	return f.core.UpdateSize(n)
}

// CompleteSize returns the exact number of bytes Complete produces in the
// current state.
func (f *CipherFunction) CompleteSize() int {
	return f.core.FinishSize()
}

// Update transforms p and returns any output produced.
func (f *CipherFunction) Update(p []byte) ([]byte, error) {
	out := make([]byte, f.core.UpdateSize(len(p)))
	n, err := f.UpdateInto(p, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// UpdateContext transforms p and returns any output produced.
func (f *CipherFunction) UpdateContext(ctx context.Context, p []byte) ([]byte, error) {
	out := make([]byte, f.core.UpdateSize(len(p)))
	n, err := f.UpdateIntoContext(ctx, p, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// UpdateInto transforms p into out, which must hold UpdateSize(len(p))
// bytes.
func (f *CipherFunction) UpdateInto(p, out []byte) (int, error) {
	if err := f.beginUpdate("update"); err != nil {
		return 0, err
	}
	if err := types.CheckBuffer(out, f.core.UpdateSize(len(p))); err != nil {
		return 0, err
	}
	n, err := Call(f.exec, func(ctx context.Context) (int, error) {
		return f.core.Update(ctx, p, out)
	})
	if err != nil {
		return 0, err
	}
	f.state = StateUpdating
	return n, nil
}

// UpdateIntoContext transforms p into out, which must hold
// UpdateSize(len(p)) bytes.
func (f *CipherFunction) UpdateIntoContext(ctx context.Context, p, out []byte) (int, error) {
	if err := f.beginUpdate("update"); err != nil {
		return 0, err
	}
	if err := types.CheckBuffer(out, f.core.UpdateSize(len(p))); err != nil {
		return 0, err
	}
	n, err := CallAtomic(ctx, f.exec, func(ctx context.Context) (int, error) {
		return f.core.Update(ctx, p, out)
	})
	if err != nil {
		return 0, err
	}
	f.state = StateUpdating
	return n, nil
}

// Complete returns the final output.
func (f *CipherFunction) Complete() ([]byte, error) {
	out := make([]byte, f.core.FinishSize())
	n, err := f.CompleteInto(out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// CompleteContext returns the final output.
func (f *CipherFunction) CompleteContext(ctx context.Context) ([]byte, error) {
	out := make([]byte, f.core.FinishSize())
	n, err := f.CompleteIntoContext(ctx, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// CompleteInto writes the final output to out, which must hold
// CompleteSize bytes.
func (f *CipherFunction) CompleteInto(out []byte) (int, error) {
	if err := f.beginComplete("complete"); err != nil {
		return 0, err
	}
	if err := types.CheckBuffer(out, f.core.FinishSize()); err != nil {
		return 0, err
	}
	n, err := Call(f.exec, func(ctx context.Context) (int, error) {
		return f.core.Finish(ctx, out)
	})
	return f.completed(n, err)
}

// CompleteIntoContext writes the final output to out, which must hold
// CompleteSize bytes.
func (f *CipherFunction) CompleteIntoContext(ctx context.Context, out []byte) (int, error) {
	if err := f.beginComplete("complete"); err != nil {
		return 0, err
	}
	if err := types.CheckBuffer(out, f.core.FinishSize()); err != nil {
		return 0, err
	}
	n, err := CallAtomic(ctx, f.exec, func(ctx context.Context) (int, error) {
		return f.core.Finish(ctx, out)
	})
	return f.completed(n, err)
}

// =============================================================================
// Shared transitions
// =============================================================================

func (f *function) updated(err error) error {
	if err != nil {
		return err
	}
	f.state = StateUpdating
	return nil
}

func (f *function) completed(n int, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	f.state = StateCompleted
	return n, nil
}
