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

import (
	"context"
	"fmt"

	"github.com/google/go-tpm/tpm2"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
)

// digest implements algorithm.Digest over TPM2_Hash and hash sequences.
type digest struct {
	hasher operation.Hasher
}

var _ algorithm.Digest = (*digest)(nil)

func newDigest(p *Provider, alg tpm2.TPMIAlgHash, size int) *digest {
	return &digest{hasher: operation.NewHasher(operation.Synchronous, &digestEngine{p: p, alg: alg, size: size})}
}

func (d *digest) Hasher() operation.Hasher {
	return d.hasher
}

type digestEngine struct {
	p    *Provider
	alg  tpm2.TPMIAlgHash
	size int
}

var (
	_ operation.HashEngine        = (*digestEngine)(nil)
	_ operation.OneShotHashEngine = (*digestEngine)(nil)
)

func (e *digestEngine) DigestSize() int {
	return e.size
}

func (e *digestEngine) NewHashCore(ctx context.Context) (operation.HashCore, error) {
	if err := e.p.check(); err != nil {
		return nil, err
	}
	c := &sequenceCore{e: e}
	if err := c.start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Digest uses a single TPM2_Hash when data fits one TPM buffer.
func (e *digestEngine) Digest(ctx context.Context, data []byte) ([]byte, error) {
	return observe(e.p, metrics.OpHash, func() ([]byte, error) {
		if len(data) <= e.p.maxBuffer {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rsp, err := tpm2.Hash{
				Data:      tpm2.TPM2BMaxBuffer{Buffer: data},
				HashAlg:   e.alg,
				Hierarchy: tpm2.TPMRHNull,
			}.Execute(e.p.tpm)
			if err != nil {
				return nil, fmt.Errorf("tpm2: TPM2_Hash: %w", err)
			}
			return rsp.OutHash.Buffer, nil
		}

		c := &sequenceCore{e: e}
		if err := c.start(ctx); err != nil {
			return nil, err
		}
		defer c.Release()
		if err := c.Update(ctx, data); err != nil {
			return nil, err
		}
		out := make([]byte, e.size)
		if err := c.Finish(ctx, out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// sequenceCore holds a TPM hash sequence object. Up to one TPM buffer of
// input is kept back so SequenceComplete always carries the tail.
type sequenceCore struct {
	e      *digestEngine
	handle tpm2.AuthHandle
	live   bool
	buf    []byte
}

func (c *sequenceCore) start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rsp, err := tpm2.HashSequenceStart{
		Auth:    tpm2.TPM2BAuth{Buffer: []byte{}},
		HashAlg: c.e.alg,
	}.Execute(c.e.p.tpm)
	if err != nil {
		return fmt.Errorf("tpm2: TPM2_HashSequenceStart: %w", err)
	}
	c.handle = tpm2.AuthHandle{
		Handle: rsp.SequenceHandle,
		Name:   tpm2.TPM2BName{Buffer: []byte{}},
		Auth:   tpm2.PasswordAuth(nil),
	}
	c.live = true
	c.buf = c.buf[:0]
	return nil
}

func (c *sequenceCore) Update(ctx context.Context, p []byte) error {
	if !c.live {
		return ErrSequenceFlushed
	}
	c.buf = append(c.buf, p...)
	limit := c.e.p.maxBuffer
	for len(c.buf) > limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := tpm2.SequenceUpdate{
			SequenceHandle: c.handle,
			Buffer:         tpm2.TPM2BMaxBuffer{Buffer: c.buf[:limit]},
		}.Execute(c.e.p.tpm)
		if err != nil {
			return fmt.Errorf("tpm2: TPM2_SequenceUpdate: %w", err)
		}
		c.buf = c.buf[:copy(c.buf, c.buf[limit:])]
	}
	return nil
}

// Finish completes the sequence. The TPM flushes the sequence object on
// success.
func (c *sequenceCore) Finish(ctx context.Context, out []byte) error {
	if !c.live {
		return ErrSequenceFlushed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rsp, err := tpm2.SequenceComplete{
		SequenceHandle: c.handle,
		Buffer:         tpm2.TPM2BMaxBuffer{Buffer: c.buf},
		Hierarchy:      tpm2.TPMRHNull,
	}.Execute(c.e.p.tpm)
	if err != nil {
		return fmt.Errorf("tpm2: TPM2_SequenceComplete: %w", err)
	}
	c.live = false
	c.buf = c.buf[:0]
	if len(rsp.Result.Buffer) != len(out) {
		return fmt.Errorf("tpm2: digest size %d, want %d", len(rsp.Result.Buffer), len(out))
	}
	copy(out, rsp.Result.Buffer)
	return nil
}

// Reset flushes any live sequence and starts a new one.
func (c *sequenceCore) Reset() error {
	if err := c.Release(); err != nil {
		return err
	}
	return c.start(context.Background())
}

// Release flushes the sequence object if it is still loaded.
func (c *sequenceCore) Release() error {
	if !c.live {
		return nil
	}
	c.live = false
	c.buf = nil
	_, err := tpm2.FlushContext{FlushHandle: c.handle.Handle}.Execute(c.e.p.tpm)
	if err != nil {
		return fmt.Errorf("tpm2: TPM2_FlushContext: %w", err)
	}
	return nil
}
