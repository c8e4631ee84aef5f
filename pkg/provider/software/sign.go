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
	"context"
	"hash"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
)

// signEngine is the engine behind every software signature scheme. With
// newHash set the message is hashed while streaming and sign and verify
// see only the digest. Without it the whole message is buffered.
type signEngine struct {
	p       *Provider
	size    int
	newHash func() hash.Hash
	sign    func(input []byte) ([]byte, error)
	verify  func(input, signature []byte) bool
}

var (
	_ operation.SignEngine   = (*signEngine)(nil)
	_ operation.VerifyEngine = (*signEngine)(nil)
)

func (e *signEngine) SignatureSize() int {
	return e.size
}

func (e *signEngine) newInput() messageInput {
	if e.newHash != nil {
		return &hashInput{h: e.newHash()}
	}
	return &bufferInput{}
}

func (e *signEngine) NewSignCore(ctx context.Context) (operation.SignCore, error) {
	return &signCore{p: e.p, in: e.newInput(), sign: e.sign}, nil
}

func (e *signEngine) NewVerifyCore(ctx context.Context) (operation.VerifyCore, error) {
	return &verifyCore{p: e.p, in: e.newInput(), verify: e.verify}, nil
}

// messageInput accumulates a message for signing.
type messageInput interface {
	write(p []byte)
	sum() []byte
	reset()
}

type hashInput struct {
	h hash.Hash
}

func (i *hashInput) write(p []byte) { i.h.Write(p) }
func (i *hashInput) sum() []byte    { return i.h.Sum(nil) }
func (i *hashInput) reset()         { i.h.Reset() }

type bufferInput struct {
	buf []byte
}

func (i *bufferInput) write(p []byte) { i.buf = append(i.buf, p...) }
func (i *bufferInput) sum() []byte    { return i.buf }
func (i *bufferInput) reset()         { i.buf = i.buf[:0] }

type signCore struct {
	p    *Provider
	in   messageInput
	sign func(input []byte) ([]byte, error)
}

func (c *signCore) Update(_ context.Context, p []byte) error {
	c.in.write(p)
	return nil
}

func (c *signCore) Finish(context.Context) ([]byte, error) {
	return observe(c.p, metrics.OpSign, func() ([]byte, error) {
		return c.sign(c.in.sum())
	})
}

func (c *signCore) Reset() error {
	c.in.reset()
	return nil
}

func (c *signCore) Release() error {
	c.in.reset()
	return nil
}

type verifyCore struct {
	p      *Provider
	in     messageInput
	verify func(input, signature []byte) bool
}

func (c *verifyCore) Update(_ context.Context, p []byte) error {
	c.in.write(p)
	return nil
}

func (c *verifyCore) Finish(_ context.Context, signature []byte) (bool, error) {
	return observe(c.p, metrics.OpVerify, func() (bool, error) {
		return c.verify(c.in.sum(), signature), nil
	})
}

func (c *verifyCore) Reset() error {
	c.in.reset()
	return nil
}

func (c *verifyCore) Release() error {
	c.in.reset()
	return nil
}
