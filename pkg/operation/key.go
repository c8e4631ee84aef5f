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

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// KeyGenerator creates new key material from the engine's randomness
// source.
type KeyGenerator[K any] interface {
	GenerateKey() (K, error)
	GenerateKeyContext(ctx context.Context) (K, error)
}

// KeyDecoder imports key material from an encoding.
type KeyDecoder[K any] interface {
	Formats() []types.KeyFormat
	DecodeFrom(format types.KeyFormat, data []byte) (K, error)
	DecodeFromContext(ctx context.Context, format types.KeyFormat, data []byte) (K, error)
}

// EncodableKey exports key material to an encoding. Unsupported formats
// fail with a *types.UnsupportedKeyFormatError.
type EncodableKey interface {
	Formats() []types.KeyFormat
	EncodeTo(format types.KeyFormat) ([]byte, error)
	EncodeToContext(ctx context.Context, format types.KeyFormat) ([]byte, error)
}

type keyGenerator[K any] struct {
	exec     Executor
	generate func(ctx context.Context) (K, error)
}

// NewKeyGenerator derives a KeyGenerator from a body.
func NewKeyGenerator[K any](exec Executor, generate func(ctx context.Context) (K, error)) KeyGenerator[K] {
	return &keyGenerator[K]{exec: exec, generate: generate}
}

func (g *keyGenerator[K]) GenerateKey() (K, error) {
	return Call(g.exec, g.generate)
}

func (g *keyGenerator[K]) GenerateKeyContext(ctx context.Context) (K, error) {
	return CallAtomic(ctx, g.exec, g.generate)
}

type keyDecoder[K any] struct {
	exec    Executor
	keyType string
	formats []types.KeyFormat
	decode  func(ctx context.Context, format types.KeyFormat, data []byte) (K, error)
}

// NewKeyDecoder derives a KeyDecoder from a body. Formats outside formats
// are rejected before decode runs.
func NewKeyDecoder[K any](exec Executor, keyType string, formats []types.KeyFormat,
	decode func(ctx context.Context, format types.KeyFormat, data []byte) (K, error)) KeyDecoder[K] {

	return &keyDecoder[K]{exec: exec, keyType: keyType, formats: formats, decode: decode}
}

func (d *keyDecoder[K]) Formats() []types.KeyFormat {
	return append([]types.KeyFormat(nil), d.formats...)
}

func (d *keyDecoder[K]) body(format types.KeyFormat, data []byte) func(ctx context.Context) (K, error) {
	return func(ctx context.Context) (K, error) {
		if !types.ContainsFormat(d.formats, format) {
			var zero K
			return zero, types.NewUnsupportedKeyFormatError(format, d.keyType)
		}
		return d.decode(ctx, format, data)
	}
}

func (d *keyDecoder[K]) DecodeFrom(format types.KeyFormat, data []byte) (K, error) {
	return Call(d.exec, d.body(format, data))
}

func (d *keyDecoder[K]) DecodeFromContext(ctx context.Context, format types.KeyFormat, data []byte) (K, error) {
	return CallAtomic(ctx, d.exec, d.body(format, data))
}

// KeyEncoding implements EncodableKey for embedding in key types.
type KeyEncoding struct {
	exec    Executor
	keyType string
	formats []types.KeyFormat
	encode  func(ctx context.Context, format types.KeyFormat) ([]byte, error)
}

var _ EncodableKey = KeyEncoding{}

// NewKeyEncoding returns a KeyEncoding that accepts only formats.
func NewKeyEncoding(exec Executor, keyType string, formats []types.KeyFormat,
	encode func(ctx context.Context, format types.KeyFormat) ([]byte, error)) KeyEncoding {

	return KeyEncoding{exec: exec, keyType: keyType, formats: formats, encode: encode}
}

// KeyType returns the key type name used in errors.
func (e KeyEncoding) KeyType() string {
	return e.keyType
}

// Formats returns the supported formats.
func (e KeyEncoding) Formats() []types.KeyFormat {
	return append([]types.KeyFormat(nil), e.formats...)
}

func (e KeyEncoding) body(format types.KeyFormat) func(ctx context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		if !types.ContainsFormat(e.formats, format) {
			return nil, types.NewUnsupportedKeyFormatError(format, e.keyType)
		}
		return e.encode(ctx, format)
	}
}

// EncodeTo encodes the key.
func (e KeyEncoding) EncodeTo(format types.KeyFormat) ([]byte, error) {
	return Call(e.exec, e.body(format))
}

// EncodeToContext encodes the key.
func (e KeyEncoding) EncodeToContext(ctx context.Context, format types.KeyFormat) ([]byte, error) {
	return CallContext(ctx, e.exec, e.body(format))
}
