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
	"crypto"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
)

// digestInfo describes one supported digest.
type digestInfo struct {
	id   *algorithm.ID[algorithm.Digest]
	hash crypto.Hash
	size int
	// blockSize is the HMAC block size in bytes.
	blockSize int
	new       func() hash.Hash
}

func newBLAKE2b256() hash.Hash {
	h, _ := blake2b.New256(nil)
	return h
}

func newBLAKE2b512() hash.Hash {
	h, _ := blake2b.New512(nil)
	return h
}

var digests = map[*algorithm.ID[algorithm.Digest]]digestInfo{
	ids.MD5:        {ids.MD5, crypto.MD5, md5.Size, md5.BlockSize, md5.New},
	ids.SHA1:       {ids.SHA1, crypto.SHA1, sha1.Size, sha1.BlockSize, sha1.New},
	ids.SHA224:     {ids.SHA224, crypto.SHA224, sha256.Size224, sha256.BlockSize, sha256.New224},
	ids.SHA256:     {ids.SHA256, crypto.SHA256, sha256.Size, sha256.BlockSize, sha256.New},
	ids.SHA384:     {ids.SHA384, crypto.SHA384, sha512.Size384, sha512.BlockSize, sha512.New384},
	ids.SHA512:     {ids.SHA512, crypto.SHA512, sha512.Size, sha512.BlockSize, sha512.New},
	ids.SHA3_224:   {ids.SHA3_224, crypto.SHA3_224, 28, 144, func() hash.Hash { return sha3.New224() }},
	ids.SHA3_256:   {ids.SHA3_256, crypto.SHA3_256, 32, 136, func() hash.Hash { return sha3.New256() }},
	ids.SHA3_384:   {ids.SHA3_384, crypto.SHA3_384, 48, 104, func() hash.Hash { return sha3.New384() }},
	ids.SHA3_512:   {ids.SHA3_512, crypto.SHA3_512, 64, 72, func() hash.Hash { return sha3.New512() }},
	ids.BLAKE2b256: {ids.BLAKE2b256, crypto.BLAKE2b_256, blake2b.Size256, blake2b.BlockSize, newBLAKE2b256},
	ids.BLAKE2b512: {ids.BLAKE2b512, crypto.BLAKE2b_512, blake2b.Size, blake2b.BlockSize, newBLAKE2b512},
}

// lookupDigest returns the description of d, or ErrUnsupportedDigest.
func lookupDigest(d *algorithm.ID[algorithm.Digest]) (digestInfo, error) {
	if d == nil {
		return digestInfo{}, fmt.Errorf("%w: nil digest", ErrUnsupportedDigest)
	}
	info, ok := digests[d]
	if !ok {
		return digestInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedDigest, d.Name())
	}
	return info, nil
}

// digest implements algorithm.Digest.
type digest struct {
	hasher operation.Hasher
}

var _ algorithm.Digest = (*digest)(nil)

func newDigest(p *Provider, info digestInfo) *digest {
	return &digest{hasher: operation.NewHasher(operation.Synchronous, &digestEngine{p: p, info: info})}
}

func (d *digest) Hasher() operation.Hasher {
	return d.hasher
}

type digestEngine struct {
	p    *Provider
	info digestInfo
}

var (
	_ operation.HashEngine        = (*digestEngine)(nil)
	_ operation.OneShotHashEngine = (*digestEngine)(nil)
)

func (e *digestEngine) DigestSize() int {
	return e.info.size
}

func (e *digestEngine) NewHashCore(ctx context.Context) (operation.HashCore, error) {
	return &hashCore{h: e.info.new()}, nil
}

func (e *digestEngine) Digest(ctx context.Context, data []byte) ([]byte, error) {
	return observe(e.p, metrics.OpHash, func() ([]byte, error) {
		h := e.info.new()
		h.Write(data)
		return h.Sum(nil), nil
	})
}

// hashCore wraps a hash.Hash. It supports Reset.
type hashCore struct {
	h hash.Hash
}

func (c *hashCore) Update(_ context.Context, p []byte) error {
	c.h.Write(p)
	return nil
}

func (c *hashCore) Finish(_ context.Context, out []byte) error {
	copy(out, c.h.Sum(nil))
	return nil
}

func (c *hashCore) Reset() error {
	c.h.Reset()
	return nil
}

func (c *hashCore) Release() error {
	return nil
}
