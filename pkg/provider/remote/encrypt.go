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

package remote

import (
	"context"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// =============================================================================
// RSAES-OAEP
// =============================================================================

type rsaOAEPFamily struct {
	p *Provider
}

var _ algorithm.RSAOAEP = (*rsaOAEPFamily)(nil)

func (f *rsaOAEPFamily) KeyPairGenerator(bits int, digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.RSAOAEPKeyPair], error) {
	if err := checkRSABits(bits); err != nil {
		return nil, err
	}
	h, err := hashFor(digest)
	if err != nil {
		return nil, err
	}
	pubDec, err := f.PublicKeyDecoder(digest)
	if err != nil {
		return nil, err
	}
	spec := KeySpec{Kind: KindRSAOAEP, Bits: bits, Hash: h}
	return operation.NewKeyGenerator(f.p.exec, func(ctx context.Context) (algorithm.RSAOAEPKeyPair, error) {
		id, pub, err := f.p.createKey(ctx, spec)
		if err != nil {
			return nil, err
		}
		public, err := localPublic(ctx, pubDec, pub)
		if err != nil {
			return nil, err
		}
		return algorithm.NewKeyPair[algorithm.RSAOAEPPublicKey, algorithm.RSAOAEPPrivateKey](
			public, newRSAOAEPPrivateKey(f.p, id, spec)), nil
	}), nil
}

// PublicKeyDecoder returns the software decoder. Encryption runs locally.
func (f *rsaOAEPFamily) PublicKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAOAEPPublicKey], error) {
	local, err := provider.Get(f.p.local, ids.RSAOAEP)
	if err != nil {
		return nil, err
	}
	return local.PublicKeyDecoder(digest)
}

func (f *rsaOAEPFamily) PrivateKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAOAEPPrivateKey], error) {
	h, err := hashFor(digest)
	if err != nil {
		return nil, err
	}
	return refDecoder(f.p, types.KeyTypeRSAPrivate, func(ctx context.Context, keyID string) (algorithm.RSAOAEPPrivateKey, error) {
		pub, err := f.p.rsaPublic(ctx, keyID)
		if err != nil {
			return nil, err
		}
		spec := KeySpec{Kind: KindRSAOAEP, Bits: pub.Size() * 8, Hash: h}
		return newRSAOAEPPrivateKey(f.p, keyID, spec), nil
	}), nil
}

type rsaOAEPPrivateKey struct {
	serviceKey
	decryptor operation.AEADDecryptor
}

func newRSAOAEPPrivateKey(p *Provider, id string, spec KeySpec) *rsaOAEPPrivateKey {
	k := &rsaOAEPPrivateKey{serviceKey: newServiceKey(p, types.KeyTypeRSAPrivate, id, spec)}
	k.decryptor = operation.NewAEADCipher(p.exec, &serviceCipher{key: &k.serviceKey})
	return k
}

// Decryptor decrypts in the service with the associated data as the OAEP
// label.
func (k *rsaOAEPPrivateKey) Decryptor() operation.AEADDecryptor {
	return k.decryptor
}

// =============================================================================
// AES-GCM
// =============================================================================

type aesGCMFamily struct {
	p *Provider
}

var _ algorithm.AESGCM = (*aesGCMFamily)(nil)

func (f *aesGCMFamily) KeyGenerator(size types.AESKeySize) (operation.KeyGenerator[algorithm.AESGCMKey], error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: AES key size %d", ErrInvalidKeySize, size)
	}
	spec := KeySpec{Kind: KindAESGCM, Bits: int(size)}
	return operation.NewKeyGenerator(f.p.exec, func(ctx context.Context) (algorithm.AESGCMKey, error) {
		id, _, err := f.p.createKey(ctx, spec)
		if err != nil {
			return nil, err
		}
		return newAESGCMKey(f.p, id, spec), nil
	}), nil
}

// KeyDecoder returns a decoder for FormatKeyRef. The key is not looked up
// until first use.
func (f *aesGCMFamily) KeyDecoder() operation.KeyDecoder[algorithm.AESGCMKey] {
	return refDecoder(f.p, types.KeyTypeAES, func(_ context.Context, keyID string) (algorithm.AESGCMKey, error) {
		return newAESGCMKey(f.p, keyID, KeySpec{Kind: KindAESGCM}), nil
	})
}

type aesGCMKey struct {
	serviceKey
}

func newAESGCMKey(p *Provider, id string, spec KeySpec) *aesGCMKey {
	return &aesGCMKey{serviceKey: newServiceKey(p, types.KeyTypeAES, id, spec)}
}

// Cipher returns a cipher over the service key. Only 16 byte tags are
// available.
func (k *aesGCMKey) Cipher(tagSize int) (operation.AEADIVCipher, error) {
	if tagSize != algorithm.DefaultTagSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTagSize, tagSize)
	}
	return operation.NewAEADCipher(k.p.exec, &serviceCipher{
		key:      &k.serviceKey,
		tagSize:  tagSize,
		overhead: MaxCiphertextOverhead,
		sealable: true,
	}), nil
}
