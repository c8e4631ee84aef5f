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
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// RSA modulus sizes the services create.
var rsaSizes = []int{2048, 3072, 4096}

func checkRSABits(bits int) error {
	for _, n := range rsaSizes {
		if bits == n {
			return nil
		}
	}
	return fmt.Errorf("%w: RSA modulus of %d bits", ErrInvalidKeySize, bits)
}

func checkCurve(curve types.Curve) error {
	if curve.Elliptic() == nil {
		return fmt.Errorf("%w: %q", ErrInvalidCurve, curve)
	}
	return nil
}

func checkSignatureFormat(format types.SignatureFormat) error {
	switch format {
	case types.SignatureFormatDER, types.SignatureFormatRAW:
		return nil
	}
	return fmt.Errorf("%w: signature format %q", types.ErrInvalidParameter, format)
}

// rsaPublic fetches a key and checks that it is RSA.
func (p *Provider) rsaPublic(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	pub, err := p.publicKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds a %T", ErrKeyMismatch, keyID, pub)
	}
	return rsaPub, nil
}

// =============================================================================
// ECDSA
// =============================================================================

type ecdsaFamily struct {
	p *Provider
}

var _ algorithm.ECDSA = (*ecdsaFamily)(nil)

func (f *ecdsaFamily) local() (algorithm.ECDSA, error) {
	return provider.Get(f.p.local, ids.ECDSA)
}

func (f *ecdsaFamily) KeyPairGenerator(curve types.Curve) (operation.KeyGenerator[algorithm.ECDSAKeyPair], error) {
	pubDec, err := f.PublicKeyDecoder(curve)
	if err != nil {
		return nil, err
	}
	spec := KeySpec{Kind: KindECDSA, Curve: curve}
	return operation.NewKeyGenerator(f.p.exec, func(ctx context.Context) (algorithm.ECDSAKeyPair, error) {
		id, pub, err := f.p.createKey(ctx, spec)
		if err != nil {
			return nil, err
		}
		public, err := localPublic(ctx, pubDec, pub)
		if err != nil {
			return nil, err
		}
		return algorithm.NewKeyPair[algorithm.ECDSAPublicKey, algorithm.ECDSAPrivateKey](
			public, newECDSAPrivateKey(f.p, id, spec)), nil
	}), nil
}

// PublicKeyDecoder returns the software decoder. Public keys verify
// locally.
func (f *ecdsaFamily) PublicKeyDecoder(curve types.Curve) (operation.KeyDecoder[algorithm.ECDSAPublicKey], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	local, err := f.local()
	if err != nil {
		return nil, err
	}
	return local.PublicKeyDecoder(curve)
}

// PrivateKeyDecoder returns a decoder for FormatKeyRef. Decoding checks
// that the service key is on curve.
func (f *ecdsaFamily) PrivateKeyDecoder(curve types.Curve) (operation.KeyDecoder[algorithm.ECDSAPrivateKey], error) {
	if err := checkCurve(curve); err != nil {
		return nil, err
	}
	spec := KeySpec{Kind: KindECDSA, Curve: curve}
	return refDecoder(f.p, types.KeyTypeECDSAPrivate, func(ctx context.Context, keyID string) (algorithm.ECDSAPrivateKey, error) {
		pub, err := f.p.publicKey(ctx, keyID)
		if err != nil {
			return nil, err
		}
		ec, ok := pub.(*ecdsa.PublicKey)
		if !ok || ec.Curve != curve.Elliptic() {
			return nil, fmt.Errorf("%w: %s is not an ECDSA %s key", ErrKeyMismatch, keyID, curve)
		}
		return newECDSAPrivateKey(f.p, keyID, spec), nil
	}), nil
}

type ecdsaPrivateKey struct {
	serviceKey
}

func newECDSAPrivateKey(p *Provider, id string, spec KeySpec) *ecdsaPrivateKey {
	return &ecdsaPrivateKey{serviceKey: newServiceKey(p, types.KeyTypeECDSAPrivate, id, spec)}
}

func (k *ecdsaPrivateKey) Signer(digest *algorithm.ID[algorithm.Digest], format types.SignatureFormat) (operation.Signer, error) {
	h, err := hashFor(digest)
	if err != nil {
		return nil, err
	}
	if err := checkSignatureFormat(format); err != nil {
		return nil, err
	}
	spec := k.spec
	spec.Hash = h
	size := spec.Curve.ScalarSize()

	engine := &signEngine{
		hash: h,
		sign: func(ctx context.Context, digest []byte) ([]byte, error) {
			der, err := k.sign(ctx, spec, digest)
			if err != nil {
				return nil, err
			}
			if format == types.SignatureFormatDER {
				return der, nil
			}
			return encoding.ECDSASignatureToRaw(der, size)
		},
	}
	if format == types.SignatureFormatDER {
		engine.size = 2*size + 9
	} else {
		engine.size = 2 * size
	}
	return operation.NewSigner(k.p.exec, engine), nil
}

// =============================================================================
// RSASSA-PSS
// =============================================================================

type rsaPSSFamily struct {
	p *Provider
}

var _ algorithm.RSAPSS = (*rsaPSSFamily)(nil)

func (f *rsaPSSFamily) KeyPairGenerator(bits int, digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.RSAPSSKeyPair], error) {
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
	spec := KeySpec{Kind: KindRSAPSS, Bits: bits, Hash: h}
	return operation.NewKeyGenerator(f.p.exec, func(ctx context.Context) (algorithm.RSAPSSKeyPair, error) {
		id, pub, err := f.p.createKey(ctx, spec)
		if err != nil {
			return nil, err
		}
		public, err := localPublic(ctx, pubDec, pub)
		if err != nil {
			return nil, err
		}
		return algorithm.NewKeyPair[algorithm.RSAPSSPublicKey, algorithm.RSAPSSPrivateKey](
			public, newRSAPSSPrivateKey(f.p, id, spec)), nil
	}), nil
}

func (f *rsaPSSFamily) PublicKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAPSSPublicKey], error) {
	local, err := provider.Get(f.p.local, ids.RSAPSS)
	if err != nil {
		return nil, err
	}
	return local.PublicKeyDecoder(digest)
}

func (f *rsaPSSFamily) PrivateKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAPSSPrivateKey], error) {
	h, err := hashFor(digest)
	if err != nil {
		return nil, err
	}
	return refDecoder(f.p, types.KeyTypeRSAPrivate, func(ctx context.Context, keyID string) (algorithm.RSAPSSPrivateKey, error) {
		pub, err := f.p.rsaPublic(ctx, keyID)
		if err != nil {
			return nil, err
		}
		spec := KeySpec{Kind: KindRSAPSS, Bits: pub.Size() * 8, Hash: h}
		return newRSAPSSPrivateKey(f.p, keyID, spec), nil
	}), nil
}

type rsaPSSPrivateKey struct {
	serviceKey
}

func newRSAPSSPrivateKey(p *Provider, id string, spec KeySpec) *rsaPSSPrivateKey {
	return &rsaPSSPrivateKey{serviceKey: newServiceKey(p, types.KeyTypeRSAPrivate, id, spec)}
}

func (k *rsaPSSPrivateKey) Signer() operation.Signer {
	return operation.NewSigner(k.p.exec, &signEngine{
		hash: k.spec.Hash,
		size: k.spec.Bits / 8,
		sign: func(ctx context.Context, digest []byte) ([]byte, error) {
			return k.sign(ctx, k.spec, digest)
		},
	})
}
