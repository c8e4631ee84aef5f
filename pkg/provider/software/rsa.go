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
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// =============================================================================
// Shared RSA key handling
// =============================================================================

func checkRSABits(bits int) error {
	if bits < MinRSABits {
		return fmt.Errorf("%w: RSA modulus of %d bits, minimum is %d", ErrInvalidKeySize, bits, MinRSABits)
	}
	return nil
}

func (p *Provider) generateRSA(bits int) (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(p.rng, bits)
	if err != nil {
		return nil, fmt.Errorf("software: generate RSA key: %w", err)
	}
	return priv, nil
}

func encodeRSAPublic(pub *rsa.PublicKey, format types.KeyFormat) ([]byte, error) {
	switch format {
	case types.FormatDERPKCS1:
		return encoding.EncodePKCS1PublicKey(pub)
	case types.FormatPEMPKCS1:
		der, err := encoding.EncodePKCS1PublicKey(pub)
		if err != nil {
			return nil, err
		}
		return encoding.EncodePEM(encoding.PEMTypeRSAPublicKey, der), nil
	}
	return encodePublic(pub, format)
}

func encodeRSAPrivate(priv *rsa.PrivateKey, format types.KeyFormat) ([]byte, error) {
	switch format {
	case types.FormatDERPKCS1:
		return encoding.EncodePKCS1PrivateKey(priv)
	case types.FormatPEMPKCS1:
		der, err := encoding.EncodePKCS1PrivateKey(priv)
		if err != nil {
			return nil, err
		}
		return encoding.EncodePEM(encoding.PEMTypeRSAPrivateKey, der), nil
	}
	return encodePrivate(priv, format)
}

func decodeRSAPublic(format types.KeyFormat, data []byte) (*rsa.PublicKey, error) {
	switch format {
	case types.FormatDERPKCS1, types.FormatPEMPKCS1:
		der := data
		if format == types.FormatPEMPKCS1 {
			var err error
			if der, err = encoding.DecodePEM(data, encoding.PEMTypeRSAPublicKey); err != nil {
				return nil, invalidKey(err)
			}
		}
		pub, err := encoding.DecodePKCS1PublicKey(der)
		if err != nil {
			return nil, invalidKey(err)
		}
		return pub, nil
	}
	key, err := decodePublic(format, data)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, mismatch("RSA public key", key)
	}
	return pub, nil
}

func decodeRSAPrivate(format types.KeyFormat, data []byte) (*rsa.PrivateKey, error) {
	switch format {
	case types.FormatDERPKCS1, types.FormatPEMPKCS1:
		der := data
		if format == types.FormatPEMPKCS1 {
			var err error
			if der, err = encoding.DecodePEM(data, encoding.PEMTypeRSAPrivateKey); err != nil {
				return nil, invalidKey(err)
			}
		}
		priv, err := encoding.DecodePKCS1PrivateKey(der)
		if err != nil {
			return nil, invalidKey(err)
		}
		return priv, nil
	}
	key, err := decodePrivate(format, data)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, mismatch("RSA private key", key)
	}
	return priv, nil
}

// rsaScheme builds the family methods of one RSA scheme from its key
// constructors.
type rsaScheme[Pub, Priv any] struct {
	p          *Provider
	newPublic  func(info digestInfo, pub *rsa.PublicKey) Pub
	newPrivate func(info digestInfo, priv *rsa.PrivateKey) Priv
}

func (s rsaScheme[Pub, Priv]) keyPairGenerator(bits int, digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.KeyPair[Pub, Priv]], error) {
	info, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	if err := checkRSABits(bits); err != nil {
		return nil, err
	}
	return generator(s.p, func(ctx context.Context) (algorithm.KeyPair[Pub, Priv], error) {
		priv, err := s.p.generateRSA(bits)
		if err != nil {
			return nil, err
		}
		return algorithm.NewKeyPair(s.newPublic(info, &priv.PublicKey), s.newPrivate(info, priv)), nil
	}), nil
}

func (s rsaScheme[Pub, Priv]) publicKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[Pub], error) {
	info, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	return decoder(s.p, types.KeyTypeRSAPublic, rsaFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (Pub, error) {
			pub, err := decodeRSAPublic(format, data)
			if err != nil {
				var zero Pub
				return zero, err
			}
			return s.newPublic(info, pub), nil
		}), nil
}

func (s rsaScheme[Pub, Priv]) privateKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[Priv], error) {
	info, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	return decoder(s.p, types.KeyTypeRSAPrivate, rsaFormats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (Priv, error) {
			priv, err := decodeRSAPrivate(format, data)
			if err != nil {
				var zero Priv
				return zero, err
			}
			return s.newPrivate(info, priv), nil
		}), nil
}

func rsaPublicEncoding(p *Provider, pub *rsa.PublicKey) operation.KeyEncoding {
	return keyEncoding(p, types.KeyTypeRSAPublic, rsaFormats, func(format types.KeyFormat) ([]byte, error) {
		return encodeRSAPublic(pub, format)
	})
}

func rsaPrivateEncoding(p *Provider, priv *rsa.PrivateKey) operation.KeyEncoding {
	return keyEncoding(p, types.KeyTypeRSAPrivate, rsaFormats, func(format types.KeyFormat) ([]byte, error) {
		return encodeRSAPrivate(priv, format)
	})
}

// rsaSigner signs digests with sign, which is PSS or PKCS#1 v1.5.
func rsaSigner(p *Provider, info digestInfo, priv *rsa.PrivateKey,
	sign func(priv *rsa.PrivateKey, hash crypto.Hash, digest []byte) ([]byte, error)) operation.Signer {

	return operation.NewSigner(operation.Synchronous, &signEngine{
		p:       p,
		size:    priv.Size(),
		newHash: info.new,
		sign: func(sum []byte) ([]byte, error) {
			sig, err := sign(priv, info.hash, sum)
			if err != nil {
				return nil, fmt.Errorf("software: RSA sign: %w", err)
			}
			return sig, nil
		},
	})
}

func rsaVerifier(p *Provider, info digestInfo, pub *rsa.PublicKey,
	verify func(pub *rsa.PublicKey, hash crypto.Hash, digest, sig []byte) error) operation.Verifier {

	return operation.NewVerifier(operation.Synchronous, &signEngine{
		p:       p,
		newHash: info.new,
		verify: func(sum, signature []byte) bool {
			return verify(pub, info.hash, sum, signature) == nil
		},
	})
}

// =============================================================================
// RSASSA-PSS
// =============================================================================

var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}

type rsaPSSFamily struct {
	p *Provider
}

var _ algorithm.RSAPSS = (*rsaPSSFamily)(nil)

func (f *rsaPSSFamily) scheme() rsaScheme[algorithm.RSAPSSPublicKey, algorithm.RSAPSSPrivateKey] {
	p := f.p
	return rsaScheme[algorithm.RSAPSSPublicKey, algorithm.RSAPSSPrivateKey]{
		p: p,
		newPublic: func(info digestInfo, pub *rsa.PublicKey) algorithm.RSAPSSPublicKey {
			return &rsaVerifyKey{
				KeyEncoding: rsaPublicEncoding(p, pub),
				verifier: rsaVerifier(p, info, pub, func(pub *rsa.PublicKey, hash crypto.Hash, digest, sig []byte) error {
					return rsa.VerifyPSS(pub, hash, digest, sig, pssOptions)
				}),
			}
		},
		newPrivate: func(info digestInfo, priv *rsa.PrivateKey) algorithm.RSAPSSPrivateKey {
			return &rsaSignKey{
				KeyEncoding: rsaPrivateEncoding(p, priv),
				signer: rsaSigner(p, info, priv, func(priv *rsa.PrivateKey, hash crypto.Hash, digest []byte) ([]byte, error) {
					return rsa.SignPSS(p.rng, priv, hash, digest, pssOptions)
				}),
			}
		},
	}
}

func (f *rsaPSSFamily) KeyPairGenerator(bits int, digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.RSAPSSKeyPair], error) {
	return f.scheme().keyPairGenerator(bits, digest)
}

func (f *rsaPSSFamily) PublicKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAPSSPublicKey], error) {
	return f.scheme().publicKeyDecoder(digest)
}

func (f *rsaPSSFamily) PrivateKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAPSSPrivateKey], error) {
	return f.scheme().privateKeyDecoder(digest)
}

type rsaVerifyKey struct {
	operation.KeyEncoding
	verifier operation.Verifier
}

func (k *rsaVerifyKey) Verifier() operation.Verifier {
	return k.verifier
}

type rsaSignKey struct {
	operation.KeyEncoding
	signer operation.Signer
}

func (k *rsaSignKey) Signer() operation.Signer {
	return k.signer
}

// =============================================================================
// RSASSA-PKCS1-v1_5 and RSAES-PKCS1-v1_5
// =============================================================================

type rsaPKCS1Family struct {
	p *Provider
}

var _ algorithm.RSAPKCS1 = (*rsaPKCS1Family)(nil)

func (f *rsaPKCS1Family) scheme() rsaScheme[algorithm.RSAPKCS1PublicKey, algorithm.RSAPKCS1PrivateKey] {
	p := f.p
	return rsaScheme[algorithm.RSAPKCS1PublicKey, algorithm.RSAPKCS1PrivateKey]{
		p: p,
		newPublic: func(info digestInfo, pub *rsa.PublicKey) algorithm.RSAPKCS1PublicKey {
			return &rsaPKCS1PublicKey{
				rsaVerifyKey: rsaVerifyKey{
					KeyEncoding: rsaPublicEncoding(p, pub),
					verifier:    rsaVerifier(p, info, pub, rsa.VerifyPKCS1v15),
				},
				encryptor: operation.NewCipher(operation.Synchronous, &pkcs1v15Engine{p: p, pub: pub}),
			}
		},
		newPrivate: func(info digestInfo, priv *rsa.PrivateKey) algorithm.RSAPKCS1PrivateKey {
			return &rsaPKCS1PrivateKey{
				rsaSignKey: rsaSignKey{
					KeyEncoding: rsaPrivateEncoding(p, priv),
					signer: rsaSigner(p, info, priv, func(priv *rsa.PrivateKey, hash crypto.Hash, digest []byte) ([]byte, error) {
						return rsa.SignPKCS1v15(nil, priv, hash, digest)
					}),
				},
				decryptor: operation.NewCipher(operation.Synchronous, &pkcs1v15Engine{p: p, pub: &priv.PublicKey, priv: priv}),
			}
		},
	}
}

func (f *rsaPKCS1Family) KeyPairGenerator(bits int, digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.RSAPKCS1KeyPair], error) {
	return f.scheme().keyPairGenerator(bits, digest)
}

func (f *rsaPKCS1Family) PublicKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAPKCS1PublicKey], error) {
	return f.scheme().publicKeyDecoder(digest)
}

func (f *rsaPKCS1Family) PrivateKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAPKCS1PrivateKey], error) {
	return f.scheme().privateKeyDecoder(digest)
}

type rsaPKCS1PublicKey struct {
	rsaVerifyKey
	encryptor operation.Encryptor
}

func (k *rsaPKCS1PublicKey) Encryptor() operation.Encryptor {
	return k.encryptor
}

type rsaPKCS1PrivateKey struct {
	rsaSignKey
	decryptor operation.Decryptor
}

func (k *rsaPKCS1PrivateKey) Decryptor() operation.Decryptor {
	return k.decryptor
}

// pkcs1v15Engine is RSAES-PKCS1-v1_5. Without priv it only encrypts.
type pkcs1v15Engine struct {
	p    *Provider
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey
}

var _ operation.CipherEngine = (*pkcs1v15Engine)(nil)

func (e *pkcs1v15Engine) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		ct, err := rsa.EncryptPKCS1v15(e.p.rng, e.pub, plaintext)
		if err != nil {
			return nil, rsaEncryptError(err)
		}
		return ct, nil
	})
}

func (e *pkcs1v15Engine) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if e.priv == nil {
		return nil, types.ErrOperationNotSupported
	}
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		pt, err := rsa.DecryptPKCS1v15(nil, e.priv, ciphertext)
		if err != nil {
			return nil, types.ErrAuthenticationFailed
		}
		return pt, nil
	})
}

func (e *pkcs1v15Engine) NewEncryptCore(ctx context.Context) (operation.CipherCore, error) {
	size := e.pub.Size()
	return &bufferedCore{
		size:   func(int) int { return size },
		finish: e.Encrypt,
	}, nil
}

func (e *pkcs1v15Engine) NewDecryptCore(ctx context.Context) (operation.CipherCore, error) {
	if e.priv == nil {
		return nil, types.ErrOperationNotSupported
	}
	return &bufferedCore{finish: e.Decrypt}, nil
}

func rsaEncryptError(err error) error {
	if errors.Is(err, rsa.ErrMessageTooLong) {
		return fmt.Errorf("%w: %v", types.ErrInvalidParameter, err)
	}
	return fmt.Errorf("software: RSA encrypt: %w", err)
}

// =============================================================================
// RSAES-OAEP
// =============================================================================

type rsaOAEPFamily struct {
	p *Provider
}

var _ algorithm.RSAOAEP = (*rsaOAEPFamily)(nil)

func (f *rsaOAEPFamily) scheme() rsaScheme[algorithm.RSAOAEPPublicKey, algorithm.RSAOAEPPrivateKey] {
	p := f.p
	return rsaScheme[algorithm.RSAOAEPPublicKey, algorithm.RSAOAEPPrivateKey]{
		p: p,
		newPublic: func(info digestInfo, pub *rsa.PublicKey) algorithm.RSAOAEPPublicKey {
			return &rsaOAEPPublicKey{
				KeyEncoding: rsaPublicEncoding(p, pub),
				encryptor:   operation.NewAEADCipher(operation.Synchronous, &oaepEngine{p: p, info: info, pub: pub}),
			}
		},
		newPrivate: func(info digestInfo, priv *rsa.PrivateKey) algorithm.RSAOAEPPrivateKey {
			return &rsaOAEPPrivateKey{
				KeyEncoding: rsaPrivateEncoding(p, priv),
				decryptor:   operation.NewAEADCipher(operation.Synchronous, &oaepEngine{p: p, info: info, pub: &priv.PublicKey, priv: priv}),
			}
		},
	}
}

func (f *rsaOAEPFamily) KeyPairGenerator(bits int, digest *algorithm.ID[algorithm.Digest]) (operation.KeyGenerator[algorithm.RSAOAEPKeyPair], error) {
	return f.scheme().keyPairGenerator(bits, digest)
}

func (f *rsaOAEPFamily) PublicKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAOAEPPublicKey], error) {
	return f.scheme().publicKeyDecoder(digest)
}

func (f *rsaOAEPFamily) PrivateKeyDecoder(digest *algorithm.ID[algorithm.Digest]) (operation.KeyDecoder[algorithm.RSAOAEPPrivateKey], error) {
	return f.scheme().privateKeyDecoder(digest)
}

type rsaOAEPPublicKey struct {
	operation.KeyEncoding
	encryptor operation.AEADEncryptor
}

func (k *rsaOAEPPublicKey) Encryptor() operation.AEADEncryptor {
	return k.encryptor
}

type rsaOAEPPrivateKey struct {
	operation.KeyEncoding
	decryptor operation.AEADDecryptor
}

func (k *rsaOAEPPrivateKey) Decryptor() operation.AEADDecryptor {
	return k.decryptor
}

// oaepEngine is RSAES-OAEP with the associated data as label. It has no
// nonce and no tag, so the WithIV forms are not supported.
type oaepEngine struct {
	p    *Provider
	info digestInfo
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey
}

var _ operation.AEADEngine = (*oaepEngine)(nil)

func (e *oaepEngine) NonceSize() int {
	return 0
}

func (e *oaepEngine) TagSize() int {
	return 0
}

func (e *oaepEngine) Seal(ctx context.Context, plaintext, associatedData []byte) ([]byte, error) {
	return observe(e.p, metrics.OpEncrypt, func() ([]byte, error) {
		ct, err := rsa.EncryptOAEP(e.info.new(), e.p.rng, e.pub, plaintext, associatedData)
		if err != nil {
			return nil, rsaEncryptError(err)
		}
		return ct, nil
	})
}

func (e *oaepEngine) Open(ctx context.Context, ciphertext, associatedData []byte) ([]byte, error) {
	if e.priv == nil {
		return nil, types.ErrOperationNotSupported
	}
	return observe(e.p, metrics.OpDecrypt, func() ([]byte, error) {
		pt, err := rsa.DecryptOAEP(e.info.new(), nil, e.priv, ciphertext, associatedData)
		if err != nil {
			return nil, types.ErrAuthenticationFailed
		}
		return pt, nil
	})
}

func (e *oaepEngine) SealWithIV(context.Context, []byte, []byte, []byte) ([]byte, error) {
	return nil, types.ErrOperationNotSupported
}

func (e *oaepEngine) OpenWithIV(context.Context, []byte, []byte, []byte) ([]byte, error) {
	return nil, types.ErrOperationNotSupported
}

func (e *oaepEngine) NewSealCore(ctx context.Context, associatedData []byte) (operation.CipherCore, error) {
	ad := append([]byte(nil), associatedData...)
	size := e.pub.Size()
	return &bufferedCore{
		size: func(int) int { return size },
		finish: func(ctx context.Context, buf []byte) ([]byte, error) {
			return e.Seal(ctx, buf, ad)
		},
	}, nil
}

func (e *oaepEngine) NewOpenCore(ctx context.Context, associatedData []byte) (operation.CipherCore, error) {
	if e.priv == nil {
		return nil, types.ErrOperationNotSupported
	}
	ad := append([]byte(nil), associatedData...)
	return &bufferedCore{
		finish: func(ctx context.Context, buf []byte) ([]byte, error) {
			return e.Open(ctx, buf, ad)
		},
	}, nil
}
