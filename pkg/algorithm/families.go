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

package algorithm

import (
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// DefaultTagSize is the AEAD tag length in bytes used when callers have no
// reason to choose another.
const DefaultTagSize = 16

// =============================================================================
// Digests and MACs
// =============================================================================

// Digest is a message digest algorithm.
type Digest interface {
	Hasher() operation.Hasher
}

// HMAC is the keyed-hash MAC family.
type HMAC interface {
	KeyGenerator(digest *ID[Digest]) (operation.KeyGenerator[HMACKey], error)
	KeyDecoder(digest *ID[Digest]) (operation.KeyDecoder[HMACKey], error)
}

// HMACKey signs and verifies MACs.
type HMACKey interface {
	operation.EncodableKey
	Signer() operation.Signer
	Verifier() operation.Verifier
}

// =============================================================================
// Symmetric ciphers
// =============================================================================

// AESGCM is AES in Galois/Counter mode.
type AESGCM interface {
	KeyGenerator(size types.AESKeySize) (operation.KeyGenerator[AESGCMKey], error)
	KeyDecoder() operation.KeyDecoder[AESGCMKey]
}

// AESGCMKey is an AES-GCM key.
type AESGCMKey interface {
	operation.EncodableKey
	// Cipher returns a cipher with the given tag size in bytes (12..16).
	Cipher(tagSize int) (operation.AEADIVCipher, error)
}

// AESCBC is AES in cipher block chaining mode.
type AESCBC interface {
	KeyGenerator(size types.AESKeySize) (operation.KeyGenerator[AESCBCKey], error)
	KeyDecoder() operation.KeyDecoder[AESCBCKey]
}

// AESCBCKey is an AES-CBC key.
type AESCBCKey interface {
	operation.EncodableKey
	// Cipher returns a CBC cipher, with PKCS#7 padding when padding is true.
	Cipher(padding bool) operation.IVCipher
}

// AESCTR is AES in counter mode.
type AESCTR interface {
	KeyGenerator(size types.AESKeySize) (operation.KeyGenerator[AESCTRKey], error)
	KeyDecoder() operation.KeyDecoder[AESCTRKey]
}

// AESCTRKey is an AES-CTR key.
type AESCTRKey interface {
	operation.EncodableKey
	Cipher() operation.IVCipher
}

// ChaCha20Poly1305 is the RFC 8439 AEAD.
type ChaCha20Poly1305 interface {
	KeyGenerator() operation.KeyGenerator[ChaCha20Poly1305Key]
	KeyDecoder() operation.KeyDecoder[ChaCha20Poly1305Key]
}

// ChaCha20Poly1305Key is a ChaCha20-Poly1305 key.
type ChaCha20Poly1305Key interface {
	operation.EncodableKey
	Cipher() operation.AEADIVCipher
}

// =============================================================================
// Signatures
// =============================================================================

// ECDSA is the elliptic curve signature family over NIST curves.
type ECDSA interface {
	KeyPairGenerator(curve types.Curve) (operation.KeyGenerator[ECDSAKeyPair], error)
	PublicKeyDecoder(curve types.Curve) (operation.KeyDecoder[ECDSAPublicKey], error)
	PrivateKeyDecoder(curve types.Curve) (operation.KeyDecoder[ECDSAPrivateKey], error)
}

// ECDSAPublicKey verifies ECDSA signatures.
type ECDSAPublicKey interface {
	operation.EncodableKey
	Verifier(digest *ID[Digest], format types.SignatureFormat) (operation.Verifier, error)
}

// ECDSAPrivateKey produces ECDSA signatures.
type ECDSAPrivateKey interface {
	operation.EncodableKey
	Signer(digest *ID[Digest], format types.SignatureFormat) (operation.Signer, error)
}

// ECDSAKeyPair is an ECDSA key pair.
type ECDSAKeyPair = KeyPair[ECDSAPublicKey, ECDSAPrivateKey]

// EdDSA is the Edwards curve signature family (Ed25519).
type EdDSA interface {
	KeyPairGenerator() operation.KeyGenerator[EdDSAKeyPair]
	PublicKeyDecoder() operation.KeyDecoder[EdDSAPublicKey]
	PrivateKeyDecoder() operation.KeyDecoder[EdDSAPrivateKey]
}

// EdDSAPublicKey verifies Ed25519 signatures.
type EdDSAPublicKey interface {
	operation.EncodableKey
	Verifier() operation.Verifier
}

// EdDSAPrivateKey produces Ed25519 signatures.
type EdDSAPrivateKey interface {
	operation.EncodableKey
	Signer() operation.Signer
}

// EdDSAKeyPair is an Ed25519 key pair.
type EdDSAKeyPair = KeyPair[EdDSAPublicKey, EdDSAPrivateKey]

// RSAPSS is RSASSA-PSS. Salt length equals the digest size.
type RSAPSS interface {
	KeyPairGenerator(bits int, digest *ID[Digest]) (operation.KeyGenerator[RSAPSSKeyPair], error)
	PublicKeyDecoder(digest *ID[Digest]) (operation.KeyDecoder[RSAPSSPublicKey], error)
	PrivateKeyDecoder(digest *ID[Digest]) (operation.KeyDecoder[RSAPSSPrivateKey], error)
}

// RSAPSSPublicKey verifies RSASSA-PSS signatures.
type RSAPSSPublicKey interface {
	operation.EncodableKey
	Verifier() operation.Verifier
}

// RSAPSSPrivateKey produces RSASSA-PSS signatures.
type RSAPSSPrivateKey interface {
	operation.EncodableKey
	Signer() operation.Signer
}

// RSAPSSKeyPair is an RSASSA-PSS key pair.
type RSAPSSKeyPair = KeyPair[RSAPSSPublicKey, RSAPSSPrivateKey]

// RSAPKCS1 is RSASSA-PKCS1-v1_5 signing and RSAES-PKCS1-v1_5 encryption.
type RSAPKCS1 interface {
	KeyPairGenerator(bits int, digest *ID[Digest]) (operation.KeyGenerator[RSAPKCS1KeyPair], error)
	PublicKeyDecoder(digest *ID[Digest]) (operation.KeyDecoder[RSAPKCS1PublicKey], error)
	PrivateKeyDecoder(digest *ID[Digest]) (operation.KeyDecoder[RSAPKCS1PrivateKey], error)
}

// RSAPKCS1PublicKey verifies signatures and encrypts.
type RSAPKCS1PublicKey interface {
	operation.EncodableKey
	Verifier() operation.Verifier
	Encryptor() operation.Encryptor
}

// RSAPKCS1PrivateKey signs and decrypts.
type RSAPKCS1PrivateKey interface {
	operation.EncodableKey
	Signer() operation.Signer
	Decryptor() operation.Decryptor
}

// RSAPKCS1KeyPair is an RSA PKCS#1 v1.5 key pair.
type RSAPKCS1KeyPair = KeyPair[RSAPKCS1PublicKey, RSAPKCS1PrivateKey]

// =============================================================================
// Asymmetric encryption
// =============================================================================

// RSAOAEP is RSAES-OAEP. Associated data is used as the OAEP label.
type RSAOAEP interface {
	KeyPairGenerator(bits int, digest *ID[Digest]) (operation.KeyGenerator[RSAOAEPKeyPair], error)
	PublicKeyDecoder(digest *ID[Digest]) (operation.KeyDecoder[RSAOAEPPublicKey], error)
	PrivateKeyDecoder(digest *ID[Digest]) (operation.KeyDecoder[RSAOAEPPrivateKey], error)
}

// RSAOAEPPublicKey encrypts.
type RSAOAEPPublicKey interface {
	operation.EncodableKey
	Encryptor() operation.AEADEncryptor
}

// RSAOAEPPrivateKey decrypts.
type RSAOAEPPrivateKey interface {
	operation.EncodableKey
	Decryptor() operation.AEADDecryptor
}

// RSAOAEPKeyPair is an RSA-OAEP key pair.
type RSAOAEPKeyPair = KeyPair[RSAOAEPPublicKey, RSAOAEPPrivateKey]

// =============================================================================
// Key agreement
// =============================================================================

// ECDH is elliptic curve Diffie-Hellman over NIST curves.
type ECDH interface {
	KeyPairGenerator(curve types.Curve) (operation.KeyGenerator[ECDHKeyPair], error)
	PublicKeyDecoder(curve types.Curve) (operation.KeyDecoder[ECDHPublicKey], error)
	PrivateKeyDecoder(curve types.Curve) (operation.KeyDecoder[ECDHPrivateKey], error)
}

// ECDHPublicKey is a peer's ECDH public key.
type ECDHPublicKey interface {
	operation.EncodableKey
}

// ECDHPrivateKey derives shared secrets.
type ECDHPrivateKey interface {
	operation.EncodableKey
	SharedSecretDerivation() operation.SharedSecretDerivation[ECDHPublicKey]
}

// ECDHKeyPair is an ECDH key pair.
type ECDHKeyPair = KeyPair[ECDHPublicKey, ECDHPrivateKey]

// XDH is Diffie-Hellman over Curve25519 (X25519).
type XDH interface {
	KeyPairGenerator() operation.KeyGenerator[XDHKeyPair]
	PublicKeyDecoder() operation.KeyDecoder[XDHPublicKey]
	PrivateKeyDecoder() operation.KeyDecoder[XDHPrivateKey]
}

// XDHPublicKey is a peer's X25519 public key.
type XDHPublicKey interface {
	operation.EncodableKey
}

// XDHPrivateKey derives shared secrets.
type XDHPrivateKey interface {
	operation.EncodableKey
	SharedSecretDerivation() operation.SharedSecretDerivation[XDHPublicKey]
}

// XDHKeyPair is an X25519 key pair.
type XDHKeyPair = KeyPair[XDHPublicKey, XDHPrivateKey]

// =============================================================================
// Secret derivation
// =============================================================================

// HKDF is the RFC 5869 extract-and-expand KDF.
type HKDF interface {
	SecretDerivation(digest *ID[Digest], outputSize int, salt, info []byte) (operation.SecretDerivation, error)
}

// PBKDF2 is the RFC 8018 password based KDF.
type PBKDF2 interface {
	SecretDerivation(digest *ID[Digest], iterations, outputSize int, salt []byte) (operation.SecretDerivation, error)
}

// Argon2Params configures Argon2id.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLength uint32
	Salt      []byte
}

// DefaultArgon2Params returns the RFC 9106 second recommended option
// (64 MiB, 3 passes) without a salt.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   4,
		KeyLength: 32,
	}
}

// Argon2id is the memory-hard password KDF.
type Argon2id interface {
	SecretDerivation(params Argon2Params) (operation.SecretDerivation, error)
}
