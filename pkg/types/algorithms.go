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

package types

import (
	"crypto/ecdh"
	"crypto/elliptic"
	"strings"
)

// =============================================================================
// Key Format Constants
// =============================================================================
// Key formats are a closed set. Each key type supports a fixed subset which
// it reports through EncodableKey.Formats.

// KeyFormat identifies a byte encoding of key material.
type KeyFormat string

const (
	// FormatRAW is the bare key bytes: a symmetric secret, an EC scalar or an
	// uncompressed EC point, or a 32 byte Ed25519/X25519 value.
	FormatRAW KeyFormat = "RAW"

	// FormatDER is PKIX (SubjectPublicKeyInfo) for public keys and PKCS#8
	// for private keys.
	FormatDER KeyFormat = "DER"

	// FormatPEM is FormatDER wrapped in a PEM block.
	FormatPEM KeyFormat = "PEM"

	// FormatJWK is a JSON Web Key (RFC 7517).
	FormatJWK KeyFormat = "JWK"

	// FormatDERPKCS1 is the legacy PKCS#1 RSA structure.
	FormatDERPKCS1 KeyFormat = "DER_PKCS1"

	// FormatPEMPKCS1 is FormatDERPKCS1 wrapped in an "RSA ... KEY" PEM block.
	FormatPEMPKCS1 KeyFormat = "PEM_PKCS1"

	// FormatKeyRef is the encoding of keys held by an HSM or a
	// key-management service: the key identifier or label as UTF-8 bytes.
	FormatKeyRef KeyFormat = "KEY_REF"
)

// KeyFormats lists every format in declaration order.
var KeyFormats = []KeyFormat{
	FormatRAW,
	FormatDER,
	FormatPEM,
	FormatJWK,
	FormatDERPKCS1,
	FormatPEMPKCS1,
	FormatKeyRef,
}

// String returns the string representation.
func (f KeyFormat) String() string {
	return string(f)
}

// Lower returns the lowercase form of the format.
func (f KeyFormat) Lower() string {
	return strings.ToLower(string(f))
}

// Equals performs case-insensitive comparison.
func (f KeyFormat) Equals(s string) bool {
	return strings.EqualFold(string(f), s)
}

// ParseKeyFormat returns the KeyFormat matching s, ignoring case.
func ParseKeyFormat(s string) (KeyFormat, bool) {
	for _, f := range KeyFormats {
		if f.Equals(s) {
			return f, true
		}
	}
	return "", false
}

// ContainsFormat reports whether format appears in formats.
func ContainsFormat(formats []KeyFormat, format KeyFormat) bool {
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}

// =============================================================================
// Curve Name Constants
// =============================================================================
// Curve names follow NIST naming conventions (P-256, P-384, P-521).

// Curve identifies a short Weierstrass curve used by ECDSA and ECDH.
type Curve string

const (
	// CurveP256 is NIST P-256 (secp256r1, prime256v1).
	CurveP256 Curve = "P-256"

	// CurveP384 is NIST P-384 (secp384r1).
	CurveP384 Curve = "P-384"

	// CurveP521 is NIST P-521 (secp521r1).
	CurveP521 Curve = "P-521"
)

// Curves lists the supported curves.
var Curves = []Curve{CurveP256, CurveP384, CurveP521}

// String returns the string representation.
func (c Curve) String() string {
	return string(c)
}

// Equals performs case-insensitive comparison.
func (c Curve) Equals(s string) bool {
	return strings.EqualFold(string(c), s)
}

// ParseCurve returns the Curve matching s, ignoring case.
func ParseCurve(s string) (Curve, bool) {
	for _, c := range Curves {
		if c.Equals(s) {
			return c, true
		}
	}
	return "", false
}

// Elliptic returns the crypto/elliptic curve, or nil if unknown.
func (c Curve) Elliptic() elliptic.Curve {
	switch c {
	case CurveP256:
		return elliptic.P256()
	case CurveP384:
		return elliptic.P384()
	case CurveP521:
		return elliptic.P521()
	default:
		return nil
	}
}

// ECDH returns the crypto/ecdh curve, or nil if unknown.
func (c Curve) ECDH() ecdh.Curve {
	switch c {
	case CurveP256:
		return ecdh.P256()
	case CurveP384:
		return ecdh.P384()
	case CurveP521:
		return ecdh.P521()
	default:
		return nil
	}
}

// ScalarSize returns the byte length of a private scalar (and of each
// coordinate) on the curve.
func (c Curve) ScalarSize() int {
	switch c {
	case CurveP256:
		return 32
	case CurveP384:
		return 48
	case CurveP521:
		return 66
	default:
		return 0
	}
}

// CurveFromElliptic maps a crypto/elliptic curve back to its name.
func CurveFromElliptic(curve elliptic.Curve) (Curve, bool) {
	if curve == nil {
		return "", false
	}
	c := Curve(curve.Params().Name)
	switch c {
	case CurveP256, CurveP384, CurveP521:
		return c, true
	}
	return "", false
}

// =============================================================================
// Signature Format Constants
// =============================================================================

// SignatureFormat selects the encoding of ECDSA signatures.
type SignatureFormat string

const (
	// SignatureFormatDER is the ASN.1 SEQUENCE { r, s } encoding.
	SignatureFormatDER SignatureFormat = "DER"

	// SignatureFormatRAW is the fixed size r || s (IEEE P1363) encoding.
	SignatureFormatRAW SignatureFormat = "RAW"
)

// String returns the string representation.
func (f SignatureFormat) String() string {
	return string(f)
}

// ParseSignatureFormat returns the SignatureFormat matching s, ignoring case.
func ParseSignatureFormat(s string) (SignatureFormat, bool) {
	switch {
	case strings.EqualFold(s, string(SignatureFormatDER)):
		return SignatureFormatDER, true
	case strings.EqualFold(s, string(SignatureFormatRAW)):
		return SignatureFormatRAW, true
	}
	return "", false
}

// =============================================================================
// Key Type Names
// =============================================================================
// Key type names appear in UnsupportedKeyFormatError and in log fields.

const (
	KeyTypeHMAC             = "HMAC"
	KeyTypeAES              = "AES"
	KeyTypeChaCha20Poly1305 = "ChaCha20-Poly1305"
	KeyTypeECDSAPublic      = "ECDSA public key"
	KeyTypeECDSAPrivate     = "ECDSA private key"
	KeyTypeECDHPublic       = "ECDH public key"
	KeyTypeECDHPrivate      = "ECDH private key"
	KeyTypeEd25519Public    = "Ed25519 public key"
	KeyTypeEd25519Private   = "Ed25519 private key"
	KeyTypeX25519Public     = "X25519 public key"
	KeyTypeX25519Private    = "X25519 private key"
	KeyTypeRSAPublic        = "RSA public key"
	KeyTypeRSAPrivate       = "RSA private key"
)

// =============================================================================
// AES Key Sizes
// =============================================================================

// AESKeySize is an AES key length in bits.
type AESKeySize int

const (
	AES128 AESKeySize = 128
	AES192 AESKeySize = 192
	AES256 AESKeySize = 256
)

// Bytes returns the key length in bytes.
func (s AESKeySize) Bytes() int {
	return int(s) / 8
}

// Valid reports whether s is a legal AES key size.
func (s AESKeySize) Valid() bool {
	return s == AES128 || s == AES192 || s == AES256
}
