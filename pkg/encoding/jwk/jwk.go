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

// Package jwk converts keys to and from JSON Web Keys (RFC 7517, RFC 8037)
// and computes RFC 7638 thumbprints used as key IDs.
//
// Supported key types:
//   - RSA public and private keys (kty "RSA")
//   - ECDSA and ECDH keys on P-256, P-384 and P-521 (kty "EC")
//   - Ed25519 and X25519 keys (kty "OKP")
//   - symmetric keys (kty "oct")
//
// Coordinates and scalars are encoded at the fixed curve length.
package jwk

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrUnsupportedKey is returned for key types or curves without a JWK
	// representation here.
	ErrUnsupportedKey = errors.New("jwk: unsupported key")

	// ErrInvalidJWK is returned for malformed or incomplete JWKs.
	ErrInvalidJWK = errors.New("jwk: invalid key")
)

// JWK is a JSON Web Key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`

	// RSA
	N  string `json:"n,omitempty"`
	E  string `json:"e,omitempty"`
	D  string `json:"d,omitempty"`
	P  string `json:"p,omitempty"`
	Q  string `json:"q,omitempty"`
	DP string `json:"dp,omitempty"`
	DQ string `json:"dq,omitempty"`
	QI string `json:"qi,omitempty"`

	// EC and OKP. D above holds the private scalar or seed.
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`

	// oct
	K string `json:"k,omitempty"`
}

// Key types
const (
	KeyTypeRSA = "RSA"
	KeyTypeEC  = "EC"
	KeyTypeOKP = "OKP"
	KeyTypeOct = "oct"
)

// Curve names
const (
	CurveP256    = "P-256"
	CurveP384    = "P-384"
	CurveP521    = "P-521"
	CurveEd25519 = "Ed25519"
	CurveX25519  = "X25519"
)

var b64 = base64.RawURLEncoding

// FromPublicKey converts a public key.
func FromPublicKey(pub crypto.PublicKey) (*JWK, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		return &JWK{
			Kty: KeyTypeRSA,
			N:   b64.EncodeToString(key.N.Bytes()),
			E:   b64.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}, nil
	case *ecdsa.PublicKey:
		return fromECPoint(key.Curve, key)
	case *ecdh.PublicKey:
		if key.Curve() == ecdh.X25519() {
			return &JWK{Kty: KeyTypeOKP, Crv: CurveX25519, X: b64.EncodeToString(key.Bytes())}, nil
		}
		ec, err := ecdsaFromECDH(key)
		if err != nil {
			return nil, err
		}
		return fromECPoint(ec.Curve, ec)
	case ed25519.PublicKey:
		return &JWK{Kty: KeyTypeOKP, Crv: CurveEd25519, X: b64.EncodeToString(key)}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, pub)
	}
}

// FromPrivateKey converts a private key. The result includes the public
// members.
func FromPrivateKey(priv crypto.PrivateKey) (*JWK, error) {
	switch key := priv.(type) {
	case *rsa.PrivateKey:
		j, err := FromPublicKey(&key.PublicKey)
		if err != nil {
			return nil, err
		}
		key.Precompute()
		j.D = b64.EncodeToString(key.D.Bytes())
		if len(key.Primes) == 2 {
			j.P = b64.EncodeToString(key.Primes[0].Bytes())
			j.Q = b64.EncodeToString(key.Primes[1].Bytes())
			j.DP = b64.EncodeToString(key.Precomputed.Dp.Bytes())
			j.DQ = b64.EncodeToString(key.Precomputed.Dq.Bytes())
			j.QI = b64.EncodeToString(key.Precomputed.Qinv.Bytes())
		}
		return j, nil
	case *ecdsa.PrivateKey:
		j, err := FromPublicKey(&key.PublicKey)
		if err != nil {
			return nil, err
		}
		d, err := key.Bytes()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
		}
		j.D = b64.EncodeToString(d)
		return j, nil
	case *ecdh.PrivateKey:
		j, err := FromPublicKey(key.PublicKey())
		if err != nil {
			return nil, err
		}
		j.D = b64.EncodeToString(key.Bytes())
		return j, nil
	case ed25519.PrivateKey:
		j, err := FromPublicKey(key.Public())
		if err != nil {
			return nil, err
		}
		j.D = b64.EncodeToString(key.Seed())
		return j, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, priv)
	}
}

// FromSymmetricKey converts a secret key. alg is optional.
func FromSymmetricKey(key []byte, alg string) (*JWK, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty symmetric key", ErrInvalidJWK)
	}
	return &JWK{Kty: KeyTypeOct, Alg: alg, K: b64.EncodeToString(key)}, nil
}

// ToPublicKey returns *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey
// or *ecdh.PublicKey (X25519). For private JWKs the public half is
// returned.
func (j *JWK) ToPublicKey() (crypto.PublicKey, error) {
	switch j.Kty {
	case KeyTypeRSA:
		return j.rsaPublicKey()
	case KeyTypeEC:
		return j.ecdsaPublicKey()
	case KeyTypeOKP:
		x, err := j.member("x", j.X)
		if err != nil {
			return nil, err
		}
		switch j.Crv {
		case CurveEd25519:
			if len(x) != ed25519.PublicKeySize {
				return nil, fmt.Errorf("%w: Ed25519 key is %d bytes", ErrInvalidJWK, len(x))
			}
			return ed25519.PublicKey(x), nil
		case CurveX25519:
			pub, err := ecdh.X25519().NewPublicKey(x)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
			}
			return pub, nil
		}
		return nil, fmt.Errorf("%w: OKP curve %q", ErrUnsupportedKey, j.Crv)
	default:
		return nil, fmt.Errorf("%w: kty %q", ErrUnsupportedKey, j.Kty)
	}
}

// ToPrivateKey returns *rsa.PrivateKey, *ecdsa.PrivateKey,
// ed25519.PrivateKey or *ecdh.PrivateKey (X25519).
func (j *JWK) ToPrivateKey() (crypto.PrivateKey, error) {
	if j.D == "" {
		return nil, fmt.Errorf("%w: no private key material", ErrInvalidJWK)
	}
	d, err := j.member("d", j.D)
	if err != nil {
		return nil, err
	}

	switch j.Kty {
	case KeyTypeRSA:
		return j.rsaPrivateKey(d)
	case KeyTypeEC:
		curve, err := ellipticCurve(j.Crv)
		if err != nil {
			return nil, err
		}
		priv, err := ecdsa.ParseRawPrivateKey(curve, d)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
		}
		return priv, nil
	case KeyTypeOKP:
		switch j.Crv {
		case CurveEd25519:
			if len(d) != ed25519.SeedSize {
				return nil, fmt.Errorf("%w: Ed25519 seed is %d bytes", ErrInvalidJWK, len(d))
			}
			return ed25519.NewKeyFromSeed(d), nil
		case CurveX25519:
			priv, err := ecdh.X25519().NewPrivateKey(d)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
			}
			return priv, nil
		}
		return nil, fmt.Errorf("%w: OKP curve %q", ErrUnsupportedKey, j.Crv)
	default:
		return nil, fmt.Errorf("%w: kty %q", ErrUnsupportedKey, j.Kty)
	}
}

// ToSymmetricKey returns the secret of an oct JWK.
func (j *JWK) ToSymmetricKey() ([]byte, error) {
	if j.Kty != KeyTypeOct {
		return nil, fmt.Errorf("%w: kty %q is not oct", ErrInvalidJWK, j.Kty)
	}
	return j.member("k", j.K)
}

// IsPrivate reports whether the JWK carries private or secret material.
func (j *JWK) IsPrivate() bool {
	return j.D != "" || j.K != ""
}

// Marshal encodes the JWK as JSON.
func (j *JWK) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

// Unmarshal decodes a JSON JWK.
func Unmarshal(data []byte) (*JWK, error) {
	var j JWK
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	if j.Kty == "" {
		return nil, fmt.Errorf("%w: missing kty", ErrInvalidJWK)
	}
	return &j, nil
}

func (j *JWK) member(name, value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidJWK, name)
	}
	b, err := b64.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: member %q: %v", ErrInvalidJWK, name, err)
	}
	return b, nil
}

func (j *JWK) bigMember(name, value string) (*big.Int, error) {
	b, err := j.member(name, value)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func (j *JWK) rsaPublicKey() (*rsa.PublicKey, error) {
	n, err := j.bigMember("n", j.N)
	if err != nil {
		return nil, err
	}
	e, err := j.bigMember("e", j.E)
	if err != nil {
		return nil, err
	}
	if !e.IsInt64() || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("%w: RSA exponent too large", ErrInvalidJWK)
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func (j *JWK) rsaPrivateKey(d []byte) (*rsa.PrivateKey, error) {
	pub, err := j.rsaPublicKey()
	if err != nil {
		return nil, err
	}
	priv := &rsa.PrivateKey{PublicKey: *pub, D: new(big.Int).SetBytes(d)}
	if j.P == "" || j.Q == "" {
		return nil, fmt.Errorf("%w: RSA private key without primes", ErrInvalidJWK)
	}
	p, err := j.bigMember("p", j.P)
	if err != nil {
		return nil, err
	}
	q, err := j.bigMember("q", j.Q)
	if err != nil {
		return nil, err
	}
	priv.Primes = []*big.Int{p, q}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	priv.Precompute()
	return priv, nil
}

func (j *JWK) ecdsaPublicKey() (*ecdsa.PublicKey, error) {
	curve, err := ellipticCurve(j.Crv)
	if err != nil {
		return nil, err
	}
	x, err := j.member("x", j.X)
	if err != nil {
		return nil, err
	}
	y, err := j.member("y", j.Y)
	if err != nil {
		return nil, err
	}
	size := (curve.Params().BitSize + 7) / 8
	if len(x) != size || len(y) != size {
		return nil, fmt.Errorf("%w: %s coordinates must be %d bytes", ErrInvalidJWK, j.Crv, size)
	}
	point := make([]byte, 0, 1+2*size)
	point = append(point, 4)
	point = append(point, x...)
	point = append(point, y...)
	pub, err := ecdsa.ParseUncompressedPublicKey(curve, point)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	return pub, nil
}

func fromECPoint(curve elliptic.Curve, key *ecdsa.PublicKey) (*JWK, error) {
	crv, err := curveName(curve)
	if err != nil {
		return nil, err
	}
	point, err := key.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	size := (len(point) - 1) / 2
	return &JWK{
		Kty: KeyTypeEC,
		Crv: crv,
		X:   b64.EncodeToString(point[1 : 1+size]),
		Y:   b64.EncodeToString(point[1+size:]),
	}, nil
}

func ecdsaFromECDH(key *ecdh.PublicKey) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch key.Curve() {
	case ecdh.P256():
		curve = elliptic.P256()
	case ecdh.P384():
		curve = elliptic.P384()
	case ecdh.P521():
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("%w: ECDH curve %v", ErrUnsupportedKey, key.Curve())
	}
	pub, err := ecdsa.ParseUncompressedPublicKey(curve, key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	return pub, nil
}

func curveName(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return CurveP256, nil
	case elliptic.P384():
		return CurveP384, nil
	case elliptic.P521():
		return CurveP521, nil
	default:
		return "", fmt.Errorf("%w: curve %s", ErrUnsupportedKey, curve.Params().Name)
	}
}

func ellipticCurve(name string) (elliptic.Curve, error) {
	switch name {
	case CurveP256:
		return elliptic.P256(), nil
	case CurveP384:
		return elliptic.P384(), nil
	case CurveP521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("%w: EC curve %q", ErrUnsupportedKey, name)
	}
}
