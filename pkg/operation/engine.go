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

import "context"

// =============================================================================
// Engine Interfaces
// =============================================================================
// Engines implement these narrow, context-first interfaces once. The New*
// constructors in capability.go derive the caller-facing capabilities, with
// both calling conventions, from them.

// HashCore is one engine hash session.
type HashCore interface {
	Update(ctx context.Context, p []byte) error
	// Finish writes exactly the digest size into out.
	Finish(ctx context.Context, out []byte) error
	Release() error
}

// HashEngine creates hash sessions.
type HashEngine interface {
	DigestSize() int
	NewHashCore(ctx context.Context) (HashCore, error)
}

// OneShotHashEngine is implemented by engines with a faster one-shot path.
type OneShotHashEngine interface {
	Digest(ctx context.Context, data []byte) ([]byte, error)
}

// SignCore is one engine signing session.
type SignCore interface {
	Update(ctx context.Context, p []byte) error
	Finish(ctx context.Context) ([]byte, error)
	Release() error
}

// SignEngine creates signing sessions.
type SignEngine interface {
	// SignatureSize is exact for fixed size schemes and an upper bound
	// otherwise.
	SignatureSize() int
	NewSignCore(ctx context.Context) (SignCore, error)
}

// VerifyCore is one engine verification session.
type VerifyCore interface {
	Update(ctx context.Context, p []byte) error
	// Finish reports false for a well-formed but wrong signature.
	Finish(ctx context.Context, signature []byte) (bool, error)
	Release() error
}

// VerifyEngine creates verification sessions.
type VerifyEngine interface {
	NewVerifyCore(ctx context.Context) (VerifyCore, error)
}

// CipherCore is one engine cipher session. Update may produce output and
// Finish produces the remainder.
type CipherCore interface {
	// UpdateSize returns the exact output length of an Update of n bytes
	// given the data buffered so far.
	UpdateSize(n int) int
	Update(ctx context.Context, p, out []byte) (int, error)
	// FinishSize returns the exact output length of Finish given the data
	// buffered so far.
	FinishSize() int
	Finish(ctx context.Context, out []byte) (int, error)
	Release() error
}

// CipherEngine backs an unauthenticated cipher. Encrypt generates and
// prefixes the IV; Decrypt expects it there.
type CipherEngine interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	NewEncryptCore(ctx context.Context) (CipherCore, error)
	NewDecryptCore(ctx context.Context) (CipherCore, error)
}

// IVCipherEngine adds caller supplied IVs.
type IVCipherEngine interface {
	CipherEngine
	IVSize() int
	EncryptWithIV(ctx context.Context, iv, plaintext []byte) ([]byte, error)
	DecryptWithIV(ctx context.Context, iv, ciphertext []byte) ([]byte, error)
}

// AEADEngine backs an authenticated cipher. Seal generates and prefixes the
// nonce and appends the tag. Open fails with types.ErrAuthenticationFailed
// on any mismatch and never returns partial plaintext.
type AEADEngine interface {
	NonceSize() int
	TagSize() int
	Seal(ctx context.Context, plaintext, associatedData []byte) ([]byte, error)
	Open(ctx context.Context, ciphertext, associatedData []byte) ([]byte, error)
	SealWithIV(ctx context.Context, iv, plaintext, associatedData []byte) ([]byte, error)
	OpenWithIV(ctx context.Context, iv, ciphertext, associatedData []byte) ([]byte, error)
	NewSealCore(ctx context.Context, associatedData []byte) (CipherCore, error)
	NewOpenCore(ctx context.Context, associatedData []byte) (CipherCore, error)
}
