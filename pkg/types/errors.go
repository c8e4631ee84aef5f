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
	"errors"
	"fmt"
)

var (
	// ErrAlgorithmNotFound is returned when no registered provider resolves
	// the requested algorithm identity.
	ErrAlgorithmNotFound = errors.New("provider: algorithm not found")

	// ErrUnsupportedKeyFormat is returned when a key cannot be encoded to,
	// or decoded from, the requested format.
	ErrUnsupportedKeyFormat = errors.New("provider: unsupported key format")

	// ErrBlockingNotSupported is returned by the blocking form of an
	// operation backed by an asynchronous-only engine.
	ErrBlockingNotSupported = errors.New("provider: blocking calls not supported by this engine")

	// ErrAuthenticationFailed is returned when AEAD authentication fails.
	// It never carries plaintext or ciphertext.
	ErrAuthenticationFailed = errors.New("provider: authentication failed")

	// ErrBufferTooSmall is returned when a caller supplied output buffer
	// cannot hold the result.
	ErrBufferTooSmall = errors.New("provider: buffer too small")

	// ErrProviderInitializationFailed is returned for every resolution that
	// reaches a provider whose lazy initialization failed.
	ErrProviderInitializationFailed = errors.New("provider: initialization failed")

	// ErrInvalidFunctionState is returned when a streaming function is used
	// in a state that forbids the call.
	ErrInvalidFunctionState = errors.New("provider: invalid function state")

	// ErrCapabilityMismatch is returned when a provider resolves an identity
	// to a value that does not implement the identity's capability.
	ErrCapabilityMismatch = errors.New("provider: capability type mismatch")

	// ErrInvalidParameter is returned for invalid sizes, curves, IVs and
	// similar caller supplied parameters.
	ErrInvalidParameter = errors.New("provider: invalid parameter")

	// ErrNotExportable is returned when key material lives inside an engine
	// that never releases it.
	ErrNotExportable = errors.New("provider: key material not exportable")

	// ErrOperationNotSupported is returned when an engine resolves an
	// algorithm but cannot perform one of its optional operations.
	ErrOperationNotSupported = errors.New("provider: operation not supported by this engine")
)

// AlgorithmNotFoundError names the algorithm that could not be resolved.
type AlgorithmNotFoundError struct {
	Algorithm string
}

func (e *AlgorithmNotFoundError) Error() string {
	return fmt.Sprintf("provider: algorithm not found: %s", e.Algorithm)
}

func (e *AlgorithmNotFoundError) Is(target error) bool {
	return target == ErrAlgorithmNotFound
}

// UnsupportedKeyFormatError reports a format / key type combination that
// the resolving provider does not implement.
type UnsupportedKeyFormatError struct {
	Format  KeyFormat
	KeyType string
}

func (e *UnsupportedKeyFormatError) Error() string {
	return fmt.Sprintf("provider: unsupported key format %s for %s", e.Format, e.KeyType)
}

func (e *UnsupportedKeyFormatError) Is(target error) bool {
	return target == ErrUnsupportedKeyFormat
}

// NewUnsupportedKeyFormatError returns an UnsupportedKeyFormatError.
func NewUnsupportedKeyFormatError(format KeyFormat, keyType string) error {
	return &UnsupportedKeyFormatError{Format: format, KeyType: keyType}
}

// BufferTooSmallError carries the required and supplied buffer lengths.
type BufferTooSmallError struct {
	Need int
	Have int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("provider: buffer too small: need %d bytes, have %d", e.Need, e.Have)
}

func (e *BufferTooSmallError) Is(target error) bool {
	return target == ErrBufferTooSmall
}

// CheckBuffer returns a BufferTooSmallError if len(buf) < need.
func CheckBuffer(buf []byte, need int) error {
	if len(buf) < need {
		return &BufferTooSmallError{Need: need, Have: len(buf)}
	}
	return nil
}

// ProviderInitError wraps the cached error of a failed lazy initialization.
type ProviderInitError struct {
	Provider string
	Err      error
}

func (e *ProviderInitError) Error() string {
	return fmt.Sprintf("provider: initialization of %q failed: %v", e.Provider, e.Err)
}

func (e *ProviderInitError) Unwrap() error {
	return e.Err
}

func (e *ProviderInitError) Is(target error) bool {
	return target == ErrProviderInitializationFailed
}

// FunctionStateError reports an operation rejected by a streaming function's
// state machine.
type FunctionStateError struct {
	Op     string
	State  string
	Reason string
}

func (e *FunctionStateError) Error() string {
	if e.State == "closed" {
		return fmt.Sprintf("provider: %s: function is closed", e.Op)
	}
	if e.Reason != "" {
		return fmt.Sprintf("provider: %s not allowed in state %s: %s", e.Op, e.State, e.Reason)
	}
	return fmt.Sprintf("provider: %s not allowed in state %s", e.Op, e.State)
}

func (e *FunctionStateError) Is(target error) bool {
	return target == ErrInvalidFunctionState
}
