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

// Package remote is an asynchronous engine over a key-management Service
// such as AWS KMS, Google Cloud KMS, Azure Key Vault or the Vault Transit
// engine.
//
// Private and secret keys never leave the service. They are referenced by
// the service key identifier, which is the only encoding they support
// (FormatKeyRef). Public halves are ordinary software keys, so verification
// and public key encryption run locally.
//
// Every request to the service runs on a worker pool and is admitted by a
// token bucket limiter. The blocking calling convention is therefore not
// available: blocking forms fail with types.ErrBlockingNotSupported and
// callers use the Context forms.
//
// The engine resolves ECDSA, RSA-PSS, RSA-OAEP and AES-GCM, limited to the
// key kinds the service reports. Every other identity resolves to nil so
// the registry falls through to the next provider.
package remote
