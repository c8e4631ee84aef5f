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

// Package operation defines the capability contracts (Hasher, Signer,
// Verifier, ciphers, key generation and encoding, secret derivation), the
// streaming function state machine, and the bridge that derives blocking
// and context-aware entry points from a single operation body.
//
// Engines implement the narrow interfaces in engine.go and hand them to the
// New* constructors together with their Executor:
//
//	hasher := operation.NewHasher(operation.Synchronous, sha256Engine{})
//	digest, err := hasher.Hash([]byte("abc"))
//
// Synchronous engines serve both forms inline. Asynchronous engines (remote
// key management services) serve only the Context forms; their blocking
// forms fail with types.ErrBlockingNotSupported instead of parking the
// calling goroutine.
//
// Streaming functions follow the lifecycle
//
//	Created -> Updating -> Completed
//	   any state -> Closed (Close is idempotent)
//
// and are owned by a single caller. They must be closed on every path:
//
//	fn, err := hasher.CreateHashFunction()
//	if err != nil {
//	    return err
//	}
//	defer fn.Close()
package operation
