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

// Package tpm2 resolves digest algorithms to TPM 2.0 hash sequences using
// github.com/google/go-tpm.
//
// Short inputs are hashed with a single TPM2_Hash. Streaming hash
// functions hold a sequence handle from TPM2_HashSequenceStart until
// TPM2_SequenceComplete, so a HashFunction must be closed on every path to
// flush the handle.
//
// Build with -tags tpm2. Tests against the go-tpm-tools simulator also
// need -tags tpm_simulator.
package tpm2
