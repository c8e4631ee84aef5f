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

// Package aead holds safety rails shared by the AEAD engines: per-key nonce
// reuse detection for caller supplied IVs, per-key usage limits, and
// hardware-aware selection between AES-GCM and ChaCha20-Poly1305.
//
//	id := aead.SelectOptimal(false)
//	// ids.AESGCM with AES-NI or ARMv8 AES, ids.ChaCha20Poly1305 otherwise
package aead

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
)

// HasAESNI reports whether the CPU has AES instructions.
func HasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ
	case "arm64":
		return cpu.ARM64.HasAES && cpu.ARM64.HasPMULL
	case "s390x":
		return cpu.S390X.HasAES && cpu.S390X.HasAESGCM
	default:
		return false
	}
}

// SelectOptimal returns the AEAD identity to use for new keys. Hardware
// backed keys always use AES-GCM, which every HSM, TPM and KMS offers.
// Software keys use AES-GCM only when the CPU accelerates it.
func SelectOptimal(hardwareBacked bool) algorithm.Identity {
	if hardwareBacked || HasAESNI() {
		return ids.AESGCM
	}
	return ids.ChaCha20Poly1305
}
