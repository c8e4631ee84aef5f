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

//go:build tpm2

package rand

import (
	"fmt"
	"sync"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/tcp"
	"github.com/google/go-tpm/tpmutil"
)

// tpm2Resolver draws from TPM2_GetRandom.
type tpm2Resolver struct {
	mu    sync.Mutex
	tpm   transport.TPMCloser
	chunk int
}

func newTPM2Resolver(config *TPM2Config) (Resolver, error) {
	if config == nil {
		config = &TPM2Config{}
	}
	chunk := config.MaxRequestSize
	if chunk <= 0 {
		chunk = 32
	}

	if config.SimulatorHost != "" {
		port := config.SimulatorPort
		if port <= 0 {
			port = 2321
		}
		tpm, err := tcp.Open(tcp.Config{
			CommandAddress:  fmt.Sprintf("%s:%d", config.SimulatorHost, port),
			PlatformAddress: fmt.Sprintf("%s:%d", config.SimulatorHost, port+1),
		})
		if err != nil {
			return nil, fmt.Errorf("rand: connect TPM simulator %s:%d: %w", config.SimulatorHost, port, err)
		}
		return &tpm2Resolver{tpm: tpm, chunk: chunk}, nil
	}

	device := config.Device
	if device == "" {
		device = "/dev/tpmrm0"
	}
	rwc, err := tpmutil.OpenTPM(device)
	if err != nil {
		return nil, fmt.Errorf("rand: open TPM %s: %w", device, err)
	}
	return NewTPM2Resolver(transport.FromReadWriteCloser(rwc), chunk), nil
}

// NewTPM2Resolver wraps an open TPM transport. The resolver owns tpm and
// closes it on Close.
func NewTPM2Resolver(tpm transport.TPMCloser, maxRequestSize int) Resolver {
	if maxRequestSize <= 0 {
		maxRequestSize = 32
	}
	return &tpm2Resolver{tpm: tpm, chunk: maxRequestSize}
}

func tpm2Available() bool {
	return true
}

func (t *tpm2Resolver) Read(p []byte) (int, error) {
	if err := t.NextBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *tpm2Resolver) NextBytes(buf []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tpm == nil {
		return ErrResolverClosed
	}
	for off := 0; off < len(buf); {
		n := len(buf) - off
		if n > t.chunk {
			n = t.chunk
		}
		rsp, err := tpm2.GetRandom{BytesRequested: uint16(n)}.Execute(t.tpm)
		if err != nil {
			return fmt.Errorf("rand: TPM2_GetRandom: %w", err)
		}
		got := rsp.RandomBytes.Buffer
		if len(got) == 0 {
			return fmt.Errorf("rand: TPM2_GetRandom returned no bytes")
		}
		off += copy(buf[off:], got)
	}
	return nil
}

func (t *tpm2Resolver) Mode() Mode {
	return ModeTPM2
}

func (t *tpm2Resolver) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tpm != nil
}

func (t *tpm2Resolver) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tpm == nil {
		return nil
	}
	err := t.tpm.Close()
	t.tpm = nil
	return err
}
