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

package tpm2

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/linuxudstpm"
	"github.com/google/go-tpm/tpm2/transport/tcp"
	"github.com/google/go-tpm/tpmutil"
)

// openTransport connects to the simulator or device named in config.
func openTransport(config *Config) (transport.TPMCloser, error) {
	if config.SimulatorHost != "" {
		port := config.simulatorPort()
		t, err := tcp.Open(tcp.Config{
			CommandAddress:  fmt.Sprintf("%s:%d", config.SimulatorHost, port),
			PlatformAddress: fmt.Sprintf("%s:%d", config.SimulatorHost, port+1),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: simulator %s:%d: %v", ErrOpeningDevice, config.SimulatorHost, port, err)
		}
		return t, nil
	}

	device := config.device()
	if strings.HasSuffix(device, ".sock") {
		t, err := linuxudstpm.Open(device)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrOpeningDevice, device, err)
		}
		return t, nil
	}
	rwc, err := tpmutil.OpenTPM(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpeningDevice, device, err)
	}
	return transport.FromReadWriteCloser(rwc), nil
}

// lockedTransport serializes commands. A TPM processes one command at a
// time and the go-tpm transports are not safe for concurrent use.
type lockedTransport struct {
	mu  sync.Mutex
	tpm transport.TPM
}

func (t *lockedTransport) Send(input []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tpm.Send(input)
}
