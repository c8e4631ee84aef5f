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

package engines

import (
	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote"
)

// newRemote wraps a cloud service in the asynchronous remote engine.
func newRemote(service remote.Service, rc config.RemoteConfig, opts *Options) (*remote.Provider, error) {
	p, err := remote.New(&remote.Config{
		Service:           service,
		Workers:           rc.Workers,
		RequestsPerSecond: rc.RequestsPerSecond,
		Burst:             rc.Burst,
		Rand:              opts.Rand,
		Logger:            opts.Logger,
		Metrics:           opts.Metrics,
	})
	if err != nil {
		service.Close()
		return nil, err
	}
	return p, nil
}
