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

//go:build gcpkms

package engines

import (
	"context"

	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote/gcpkms"
)

const gcpkmsCompiled = true

func newGCPKMS(cfg *config.Config, opts *Options) (provider.Provider, error) {
	gc := cfg.Providers.GCPKMS
	svc, err := gcpkms.New(context.Background(), &gcpkms.Config{
		ProjectID:       gc.ProjectID,
		LocationID:      gc.LocationID,
		KeyRingID:       gc.KeyRingID,
		CredentialsFile: gc.CredentialsFile,
		Endpoint:        gc.Endpoint,
		KeyTimeout:      gc.KeyTimeout,
	})
	if err != nil {
		return nil, err
	}
	return newRemote(svc, gc.Remote, opts)
}
