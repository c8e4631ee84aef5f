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

//go:build awskms

package engines

import (
	"context"

	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/remote/awskms"
)

const awskmsCompiled = true

func newAWSKMS(cfg *config.Config, opts *Options) (provider.Provider, error) {
	ac := cfg.Providers.AWSKMS
	svc, err := awskms.New(context.Background(), &awskms.Config{
		Region:          ac.Region,
		AccessKeyID:     ac.AccessKeyID,
		SecretAccessKey: ac.SecretAccessKey,
		SessionToken:    ac.SessionToken,
		Endpoint:        ac.Endpoint,
		Description:     "cryptoprovider",
	})
	if err != nil {
		return nil, err
	}
	return newRemote(svc, ac.Remote, opts)
}
