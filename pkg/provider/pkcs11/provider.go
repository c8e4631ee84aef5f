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

//go:build pkcs11

package pkcs11

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/software"
)

const (
	// Name is the provider name.
	Name = "pkcs11"

	// DefaultPriority places the token above the remote services and the
	// software engine.
	DefaultPriority = 100

	// labelPrefix marks objects created by this provider.
	labelPrefix = "cp-"
)

// Provider resolves ECDSA, RSA-PSS, RSA-OAEP and AES-GCM to token keys.
//
// Thread-safe: Yes. crypto11 serializes access through its session pool.
type Provider struct {
	config    *Config
	token     Token
	ownsToken bool
	local     *software.Provider
	rng       rand.Resolver
	logger    logger.Logger
	metrics   metrics.Recorder
	cache     sync.Map
	closed    atomic.Bool
}

var _ provider.Provider = (*Provider)(nil)

// New opens the token in config, or uses config.Token when set.
func New(config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := config.withDefaults()

	local, err := software.New(&software.Config{
		Rand:    cfg.Rand,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("pkcs11: local engine: %w", err)
	}

	token, owns := cfg.Token, false
	if token == nil {
		token, err = OpenToken(cfg)
		if err != nil {
			return nil, err
		}
		owns = true
	}

	p := &Provider{
		config:    cfg,
		token:     token,
		ownsToken: owns,
		local:     local,
		rng:       cfg.Rand,
		logger:    cfg.Logger.With(logger.Provider(Name)),
		metrics:   cfg.Metrics,
	}
	p.logger.Info("pkcs11 provider created",
		logger.String("library", cfg.Library),
		logger.String("token", cfg.TokenLabel))
	return p, nil
}

// Name returns "pkcs11".
func (p *Provider) Name() string {
	return Name
}

// Resolve returns the family implementation for id, or nil when the token
// does not back it.
func (p *Provider) Resolve(id algorithm.Identity) (any, error) {
	if v, ok := p.cache.Load(id); ok {
		return v, nil
	}
	v := p.build(id)
	if v == nil {
		return nil, nil
	}
	actual, _ := p.cache.LoadOrStore(id, v)
	return actual, nil
}

func (p *Provider) build(id algorithm.Identity) any {
	switch id {
	case ids.ECDSA:
		return &ecdsaFamily{p: p}
	case ids.RSAPSS:
		return &rsaPSSFamily{p: p}
	case ids.RSAOAEP:
		return &rsaOAEPFamily{p: p}
	case ids.AESGCM:
		return &aesGCMFamily{p: p}
	}
	return nil
}

// Close closes the token if the provider opened it. It is safe to call
// more than once.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.logger.Info("pkcs11 provider closed")
	if !p.ownsToken {
		return nil
	}
	return p.token.Close()
}

func (p *Provider) check() error {
	if p.closed.Load() {
		return ErrProviderClosed
	}
	return nil
}

// newLabel returns a fresh CKA_LABEL.
func newLabel() []byte {
	return []byte(labelPrefix + uuid.NewString())
}

// observe records fn as one operation.
func observe[T any](p *Provider, op string, fn func() (T, error)) (T, error) {
	if err := p.check(); err != nil {
		var zero T
		return zero, err
	}
	return metrics.Observe(p.metrics, op, fn)
}
