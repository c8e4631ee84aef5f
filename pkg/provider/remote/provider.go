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

package remote

import (
	"context"
	"crypto"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/software"
)

// DefaultPriority is the priority remote providers are registered with by
// the engine factories. It is above the software engine.
const DefaultPriority = 50

// Provider resolves algorithms to service-held keys.
//
// Thread-safe: Yes. Requests are dispatched to a bounded worker pool.
type Provider struct {
	config  *Config
	service Service
	local   *software.Provider
	exec    *operation.AsyncExecutor
	limiter *rate.Limiter
	logger  logger.Logger
	metrics metrics.Recorder
	cache   sync.Map
	closed  atomic.Bool
}

var _ provider.Provider = (*Provider)(nil)

// New creates a remote provider over config.Service. The provider owns
// the service and closes it on Close.
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
		return nil, fmt.Errorf("remote: local engine: %w", err)
	}

	p := &Provider{
		config:  cfg,
		service: cfg.Service,
		local:   local,
		exec:    operation.NewAsyncExecutor(cfg.Workers),
		limiter: cfg.limiter(),
		logger:  cfg.Logger.With(logger.Provider(cfg.Service.Name())),
		metrics: cfg.Metrics,
	}
	p.logger.Info("remote provider created",
		logger.Int("workers", cfg.Workers),
		logger.Any("kinds", cfg.Service.Kinds()))
	return p, nil
}

// Name returns the service name.
func (p *Provider) Name() string {
	return p.service.Name()
}

// Resolve returns the family implementation for id, or nil when the
// service cannot back it.
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
		if p.supports(KindECDSA) {
			return &ecdsaFamily{p: p}
		}
	case ids.RSAPSS:
		if p.supports(KindRSAPSS) {
			return &rsaPSSFamily{p: p}
		}
	case ids.RSAOAEP:
		if p.supports(KindRSAOAEP) {
			return &rsaOAEPFamily{p: p}
		}
	case ids.AESGCM:
		if p.supports(KindAESGCM) {
			return &aesGCMFamily{p: p}
		}
	}
	return nil
}

func (p *Provider) supports(kind KeyKind) bool {
	return slices.Contains(p.service.Kinds(), kind)
}

// Close stops accepting requests, waits for queued requests to finish and
// closes the service. It is safe to call more than once.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.exec.Close(); err != nil {
		return err
	}
	p.logger.Info("remote provider closed")
	return p.service.Close()
}

// invoke runs one service request. Waiting for the limiter is the point
// where a caller over the request budget suspends.
func invoke[T any](ctx context.Context, p *Provider, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.closed.Load() {
		return zero, ErrServiceClosed
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("remote: %s: %w", op, err)
	}
	v, err := metrics.Observe(p.metrics, op, func() (T, error) {
		return fn(ctx)
	})
	if err != nil {
		p.logger.DebugContext(ctx, "service request failed",
			logger.String("operation", op), logger.Error(err))
		return zero, fmt.Errorf("remote: %s %s: %w", p.service.Name(), op, err)
	}
	return v, nil
}

// createKey creates a key and fetches its public half when it has one.
func (p *Provider) createKey(ctx context.Context, spec KeySpec) (string, crypto.PublicKey, error) {
	id, err := invoke(ctx, p, metrics.OpGenerateKey, func(ctx context.Context) (string, error) {
		return p.service.CreateKey(ctx, spec)
	})
	if err != nil {
		return "", nil, err
	}
	p.logger.DebugContext(ctx, "service key created",
		logger.String("key_id", id), logger.String("spec", spec.String()))
	if spec.Kind == KindAESGCM {
		return id, nil, nil
	}
	pub, err := p.publicKey(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return id, pub, nil
}

func (p *Provider) publicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	return invoke(ctx, p, metrics.OpDecodeKey, func(ctx context.Context) (crypto.PublicKey, error) {
		return p.service.PublicKey(ctx, keyID)
	})
}
