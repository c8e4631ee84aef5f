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

package software

import (
	"context"
	"sync"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/aead"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/operation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

const (
	// Name is the provider name.
	Name = "software"

	// DefaultPriority is the priority the provider registers itself with.
	// Hardware and remote engines register above it.
	DefaultPriority = 0
)

func init() {
	provider.Register(provider.NewLazy(Name, func() (provider.Provider, error) {
		return New(&Config{})
	}), DefaultPriority)
}

// Provider resolves every standard identity to an implementation on the
// Go standard library and golang.org/x/crypto. All operations are
// synchronous.
//
// Thread-safe: Yes. Family instances are created once per identity and
// cached.
type Provider struct {
	config  *Config
	rng     rand.Resolver
	logger  logger.Logger
	metrics metrics.Recorder
	cache   sync.Map
}

var _ provider.Provider = (*Provider)(nil)

// New creates a software provider. A nil config selects the defaults.
func New(config *Config) (*Provider, error) {
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := config.withDefaults()
	p := &Provider{
		config:  cfg,
		rng:     cfg.Rand,
		logger:  cfg.Logger.With(logger.Provider(Name)),
		metrics: cfg.Metrics,
	}
	p.logger.Debug("software provider created",
		logger.String("rand", string(cfg.Rand.Mode())),
		logger.Bool("nonce_tracking", !cfg.DisableNonceTracking))
	return p, nil
}

// Name returns "software".
func (p *Provider) Name() string {
	return Name
}

// Resolve returns the family implementation for id, or nil if id is not
// a standard identity.
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
	if d, ok := id.(*algorithm.ID[algorithm.Digest]); ok {
		info, err := lookupDigest(d)
		if err != nil {
			return nil
		}
		return newDigest(p, info)
	}

	switch id {
	case ids.HMAC:
		return &hmacFamily{p: p}
	case ids.AESGCM:
		return &aesGCMFamily{p: p}
	case ids.AESCBC:
		return &aesCBCFamily{p: p}
	case ids.AESCTR:
		return &aesCTRFamily{p: p}
	case ids.ChaCha20Poly1305:
		return &chachaFamily{p: p}
	case ids.ECDSA:
		return &ecdsaFamily{p: p}
	case ids.EdDSA:
		return &eddsaFamily{p: p}
	case ids.RSAPSS:
		return &rsaPSSFamily{p: p}
	case ids.RSAPKCS1:
		return &rsaPKCS1Family{p: p}
	case ids.RSAOAEP:
		return &rsaOAEPFamily{p: p}
	case ids.ECDH:
		return &ecdhFamily{p: p}
	case ids.XDH:
		return &xdhFamily{p: p}
	case ids.HKDF:
		return &hkdfFamily{p: p}
	case ids.PBKDF2:
		return &pbkdf2Family{p: p}
	case ids.Argon2id:
		return &argon2Family{p: p}
	}
	return nil
}

// observe records fn as one operation.
func observe[T any](p *Provider, op string, fn func() (T, error)) (T, error) {
	return metrics.Observe(p.metrics, op, fn)
}

// generator wraps a key generation body with metrics.
func generator[K any](p *Provider, generate func(ctx context.Context) (K, error)) operation.KeyGenerator[K] {
	return operation.NewKeyGenerator(operation.Synchronous, func(ctx context.Context) (K, error) {
		return observe(p, metrics.OpGenerateKey, func() (K, error) {
			return generate(ctx)
		})
	})
}

// decoder wraps a key decoding body with metrics.
func decoder[K any](p *Provider, keyType string, formats []types.KeyFormat,
	decode func(ctx context.Context, format types.KeyFormat, data []byte) (K, error)) operation.KeyDecoder[K] {

	return operation.NewKeyDecoder(operation.Synchronous, keyType, formats,
		func(ctx context.Context, format types.KeyFormat, data []byte) (K, error) {
			return observe(p, metrics.OpDecodeKey, func() (K, error) {
				return decode(ctx, format, data)
			})
		})
}

// keyEncoding wraps a key encoding body with metrics.
func keyEncoding(p *Provider, keyType string, formats []types.KeyFormat,
	encode func(format types.KeyFormat) ([]byte, error)) operation.KeyEncoding {

	return operation.NewKeyEncoding(operation.Synchronous, keyType, formats,
		func(_ context.Context, format types.KeyFormat) ([]byte, error) {
			return observe(p, metrics.OpEncodeKey, func() ([]byte, error) {
				return encode(format)
			})
		})
}

func (p *Provider) nonceTracker() *aead.NonceTracker {
	return aead.NewNonceTracker(!p.config.DisableNonceTracking)
}

func (p *Provider) bytesTracker() *aead.BytesTracker {
	return aead.NewBytesTracker(p.config.AEADBytesLimit)
}
