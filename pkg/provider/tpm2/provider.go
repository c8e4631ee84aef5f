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
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
)

const (
	// Name is the provider name.
	Name = "tpm2"

	// DefaultPriority places the TPM below tokens and remote services and
	// above the software engine.
	DefaultPriority = 75
)

// tpmDigests maps the digests a TPM may implement to their TPM_ALG_ID.
var tpmDigests = []struct {
	id   *algorithm.ID[algorithm.Digest]
	alg  tpm2.TPMIAlgHash
	size int
}{
	{ids.SHA1, tpm2.TPMAlgSHA1, 20},
	{ids.SHA256, tpm2.TPMAlgSHA256, 32},
	{ids.SHA384, tpm2.TPMAlgSHA384, 48},
	{ids.SHA512, tpm2.TPMAlgSHA512, 64},
	{ids.SHA3_256, tpm2.TPMAlgSHA3256, 32},
	{ids.SHA3_384, tpm2.TPMAlgSHA3384, 48},
	{ids.SHA3_512, tpm2.TPMAlgSHA3512, 64},
}

// Provider resolves digest algorithms to TPM hash commands.
//
// Thread-safe: Yes. Commands are serialized on the transport.
type Provider struct {
	config     *Config
	tpm        transport.TPM
	closer     io.Closer
	maxBuffer  int
	supported  map[*algorithm.ID[algorithm.Digest]]*digest
	logger     logger.Logger
	metrics    metrics.Recorder
	closed     atomic.Bool
	closeOnce  sync.Once
	closeError error
}

var _ provider.Provider = (*Provider)(nil)

// New opens the TPM in config and probes which digests it implements.
func New(config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := config.withDefaults()

	var (
		base   = cfg.Transport
		closer io.Closer
	)
	if base == nil {
		t, err := openTransport(cfg)
		if err != nil {
			return nil, err
		}
		base, closer = t, t
	}

	p := &Provider{
		config:    cfg,
		tpm:       &lockedTransport{tpm: base},
		closer:    closer,
		maxBuffer: cfg.MaxBufferSize,
		supported: make(map[*algorithm.ID[algorithm.Digest]]*digest),
		logger:    cfg.Logger.With(logger.Provider(Name)),
		metrics:   cfg.Metrics,
	}

	var names []string
	for _, d := range tpmDigests {
		if !p.probe(d.alg) {
			continue
		}
		p.supported[d.id] = newDigest(p, d.alg, d.size)
		names = append(names, d.id.Name())
	}
	if len(p.supported) == 0 {
		p.Close()
		return nil, fmt.Errorf("%w: TPM implements no supported digest", ErrOpeningDevice)
	}

	p.logger.Info("tpm2 provider created",
		logger.String("target", cfg.String()),
		logger.Any("digests", names))
	return p, nil
}

// probe reports whether the TPM accepts TPM2_Hash for alg.
func (p *Provider) probe(alg tpm2.TPMIAlgHash) bool {
	_, err := tpm2.Hash{
		Data:      tpm2.TPM2BMaxBuffer{Buffer: []byte{}},
		HashAlg:   alg,
		Hierarchy: tpm2.TPMRHNull,
	}.Execute(p.tpm)
	if err != nil {
		p.logger.Debug("digest not supported by TPM",
			logger.Int("alg", int(alg)),
			logger.Error(err))
		return false
	}
	return true
}

// Name returns "tpm2".
func (p *Provider) Name() string {
	return Name
}

// Resolve returns an algorithm.Digest for digests the TPM implements and
// nil otherwise.
func (p *Provider) Resolve(id algorithm.Identity) (any, error) {
	d, ok := id.(*algorithm.ID[algorithm.Digest])
	if !ok {
		return nil, nil
	}
	if impl, ok := p.supported[d]; ok {
		return impl, nil
	}
	return nil, nil
}

// Close closes the transport if the provider opened it. It is safe to call
// more than once.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.logger.Info("tpm2 provider closed")
		if p.closer != nil {
			p.closeError = p.closer.Close()
		}
	})
	return p.closeError
}

func (p *Provider) check() error {
	if p.closed.Load() {
		return ErrProviderClosed
	}
	return nil
}

// observe records fn as one operation.
func observe[T any](p *Provider, op string, fn func() (T, error)) (T, error) {
	if err := p.check(); err != nil {
		var zero T
		return zero, err
	}
	return metrics.Observe(p.metrics, op, fn)
}
