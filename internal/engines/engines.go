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

// Package engines turns the CLI configuration into a provider registry.
//
// Each engine is registered lazily, so an unreachable HSM or cloud service
// only fails the resolutions that reach it. Engines that need a build tag
// report ErrNotCompiled from their initializer when the tag is absent.
package engines

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/crypto/rand"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
)

// ErrNotCompiled is returned for an enabled engine whose build tag was not
// set.
var ErrNotCompiled = errors.New("engines: engine not compiled in")

// Options carries the ambient dependencies handed to every engine.
type Options struct {
	Logger  logger.Logger
	Metrics metrics.Recorder
	Rand    rand.Resolver
}

// factory builds one engine.
type factory func(cfg *config.Config, opts *Options) (provider.Provider, error)

type entry struct {
	name     string
	enabled  func(p *config.ProvidersConfig) config.Registration
	newFunc  factory
	compiled bool
}

// entries lists every engine. Order breaks priority ties.
var entries = []entry{
	{"pkcs11", func(p *config.ProvidersConfig) config.Registration { return p.PKCS11.Registration }, newPKCS11, pkcs11Compiled},
	{"tpm2", func(p *config.ProvidersConfig) config.Registration { return p.TPM2.Registration }, newTPM2, tpm2Compiled},
	{"awskms", func(p *config.ProvidersConfig) config.Registration { return p.AWSKMS.Registration }, newAWSKMS, awskmsCompiled},
	{"gcpkms", func(p *config.ProvidersConfig) config.Registration { return p.GCPKMS.Registration }, newGCPKMS, gcpkmsCompiled},
	{"azurekv", func(p *config.ProvidersConfig) config.Registration { return p.AzureKV.Registration }, newAzureKV, azurekvCompiled},
	{"vault", func(p *config.ProvidersConfig) config.Registration { return p.Vault.Registration }, newVault, vaultCompiled},
	{"software", func(p *config.ProvidersConfig) config.Registration { return p.Software.Registration }, newSoftware, true},
}

// Compiled returns the names of the engines built into this binary.
func Compiled() []string {
	var names []string
	for _, e := range entries {
		if e.compiled {
			names = append(names, e.name)
		}
	}
	return names
}

// Set is a registry together with the resources its engines opened.
type Set struct {
	Registry *provider.Registry
	Rand     rand.Resolver

	mu      sync.Mutex
	closers []io.Closer
	closed  bool
}

// Build registers every enabled engine in cfg with a new registry. The
// randomness source is opened eagerly; engines are created on first use.
func Build(cfg *config.Config, opts Options) (*Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoOp
	}
	var owned io.Closer
	if opts.Rand == nil {
		rng, err := rand.NewResolver(randConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("engines: randomness source: %w", err)
		}
		opts.Rand, owned = rng, rng
	}

	s := &Set{
		Registry: provider.NewRegistry(&provider.RegistryConfig{
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
		}),
		Rand: opts.Rand,
	}
	if owned != nil {
		s.closers = append(s.closers, owned)
	}

	for _, e := range entries {
		reg := e.enabled(&cfg.Providers)
		if !reg.Enabled {
			continue
		}
		s.Registry.Register(provider.NewLazy(e.name, s.initFunc(e, cfg, &opts)), reg.Priority)
		opts.Logger.Debug("engine registered",
			logger.Provider(e.name),
			logger.Priority(reg.Priority),
			logger.Bool("compiled", e.compiled))
	}
	return s, nil
}

func (s *Set) initFunc(e entry, cfg *config.Config, opts *Options) func() (provider.Provider, error) {
	return func() (provider.Provider, error) {
		if !e.compiled {
			return nil, fmt.Errorf("%w: %s (build with -tags %s)", ErrNotCompiled, e.name, e.name)
		}
		p, err := e.newFunc(cfg, opts)
		if err != nil {
			return nil, err
		}
		if c, ok := p.(io.Closer); ok {
			s.track(c)
		}
		return p, nil
	}
}

func (s *Set) track(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		c.Close()
		return
	}
	s.closers = append(s.closers, c)
}

// Close closes every engine that was initialized, then the randomness
// source if Build opened it.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func randConfig(cfg *config.Config) *rand.Config {
	rc := &rand.Config{
		Mode:         rand.Mode(cfg.Rand.Mode),
		FallbackMode: rand.Mode(cfg.Rand.FallbackMode),
	}
	if t := cfg.Providers.TPM2; t.Device != "" || t.SimulatorHost != "" {
		rc.TPM2 = &rand.TPM2Config{
			Device:        t.Device,
			SimulatorHost: t.SimulatorHost,
			SimulatorPort: t.SimulatorPort,
		}
	}
	if p := cfg.Providers.PKCS11; p.Library != "" {
		rc.PKCS11 = &rand.PKCS11Config{
			Module: p.Library,
			SlotID: uint(p.Slot),
			PIN:    p.PIN,
		}
	}
	return rc
}
