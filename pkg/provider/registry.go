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

package provider

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// DefaultName is the name of the registry's composite provider.
const DefaultName = "default"

// ErrNoProviders is returned by Primary on an empty registry.
var ErrNoProviders = errors.New("provider: no providers registered")

// Registration is one entry of a registry snapshot.
type Registration struct {
	Provider *Lazy
	Priority int
	// Sequence is the registration order, starting at zero.
	Sequence int
}

// Info describes the registration without triggering initialization.
func (r Registration) Info() types.ProviderInfo {
	info := types.ProviderInfo{
		Name:     r.Provider.Name(),
		Priority: r.Priority,
		Sequence: r.Sequence,
		State:    r.Provider.State(),
	}
	if err := r.Provider.Err(); err != nil {
		info.Error = err.Error()
	}
	return info
}

// RegistryConfig configures a Registry. Nil fields select no-op
// implementations.
type RegistryConfig struct {
	Logger  logger.Logger
	Metrics metrics.Recorder
}

type observers struct {
	log     logger.Logger
	metrics metrics.Recorder
}

// Registry is an append-only collection of providers ordered by priority.
// Readers work on immutable snapshots; Register replaces the snapshot
// under a mutex.
type Registry struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]Registration]
	seq     int
	obs     atomic.Pointer[observers]
	def     *composite
}

// NewRegistry returns an empty registry.
func NewRegistry(config *RegistryConfig) *Registry {
	r := &Registry{}
	empty := []Registration{}
	r.entries.Store(&empty)
	r.def = &composite{registry: r}
	r.Configure(config)
	return r
}

// Configure replaces the logger and metrics recorder.
func (r *Registry) Configure(config *RegistryConfig) {
	obs := &observers{log: logger.NewNoOpLogger(), metrics: metrics.NoOp}
	if config != nil {
		if config.Logger != nil {
			obs.log = config.Logger
		}
		if config.Metrics != nil {
			obs.metrics = config.Metrics
		}
	}
	r.obs.Store(obs)
}

// Register adds lazy at priority. Higher priorities resolve first; equal
// priorities resolve in registration order. The initializer is not run.
func (r *Registry) Register(lazy *Lazy, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.entries.Load()
	next := make([]Registration, len(old), len(old)+1)
	copy(next, old)
	next = append(next, Registration{Provider: lazy, Priority: priority, Sequence: r.seq})
	r.seq++

	sort.SliceStable(next, func(i, j int) bool {
		if next[i].Priority != next[j].Priority {
			return next[i].Priority > next[j].Priority
		}
		return next[i].Sequence < next[j].Sequence
	})
	r.entries.Store(&next)

	r.obs.Load().log.Debug("provider registered",
		logger.Provider(lazy.Name()),
		logger.Priority(priority))
}

// Providers returns a copy of the current registrations in resolution
// order.
func (r *Registry) Providers() []Registration {
	snap := *r.entries.Load()
	out := make([]Registration, len(snap))
	copy(out, snap)
	return out
}

// Lookup returns the first registration named name.
func (r *Registry) Lookup(name string) (*Lazy, bool) {
	for _, reg := range *r.entries.Load() {
		if reg.Provider.Name() == name {
			return reg.Provider, true
		}
	}
	return nil, false
}

// Primary returns the highest priority provider.
func (r *Registry) Primary() (Provider, error) {
	snap := *r.entries.Load()
	if len(snap) == 0 {
		return nil, ErrNoProviders
	}
	return snap[0].Provider, nil
}

// Default returns the composite provider that resolves against the whole
// registry in priority order.
func (r *Registry) Default() Provider {
	return r.def
}

// resolve walks the snapshot and returns the first non-nil capability
// together with the name of the provider that produced it. A slot whose
// initialization failed is skipped; when no later provider answers, its
// cached error is returned alongside the not-found error. An error from a
// live provider's Resolve ends the walk.
func (r *Registry) resolve(id algorithm.Identity) (any, string, error) {
	obs := r.obs.Load()
	var failed []error
	for _, reg := range *r.entries.Load() {
		name := reg.Provider.Name()

		p, fresh, err := reg.Provider.provide()
		if fresh {
			r.logInit(obs, name, err)
		}
		if err != nil {
			obs.log.Debug("skipping failed provider",
				logger.Algorithm(id.Name()),
				logger.Provider(name))
			failed = append(failed, err)
			continue
		}

		v, err := p.Resolve(id)
		if err != nil {
			obs.log.Debug("resolution failed",
				logger.Algorithm(id.Name()),
				logger.Provider(name),
				logger.Error(err))
			obs.metrics.RecordResolution(id.Name(), name, metrics.StatusError)
			return nil, name, err
		}
		if v != nil {
			obs.log.Debug("algorithm resolved",
				logger.Algorithm(id.Name()),
				logger.Provider(name))
			obs.metrics.RecordResolution(id.Name(), name, metrics.StatusSuccess)
			return v, name, nil
		}
	}

	if len(failed) > 0 {
		obs.log.Debug("algorithm not found; failed providers skipped",
			logger.Algorithm(id.Name()),
			logger.Int("failed", len(failed)))
		obs.metrics.RecordResolution(id.Name(), "", metrics.StatusError)
		errs := append([]error{&types.AlgorithmNotFoundError{Algorithm: id.Name()}}, failed...)
		return nil, "", errors.Join(errs...)
	}
	obs.log.Debug("algorithm not found", logger.Algorithm(id.Name()))
	obs.metrics.RecordResolution(id.Name(), "", metrics.StatusNotFound)
	return nil, "", nil
}

func (r *Registry) logInit(obs *observers, name string, err error) {
	if err != nil {
		obs.log.Error("provider initialization failed",
			logger.Provider(name),
			logger.Error(err))
		obs.metrics.RecordProviderInit(name, metrics.StatusError)
		return
	}
	obs.log.Info("provider initialized", logger.Provider(name))
	obs.metrics.RecordProviderInit(name, metrics.StatusSuccess)
}

// Resolve returns the capability for id from the highest priority
// provider that implements it.
func Resolve[C any](r *Registry, id *algorithm.ID[C]) (C, error) {
	c, _, err := ResolveWithProvider(r, id)
	return c, err
}

// ResolveWithProvider is Resolve that also returns the name of the
// provider that answered.
func ResolveWithProvider[C any](r *Registry, id *algorithm.ID[C]) (C, string, error) {
	var zero C
	v, name, err := r.resolve(id)
	if err != nil {
		return zero, name, err
	}
	if v == nil {
		return zero, "", &types.AlgorithmNotFoundError{Algorithm: id.Name()}
	}
	c, err := capability[C](name, id, v)
	if err != nil {
		return zero, name, err
	}
	return c, name, nil
}

// composite is the registry's "default" provider.
type composite struct {
	registry *Registry
}

func (c *composite) Name() string {
	return DefaultName
}

func (c *composite) Resolve(id algorithm.Identity) (any, error) {
	v, _, err := c.registry.resolve(id)
	return v, err
}
