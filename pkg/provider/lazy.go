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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// ErrNilProvider is returned by an initializer that yields neither a
// provider nor an error.
var ErrNilProvider = errors.New("provider: initializer returned nil provider")

// ErrInitPanic wraps the value of a panicking initializer.
var ErrInitPanic = errors.New("provider: initializer panicked")

// Lazy defers creation of a provider until its first resolution. The
// initializer runs at most once. A failure is cached and every later call
// returns the same *types.ProviderInitError.
type Lazy struct {
	name  string
	init  func() (Provider, error)
	once  sync.Once
	state atomic.Value // types.ProviderState
	p     Provider
	err   error
}

var _ Provider = (*Lazy)(nil)

// NewLazy returns a lazy cell named name.
func NewLazy(name string, init func() (Provider, error)) *Lazy {
	l := &Lazy{name: name, init: init}
	l.state.Store(types.ProviderPending)
	return l
}

// Eager wraps an already constructed provider.
func Eager(p Provider) *Lazy {
	l := &Lazy{name: p.Name(), p: p}
	l.once.Do(func() {})
	l.state.Store(types.ProviderReady)
	return l
}

// Name returns the name given at construction. It never triggers
// initialization.
func (l *Lazy) Name() string {
	return l.name
}

// State reports the initialization state without triggering it.
func (l *Lazy) State() types.ProviderState {
	return l.state.Load().(types.ProviderState)
}

// Get returns the provider, initializing it on first use.
func (l *Lazy) Get() (Provider, error) {
	p, _, err := l.provide()
	return p, err
}

// provide also reports whether this call ran the initializer.
func (l *Lazy) provide() (Provider, bool, error) {
	fresh := false
	l.once.Do(func() {
		fresh = true
		p, err := l.run()
		if err == nil && p == nil {
			err = ErrNilProvider
		}
		if err != nil {
			l.err = &types.ProviderInitError{Provider: l.name, Err: err}
			l.state.Store(types.ProviderFailed)
			return
		}
		l.p = p
		l.state.Store(types.ProviderReady)
	})
	return l.p, fresh, l.err
}

// run calls the initializer, turning a panic into an error so the slot
// still ends up failed.
func (l *Lazy) run() (p Provider, err error) {
	defer func() {
		if v := recover(); v != nil {
			p, err = nil, fmt.Errorf("%w: %v", ErrInitPanic, v)
		}
	}()
	return l.init()
}

// Resolve initializes the provider if needed and delegates to it.
func (l *Lazy) Resolve(id algorithm.Identity) (any, error) {
	p, err := l.Get()
	if err != nil {
		return nil, err
	}
	return p.Resolve(id)
}

// Err returns the cached initialization error, if any, without
// triggering initialization.
func (l *Lazy) Err() error {
	if l.State() != types.ProviderFailed {
		return nil
	}
	return l.err
}
