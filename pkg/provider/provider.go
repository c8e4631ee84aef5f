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
	"fmt"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// Provider is a named resolver from algorithm identities to capability
// instances.
//
// Resolve returns nil, nil when the provider does not implement id. It
// must be a pure function of id: repeated calls return equivalent
// instances. Resolve never blocks on I/O; engines that need a connection
// establish it in their lazy initializer.
type Provider interface {
	Name() string
	Resolve(id algorithm.Identity) (any, error)
}

// Get resolves id against p and returns the typed capability. It fails
// with *types.AlgorithmNotFoundError when p does not implement id.
func Get[C any](p Provider, id *algorithm.ID[C]) (C, error) {
	c, ok, err := Find(p, id)
	if err != nil {
		return c, err
	}
	if !ok {
		return c, &types.AlgorithmNotFoundError{Algorithm: id.Name()}
	}
	return c, nil
}

// Find resolves id against p. It reports false, without an error, when p
// does not implement id.
func Find[C any](p Provider, id *algorithm.ID[C]) (C, bool, error) {
	var zero C
	v, err := p.Resolve(id)
	if err != nil {
		return zero, false, err
	}
	if v == nil {
		return zero, false, nil
	}
	c, err := capability[C](p.Name(), id, v)
	if err != nil {
		return zero, false, err
	}
	return c, true, nil
}

func capability[C any](provider string, id algorithm.Identity, v any) (C, error) {
	c, ok := v.(C)
	if !ok {
		var zero C
		return zero, fmt.Errorf("%w: %s resolved %s to %T", types.ErrCapabilityMismatch, provider, id.Name(), v)
	}
	return c, nil
}

// Func adapts a function to the Provider interface.
type Func struct {
	name    string
	resolve func(id algorithm.Identity) (any, error)
}

var _ Provider = (*Func)(nil)

// NewFunc returns a Provider named name that resolves with fn.
func NewFunc(name string, fn func(id algorithm.Identity) (any, error)) *Func {
	return &Func{name: name, resolve: fn}
}

// Name returns the provider name.
func (f *Func) Name() string {
	return f.name
}

// Resolve calls the wrapped function.
func (f *Func) Resolve(id algorithm.Identity) (any, error) {
	return f.resolve(id)
}
