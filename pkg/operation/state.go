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

package operation

import (
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// State is the lifecycle state of a streaming function.
type State int32

const (
	// StateCreated is the state of a new or reset function.
	StateCreated State = iota

	// StateUpdating is entered by the first successful update.
	StateUpdating

	// StateCompleted is entered by the single successful complete.
	StateCompleted

	// StateClosed is terminal. Only Close is accepted.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateUpdating:
		return "updating"
	case StateCompleted:
		return "completed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Resetter is implemented by cores whose engine can restart a session
// without allocating a new one.
type Resetter interface {
	Reset() error
}

// releaser is the part of every core the lifecycle needs.
type releaser interface {
	Release() error
}

// function is the state machine shared by every streaming function. It is
// not safe for concurrent use.
type function struct {
	exec  Executor
	state State
	core  releaser
}

// State returns the current lifecycle state.
func (f *function) State() State {
	return f.state
}

func (f *function) invalid(op string) error {
	return &types.FunctionStateError{Op: op, State: f.state.String()}
}

// beginUpdate checks that an update is legal.
func (f *function) beginUpdate(op string) error {
	switch f.state {
	case StateCreated, StateUpdating:
		return nil
	default:
		return f.invalid(op)
	}
}

// beginComplete checks that complete is legal.
func (f *function) beginComplete(op string) error {
	return f.beginUpdate(op)
}

// Reset returns the function to StateCreated. It is only legal when the
// engine supports restarting a session.
func (f *function) Reset() error {
	if f.state == StateClosed {
		return f.invalid("reset")
	}
	r, ok := f.core.(Resetter)
	if !ok {
		return &types.FunctionStateError{
			Op:     "reset",
			State:  f.state.String(),
			Reason: "engine does not support reset",
		}
	}
	if err := r.Reset(); err != nil {
		return err
	}
	f.state = StateCreated
	return nil
}

// Resettable reports whether Reset is supported.
func (f *function) Resettable() bool {
	_, ok := f.core.(Resetter)
	return ok
}

// Close releases the engine session. It is idempotent and legal in every
// state.
func (f *function) Close() error {
	if f.state == StateClosed {
		return nil
	}
	f.state = StateClosed
	return f.core.Release()
}
