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
	"context"
	"errors"
	"sync"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// ErrExecutorClosed is returned when work is dispatched to a closed executor.
var ErrExecutorClosed = errors.New("operation: executor closed")

// Mode describes the calling convention an engine supports natively.
type Mode int

const (
	// ModeSynchronous engines complete every call on the calling goroutine.
	// Both the blocking and the context forms run inline.
	ModeSynchronous Mode = iota

	// ModeAsynchronous engines complete calls only through Dispatch. The
	// blocking form fails with types.ErrBlockingNotSupported.
	ModeAsynchronous
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSynchronous:
		return "synchronous"
	case ModeAsynchronous:
		return "asynchronous"
	default:
		return "unknown"
	}
}

// Executor is the execution context an operation body runs against. Every
// capability derives its blocking and its context form from one body and
// the executor of the engine that created it.
type Executor interface {
	// Mode reports the engine's native calling convention.
	Mode() Mode

	// Dispatch schedules task. It returns ctx.Err() without scheduling if
	// ctx is done before the task is accepted.
	Dispatch(ctx context.Context, task func()) error
}

// Synchronous is the executor of engines that are plain function calls.
var Synchronous Executor = synchronousExecutor{}

type synchronousExecutor struct{}

func (synchronousExecutor) Mode() Mode {
	return ModeSynchronous
}

func (synchronousExecutor) Dispatch(ctx context.Context, task func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	task()
	return nil
}

// AsyncExecutor is a fixed pool of goroutines draining a task queue. It is
// the event loop of engines that only expose asynchronous APIs.
type AsyncExecutor struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ Executor = (*AsyncExecutor)(nil)

// NewAsyncExecutor starts an executor with the given number of workers.
// A non-positive count starts one worker.
func NewAsyncExecutor(workers int) *AsyncExecutor {
	if workers <= 0 {
		workers = 1
	}
	e := &AsyncExecutor{
		tasks: make(chan func(), workers*4),
	}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.run()
	}
	return e
}

func (e *AsyncExecutor) run() {
	defer e.wg.Done()
	for task := range e.tasks {
		task()
	}
}

// Mode always returns ModeAsynchronous.
func (e *AsyncExecutor) Mode() Mode {
	return ModeAsynchronous
}

// Dispatch queues task, waiting for queue space or ctx.
func (e *AsyncExecutor) Dispatch(ctx context.Context, task func()) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrExecutorClosed
	}
	select {
	case e.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for queued tasks to finish.
func (e *AsyncExecutor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

type result[T any] struct {
	value T
	err   error
}

// Call is the blocking form of op. It runs op inline on synchronous
// executors and fails fast with types.ErrBlockingNotSupported otherwise.
func Call[T any](exec Executor, op func(ctx context.Context) (T, error)) (T, error) {
	if exec.Mode() != ModeSynchronous {
		var zero T
		return zero, types.ErrBlockingNotSupported
	}
	return op(context.Background())
}

// CallContext is the suspending form of op. Synchronous executors run op
// inline without yielding. Asynchronous executors dispatch op and wait for
// its result or for ctx to be done, whichever comes first.
func CallContext[T any](ctx context.Context, exec Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if exec.Mode() == ModeSynchronous {
		return op(ctx)
	}

	done := make(chan result[T], 1)
	if err := exec.Dispatch(ctx, func() {
		v, err := op(ctx)
		done <- result[T]{value: v, err: err}
	}); err != nil {
		return zero, err
	}

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// CallAtomic is the suspending form for operations that mutate state or
// acquire resources. Cancellation is observed only before op starts. Once
// started, op runs to completion on a context that is never cancelled and
// its result is always returned, so the caller never sees a half-applied
// mutation or loses a resource it now owns.
func CallAtomic[T any](ctx context.Context, exec Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	detached := context.WithoutCancel(ctx)
	if exec.Mode() == ModeSynchronous {
		return op(detached)
	}

	done := make(chan result[T], 1)
	if err := exec.Dispatch(ctx, func() {
		v, err := op(detached)
		done <- result[T]{value: v, err: err}
	}); err != nil {
		return zero, err
	}
	r := <-done
	return r.value, r.err
}

// none adapts an error-only body to the generic bridge.
func none(op func(ctx context.Context) error) func(ctx context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}
}
