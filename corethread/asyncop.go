package corethread

import (
	"context"
	"sync"
)

// AsyncOp is a single-shot future for a value computed on the core thread.
//
// The zero value is not usable; create one with NewAsyncOp. An AsyncOp is
// completed exactly once; later Complete calls are ignored.
type AsyncOp[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
}

// NewAsyncOp creates an incomplete AsyncOp.
func NewAsyncOp[T any]() *AsyncOp[T] {
	return &AsyncOp[T]{done: make(chan struct{})}
}

// Complete stores the value and releases every waiter.
func (op *AsyncOp[T]) Complete(value T) {
	op.once.Do(func() {
		op.value = value
		close(op.done)
	})
}

// HasCompleted reports whether the value is available. It never blocks.
func (op *AsyncOp[T]) HasCompleted() bool {
	select {
	case <-op.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the operation completes.
func (op *AsyncOp[T]) Done() <-chan struct{} {
	return op.done
}

// BlockUntilComplete waits for completion.
//
// Must not be called from the core thread for an operation that the core
// thread itself has yet to run: that deadlocks.
func (op *AsyncOp[T]) BlockUntilComplete() {
	<-op.done
}

// Wait blocks until the operation completes or ctx is done.
func (op *AsyncOp[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-op.done:
		return op.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ReturnValue returns the computed value. It panics if the operation has not
// completed yet; check HasCompleted or block first.
func (op *AsyncOp[T]) ReturnValue() T {
	if !op.HasCompleted() {
		panic("corethread: AsyncOp value requested before completion")
	}
	return op.value
}
