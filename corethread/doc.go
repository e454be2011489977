// Package corethread runs GPU work on a single dedicated goroutine, the
// "core thread", and provides the ordered queues other goroutines use to
// reach it.
//
// # Queues
//
// There are two kinds of queues feeding the core thread:
//
//   - The primary queue, used for object lifecycle (initialization). It is
//     drained as soon as the core thread is free, before and between accessor
//     commands.
//   - Accessors, one per producing goroutine. An accessor collects commands
//     locally and hands them over as one batch on Submit. Commands from the
//     same accessor always execute in the order they were queued, and
//     batches execute in the order they were submitted.
//
// The second guarantee is what makes it safe to destroy a resource "after
// the pending draws": queue the destroy through the same accessor that
// queued the draws.
//
// # Results
//
// A command that produces a value returns it through an [AsyncOp], a
// single-shot future the caller may poll or block on:
//
//	op := corethread.QueueReturn(acc, "read-size", func() uint64 {
//	    return buf.Size()
//	})
//	acc.Submit()
//	size, err := op.Wait(ctx)
//
// # Failures
//
// The queue guarantees ordering and lifetime only. A panic or error inside
// a command belongs to that command; nothing here recovers, translates or
// retries it.
package corethread
