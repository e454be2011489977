package corethread

import "sync"

// Accessor collects commands from one producing goroutine and submits them
// to the core thread as ordered batches.
//
// Commands queued through the same accessor run in queue order; batches run
// in submission order. Accessor is safe for concurrent use, but ordering is
// only meaningful from a single producer.
type Accessor struct {
	name   string
	thread *Thread

	mu      sync.Mutex
	pending []Command
}

// Name returns the accessor name.
func (a *Accessor) Name() string { return a.name }

// Thread returns the core thread this accessor submits to.
func (a *Accessor) Thread() *Thread { return a.thread }

// Queue appends a generic command to the pending batch.
func (a *Accessor) Queue(label string, fn func()) {
	a.QueueCommand(NewCommand(CommandGeneric, label, fn))
}

// QueueCommand appends cmd to the pending batch.
func (a *Accessor) QueueCommand(cmd Command) {
	a.mu.Lock()
	a.pending = append(a.pending, cmd)
	a.mu.Unlock()
}

// QueueReturn appends fn to the accessor's pending batch and returns an
// AsyncOp completed with its result once the batch has executed.
func QueueReturn[T any](a *Accessor, label string, fn func() T) *AsyncOp[T] {
	op := NewAsyncOp[T]()
	a.QueueCommand(NewCommand(CommandReturn, label, func() { op.Complete(fn()) }))
	return op
}

// Pending returns the number of commands queued but not yet submitted.
func (a *Accessor) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Submit hands the pending batch to the core thread without waiting for it
// to execute. Submitting an empty batch is a no-op.
func (a *Accessor) Submit() error {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return a.thread.submitBatch(batch)
}

// SubmitAndWait submits the pending batch and blocks until every command in
// it has executed. Must not be called from the core thread.
func (a *Accessor) SubmitAndWait() error {
	op := NewAsyncOp[struct{}]()
	a.QueueCommand(NewCommand(CommandGeneric, "accessor-fence", func() { op.Complete(struct{}{}) }))
	if err := a.Submit(); err != nil {
		return err
	}
	op.BlockUntilComplete()
	return nil
}
