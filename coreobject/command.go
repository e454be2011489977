package coreobject

import "github.com/gogpu/ggcore/corethread"

// QueueGpuCommand queues fn through acc. The command holds core until it has
// run, so the core cannot be released underneath it. Pass a nil core for
// commands not tied to a particular object.
func QueueGpuCommand[C Core](acc *corethread.Accessor, core C, label string, fn func(C)) {
	acc.QueueCommand(corethread.NewCommand(corethread.CommandGeneric, label, func() {
		fn(core)
	}))
}

// QueueReturnGpuCommand is QueueGpuCommand for commands producing a value.
// The returned AsyncOp completes after the command has run on the core
// thread.
func QueueReturnGpuCommand[C Core, T any](acc *corethread.Accessor, core C, label string, fn func(C) T) *corethread.AsyncOp[T] {
	return corethread.QueueReturn(acc, label, func() T {
		return fn(core)
	})
}
