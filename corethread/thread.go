package corethread

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/ggcore/internal/logging"
)

// Thread errors.
var (
	// ErrThreadStopped is returned when queueing to a stopped core thread.
	ErrThreadStopped = errors.New("corethread: thread stopped")

	// ErrThreadNotStarted is returned when queueing before Start.
	ErrThreadNotStarted = errors.New("corethread: thread not started")
)

// ThreadStats contains core thread execution counters.
type ThreadStats struct {
	// Executed is the number of commands run, indexed by CommandKind.
	Executed [commandKindCount]uint64

	// Batches is the number of accessor batches run.
	Batches uint64
}

// Total returns the number of commands run across all kinds.
func (s ThreadStats) Total() uint64 {
	var n uint64
	for _, c := range s.Executed {
		n += c
	}
	return n
}

// String returns a human-readable string of thread stats.
func (s ThreadStats) String() string {
	return fmt.Sprintf("CoreThread[%d commands (init=%d destroy=%d sync=%d return=%d generic=%d), %d batches]",
		s.Total(),
		s.Executed[CommandInit],
		s.Executed[CommandDestroy],
		s.Executed[CommandSync],
		s.Executed[CommandReturn],
		s.Executed[CommandGeneric],
		s.Batches)
}

// Thread is the core thread: one goroutine, locked to its OS thread, that
// owns GPU device state and executes queued commands in order.
//
// Thread is safe for concurrent use. Commands themselves run only on the
// core goroutine.
type Thread struct {
	name string

	primary chan Command
	batches chan []Command
	quit    chan struct{}
	done    chan struct{}

	// mu guards the started/stopped transitions against in-flight sends.
	mu      sync.RWMutex
	started bool
	stopped bool

	executed [commandKindCount]atomic.Uint64
	batchCnt atomic.Uint64

	defaultAccessor *Accessor
}

// NewThread creates a core thread. Call Start before queueing work.
func NewThread(opts ...Option) *Thread {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	t := &Thread{
		name:    o.name,
		primary: make(chan Command, o.queueDepth),
		batches: make(chan []Command, o.queueDepth),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	t.defaultAccessor = t.NewAccessor("sim")
	return t
}

// Name returns the thread name.
func (t *Thread) Name() string { return t.name }

// Start launches the core goroutine. Calling Start twice is a no-op.
func (t *Thread) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return
	}
	t.started = true
	go t.run()

	logging.Logger().Info("corethread: started", "name", t.name)
}

// Stop drains every command queued so far and terminates the core
// goroutine. Stop blocks until the goroutine exits and must not be called
// from a command running on the core thread.
func (t *Thread) Stop() {
	t.mu.Lock()
	if !t.started || t.stopped {
		t.stopped = true
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	close(t.quit)
	<-t.done

	logging.Logger().Info("corethread: stopped", "name", t.name, "stats", t.Stats().String())
}

// IsRunning reports whether the core goroutine accepts commands.
func (t *Thread) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.started && !t.stopped
}

// DefaultAccessor returns the accessor of the simulation thread.
func (t *Thread) DefaultAccessor() *Accessor {
	return t.defaultAccessor
}

// NewAccessor creates an accessor for an additional producing goroutine.
func (t *Thread) NewAccessor(name string) *Accessor {
	return &Accessor{name: name, thread: t}
}

// QueuePrimary queues a command on the primary queue. It runs as soon as the
// core thread is free, ahead of any accessor command not yet started.
func (t *Thread) QueuePrimary(cmd Command) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.acceptingLocked(); err != nil {
		return err
	}
	t.primary <- cmd
	return nil
}

// QueuePrimaryReturn queues fn on the primary queue and returns an AsyncOp
// completed with its result.
func QueuePrimaryReturn[T any](t *Thread, label string, fn func() T) (*AsyncOp[T], error) {
	op := NewAsyncOp[T]()
	cmd := NewCommand(CommandReturn, label, func() { op.Complete(fn()) })
	if err := t.QueuePrimary(cmd); err != nil {
		return nil, err
	}
	return op, nil
}

// submitBatch hands an accessor batch to the core thread.
func (t *Thread) submitBatch(batch []Command) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.acceptingLocked(); err != nil {
		return err
	}
	t.batches <- batch
	return nil
}

// acceptingLocked reports why the thread cannot accept work. Caller must hold mu.
func (t *Thread) acceptingLocked() error {
	if t.stopped {
		return ErrThreadStopped
	}
	if !t.started {
		return ErrThreadNotStarted
	}
	return nil
}

// Stats returns a snapshot of execution counters.
func (t *Thread) Stats() ThreadStats {
	var s ThreadStats
	for i := range t.executed {
		s.Executed[i] = t.executed[i].Load()
	}
	s.Batches = t.batchCnt.Load()
	return s
}

// run is the core goroutine loop.
func (t *Thread) run() {
	// Device APIs commonly require all calls from one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	for {
		t.drainPrimary()

		select {
		case cmd := <-t.primary:
			t.execute(cmd)
		case batch := <-t.batches:
			t.executeBatch(batch)
		case <-t.quit:
			t.drainAll()
			return
		}
	}
}

// drainPrimary runs every command currently in the primary queue.
func (t *Thread) drainPrimary() {
	for {
		select {
		case cmd := <-t.primary:
			t.execute(cmd)
		default:
			return
		}
	}
}

// drainAll runs everything queued before Stop.
func (t *Thread) drainAll() {
	for {
		t.drainPrimary()
		select {
		case batch := <-t.batches:
			t.executeBatch(batch)
		default:
			return
		}
	}
}

func (t *Thread) executeBatch(batch []Command) {
	for _, cmd := range batch {
		t.drainPrimary()
		t.execute(cmd)
	}
	t.batchCnt.Add(1)
}

func (t *Thread) execute(cmd Command) {
	cmd.Run()
	if cmd.Kind < commandKindCount {
		t.executed[cmd.Kind].Add(1)
	}
}
