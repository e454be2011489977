package corethread

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func startThread(t *testing.T, opts ...Option) *Thread {
	t.Helper()
	th := NewThread(opts...)
	th.Start()
	t.Cleanup(th.Stop)
	return th
}

// recorder collects labels in execution order. Only the core thread appends,
// the test reads after a fence.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.order = append(r.order, s)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func equalOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestAccessorPreservesQueueOrder(t *testing.T) {
	th := startThread(t)
	acc := th.DefaultAccessor()
	rec := &recorder{}

	for _, label := range []string{"a", "b", "c"} {
		acc.Queue(label, func() { rec.add(label) })
	}
	if acc.Pending() != 3 {
		t.Errorf("Pending = %d, want 3", acc.Pending())
	}
	if err := acc.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	acc.Queue("d", func() { rec.add("d") })
	if err := acc.SubmitAndWait(); err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}

	equalOrder(t, rec.get(), []string{"a", "b", "c", "d"})
	if acc.Pending() != 0 {
		t.Errorf("Pending after submit = %d, want 0", acc.Pending())
	}
}

func TestDestroyRunsAfterEarlierAccessorCommands(t *testing.T) {
	th := startThread(t)
	acc := th.DefaultAccessor()
	rec := &recorder{}

	acc.Queue("draw", func() { rec.add("draw") })
	acc.QueueCommand(NewCommand(CommandDestroy, "destroy", func() { rec.add("destroy") }))
	if err := acc.SubmitAndWait(); err != nil {
		t.Fatal(err)
	}

	equalOrder(t, rec.get(), []string{"draw", "destroy"})
	if got := th.Stats().Executed[CommandDestroy]; got != 1 {
		t.Errorf("destroy count = %d, want 1", got)
	}
}

func TestPrimaryQueueRunsBetweenAccessorCommands(t *testing.T) {
	th := startThread(t)
	acc := th.DefaultAccessor()
	rec := &recorder{}

	started := make(chan struct{})
	release := make(chan struct{})

	acc.Queue("first", func() {
		close(started)
		<-release
		rec.add("first")
	})
	acc.Queue("second", func() { rec.add("second") })
	if err := acc.Submit(); err != nil {
		t.Fatal(err)
	}

	<-started
	if err := th.QueuePrimary(NewCommand(CommandInit, "init", func() { rec.add("init") })); err != nil {
		t.Fatal(err)
	}
	close(release)

	if err := acc.SubmitAndWait(); err != nil {
		t.Fatal(err)
	}
	equalOrder(t, rec.get(), []string{"first", "init", "second"})
}

func TestQueueReturn(t *testing.T) {
	th := startThread(t)
	acc := th.NewAccessor("worker")

	op := QueueReturn(acc, "answer", func() int { return 42 })
	if op.HasCompleted() {
		t.Fatal("op completed before submit")
	}
	if err := acc.Submit(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := op.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != 42 {
		t.Errorf("value = %d, want 42", v)
	}
	if op.ReturnValue() != 42 {
		t.Errorf("ReturnValue = %d, want 42", op.ReturnValue())
	}
}

func TestQueuePrimaryReturn(t *testing.T) {
	th := startThread(t)

	op, err := QueuePrimaryReturn(th, "name", func() string { return "core" })
	if err != nil {
		t.Fatal(err)
	}
	op.BlockUntilComplete()
	if got := op.ReturnValue(); got != "core" {
		t.Errorf("ReturnValue = %q, want %q", got, "core")
	}
}

func TestStopDrainsQueuedWork(t *testing.T) {
	th := NewThread(WithName("drain"), WithQueueDepth(4))
	th.Start()
	acc := th.DefaultAccessor()

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 3; i++ {
		acc.Queue("work", func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	if err := acc.Submit(); err != nil {
		t.Fatal(err)
	}
	th.Stop()

	if ran != 3 {
		t.Errorf("ran = %d, want 3", ran)
	}
	if th.IsRunning() {
		t.Error("IsRunning = true after Stop")
	}
}

func TestQueueAfterStop(t *testing.T) {
	th := NewThread()
	if err := th.QueuePrimary(NewCommand(CommandGeneric, "x", func() {})); !errors.Is(err, ErrThreadNotStarted) {
		t.Errorf("QueuePrimary before start = %v, want ErrThreadNotStarted", err)
	}

	th.Start()
	th.Stop()
	th.Stop() // idempotent

	if err := th.QueuePrimary(NewCommand(CommandGeneric, "x", func() {})); !errors.Is(err, ErrThreadStopped) {
		t.Errorf("QueuePrimary after stop = %v, want ErrThreadStopped", err)
	}
	acc := th.DefaultAccessor()
	acc.Queue("x", func() {})
	if err := acc.Submit(); !errors.Is(err, ErrThreadStopped) {
		t.Errorf("Submit after stop = %v, want ErrThreadStopped", err)
	}
}

func TestEmptySubmitIsNoop(t *testing.T) {
	th := startThread(t)
	if err := th.DefaultAccessor().Submit(); err != nil {
		t.Fatal(err)
	}
	if got := th.Stats().Batches; got != 0 {
		t.Errorf("Batches = %d, want 0", got)
	}
}

func TestCommandKindString(t *testing.T) {
	tests := []struct {
		kind CommandKind
		want string
	}{
		{CommandGeneric, "Generic"},
		{CommandInit, "Init"},
		{CommandDestroy, "Destroy"},
		{CommandSync, "Sync"},
		{CommandReturn, "Return"},
		{CommandKind(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("CommandKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestNewCommandNilRunPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewCommand with nil Run did not panic")
		}
	}()
	NewCommand(CommandGeneric, "nil", nil)
}
