package hwbuffer

import (
	"errors"
	"testing"
)

func TestViewCacheSharing(t *testing.T) {
	var destroyed []string
	c := NewViewCache[string, int](func(key string, _ int) {
		destroyed = append(destroyed, key)
	})

	created := 0
	create := func() (int, error) {
		created++
		return created, nil
	}

	a, _ := c.Acquire("a", create)
	a2, _ := c.Acquire("a", create)
	if a != a2 || created != 1 {
		t.Errorf("shared acquire: a=%d a2=%d created=%d", a, a2, created)
	}
	if c.RefCount("a") != 2 {
		t.Errorf("RefCount(a) = %d, want 2", c.RefCount("a"))
	}

	if c.Release("a") {
		t.Error("first Release reported destroy")
	}
	if !c.Release("a") {
		t.Error("last Release did not report destroy")
	}
	if len(destroyed) != 1 || destroyed[0] != "a" {
		t.Errorf("destroyed = %v, want [a]", destroyed)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestViewCacheCreateError(t *testing.T) {
	c := NewViewCache[int, int](nil)
	boom := errors.New("boom")
	if _, err := c.Acquire(1, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failed create, want 0", c.Len())
	}
}

func TestViewCacheReleaseUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Release of unknown key did not panic")
		}
	}()
	NewViewCache[int, int](nil).Release(7)
}

func TestViewCacheClear(t *testing.T) {
	n := 0
	c := NewViewCache[int, int](func(int, int) { n++ })
	_, _ = c.Acquire(1, func() (int, error) { return 1, nil })
	_, _ = c.Acquire(2, func() (int, error) { return 2, nil })
	c.Clear()
	if n != 2 || c.Len() != 0 {
		t.Errorf("after Clear: destroyed=%d Len=%d", n, c.Len())
	}
}
