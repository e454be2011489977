package query

import "fmt"

// TimerQuery measures the GPU time spent between Begin and End.
type TimerQuery struct {
	impl TimerImpl
	mgr  *Manager

	onTriggered func(timeMs float32)
	begun       bool
	active      bool
	queued      bool
	destroyed   bool
}

// Begin starts timing.
func (q *TimerQuery) Begin() error {
	if q.destroyed {
		return ErrQueryDestroyed
	}
	if err := q.impl.Begin(); err != nil {
		return fmt.Errorf("query: begin timer: %w", err)
	}
	q.begun = true
	return nil
}

// End stops timing and hands the query to the manager.
func (q *TimerQuery) End() error {
	if q.destroyed {
		return ErrQueryDestroyed
	}
	if !q.begun {
		return ErrNotBegun
	}
	if !q.queued {
		if err := q.mgr.reserve(); err != nil {
			return err
		}
	}
	if err := q.impl.End(); err != nil {
		if !q.queued {
			q.mgr.unreserve()
		}
		return fmt.Errorf("query: end timer: %w", err)
	}
	q.begun = false
	q.active = true
	if !q.queued {
		q.queued = true
		q.mgr.timers.add(q)
	}
	return nil
}

// IsReady reports whether TimeMs is valid.
func (q *TimerQuery) IsReady() bool {
	return !q.destroyed && q.impl.IsReady()
}

// IsActive reports whether the query has ended and its callback has not
// fired yet.
func (q *TimerQuery) IsActive() bool { return q.active }

// TimeMs returns the measured time. Undefined until IsReady.
func (q *TimerQuery) TimeMs() float32 { return q.impl.TimeMs() }

// OnTriggered replaces the completion callback. nil clears it.
func (q *TimerQuery) OnTriggered(fn func(timeMs float32)) { q.onTriggered = fn }

// Destroy releases the backend query.
func (q *TimerQuery) Destroy() {
	if q.destroyed {
		return
	}
	q.destroyed = true
	q.active = false
	q.onTriggered = nil
	q.impl.Destroy()
}

func (q *TimerQuery) poll() bool {
	if !q.active {
		q.queued = false
		return true
	}
	if !q.impl.IsReady() {
		return false
	}
	q.active = false
	q.queued = false
	q.mgr.fired.timers++
	if cb := q.onTriggered; cb != nil {
		cb(q.impl.TimeMs())
	}
	return true
}
