package query

import "fmt"

// EventQuery signals when the GPU has finished every command issued before
// Begin.
type EventQuery struct {
	impl EventImpl
	mgr  *Manager

	onTriggered func()
	active      bool
	queued      bool
	destroyed   bool
}

// Begin issues the query. Re-issuing an active query restarts it; the
// callback still fires once.
func (q *EventQuery) Begin() error {
	if q.destroyed {
		return ErrQueryDestroyed
	}
	if !q.queued {
		if err := q.mgr.reserve(); err != nil {
			return err
		}
	}
	if err := q.impl.Begin(); err != nil {
		if !q.queued {
			q.mgr.unreserve()
		}
		return fmt.Errorf("query: begin event: %w", err)
	}
	q.active = true
	if !q.queued {
		q.queued = true
		q.mgr.events.add(q)
	}
	return nil
}

// IsReady reports whether the GPU has passed the query point.
func (q *EventQuery) IsReady() bool {
	return !q.destroyed && q.impl.IsReady()
}

// IsActive reports whether the query was begun and its callback has not
// fired yet.
func (q *EventQuery) IsActive() bool { return q.active }

// OnTriggered replaces the completion callback. nil clears it.
func (q *EventQuery) OnTriggered(fn func()) { q.onTriggered = fn }

// Destroy releases the backend query. A pending callback never fires.
func (q *EventQuery) Destroy() {
	if q.destroyed {
		return
	}
	q.destroyed = true
	q.active = false
	q.onTriggered = nil
	q.impl.Destroy()
}

// poll implements pollable.
func (q *EventQuery) poll() bool {
	if !q.active {
		q.queued = false
		return true
	}
	if !q.impl.IsReady() {
		return false
	}
	q.active = false
	q.queued = false
	q.mgr.fired.events++
	if cb := q.onTriggered; cb != nil {
		cb()
	}
	return true
}
