package query

import "fmt"

// OcclusionQuery counts the samples that passed depth and stencil tests
// between Begin and End. A binary query only reports 0 or 1 and may
// complete sooner.
type OcclusionQuery struct {
	impl   OcclusionImpl
	mgr    *Manager
	binary bool

	onComplete func(samples uint32)
	begun      bool
	active     bool
	queued     bool
	destroyed  bool
}

// IsBinary reports whether the query only distinguishes zero from non-zero.
func (q *OcclusionQuery) IsBinary() bool { return q.binary }

// Begin starts counting.
func (q *OcclusionQuery) Begin() error {
	if q.destroyed {
		return ErrQueryDestroyed
	}
	if err := q.impl.Begin(); err != nil {
		return fmt.Errorf("query: begin occlusion: %w", err)
	}
	q.begun = true
	return nil
}

// End stops counting and hands the query to the manager.
func (q *OcclusionQuery) End() error {
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
		return fmt.Errorf("query: end occlusion: %w", err)
	}
	q.begun = false
	q.active = true
	if !q.queued {
		q.queued = true
		q.mgr.occlusion.add(q)
	}
	return nil
}

// IsReady reports whether NumSamples is valid.
func (q *OcclusionQuery) IsReady() bool {
	return !q.destroyed && q.impl.IsReady()
}

// IsActive reports whether the query has ended and its callback has not
// fired yet.
func (q *OcclusionQuery) IsActive() bool { return q.active }

// NumSamples returns the sample count (0/1 for binary queries). Undefined
// until IsReady.
func (q *OcclusionQuery) NumSamples() uint32 {
	n := q.impl.NumSamples()
	if q.binary && n > 1 {
		n = 1
	}
	return n
}

// OnComplete replaces the completion callback. nil clears it.
func (q *OcclusionQuery) OnComplete(fn func(samples uint32)) { q.onComplete = fn }

// Destroy releases the backend query.
func (q *OcclusionQuery) Destroy() {
	if q.destroyed {
		return
	}
	q.destroyed = true
	q.active = false
	q.onComplete = nil
	q.impl.Destroy()
}

func (q *OcclusionQuery) poll() bool {
	if !q.active {
		q.queued = false
		return true
	}
	if !q.impl.IsReady() {
		return false
	}
	q.active = false
	q.queued = false
	q.mgr.fired.occlusion++
	if cb := q.onComplete; cb != nil {
		cb(q.NumSamples())
	}
	return true
}
