// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ggcore/backend"
	"github.com/gogpu/ggcore/query"
)

// gpuQuery is an event or timer query backed by a queue submission. It is
// ready once the queue reports its latest submission index completed, so a
// re-issued query tracks only its newest submission.
type gpuQuery struct {
	owner  *Device
	device hal.Device
	queue  hal.Queue
	timer  bool

	mu        sync.Mutex
	index     uint64
	started   time.Time
	elapsed   time.Duration
	ready     bool
	destroyed bool
}

// CreateEventQuery creates an event query.
func (d *Device) CreateEventQuery() (query.EventImpl, error) {
	q, err := d.newQuery(false)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// CreateTimerQuery creates a timer query.
func (d *Device) CreateTimerQuery() (query.TimerImpl, error) {
	q, err := d.newQuery(true)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// SupportsOcclusion reports false: submission indices cannot count samples.
func (d *Device) SupportsOcclusion() bool { return false }

// CreateOcclusionQuery is not supported by this device.
func (d *Device) CreateOcclusionQuery(bool) (query.OcclusionImpl, error) {
	return nil, fmt.Errorf("%w: wgpu: occlusion queries", backend.ErrUnsupported)
}

func (d *Device) newQuery(timer bool) (*gpuQuery, error) {
	device, queue, err := d.halObjects()
	if err != nil {
		return nil, err
	}
	q := &gpuQuery{owner: d, device: device, queue: queue, timer: timer}

	d.mu.Lock()
	live := d.queries[:0]
	for _, old := range d.queries {
		if !old.isDestroyed() {
			live = append(live, old)
		}
	}
	clear(d.queries[len(live):])
	d.queries = append(live, q)
	d.mu.Unlock()
	return q, nil
}

// Begin issues an event query, or starts the clock of a timer query.
func (q *gpuQuery) Begin() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return query.ErrQueryDestroyed
	}
	q.ready = false
	q.started = time.Now()
	if q.timer {
		q.index = 0
		return nil
	}
	return q.submitLocked()
}

// End issues a timer query.
func (q *gpuQuery) End() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return query.ErrQueryDestroyed
	}
	return q.submitLocked()
}

// submitLocked submits a marker and makes it the query's latest
// submission. An earlier submission still in flight is left to the device.
func (q *gpuQuery) submitLocked() error {
	index, err := q.owner.submitEmpty(q.device, q.queue, "query")
	if err != nil {
		return err
	}
	q.index = index
	return nil
}

// IsReady polls the queue without blocking.
func (q *gpuQuery) IsReady() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready || q.destroyed || q.index == 0 {
		return q.ready
	}
	if q.owner.retire(q.device, q.queue, false) < q.index {
		return false
	}
	q.elapsed = time.Since(q.started)
	q.ready = true
	return true
}

// TimeMs returns the measured time in milliseconds.
func (q *gpuQuery) TimeMs() float32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return float32(q.elapsed.Seconds() * 1000)
}

// Destroy releases the query. Its submissions stay with the device until
// they complete.
func (q *gpuQuery) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.destroyed = true
	q.ready = false
}

func (q *gpuQuery) isDestroyed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.destroyed
}
