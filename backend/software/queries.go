package software

import (
	"time"

	"github.com/gogpu/ggcore/query"
)

type queryKind int

const (
	kindEvent queryKind = iota
	kindTimer
	kindOcclusion
)

// softQuery implements every backend query kind.
type softQuery struct {
	dev    *Device
	kind   queryKind
	binary bool

	// Guarded by dev.mu.
	ready     bool
	started   time.Time
	elapsed   time.Duration
	samples   uint32
	destroyed bool
}

// CreateEventQuery creates an event query.
func (d *Device) CreateEventQuery() (query.EventImpl, error) {
	return d.newQuery(kindEvent, false)
}

// CreateTimerQuery creates a wall-clock timer query.
func (d *Device) CreateTimerQuery() (query.TimerImpl, error) {
	return d.newQuery(kindTimer, false)
}

// CreateOcclusionQuery creates an occlusion query reporting the device's
// configured sample count.
func (d *Device) CreateOcclusionQuery(binary bool) (query.OcclusionImpl, error) {
	return d.newQuery(kindOcclusion, binary)
}

func (d *Device) newQuery(kind queryKind, binary bool) (*softQuery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkUsable(); err != nil {
		return nil, err
	}
	return &softQuery{dev: d, kind: kind, binary: binary}, nil
}

// Begin issues the query. Event queries are submitted here; timer and
// occlusion queries on End.
func (q *softQuery) Begin() error {
	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkUsable(); err != nil {
		return err
	}

	q.ready = false
	q.started = time.Now()
	if q.kind == kindEvent {
		q.submitLocked()
	}
	return nil
}

// End closes a timer or occlusion query.
func (q *softQuery) End() error {
	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkUsable(); err != nil {
		return err
	}

	q.elapsed = time.Since(q.started)
	q.samples = d.samples
	if q.binary && q.samples > 1 {
		q.samples = 1
	}
	q.submitLocked()
	return nil
}

func (q *softQuery) submitLocked() {
	if q.dev.autoComplete {
		q.ready = true
		return
	}
	q.dev.pending = append(q.dev.pending, q)
}

func (q *softQuery) complete() {
	q.dev.mu.Lock()
	defer q.dev.mu.Unlock()
	if !q.destroyed {
		q.ready = true
	}
}

func (q *softQuery) IsReady() bool {
	q.dev.mu.Lock()
	defer q.dev.mu.Unlock()
	return q.ready
}

func (q *softQuery) TimeMs() float32 {
	q.dev.mu.Lock()
	defer q.dev.mu.Unlock()
	return float32(q.elapsed.Seconds() * 1000)
}

func (q *softQuery) NumSamples() uint32 {
	q.dev.mu.Lock()
	defer q.dev.mu.Unlock()
	return q.samples
}

func (q *softQuery) Destroy() {
	q.dev.mu.Lock()
	defer q.dev.mu.Unlock()
	q.destroyed = true
	q.ready = false
}
