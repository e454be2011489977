package query

import (
	"fmt"
	"slices"

	"github.com/gogpu/ggcore/internal/logging"
)

// pollable is a query tracked by the manager. poll reports whether the
// query is finished and must leave the outstanding list.
type pollable interface {
	poll() bool
}

// pingPong holds the outstanding queries of one kind. Update walks one list
// while survivors and newly begun queries go to the other, so callbacks may
// begin queries without disturbing the walk.
type pingPong[T pollable] struct {
	lists [2][]T
	cur   int
}

func (p *pingPong[T]) add(q T) {
	p.lists[p.cur] = append(p.lists[p.cur], q)
}

func (p *pingPong[T]) len() int {
	return len(p.lists[p.cur])
}

// update polls every query once and returns how many finished.
func (p *pingPong[T]) update() int {
	walk := p.lists[p.cur]
	p.cur ^= 1
	p.lists[p.cur] = p.lists[p.cur][:0]

	finished := 0
	for _, q := range walk {
		if q.poll() {
			finished++
			continue
		}
		p.lists[p.cur] = append(p.lists[p.cur], q)
	}

	clear(walk)
	p.lists[p.cur^1] = walk[:0]
	return finished
}

// Stats contains query manager counters.
type Stats struct {
	// Outstanding is the number of queries awaiting completion, per kind.
	OutstandingEvents    int
	OutstandingTimers    int
	OutstandingOcclusion int

	// Fired counts callbacks delivered, per kind.
	FiredEvents    uint64
	FiredTimers    uint64
	FiredOcclusion uint64
}

// Outstanding returns the number of outstanding queries of all kinds.
func (s Stats) Outstanding() int {
	return s.OutstandingEvents + s.OutstandingTimers + s.OutstandingOcclusion
}

// String returns a human-readable string of query stats.
func (s Stats) String() string {
	return fmt.Sprintf("Queries[outstanding event=%d timer=%d occlusion=%d, fired event=%d timer=%d occlusion=%d]",
		s.OutstandingEvents, s.OutstandingTimers, s.OutstandingOcclusion,
		s.FiredEvents, s.FiredTimers, s.FiredOcclusion)
}

// Manager creates queries from a backend Factory and delivers their
// completion callbacks. Core-thread only.
type Manager struct {
	factory        Factory
	maxOutstanding int

	events    pingPong[*EventQuery]
	timers    pingPong[*TimerQuery]
	occlusion pingPong[*OcclusionQuery]

	// reserved counts queries handed to the lists, including those begun
	// during the current Update.
	reserved int

	fired struct {
		events, timers, occlusion uint64
	}

	hooks []*updateHook
}

type updateHook struct {
	fn func()
}

// NewManager creates a query manager over factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	if factory == nil {
		panic("query: nil factory")
	}
	var o managerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		factory:        factory,
		maxOutstanding: o.maxOutstanding,
	}
}

// MaxOutstanding returns the configured bound, 0 if unbounded.
func (m *Manager) MaxOutstanding() int { return m.maxOutstanding }

// NewEventQuery creates an event query.
func (m *Manager) NewEventQuery() (*EventQuery, error) {
	impl, err := m.factory.CreateEventQuery()
	if err != nil {
		return nil, fmt.Errorf("query: create event query: %w", err)
	}
	return &EventQuery{impl: impl, mgr: m}, nil
}

// NewTimerQuery creates a timer query.
func (m *Manager) NewTimerQuery() (*TimerQuery, error) {
	impl, err := m.factory.CreateTimerQuery()
	if err != nil {
		return nil, fmt.Errorf("query: create timer query: %w", err)
	}
	return &TimerQuery{impl: impl, mgr: m}, nil
}

// NewOcclusionQuery creates an occlusion query. A binary query only reports
// whether any sample passed.
func (m *Manager) NewOcclusionQuery(binary bool) (*OcclusionQuery, error) {
	impl, err := m.factory.CreateOcclusionQuery(binary)
	if err != nil {
		return nil, fmt.Errorf("query: create occlusion query: %w", err)
	}
	return &OcclusionQuery{impl: impl, mgr: m, binary: binary}, nil
}

// Update polls every outstanding query and fires the callback of each ready
// one exactly once. Call once per core frame.
func (m *Manager) Update() {
	n := m.events.update()
	n += m.timers.update()
	n += m.occlusion.update()
	m.reserved -= n
	if n > 0 {
		logging.Logger().Debug("query: update", "finished", n, "outstanding", m.reserved)
	}

	live := m.hooks[:0]
	for _, h := range m.hooks {
		if h.fn != nil {
			live = append(live, h)
		}
	}
	clear(m.hooks[len(live):])
	m.hooks = live
	for _, h := range slices.Clone(live) {
		if h.fn != nil {
			h.fn()
		}
	}
}

// OnUpdate registers fn to run at the end of every Update, once finished
// queries have released their slots. The returned func unregisters it.
func (m *Manager) OnUpdate(fn func()) (remove func()) {
	h := &updateHook{fn: fn}
	m.hooks = append(m.hooks, h)
	return func() { h.fn = nil }
}

// Stats returns current query counters.
func (m *Manager) Stats() Stats {
	return Stats{
		OutstandingEvents:    m.events.len(),
		OutstandingTimers:    m.timers.len(),
		OutstandingOcclusion: m.occlusion.len(),
		FiredEvents:          m.fired.events,
		FiredTimers:          m.fired.timers,
		FiredOcclusion:       m.fired.occlusion,
	}
}

func (m *Manager) reserve() error {
	if m.maxOutstanding > 0 && m.reserved >= m.maxOutstanding {
		return fmt.Errorf("%w (%d)", ErrQueryLimit, m.maxOutstanding)
	}
	m.reserved++
	return nil
}

func (m *Manager) unreserve() {
	m.reserved--
}
