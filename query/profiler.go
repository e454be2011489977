package query

import (
	"fmt"
)

// DefaultMaxReports is the default number of completed reports a
// GPUProfiler keeps before dropping the oldest.
const DefaultMaxReports = 10

// Sample is one measured region of a frame.
type Sample struct {
	Name string

	// TimeMs is the GPU time spent inside the region.
	TimeMs float32

	// NumSamples is the number of samples rendered inside the region,
	// 0 when sample counting is disabled.
	NumSamples uint32

	Children []Sample
}

// Report is the resolved measurement of one frame.
type Report struct {
	Frame Sample
}

// ProfilerOption configures a GPUProfiler.
type ProfilerOption func(*profilerOptions)

type profilerOptions struct {
	maxReports   int
	countSamples bool
}

// WithMaxReports bounds the report queue. Values <= 0 keep the default.
func WithMaxReports(n int) ProfilerOption {
	return func(o *profilerOptions) {
		if n > 0 {
			o.maxReports = n
		}
	}
}

// WithSampleCounting enables or disables the occlusion query issued per
// region. Backends without occlusion support need it disabled.
func WithSampleCounting(enabled bool) ProfilerOption {
	return func(o *profilerOptions) {
		o.countSamples = enabled
	}
}

type activeSample struct {
	name     string
	timer    *TimerQuery
	occl     *OcclusionQuery
	children []*activeSample
}

// GPUProfiler measures nested regions of a frame with timer and occlusion
// queries. Frames resolve asynchronously; completed frames are queued as
// Reports. Core-thread only.
type GPUProfiler struct {
	mgr  *Manager
	opts profilerOptions

	frame *activeSample
	stack []*activeSample

	pending []*activeSample
	reports []Report

	freeTimers []*TimerQuery
	freeOccl   []*OcclusionQuery
}

// NewGPUProfiler creates a profiler whose queries are tracked by mgr.
func NewGPUProfiler(mgr *Manager, opts ...ProfilerOption) *GPUProfiler {
	o := profilerOptions{maxReports: DefaultMaxReports, countSamples: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &GPUProfiler{mgr: mgr, opts: o}
}

// BeginFrame starts measuring a frame.
func (p *GPUProfiler) BeginFrame() error {
	if p.frame != nil {
		return fmt.Errorf("%w: BeginFrame called twice", ErrInvalidState)
	}
	s, err := p.begin("frame")
	if err != nil {
		return err
	}
	p.frame = s
	p.stack = append(p.stack[:0], s)
	return nil
}

// EndFrame finishes the frame. Every sample must already be ended.
func (p *GPUProfiler) EndFrame() error {
	if p.frame == nil {
		return fmt.Errorf("%w: EndFrame without BeginFrame", ErrInvalidState)
	}
	if len(p.stack) != 1 {
		return fmt.Errorf("%w: sample %q not ended", ErrInvalidState, p.stack[len(p.stack)-1].name)
	}
	if err := p.end(p.frame); err != nil {
		return err
	}
	p.pending = append(p.pending, p.frame)
	p.frame = nil
	p.stack = p.stack[:0]
	p.resolve()
	return nil
}

// BeginSample starts a named region nested in the current one.
func (p *GPUProfiler) BeginSample(name string) error {
	if p.frame == nil {
		return fmt.Errorf("%w: BeginSample %q outside a frame", ErrInvalidState, name)
	}
	s, err := p.begin(name)
	if err != nil {
		return err
	}
	parent := p.stack[len(p.stack)-1]
	parent.children = append(parent.children, s)
	p.stack = append(p.stack, s)
	return nil
}

// EndSample ends the innermost region, which must be named name.
func (p *GPUProfiler) EndSample(name string) error {
	if len(p.stack) < 2 {
		return fmt.Errorf("%w: EndSample %q without BeginSample", ErrInvalidState, name)
	}
	top := p.stack[len(p.stack)-1]
	if top.name != name {
		return fmt.Errorf("%w: EndSample %q, innermost sample is %q", ErrInvalidState, name, top.name)
	}
	if err := p.end(top); err != nil {
		return err
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

// HasReports reports whether a resolved frame is available.
func (p *GPUProfiler) HasReports() bool {
	p.resolve()
	return len(p.reports) > 0
}

// NextReport removes and returns the oldest resolved frame. Returns
// ErrInvalidState when none is available.
func (p *GPUProfiler) NextReport() (Report, error) {
	p.resolve()
	if len(p.reports) == 0 {
		return Report{}, fmt.Errorf("%w: no reports available", ErrInvalidState)
	}
	r := p.reports[0]
	p.reports[0] = Report{}
	p.reports = p.reports[1:]
	return r, nil
}

// Pending returns the number of ended frames still awaiting the GPU.
func (p *GPUProfiler) Pending() int { return len(p.pending) }

func (p *GPUProfiler) begin(name string) (*activeSample, error) {
	s := &activeSample{name: name}
	t, err := p.timer()
	if err != nil {
		return nil, err
	}
	s.timer = t
	if err := t.Begin(); err != nil {
		p.freeTimers = append(p.freeTimers, t)
		return nil, err
	}
	if p.opts.countSamples {
		o, err := p.occlusion()
		if err != nil {
			p.freeTimers = append(p.freeTimers, t)
			return nil, err
		}
		s.occl = o
		if err := o.Begin(); err != nil {
			p.freeOccl = append(p.freeOccl, o)
			return nil, err
		}
	}
	return s, nil
}

func (p *GPUProfiler) end(s *activeSample) error {
	if s.occl != nil {
		if err := s.occl.End(); err != nil {
			return err
		}
	}
	return s.timer.End()
}

func (p *GPUProfiler) timer() (*TimerQuery, error) {
	if n := len(p.freeTimers); n > 0 {
		t := p.freeTimers[n-1]
		p.freeTimers = p.freeTimers[:n-1]
		return t, nil
	}
	return p.mgr.NewTimerQuery()
}

func (p *GPUProfiler) occlusion() (*OcclusionQuery, error) {
	if n := len(p.freeOccl); n > 0 {
		o := p.freeOccl[n-1]
		p.freeOccl = p.freeOccl[:n-1]
		return o, nil
	}
	return p.mgr.NewOcclusionQuery(false)
}

// resolve turns ready frames, oldest first, into reports.
func (p *GPUProfiler) resolve() {
	for len(p.pending) > 0 && ready(p.pending[0]) {
		frame := p.pending[0]
		p.pending[0] = nil
		p.pending = p.pending[1:]

		p.reports = append(p.reports, Report{Frame: p.collect(frame)})
		if over := len(p.reports) - p.opts.maxReports; over > 0 {
			p.reports = append(p.reports[:0], p.reports[over:]...)
		}
	}
}

func ready(s *activeSample) bool {
	if !s.timer.IsReady() {
		return false
	}
	if s.occl != nil && !s.occl.IsReady() {
		return false
	}
	for _, c := range s.children {
		if !ready(c) {
			return false
		}
	}
	return true
}

// collect reads the results of s and returns its queries to the free lists.
func (p *GPUProfiler) collect(s *activeSample) Sample {
	out := Sample{Name: s.name, TimeMs: s.timer.TimeMs()}
	p.freeTimers = append(p.freeTimers, s.timer)
	if s.occl != nil {
		out.NumSamples = s.occl.NumSamples()
		p.freeOccl = append(p.freeOccl, s.occl)
	}
	if len(s.children) > 0 {
		out.Children = make([]Sample, len(s.children))
		for i, c := range s.children {
			out.Children[i] = p.collect(c)
		}
	}
	return out
}
