package query

// EventImpl is a backend event query: it becomes ready once the GPU has
// processed every command issued before Begin.
type EventImpl interface {
	Begin() error
	IsReady() bool
	Destroy()
}

// TimerImpl is a backend timer query measuring GPU time between Begin and End.
type TimerImpl interface {
	Begin() error
	End() error
	IsReady() bool
	// TimeMs returns the elapsed GPU time in milliseconds.
	TimeMs() float32
	Destroy()
}

// OcclusionImpl is a backend occlusion query counting samples that passed
// depth and stencil tests between Begin and End.
type OcclusionImpl interface {
	Begin() error
	End() error
	IsReady() bool
	// NumSamples returns the sample count, or 0/1 in binary mode.
	NumSamples() uint32
	Destroy()
}

// Factory creates backend queries. Implemented by every render backend.
type Factory interface {
	CreateEventQuery() (EventImpl, error)
	CreateTimerQuery() (TimerImpl, error)
	CreateOcclusionQuery(binary bool) (OcclusionImpl, error)
}
