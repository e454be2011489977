package corethread

// DefaultQueueDepth is the default capacity of the primary queue and of the
// submitted-batch queue.
const DefaultQueueDepth = 256

// Option configures a Thread during creation.
type Option func(*threadOptions)

// threadOptions holds optional configuration for Thread creation.
type threadOptions struct {
	name       string
	queueDepth int
}

// defaultOptions returns the default thread options.
func defaultOptions() threadOptions {
	return threadOptions{
		name:       "core",
		queueDepth: DefaultQueueDepth,
	}
}

// WithQueueDepth sets the channel capacity of the primary queue and of the
// batch queue. Producers block when the core thread falls this far behind.
// Values <= 0 keep the default.
func WithQueueDepth(n int) Option {
	return func(o *threadOptions) {
		if n > 0 {
			o.queueDepth = n
		}
	}
}

// WithName sets the thread name used in log output.
func WithName(name string) Option {
	return func(o *threadOptions) {
		if name != "" {
			o.name = name
		}
	}
}
