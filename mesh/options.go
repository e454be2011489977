package mesh

// DefaultGrowPercent is the factor heap buffers grow by when an allocation
// does not fit.
const DefaultGrowPercent = 1.5

// Option configures a Heap during creation.
type Option func(*heapOptions)

// heapOptions holds optional configuration for Heap creation.
type heapOptions struct {
	label           string
	growPercent     float64
	maxEventQueries int
}

// defaultOptions returns the default heap options.
func defaultOptions() heapOptions {
	return heapOptions{
		label:       "mesh-heap",
		growPercent: DefaultGrowPercent,
	}
}

// WithGrowPercent sets the growth factor. Values <= 1 keep the default.
func WithGrowPercent(p float64) Option {
	return func(o *heapOptions) {
		if p > 1 {
			o.growPercent = p
		}
	}
}

// WithMaxEventQueries bounds the number of event queries the heap keeps,
// which bounds the number of live meshes. 0 means unbounded.
func WithMaxEventQueries(n int) Option {
	return func(o *heapOptions) {
		if n >= 0 {
			o.maxEventQueries = n
		}
	}
}

// WithLabel sets the label used for buffers and log output.
func WithLabel(label string) Option {
	return func(o *heapOptions) {
		if label != "" {
			o.label = label
		}
	}
}
