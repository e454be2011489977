package query

// Option configures a Manager during creation.
type Option func(*managerOptions)

type managerOptions struct {
	maxOutstanding int
}

// WithMaxOutstanding bounds the number of queries the manager tracks at
// once, across all kinds. 0 means unbounded.
func WithMaxOutstanding(n int) Option {
	return func(o *managerOptions) {
		if n >= 0 {
			o.maxOutstanding = n
		}
	}
}
