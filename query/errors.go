package query

import "errors"

// Query errors.
var (
	// ErrQueryLimit is returned by Begin when the manager already tracks
	// its configured maximum of outstanding queries.
	ErrQueryLimit = errors.New("query: outstanding query limit reached")

	// ErrQueryDestroyed is returned when operating on a destroyed query.
	ErrQueryDestroyed = errors.New("query: query has been destroyed")

	// ErrNotBegun is returned by End when Begin was not called.
	ErrNotBegun = errors.New("query: End called without Begin")

	// ErrInvalidState is returned when an operation's state precondition,
	// such as a non-empty report queue, does not hold.
	ErrInvalidState = errors.New("query: invalid state")
)
