package rate

import "errors"

var (
	// ErrRateLimited reports a request over its class ceiling.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports a counter store failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrUnknownClass reports a class with no configured policy.
	ErrUnknownClass = errors.New("unknown endpoint class")
)
