package client

import "errors"

var (
	// ErrUnavailable reports a server that could not be reached or answered 5xx.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized reports a 401 from the server. The session is no longer valid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoSession reports an empty or partial stored session.
	ErrNoSession = errors.New("no stored session")
	// ErrNotAuthenticated is returned by operations that need a live session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrTornDown is returned after Teardown.
	ErrTornDown = errors.New("session manager torn down")
)
