// Package client keeps a gatekeeper session alive on the caller's side.
//
// # Overview
//
// [Manager] owns the session. It seeds itself from a [SessionStore] on [Manager.Boot],
// re-validates against the server, polls for a fresh identity on a configurable interval,
// and logs the user out after a period without activity. A warning state precedes the
// forced logout so views can offer to stay signed in.
//
// States move as follows:
//
//	Unauthenticated --Login/Boot ok--> Authenticated --WarningAfter idle--> WarningPending
//	WarningPending  --OnActivity-----> Authenticated
//	any             --Logout/LogoutAfter idle--> LoggingOut --> Unauthenticated
//
// [HTTPFetcher] talks to the gatekeeper HTTP API. It sends the refresh token with every
// identity fetch and persists any New-Access-Token the server returns.
//
// # Error Handling
//
// Sentinel errors are matched with errors.Is: ErrUnauthorized, ErrUnavailable,
// ErrNoSession, ErrNotAuthenticated.
//
// # Concurrency
//
// Manager is safe for concurrent use. Timer callbacks and polls run on their own
// goroutines; results that arrive after Logout or Teardown are discarded.
package client
