// Package rate implements endpoint-class request limiting on Redis counters.
//
// # Window semantics
//
// Fixed windows aligned to the Unix epoch. Each request runs one atomic script:
// INCR the window key, and PEXPIRE it on the first hit so the key disappears at the
// window boundary. Key layout:
//
//	rl:<class>:<client-address>:<window-start-ms>
//
// # Backend failures
//
// When Redis cannot be reached, [Limiter.Allow] returns [ErrRedisUnavailable] together with
// a decision whose Allowed field follows Config.FailOpen. The caller logs the event.
//
// # What this package must NOT do
//
//   - Decide HTTP semantics (status codes, headers).
//   - Be imported outside the gatekeeper module.
package rate
