// Package gatekeeper authenticates and authorizes HTTP callers: credential checks against a
// user store, signed access and refresh tokens, logout blacklisting, and endpoint-class rate
// limiting on a shared Redis counter store.
//
// Engine methods are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// gatekeeper is the public surface. It exposes [Engine], [Builder], [Config], the error
// taxonomy ([KindOf], [ErrorKind]) and value types ([Identity], [LoginResult],
// [RateDecision]). Flow orchestration, counter store keys, and audit dispatch live under
// internal/ and are never exported. HTTP wiring lives in the middleware and api packages.
//
// # What this package must NOT do
//
//   - Trust role or permission claims embedded in a token. Every authenticated request
//     resolves the live user record.
//   - Log secrets or raw tokens. Tokens are logged only as fingerprints.
//   - Import any sub-package that re-imports gatekeeper (no import cycles).
//
// # Failure policy
//
// Rate limiting fails open when Redis is unreachable (logged at WARN, counted in
// [MetricRateLimitFailOpen]). Blacklist checks fail closed: a token whose revocation state
// cannot be read is rejected.
package gatekeeper
