// Package revocation stores blacklist entries for logged-out access tokens and the
// allow-list of live refresh tokens, both on the shared Redis counter store.
//
// # Key layout
//
//	<prefix>:bl:<sha256(token)>  blacklisted access token, TTL ≥ remaining validity
//	<prefix>:rt:<jti>            live refresh token, value is the subject
//
// Blacklist keys hash the raw token so the store never holds a usable credential.
//
// # What this package must NOT do
//
//   - Verify token signatures (callers pass already-verified identifiers).
//   - Be imported outside the gatekeeper module.
package revocation
