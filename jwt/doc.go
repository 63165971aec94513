// Package jwt issues and verifies the signed bearer tokens used by gatekeeper.
//
// Two token kinds share one signing configuration: short-lived access tokens carrying
// subject and role, and longer-lived refresh tokens carrying subject and expiry only.
// Verification checks signature, algorithm, issuer/audience and expiry; it never consults
// a user store. Failures are classified as [ErrMalformed], [ErrExpired] or
// [ErrSignatureInvalid] so callers can decide between a silent refresh and a forced re-login.
package jwt
