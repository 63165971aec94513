// Package middleware adapts a gatekeeper.Engine to net/http.
//
// # Chain
//
//   - [RateLimit] charges the client address against an endpoint class.
//   - [RefreshExchange] mints a New-Access-Token response header from a Refresh-Token request header.
//   - [Authenticate] resolves the bearer token to a live identity.
//   - [RequireRole], [RequirePermission], [RequireOwnership] authorize the attached identity.
//
// Stages run in the order given to [Chain]. Every rejection is written with [WriteError],
// which produces the same JSON shape for every error kind.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse tokens or
// touch Redis; all decisions are delegated to the Engine.
package middleware
