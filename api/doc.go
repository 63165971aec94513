// Package api mounts the gatekeeper HTTP surface on a chi router.
//
//	POST /auth/register   201 user projection, 400 on invalid input or duplicate identifier
//	POST /auth/login      200 tokens and user projection, 401 with one generic message
//	POST /auth/refresh    200 new access token
//	POST /auth/logout     200 always
//	GET  /auth/me         live user projection
//	GET  /auth/authorize  {"allowed": bool} for ?permission=
//	GET  /healthz         counter store reachability
//	GET  /metrics         exporter supplied by the host
//
// Authentication routes are charged to the auth rate-limit class and everything else to
// the general class. Protected routes accept a Refresh-Token header and answer with
// New-Access-Token when the exchange succeeds.
package api
