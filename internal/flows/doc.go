// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunAuthenticate, RunRefresh, etc.) accepts a typed
// dependency struct of function fields and returns results without side-effects
// beyond those dependencies. The Engine wires the dependencies once at build time.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user store, JWT manager, revocation store,
// audit dispatcher, and metrics. They do NOT own any of these resources; ownership
// stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import gatekeeper (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
