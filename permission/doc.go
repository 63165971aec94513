// Package permission provides the fixed capability registry, a 64-bit permission mask and
// the role manager that maps each role to its default capability set.
//
// # Capabilities
//
// Capabilities are registered once at startup and frozen. Bit positions are assigned by
// [Registry.Register] in registration order and are stable for the lifetime of the process.
// A user's permission set is stored by name and converted to a [Mask64] for checks.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import gatekeeper or jwt.
//   - Dynamically resize masks after registry construction.
package permission
