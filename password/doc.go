// Package password implements secret hashing and verification with Argon2id defaults and
// bcrypt compatibility for imported records.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The [Hasher] supports transparent parameter upgrades: if the stored hash was
// produced with weaker parameters, [Hasher.NeedsRehash] returns true so the caller
// can re-hash on the next successful login. Legacy bcrypt digests always need a rehash.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum length)
// is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other gatekeeper package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
