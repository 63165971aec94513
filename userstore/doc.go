// Package userstore provides gatekeeper.UserProvider implementations: an in-memory store for
// tests and single-process deployments, and a PostgreSQL store on a pgx pool with goose
// migrations embedded in the binary.
package userstore
