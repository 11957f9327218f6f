// Package errs defines the shared error taxonomy: a small set of
// sentinel kinds, a wrapping Error type carrying operation context and a
// correlation ID, and helpers for retrying transient failures and
// tripping a circuit breaker around unreliable collaborators.
package errs
