// Package middleware adapts the gymauth access gate to net/http.
//
// [Guard] re-evaluates the gate on every request and maps each decision to
// an HTTP response: pending → 503 with Retry-After, no identity → redirect
// to the sign-in entry point, denied → 403 with a sign-out hint, admit →
// next handler with the session state in the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into gate evaluations. It does NOT
// implement authorization logic itself — all decisions come from
// gymauth.Evaluate over the engine's snapshot.
package middleware
