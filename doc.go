// Package gymauth keeps a browser-facing application's view of "who is the
// current user and what may they do" consistent with an external identity
// provider, and classifies that user for the administrative area.
//
// The package is organized around a small set of cooperating parts:
//
//   - [Engine] mirrors the provider's session through a one-shot fetch plus
//     a push subscription, and is the single writer of the shared state.
//   - Role classification resolves an identity to admin/not-admin with a
//     fail-closed store lookup and a configuration-fixed super-admin
//     override that survives a completely unreachable role store.
//   - [FlowController] drives the login/signup/forgot/reset form state
//     machine, including password-recovery deep links and one-time
//     authorization-code exchange.
//   - [Evaluate] is the stateless access gate consumed directly or through
//     the middleware package.
//   - [Engine.HandleUnload] enforces the opt-in remember-me contract at
//     browsing-session end.
//
// # Architecture boundaries
//
// gymauth never owns sessions: the identity provider (see the provider
// package) is the sole authority, and every push event replaces the local
// view wholesale. Role records live behind the rolestore interface; the
// remember flag behind flagstore. No failure of those backends escalates
// past "least privilege" or a retryable form error.
//
// # Concurrency
//
// Engine methods are safe for concurrent use after [Builder.Build]. Side
// effects triggered inside provider callbacks (role classification,
// super-admin sync) run on a deferred-work queue, one task at a time, so
// callbacks stay non-blocking and state mutation is never re-entrant.
package gymauth
