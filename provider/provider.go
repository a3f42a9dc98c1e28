// Package provider defines the identity-provider boundary consumed by the
// gymauth engine. A conforming implementation is the sole authority for
// session issuance: the engine never creates, persists, or mutates sessions
// on its own, it only mirrors what the provider reports.
//
// Implementations live in sub-packages (httpapi for a GoTrue-style REST
// backend, providertest for a scripted in-memory fake).
package provider

import (
	"context"
	"strings"
	"time"
)

// Identity is the read-only copy of a provider-issued identity. The Email
// field may be empty when the provider did not return one.
type Identity struct {
	ID    string
	Email string
}

// EmailEquals reports whether the identity email matches other, ignoring
// case. Empty emails never match.
func (i Identity) EmailEquals(other string) bool {
	if i.Email == "" || other == "" {
		return false
	}
	return strings.EqualFold(i.Email, other)
}

// Session is a provider-issued proof of authentication. RawToken is opaque
// to the engine; only the provider interprets it.
type Session struct {
	Identity  Identity
	RawToken  string
	ExpiresAt time.Time
}

// EventType identifies a session-change push event.
type EventType uint8

const (
	// EventSignedIn is emitted after any operation that establishes a session.
	EventSignedIn EventType = iota
	// EventSignedOut is emitted after the current session is terminated.
	EventSignedOut
	// EventTokenRefreshed is emitted when the provider rotates the session token.
	EventTokenRefreshed
	// EventUserUpdated is emitted when identity attributes change (e.g. password update).
	EventUserUpdated
	// EventPasswordRecovery is emitted while the provider is processing a
	// password-recovery deep link. Consumers must treat it as "a recovery
	// session is active" even if the page already rendered.
	EventPasswordRecovery
)

// String implements fmt.Stringer for audit payloads.
func (t EventType) String() string {
	switch t {
	case EventSignedIn:
		return "SIGNED_IN"
	case EventSignedOut:
		return "SIGNED_OUT"
	case EventTokenRefreshed:
		return "TOKEN_REFRESHED"
	case EventUserUpdated:
		return "USER_UPDATED"
	case EventPasswordRecovery:
		return "PASSWORD_RECOVERY"
	default:
		return "UNKNOWN"
	}
}

// Event is a push notification from the provider. Session is nil when no
// session remains active after the event.
type Event struct {
	Type    EventType
	Session *Session
}

// SignUpOptions carries optional sign-up parameters.
type SignUpOptions struct {
	// RedirectTarget is where the confirmation email should send the user.
	RedirectTarget string
	// DisplayName is stored as identity metadata by the provider.
	DisplayName string
}

// ResetOptions carries optional password-reset-email parameters.
type ResetOptions struct {
	// RedirectTarget is where the reset email deep link should land. It is
	// expected to carry the recovery marker so the landing page can enter
	// reset mode.
	RedirectTarget string
}

// Client is the capability interface every identity-provider backend must
// implement. All methods are safe for concurrent use. Event delivery is
// serialized: a subscriber callback is never invoked re-entrantly.
type Client interface {
	// CurrentSession returns the active session or nil when none exists.
	CurrentSession(ctx context.Context) (*Session, error)

	// Subscribe registers fn for session-change events and returns an
	// unsubscribe function. Unsubscribing more than once is harmless.
	Subscribe(fn func(Event)) (unsubscribe func())

	// SignInWithPassword establishes a session from credentials.
	SignInWithPassword(ctx context.Context, email, password string) error

	// SignUp registers a new identity. Depending on provider policy it may
	// or may not establish a session immediately.
	SignUp(ctx context.Context, email, password string, opts SignUpOptions) error

	// SignOut terminates the current session. Best-effort: providers expire
	// tokens on their own schedule regardless.
	SignOut(ctx context.Context) error

	// SendPasswordResetEmail asks the provider to issue a recovery deep link.
	SendPasswordResetEmail(ctx context.Context, email string, opts ResetOptions) error

	// UpdatePassword changes the current identity's password. Requires an
	// active session (typically the recovery session).
	UpdatePassword(ctx context.Context, newPassword string) error

	// ExchangeAuthorizationCode redeems a one-time deep-link code for a
	// session. Codes are single-use; a second exchange must fail.
	ExchangeAuthorizationCode(ctx context.Context, code string) error
}
