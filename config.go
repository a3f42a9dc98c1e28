package gymauth

import (
	"errors"
	"net/url"
	"strings"
)

// Config carries all engine tuning. Configure once, pass to
// [Builder.WithConfig], and treat as immutable afterwards; Build clones it.
type Config struct {
	SuperAdmin SuperAdminConfig
	Password   PasswordConfig
	Recovery   RecoveryConfig
	SignUp     SignUpConfig
	Gate       GateConfig
	Audit      AuditConfig
	Dispatch   DispatchConfig
	Metrics    MetricsConfig
}

/*
====================================
SUPER ADMIN CONFIG
====================================
*/

// SuperAdminConfig fixes the one identity that always resolves to
// superAdmin, independent of role-store state. Kept as configuration data
// rather than logic so deployments can swap it without a code change.
type SuperAdminConfig struct {
	// Email is matched case-insensitively. Empty disables the override.
	Email string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the client-side password policy mirrored from the
// provider's server-side checks.
type PasswordConfig struct {
	// MinLength applies to sign-up and reset passwords. Default 6.
	MinLength int
}

/*
====================================
RECOVERY CONFIG
====================================
*/

// RecoveryConfig drives the password-recovery deep-link flow.
type RecoveryConfig struct {
	// RedirectTarget is where reset emails deep-link back to. It should
	// carry the recovery marker, e.g. "https://site.example/auth?mode=recovery".
	RedirectTarget string
}

/*
====================================
SIGN UP CONFIG
====================================
*/

// SignUpConfig carries sign-up options forwarded to the provider.
type SignUpConfig struct {
	// RedirectTarget is where the confirmation email should land, typically
	// the site origin.
	RedirectTarget string
}

/*
====================================
GATE CONFIG
====================================
*/

// GateConfig configures the HTTP adaptation of the access gate.
type GateConfig struct {
	// SignInPath is where unauthenticated admin-route requests are sent.
	// Default "/auth".
	SignInPath string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the emitting path when the
	// buffer is full. Dropped events are counted.
	DropIfFull bool
}

/*
====================================
DISPATCH CONFIG
====================================
*/

// DispatchConfig controls the deferred-work queue that runs role
// classification outside provider event callbacks.
type DispatchConfig struct {
	// BufferSize bounds queued tasks. Default 16.
	BufferSize int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: audit enabled with a
// small non-blocking buffer, metrics enabled, policy minimum of 6.
func DefaultConfig() Config {
	return Config{
		Password: PasswordConfig{MinLength: 6},
		Gate:     GateConfig{SignInPath: "/auth"},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		Dispatch: DispatchConfig{BufferSize: 16},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Password.MinLength < 1 {
		return errors.New("Password.MinLength must be at least 1")
	}
	if c.SuperAdmin.Email != "" && !strings.Contains(c.SuperAdmin.Email, "@") {
		return errors.New("SuperAdmin.Email must be an email address")
	}
	if c.Recovery.RedirectTarget != "" {
		if _, err := url.Parse(c.Recovery.RedirectTarget); err != nil {
			return errors.New("Recovery.RedirectTarget must be a valid URL")
		}
	}
	if c.Gate.SignInPath == "" {
		return errors.New("Gate.SignInPath must not be empty")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 1 {
		return errors.New("Audit.BufferSize must be at least 1 when audit is enabled")
	}
	if c.Dispatch.BufferSize < 1 {
		return errors.New("Dispatch.BufferSize must be at least 1")
	}
	return nil
}

// cloneConfig keeps the engine isolated from later caller mutation. All
// fields are currently value types, so a shallow copy is a deep copy; kept
// as a function so reference fields added later have one place to handle.
func cloneConfig(c Config) Config {
	return c
}
