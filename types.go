package gymauth

import (
	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider"
)

// PrivilegeLevel classifies the current identity for the administrative
// area. It is always derived — computed from the session state, the role
// record, and the super-admin allowlist — and never stored.
type PrivilegeLevel uint8

const (
	// PrivilegeAnonymous means no identity is present.
	PrivilegeAnonymous PrivilegeLevel = iota
	// PrivilegeAuthenticated means an identity is present without admin rights.
	PrivilegeAuthenticated
	// PrivilegeAdmin means the role store granted admin.
	PrivilegeAdmin
	// PrivilegeSuperAdmin means the identity matches the configured
	// super-admin email; it holds regardless of role-store state.
	PrivilegeSuperAdmin
)

// String implements fmt.Stringer.
func (p PrivilegeLevel) String() string {
	switch p {
	case PrivilegeAnonymous:
		return "anonymous"
	case PrivilegeAuthenticated:
		return "authenticated"
	case PrivilegeAdmin:
		return "admin"
	case PrivilegeSuperAdmin:
		return "superAdmin"
	default:
		return "unknown"
	}
}

// SessionState is a point-in-time snapshot of the engine's shared state.
// Identity and Session are nil while no provider session is active. Admin
// reflects the most recent role classification for the current identity and
// is false while classification is still pending.
type SessionState struct {
	Identity *provider.Identity
	Session  *provider.Session
	Loading  bool
	Admin    bool
}

// Privilege derives the privilege level from state and the configured
// super-admin email. Pure: no I/O, no stored result.
func Privilege(state SessionState, superAdminEmail string) PrivilegeLevel {
	if state.Identity == nil {
		return PrivilegeAnonymous
	}
	if state.Identity.EmailEquals(superAdminEmail) {
		return PrivilegeSuperAdmin
	}
	if state.Admin {
		return PrivilegeAdmin
	}
	return PrivilegeAuthenticated
}
