package gymauth

// AccessDecision is the gate's verdict for the administrative area.
type AccessDecision uint8

const (
	// DecisionPending means the session fetch has not resolved; render a
	// neutral state, decide nothing.
	DecisionPending AccessDecision = iota
	// DecisionSignIn means no identity is present; send the visitor to the
	// sign-in entry point.
	DecisionSignIn
	// DecisionDenied means an identity is present without admin rights;
	// render an explicit denial and offer sign-out.
	DecisionDenied
	// DecisionAdmit grants entry.
	DecisionAdmit
)

// String implements fmt.Stringer.
func (d AccessDecision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionSignIn:
		return "signIn"
	case DecisionDenied:
		return "denied"
	case DecisionAdmit:
		return "admit"
	default:
		return "unknown"
	}
}

// Evaluate is the access gate: a pure function of the session state and the
// super-admin allowlist. It holds no state of its own; callers re-evaluate
// on every input change.
func Evaluate(state SessionState, superAdminEmail string) AccessDecision {
	if state.Loading {
		return DecisionPending
	}
	switch Privilege(state, superAdminEmail) {
	case PrivilegeAnonymous:
		return DecisionSignIn
	case PrivilegeAdmin, PrivilegeSuperAdmin:
		return DecisionAdmit
	default:
		return DecisionDenied
	}
}

// Decide evaluates the gate against the engine's current state.
func (e *Engine) Decide() AccessDecision {
	return Evaluate(e.Snapshot(), e.cfg.SuperAdmin.Email)
}

// Privilege derives the current privilege level.
func (e *Engine) Privilege() PrivilegeLevel {
	return Privilege(e.Snapshot(), e.cfg.SuperAdmin.Email)
}
