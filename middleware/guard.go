package middleware

import (
	"context"
	"net/http"

	gymauth "github.com/jivrajjp2751-code/gym-wala-db1963db"
)

type sessionStateContextKey struct{}

// SessionStateFromContext extracts the snapshot Guard stored for an
// admitted request.
func SessionStateFromContext(ctx context.Context) (gymauth.SessionState, bool) {
	state, ok := ctx.Value(sessionStateContextKey{}).(gymauth.SessionState)
	return state, ok
}

// SignOutHintHeader is set on denied responses so the UI can offer the
// sign-out action alongside the denial.
const SignOutHintHeader = "X-Auth-Offer-Sign-Out"

// Guard protects administrative routes with the access gate. Unauthenticated
// visitors are redirected to the engine's configured sign-in path.
func Guard(engine *gymauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			state := engine.Snapshot()
			switch gymauth.Evaluate(state, engine.Config().SuperAdmin.Email) {
			case gymauth.DecisionPending:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session pending", http.StatusServiceUnavailable)

			case gymauth.DecisionSignIn:
				http.Redirect(w, r, engine.Config().Gate.SignInPath, http.StatusFound)

			case gymauth.DecisionDenied:
				w.Header().Set(SignOutHintHeader, "true")
				http.Error(w, "access denied", http.StatusForbidden)

			case gymauth.DecisionAdmit:
				ctx := context.WithValue(r.Context(), sessionStateContextKey{}, state)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}
