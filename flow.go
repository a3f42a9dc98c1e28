package gymauth

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider"
)

// FlowState is the auth form currently presented.
type FlowState uint8

const (
	// FlowLogin is the initial state.
	FlowLogin FlowState = iota
	// FlowSignup presents the registration form.
	FlowSignup
	// FlowForgotPassword presents the reset-email request form.
	FlowForgotPassword
	// FlowResetPassword presents the new-password form. Once entered it can
	// only be left by completing the reset.
	FlowResetPassword
)

// String implements fmt.Stringer.
func (s FlowState) String() string {
	switch s {
	case FlowLogin:
		return "login"
	case FlowSignup:
		return "signup"
	case FlowForgotPassword:
		return "forgotPassword"
	case FlowResetPassword:
		return "resetPassword"
	default:
		return "unknown"
	}
}

// History abstracts the browser history surface the flow needs: replacing
// the visible URL without adding a history entry, so stripped one-time
// parameters cannot be replayed by reload or back-navigation.
type History interface {
	Replace(rawURL string)
}

// NopHistory discards replacements (non-browser hosts).
type NopHistory struct{}

// Replace implements History.
func (NopHistory) Replace(string) {}

const (
	recoveryMarkerValue = "recovery"
	codeParam           = "code"
)

// recovery marker parameter names checked in both the query and the
// fragment; providers are inconsistent about where they attach the marker.
var recoveryMarkerParams = []string{"type", "mode"}

// FlowController drives one page lifetime of the auth forms. Two
// independent triggers lead into FlowResetPassword — the entry URL carrying
// a recovery marker, and the provider's asynchronous recovery push event —
// and they are idempotent and commutative, so arrival order cannot leave
// the UI on a generic login form while a recovery session is active.
//
// A controller is single-page-lifetime: Mount once, Unmount when done.
type FlowController struct {
	engine  *Engine
	history History

	mu      sync.Mutex
	state   FlowState
	formErr error
	notice  string
	entry   *url.URL
	mounted bool
	unsub   func()
}

// NewFlow returns an unmounted controller in the login state.
func (e *Engine) NewFlow(history History) *FlowController {
	if history == nil {
		history = NopHistory{}
	}
	return &FlowController{
		engine:  e,
		history: history,
		state:   FlowLogin,
	}
}

// Mount processes the entry URL and arms the provider-event trigger.
//
// The URL work happens once: a one-time authorization code is exchanged and
// then stripped from the visible URL whether or not the exchange succeeded,
// so a reload cannot replay it. An exchange failure becomes a form-level
// error; it does not block entry into FlowResetPassword when a recovery
// marker is also present.
func (f *FlowController) Mount(ctx context.Context, entryURL string) error {
	if f.engine.closed.Load() {
		return ErrEngineClosed
	}

	f.mu.Lock()
	if f.mounted {
		f.mu.Unlock()
		return ErrAlreadyInitialized
	}
	f.mounted = true
	f.mu.Unlock()

	// Armed before the URL work so a recovery event landing while we are
	// still exchanging the code is not lost.
	f.unsub = f.engine.provider.Subscribe(func(ev provider.Event) {
		if ev.Type == provider.EventPasswordRecovery {
			f.enterReset()
		}
	})

	entry, err := url.Parse(entryURL)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.entry = entry
	f.mu.Unlock()

	marker := hasRecoveryMarker(entry)

	if code := entry.Query().Get(codeParam); code != "" {
		f.engine.metrics.Inc(MetricCodeExchanges)
		exchangeErr := f.engine.provider.ExchangeAuthorizationCode(ctx, code)
		f.stripParams(codeParam)
		f.engine.emitAudit(ctx, AuditEvent{
			EventType: AuditCodeExchanged,
			Success:   exchangeErr == nil,
			Error:     errString(exchangeErr),
		})
		if exchangeErr != nil {
			f.setFormError(exchangeErr)
		}
	}

	if marker {
		f.enterReset()
	}
	return nil
}

// Unmount releases the provider subscription. Safe to call repeatedly.
func (f *FlowController) Unmount() {
	if f.unsub != nil {
		f.unsub()
	}
}

// State returns the current form state.
func (f *FlowController) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// FormError returns the retryable error to render on the current form, if any.
func (f *FlowController) FormError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.formErr
}

// Notice returns the success message to render, if any.
func (f *FlowController) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// ChooseLogin navigates to the login form. Navigation cannot leave
// FlowResetPassword.
func (f *FlowController) ChooseLogin() error { return f.navigate(FlowLogin) }

// ChooseSignup navigates to the registration form.
func (f *FlowController) ChooseSignup() error { return f.navigate(FlowSignup) }

// ChooseForgot navigates to the reset-email request form.
func (f *FlowController) ChooseForgot() error { return f.navigate(FlowForgotPassword) }

func (f *FlowController) navigate(target FlowState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == FlowResetPassword {
		return ErrFlowState
	}
	f.state = target
	f.formErr = nil
	f.notice = ""
	return nil
}

// SubmitLogin signs in with credentials and the remember-me choice. On
// failure the state is unchanged and the provider's error is kept for the
// form, so the user can retry in place.
func (f *FlowController) SubmitLogin(ctx context.Context, email, password string, remember bool) error {
	if err := f.requireState(FlowLogin); err != nil {
		return err
	}
	if err := f.engine.SignIn(ctx, email, password, remember); err != nil {
		f.setFormError(err)
		return err
	}
	f.clearMessages()
	return nil
}

// SubmitSignUp registers an account and, on success, returns to the login
// form with a confirmation notice.
func (f *FlowController) SubmitSignUp(ctx context.Context, email, password, displayName string) error {
	if err := f.requireState(FlowSignup); err != nil {
		return err
	}
	if err := f.engine.SignUp(ctx, email, password, strings.TrimSpace(displayName)); err != nil {
		f.setFormError(err)
		return err
	}

	f.mu.Lock()
	f.state = FlowLogin
	f.formErr = nil
	f.notice = "Account created successfully. You can now sign in."
	f.mu.Unlock()
	return nil
}

// SubmitForgot asks the provider to send a recovery deep link pointing at
// the configured redirect target.
func (f *FlowController) SubmitForgot(ctx context.Context, email string) error {
	if err := f.requireState(FlowForgotPassword); err != nil {
		return err
	}
	err := f.engine.provider.SendPasswordResetEmail(ctx, email, provider.ResetOptions{
		RedirectTarget: f.engine.cfg.Recovery.RedirectTarget,
	})
	if err != nil {
		f.setFormError(err)
		return err
	}

	f.mu.Lock()
	f.formErr = nil
	f.notice = "Password reset link sent. Check your email."
	f.mu.Unlock()
	return nil
}

// SubmitReset validates and applies the new password. Completion is the
// only exit from FlowResetPassword: the recovery session is terminated, the
// recovery marker stripped from the URL so a reload cannot re-enter reset
// mode, and the flow returns to login.
func (f *FlowController) SubmitReset(ctx context.Context, newPassword, confirm string) error {
	if err := f.requireState(FlowResetPassword); err != nil {
		return err
	}
	if len(newPassword) < f.engine.cfg.Password.MinLength {
		f.setFormError(ErrPasswordPolicy)
		return ErrPasswordPolicy
	}
	if newPassword != confirm {
		f.setFormError(ErrPasswordMismatch)
		return ErrPasswordMismatch
	}

	if err := f.engine.provider.UpdatePassword(ctx, newPassword); err != nil {
		f.setFormError(err)
		return err
	}

	// The session issued for the recovery action has served its purpose.
	_ = f.engine.provider.SignOut(ctx)
	f.stripParams(recoveryMarkerParams...)

	f.mu.Lock()
	f.state = FlowLogin
	f.formErr = nil
	f.notice = "Password updated successfully. Please sign in with your new password."
	f.mu.Unlock()

	f.engine.emitAudit(ctx, AuditEvent{
		EventType: AuditRecoveryCompleted,
		Success:   true,
	})
	return nil
}

func (f *FlowController) requireState(want FlowState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != want {
		return ErrFlowState
	}
	return nil
}

func (f *FlowController) enterReset() {
	f.mu.Lock()
	if f.state == FlowResetPassword {
		f.mu.Unlock()
		return
	}
	f.state = FlowResetPassword
	f.formErr = nil
	f.notice = ""
	f.mu.Unlock()

	f.engine.metrics.Inc(MetricRecoveryEntered)
	f.engine.emitAudit(context.Background(), AuditEvent{
		EventType: AuditRecoveryEntered,
		Success:   true,
	})
}

func (f *FlowController) setFormError(err error) {
	f.mu.Lock()
	f.formErr = err
	f.mu.Unlock()
}

func (f *FlowController) clearMessages() {
	f.mu.Lock()
	f.formErr = nil
	f.notice = ""
	f.mu.Unlock()
}

// stripParams removes the named query parameters (and any recovery marker
// fragment) from the entry URL and replaces browser history with the
// cleaned URL.
func (f *FlowController) stripParams(names ...string) {
	f.mu.Lock()
	entry := f.entry
	if entry == nil {
		f.mu.Unlock()
		return
	}
	q := entry.Query()
	for _, name := range names {
		q.Del(name)
	}
	entry.RawQuery = q.Encode()
	if fragmentHasRecoveryMarker(entry.Fragment) {
		entry.Fragment = ""
	}
	cleaned := entry.String()
	f.mu.Unlock()

	f.history.Replace(cleaned)
}

// hasRecoveryMarker checks query and fragment: the marker may sit in either
// place depending on the provider's redirect construction.
func hasRecoveryMarker(u *url.URL) bool {
	q := u.Query()
	for _, name := range recoveryMarkerParams {
		if q.Get(name) == recoveryMarkerValue {
			return true
		}
	}
	return fragmentHasRecoveryMarker(u.Fragment)
}

func fragmentHasRecoveryMarker(fragment string) bool {
	if fragment == "" {
		return false
	}
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return false
	}
	for _, name := range recoveryMarkerParams {
		if values.Get(name) == recoveryMarkerValue {
			return true
		}
	}
	return false
}
