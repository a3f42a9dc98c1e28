package gymauth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider/providertest"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/rolestore"
)

func buildFlow(t *testing.T, fake *providertest.Fake) (*FlowController, *captureHistory, func()) {
	t.Helper()
	engine, cleanup := newTestEngine(t, testConfig(), fake, rolestore.NewMemStore())
	mustInitialize(t, engine)

	history := &captureHistory{}
	flow := engine.NewFlow(history)
	return flow, history, func() {
		flow.Unmount()
		cleanup()
	}
}

func TestFlowStartsOnLogin(t *testing.T) {
	flow, _, cleanup := buildFlow(t, providertest.New())
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if got := flow.State(); got != FlowLogin {
		t.Fatalf("expected login, got %s", got)
	}
}

func TestRecoveryEnteredFromQueryMarker(t *testing.T) {
	for _, entry := range []string{
		"https://venue.example/auth?mode=recovery",
		"https://venue.example/auth?type=recovery",
		"https://venue.example/auth#type=recovery&access_token=abc",
	} {
		flow, _, cleanup := buildFlow(t, providertest.New())
		if err := flow.Mount(context.Background(), entry); err != nil {
			t.Fatalf("mount %q: %v", entry, err)
		}
		if got := flow.State(); got != FlowResetPassword {
			t.Fatalf("entry %q: expected resetPassword, got %s", entry, got)
		}
		cleanup()
	}
}

func TestRecoveryEnteredFromProviderEvent(t *testing.T) {
	fake, _ := seededFake(t, "member@venue.example", "password123")
	flow, _, cleanup := buildFlow(t, fake)
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	fake.EmitRecovery("member@venue.example")

	if got := flow.State(); got != FlowResetPassword {
		t.Fatalf("expected resetPassword after recovery event, got %s", got)
	}
}

// Marker and event may arrive in either order, or both; the outcome is the
// same reset state either way.
func TestRecoveryTriggersCommute(t *testing.T) {
	fake, _ := seededFake(t, "member@venue.example", "password123")
	flow, _, cleanup := buildFlow(t, fake)
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth?mode=recovery"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	fake.EmitRecovery("member@venue.example")

	if got := flow.State(); got != FlowResetPassword {
		t.Fatalf("expected resetPassword, got %s", got)
	}
}

func TestCodeExchangedOnceAndStripped(t *testing.T) {
	fake, _ := seededFake(t, "member@venue.example", "password123")
	code := fake.IssueCode("member@venue.example")

	flow, history, cleanup := buildFlow(t, fake)
	defer cleanup()

	entry := "https://venue.example/auth?code=" + code + "&mode=recovery"
	if err := flow.Mount(context.Background(), entry); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if fake.ExchangeCalls != 1 {
		t.Fatalf("expected exactly one exchange, got %d", fake.ExchangeCalls)
	}
	cleaned := history.Last()
	if cleaned == "" {
		t.Fatal("expected a history replacement with the cleaned URL")
	}
	if strings.Contains(cleaned, "code=") {
		t.Fatalf("code must be stripped from the visible URL, got %q", cleaned)
	}

	// A reload of the cleaned URL cannot replay the exchange.
	reload := providertestReload(t, fake, cleaned)
	if fake.ExchangeCalls != 1 {
		t.Fatalf("reload must not re-exchange, got %d calls", fake.ExchangeCalls)
	}
	reload()
}

// providertestReload mounts a fresh controller on the same fake, as a page
// reload would, and returns its cleanup.
func providertestReload(t *testing.T, fake *providertest.Fake, entry string) func() {
	t.Helper()
	engine, cleanup := newTestEngine(t, testConfig(), fake, rolestore.NewMemStore())
	mustInitialize(t, engine)
	flow := engine.NewFlow(&captureHistory{})
	if err := flow.Mount(context.Background(), entry); err != nil {
		t.Fatalf("remount: %v", err)
	}
	return func() {
		flow.Unmount()
		cleanup()
	}
}

func TestFailedExchangeStillEntersReset(t *testing.T) {
	fake := providertest.New()
	flow, history, cleanup := buildFlow(t, fake)
	defer cleanup()

	entry := "https://venue.example/auth?code=bogus&type=recovery"
	if err := flow.Mount(context.Background(), entry); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if got := flow.State(); got != FlowResetPassword {
		t.Fatalf("marker must still enter reset after a failed exchange, got %s", got)
	}
	if flow.FormError() == nil {
		t.Fatal("the failed exchange must surface as a form error")
	}
	if strings.Contains(history.Last(), "code=") {
		t.Fatalf("a failed code is still stripped, got %q", history.Last())
	}
}

func TestNavigationCannotLeaveReset(t *testing.T) {
	flow, _, cleanup := buildFlow(t, providertest.New())
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth?mode=recovery"); err != nil {
		t.Fatalf("mount: %v", err)
	}

	for name, nav := range map[string]func() error{
		"login":  flow.ChooseLogin,
		"signup": flow.ChooseSignup,
		"forgot": flow.ChooseForgot,
	} {
		if err := nav(); !errors.Is(err, ErrFlowState) {
			t.Fatalf("%s navigation out of reset: expected ErrFlowState, got %v", name, err)
		}
	}
	if got := flow.State(); got != FlowResetPassword {
		t.Fatalf("state must remain resetPassword, got %s", got)
	}
}

func TestNavigationBetweenForms(t *testing.T) {
	flow, _, cleanup := buildFlow(t, providertest.New())
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth"); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if err := flow.ChooseSignup(); err != nil || flow.State() != FlowSignup {
		t.Fatalf("signup navigation: err=%v state=%s", err, flow.State())
	}
	if err := flow.ChooseForgot(); err != nil || flow.State() != FlowForgotPassword {
		t.Fatalf("forgot navigation: err=%v state=%s", err, flow.State())
	}
	if err := flow.ChooseLogin(); err != nil || flow.State() != FlowLogin {
		t.Fatalf("login navigation: err=%v state=%s", err, flow.State())
	}
}

func TestSubmitLoginFailureKeepsForm(t *testing.T) {
	fake, _ := seededFake(t, "member@venue.example", "password123")
	flow, _, cleanup := buildFlow(t, fake)
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth"); err != nil {
		t.Fatalf("mount: %v", err)
	}

	err := flow.SubmitLogin(context.Background(), "member@venue.example", "wrong", false)
	if err == nil {
		t.Fatal("expected credential rejection")
	}
	if flow.State() != FlowLogin {
		t.Fatalf("state must stay on login, got %s", flow.State())
	}
	if !errors.Is(flow.FormError(), err) {
		t.Fatalf("form error must carry the rejection, got %v", flow.FormError())
	}

	if err := flow.SubmitLogin(context.Background(), "member@venue.example", "password123", false); err != nil {
		t.Fatalf("retry in place failed: %v", err)
	}
	if flow.FormError() != nil {
		t.Fatal("successful retry must clear the form error")
	}
}

func TestSubmitSignUpReturnsToLoginWithNotice(t *testing.T) {
	fake := providertest.New()
	flow, _, cleanup := buildFlow(t, fake)
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := flow.ChooseSignup(); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	if err := flow.SubmitSignUp(context.Background(), "new@venue.example", "password123", "  New Member  "); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if flow.State() != FlowLogin {
		t.Fatalf("expected return to login, got %s", flow.State())
	}
	if flow.Notice() == "" {
		t.Fatal("expected a confirmation notice")
	}
}

func TestSubmitForgotUsesConfiguredRedirect(t *testing.T) {
	fake, _ := seededFake(t, "member@venue.example", "password123")
	flow, _, cleanup := buildFlow(t, fake)
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := flow.ChooseForgot(); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := flow.SubmitForgot(context.Background(), "member@venue.example"); err != nil {
		t.Fatalf("forgot: %v", err)
	}

	want := "member@venue.example|" + testConfig().Recovery.RedirectTarget
	if len(fake.ResetEmails) != 1 || fake.ResetEmails[0] != want {
		t.Fatalf("expected reset request %q, got %v", want, fake.ResetEmails)
	}
	if flow.Notice() == "" {
		t.Fatal("expected a sent notice")
	}
}

func TestSubmitResetValidation(t *testing.T) {
	fake, _ := seededFake(t, "member@venue.example", "password123")
	flow, _, cleanup := buildFlow(t, fake)
	defer cleanup()

	if err := flow.Mount(context.Background(), "https://venue.example/auth?mode=recovery"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	fake.EmitRecovery("member@venue.example")

	ctx := context.Background()
	if err := flow.SubmitReset(ctx, "short", "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if err := flow.SubmitReset(ctx, "newpassword", "different"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if flow.State() != FlowResetPassword {
		t.Fatalf("validation failures must keep the reset form, got %s", flow.State())
	}
}

func TestSubmitResetCompletes(t *testing.T) {
	fake, _ := seededFake(t, "member@venue.example", "oldpassword")
	flow, history, cleanup := buildFlow(t, fake)
	defer cleanup()

	ctx := context.Background()
	if err := flow.Mount(ctx, "https://venue.example/auth?mode=recovery"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	fake.EmitRecovery("member@venue.example")

	if err := flow.SubmitReset(ctx, "newpassword", "newpassword"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if flow.State() != FlowLogin {
		t.Fatalf("completed reset must return to login, got %s", flow.State())
	}
	if flow.Notice() == "" {
		t.Fatal("expected a success notice")
	}
	if fake.SignOutCalls != 1 {
		t.Fatalf("the recovery session must be terminated, got %d sign-outs", fake.SignOutCalls)
	}
	if strings.Contains(history.Last(), "recovery") {
		t.Fatalf("recovery marker must be stripped, got %q", history.Last())
	}

	// The new password is live, the old one is not.
	if err := fake.SignInWithPassword(ctx, "member@venue.example", "oldpassword"); err == nil {
		t.Fatal("old password must no longer work")
	}
	if err := fake.SignInWithPassword(ctx, "member@venue.example", "newpassword"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestSubmitsRejectedInWrongState(t *testing.T) {
	fake, _ := seededFake(t, "member@venue.example", "password123")
	flow, _, cleanup := buildFlow(t, fake)
	defer cleanup()

	ctx := context.Background()
	if err := flow.Mount(ctx, "https://venue.example/auth"); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if err := flow.SubmitReset(ctx, "newpassword", "newpassword"); !errors.Is(err, ErrFlowState) {
		t.Fatalf("reset from login: expected ErrFlowState, got %v", err)
	}
	if err := flow.SubmitSignUp(ctx, "x@venue.example", "password123", "X"); !errors.Is(err, ErrFlowState) {
		t.Fatalf("signup from login: expected ErrFlowState, got %v", err)
	}

	fake.EmitRecovery("member@venue.example")
	if err := flow.SubmitLogin(ctx, "member@venue.example", "password123", false); !errors.Is(err, ErrFlowState) {
		t.Fatalf("login from reset: expected ErrFlowState, got %v", err)
	}
}

func TestMountTwiceRejected(t *testing.T) {
	flow, _, cleanup := buildFlow(t, providertest.New())
	defer cleanup()

	ctx := context.Background()
	if err := flow.Mount(ctx, "https://venue.example/auth"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := flow.Mount(ctx, "https://venue.example/auth"); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}
