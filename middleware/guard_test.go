package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gymauth "github.com/jivrajjp2751-code/gym-wala-db1963db"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider/providertest"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/rolestore"
)

func buildGuardedHandler(t *testing.T, fake *providertest.Fake, roles rolestore.Store) (*gymauth.Engine, http.Handler) {
	t.Helper()

	cfg := gymauth.DefaultConfig()
	cfg.SuperAdmin.Email = "owner@venue.example"

	engine, err := gymauth.New().
		WithConfig(cfg).
		WithProvider(fake).
		WithRoleStore(roles).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, ok := SessionStateFromContext(r.Context())
		if !ok || state.Identity == nil {
			t.Error("admitted request must carry the session state")
		}
		w.WriteHeader(http.StatusOK)
	})
	return engine, Guard(engine)(next)
}

func get(handler http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	return rec
}

func TestGuardPendingBeforeInitialize(t *testing.T) {
	_, handler := buildGuardedHandler(t, providertest.New(), rolestore.NewMemStore())

	rec := get(handler)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while the session fetch is unresolved, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("pending responses must carry Retry-After")
	}
}

func TestGuardRedirectsAnonymousToSignIn(t *testing.T) {
	engine, handler := buildGuardedHandler(t, providertest.New(), rolestore.NewMemStore())
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	rec := get(handler)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/auth" {
		t.Fatalf("expected redirect to /auth, got %q", got)
	}
}

func TestGuardDeniesAuthenticatedNonAdmin(t *testing.T) {
	fake := providertest.New()
	fake.Seed("member@venue.example", "password123")

	engine, handler := buildGuardedHandler(t, fake, rolestore.NewMemStore())
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := engine.SignIn(context.Background(), "member@venue.example", "password123", true); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	rec := get(handler)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec.Header().Get(SignOutHintHeader) != "true" {
		t.Fatal("denied responses must offer sign-out")
	}
}

func TestGuardAdmitsAdmin(t *testing.T) {
	fake := providertest.New()
	id := fake.Seed("admin@venue.example", "password123")
	roles := rolestore.NewMemStore()
	if _, err := roles.Insert(context.Background(), id, rolestore.RoleAdmin); err != nil {
		t.Fatalf("insert: %v", err)
	}

	engine, handler := buildGuardedHandler(t, fake, roles)
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := engine.SignIn(context.Background(), "admin@venue.example", "password123", true); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if rec := get(handler); rec.Code == http.StatusOK {
			return
		}
		if time.Now().After(deadline) {
			rec := get(handler)
			t.Fatalf("expected eventual 200 for an admin, last status %d", rec.Code)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestGuardAdmitsSuperAdminWithoutRoleRecord(t *testing.T) {
	fake := providertest.New()
	fake.Seed("owner@venue.example", "password123")

	engine, handler := buildGuardedHandler(t, fake, rolestore.NewMemStore())
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := engine.SignIn(context.Background(), "owner@venue.example", "password123", true); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	if rec := get(handler); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for the super admin, got %d", rec.Code)
	}
}

func TestGuardNilEngine(t *testing.T) {
	handler := Guard(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run")
	}))

	if rec := get(handler); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
