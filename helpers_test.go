package gymauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider/providertest"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/rolestore"
)

const testSuperAdminEmail = "owner@venue.example"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SuperAdmin.Email = testSuperAdminEmail
	cfg.Recovery.RedirectTarget = "https://venue.example/auth?mode=recovery"
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, p provider.Client, roles rolestore.Store) (*Engine, func()) {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithProvider(p).
		WithRoleStore(roles).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return engine, engine.Close
}

func mustInitialize(t *testing.T, engine *Engine) {
	t.Helper()
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes. Replaces bare
// sleeps for asserting on deferred-task outcomes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// blockingRoleStore wraps a MemStore and parks every Find until the test
// hands it a token (Allow) or opens it permanently (Release).
type blockingRoleStore struct {
	*rolestore.MemStore
	tokens   chan struct{}
	open     chan struct{}
	openOnce sync.Once
}

func newBlockingRoleStore() *blockingRoleStore {
	return &blockingRoleStore{
		MemStore: rolestore.NewMemStore(),
		tokens:   make(chan struct{}, 16),
		open:     make(chan struct{}),
	}
}

func (s *blockingRoleStore) Find(ctx context.Context, subjectID string) (*rolestore.Assignment, error) {
	select {
	case <-s.tokens:
	case <-s.open:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.MemStore.Find(ctx, subjectID)
}

// Allow lets the next n Find calls through.
func (s *blockingRoleStore) Allow(n int) {
	for i := 0; i < n; i++ {
		s.tokens <- struct{}{}
	}
}

// Release unparks every current and future Find.
func (s *blockingRoleStore) Release() {
	s.openOnce.Do(func() { close(s.open) })
}

// captureHistory records every history replacement.
type captureHistory struct {
	mu   sync.Mutex
	urls []string
}

func (h *captureHistory) Replace(rawURL string) {
	h.mu.Lock()
	h.urls = append(h.urls, rawURL)
	h.mu.Unlock()
}

func (h *captureHistory) Last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.urls) == 0 {
		return ""
	}
	return h.urls[len(h.urls)-1]
}

func seededFake(t *testing.T, email, password string) (*providertest.Fake, string) {
	t.Helper()
	fake := providertest.New()
	id := fake.Seed(email, password)
	return fake, id
}
