package gymauth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jivrajjp2751-code/gym-wala-db1963db/flagstore"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/rolestore"
)

// Engine owns the single current view of "who is signed in and what may
// they do". It is refreshed only through the identity provider: once
// initialized, every provider push event unconditionally replaces the held
// identity and session (last write in delivery order wins — the provider is
// the sole authority and its events are ordered relative to one another).
//
// The engine is the only writer of its state; consumers read through
// Snapshot, Watch, and Decide. All methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	provider provider.Client
	roles    rolestore.Store
	flags    flagstore.Store
	audit    *auditDispatcher
	tasks    *taskDispatcher
	metrics  *Metrics
	now      func() time.Time

	mu          sync.Mutex
	identity    *provider.Identity
	session     *provider.Session
	loading     bool
	admin       bool
	initialized bool
	unsubscribe func()
	watchers    map[int]chan SessionState
	nextWatcher int

	loadingOnce sync.Once
	closeOnce   sync.Once
	closed      atomic.Bool
}

// Initialize subscribes to provider push events and performs the one-shot
// session fetch. The loading flag drops to false exactly once, on every
// exit path of this call, and is never touched again — a slow bootstrap is
// not masked by a fast unrelated event. Push events are effective from the
// moment Initialize is entered, independent of the fetch completing.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return ErrAlreadyInitialized
	}
	e.initialized = true
	e.mu.Unlock()

	e.metrics.Inc(MetricInitialize)

	unsubscribe := e.provider.Subscribe(e.handleProviderEvent)
	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()

	defer e.finishLoading()

	sess, err := e.provider.CurrentSession(ctx)
	if err != nil {
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditSessionInitialized,
			Success:   false,
			Error:     err.Error(),
		})
		return err
	}

	e.applySession(sess)

	// The initial privilege decision is resolved before loading clears, so
	// the first non-pending gate evaluation never flashes a wrong answer.
	if sess != nil {
		admin := e.classify(ctx, sess.Identity)
		e.applyClassification(sess.Identity.ID, admin)
	}

	ev := AuditEvent{EventType: AuditSessionInitialized, Success: true}
	if sess != nil {
		ev.SubjectID = sess.Identity.ID
		ev.Email = sess.Identity.Email
	}
	e.emitAudit(ctx, ev)
	return nil
}

// finishLoading clears the loading flag exactly once per engine lifetime.
func (e *Engine) finishLoading() {
	e.loadingOnce.Do(func() {
		e.mu.Lock()
		e.loading = false
		e.mu.Unlock()
		e.notifyWatchers()
	})
}

// handleProviderEvent is the push-subscription callback. It must stay
// non-blocking: role classification is queued on the deferred-work
// dispatcher, never awaited here, so session-state propagation to other
// consumers is not delayed by role-store latency.
func (e *Engine) handleProviderEvent(ev provider.Event) {
	if e.closed.Load() {
		return
	}

	e.metrics.Inc(MetricEventApplied)
	e.applySession(ev.Session)

	if ev.Session != nil {
		id := ev.Session.Identity
		if e.tasks.Submit(func(ctx context.Context) {
			admin := e.classify(ctx, id)
			e.applyClassification(id.ID, admin)
		}) {
			e.metrics.Inc(MetricDeferredTasks)
		}
	}

	auditEv := AuditEvent{
		EventType: AuditEventApplied,
		Success:   true,
		Metadata:  map[string]string{"event": ev.Type.String()},
	}
	if ev.Session != nil {
		auditEv.SubjectID = ev.Session.Identity.ID
		auditEv.Email = ev.Session.Identity.Email
	}
	e.emitAudit(context.Background(), auditEv)
}

// applySession replaces identity and session wholesale. A nil session
// clears the identity and drops admin immediately; a non-nil session keeps
// the previous admin answer until the deferred classification lands, so an
// already-admitted admin does not flicker to denied on a token refresh.
func (e *Engine) applySession(sess *provider.Session) {
	e.mu.Lock()
	if sess == nil {
		e.identity = nil
		e.session = nil
		e.admin = false
	} else {
		identity := sess.Identity
		e.identity = &identity
		e.session = sess
	}
	e.mu.Unlock()
	e.notifyWatchers()
}

// applyClassification installs a classification result if it is still
// current: the engine must be open and the identity unchanged since the
// check was scheduled. Stale results are dropped, not errors.
func (e *Engine) applyClassification(subjectID string, admin bool) {
	e.mu.Lock()
	if e.closed.Load() || e.identity == nil || e.identity.ID != subjectID {
		e.mu.Unlock()
		e.metrics.Inc(MetricStaleResultsDropped)
		return
	}
	changed := e.admin != admin
	e.admin = admin
	e.mu.Unlock()
	if changed {
		e.notifyWatchers()
	}
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() SessionState {
	state := SessionState{
		Loading: e.loading,
		Admin:   e.admin,
	}
	if e.identity != nil {
		identity := *e.identity
		state.Identity = &identity
	}
	if e.session != nil {
		session := *e.session
		state.Session = &session
	}
	return state
}

// Watch returns a channel receiving a snapshot after every state change,
// plus a cancel function. Sends are non-blocking: a consumer that falls
// behind misses intermediate states, never blocks the engine. The channel
// is closed by cancel or engine Close.
func (e *Engine) Watch(buffer int) (<-chan SessionState, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan SessionState, buffer)

	e.mu.Lock()
	if e.closed.Load() {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := e.nextWatcher
	e.nextWatcher++
	e.watchers[id] = ch
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			if _, ok := e.watchers[id]; ok {
				delete(e.watchers, id)
				close(ch)
			}
			e.mu.Unlock()
		})
	}
	return ch, cancel
}

// notifyWatchers sends under the lock so a racing cancel cannot close a
// channel mid-send. Sends never block (select default).
func (e *Engine) notifyWatchers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	state := e.snapshotLocked()
	for _, ch := range e.watchers {
		select {
		case ch <- state:
		default:
		}
	}
}

// SignIn establishes a session from credentials and records the remember-me
// choice. Provider errors come back verbatim for the login form; the flag
// is only written on success.
func (e *Engine) SignIn(ctx context.Context, email, password string, remember bool) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	err := e.provider.SignInWithPassword(ctx, email, password)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditSignIn,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   err == nil,
		Error:     errString(err),
	})
	if err != nil {
		return err
	}

	// Flag failures are not sign-in failures; the provider's own expiry is
	// the backstop if the guard never fires.
	if remember {
		_ = e.flags.ClearAutoSignOut(ctx)
	} else {
		_ = e.flags.SetAutoSignOut(ctx)
	}
	return nil
}

// SignUp registers a new identity after local policy checks.
func (e *Engine) SignUp(ctx context.Context, email, password, displayName string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if len(displayName) == 0 {
		return ErrNameRequired
	}
	if len(password) < e.cfg.Password.MinLength {
		return ErrPasswordPolicy
	}

	err := e.provider.SignUp(ctx, email, password, provider.SignUpOptions{
		RedirectTarget: e.cfg.SignUp.RedirectTarget,
		DisplayName:    displayName,
	})
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditSignUp,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   err == nil,
		Error:     errString(err),
	})
	return err
}

// SignOut terminates the current provider session.
func (e *Engine) SignOut(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	err := e.provider.SignOut(ctx)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditSignOut,
		IP:        clientIPFromContext(ctx),
		Success:   err == nil,
		Error:     errString(err),
	})
	return err
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.cfg)
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// TasksDropped reports deferred tasks discarded because the queue was full.
func (e *Engine) TasksDropped() uint64 {
	return e.tasks.Dropped()
}

// Close unsubscribes from the provider, cancels pending deferred work, and
// drains the audit queue. Idempotent; results of in-flight provider calls
// arriving afterwards are dropped by the liveness checks.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)

		e.mu.Lock()
		unsubscribe := e.unsubscribe
		e.unsubscribe = nil
		watchers := e.watchers
		e.watchers = make(map[int]chan SessionState)
		e.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		for _, ch := range watchers {
			close(ch)
		}

		e.tasks.Close()
		e.audit.Close()
	})
}

func (e *Engine) emitAudit(ctx context.Context, ev AuditEvent) {
	ev.Timestamp = e.now()
	e.audit.Emit(ctx, ev)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
