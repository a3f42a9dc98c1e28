// Package providertest provides a scripted in-memory provider.Client for
// tests, examples, and the lifecycle simulator. It is deterministic: every
// network-shaped failure is injected through the Err* fields.
package providertest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider"
)

// ErrBadCredentials is returned by SignInWithPassword on a wrong password.
var ErrBadCredentials = errors.New("providertest: invalid credentials")

// ErrBadCode is returned when an authorization code is unknown or already used.
var ErrBadCode = errors.New("providertest: invalid or expired authorization code")

type account struct {
	id       string
	email    string
	password string
}

// Fake is an in-memory provider.Client. The zero value is not usable; call New.
type Fake struct {
	mu          sync.Mutex
	accounts    map[string]*account // keyed by lowercase email
	session     *provider.Session
	subscribers map[int]func(provider.Event)
	nextSub     int
	codes       map[string]string // one-time code -> account email

	// SessionTTL is applied to sessions established by the fake.
	SessionTTL time.Duration

	// CurrentSessionDelay, when non-nil, is closed by the test to release a
	// pending CurrentSession call. Used to simulate a slow provider bootstrap.
	CurrentSessionDelay chan struct{}

	// ErrCurrentSession, ErrSignIn, ErrSignUp, ErrReset, ErrUpdate force the
	// corresponding operation to fail.
	ErrCurrentSession error
	ErrSignIn         error
	ErrSignUp         error
	ErrReset          error
	ErrUpdate         error

	// SignOutCalls counts SignOut invocations, ExchangeCalls counts
	// ExchangeAuthorizationCode invocations (success or failure).
	SignOutCalls  int
	ExchangeCalls int

	// ResetEmails records SendPasswordResetEmail requests as "email|target".
	ResetEmails []string
}

// New returns an empty fake with a 24h session TTL.
func New() *Fake {
	return &Fake{
		accounts:    make(map[string]*account),
		subscribers: make(map[int]func(provider.Event)),
		codes:       make(map[string]string),
		SessionTTL:  24 * time.Hour,
	}
}

// Seed registers an account and returns its identity ID.
func (f *Fake) Seed(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.accounts[lower(email)] = &account{id: id, email: email, password: password}
	return id
}

// SeedSession installs an active session for a seeded email without emitting
// an event, as if the provider restored it from its own persistence.
func (f *Fake) SeedSession(email string) *provider.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.accounts[lower(email)]
	if acct == nil {
		return nil
	}
	f.session = f.sessionForLocked(acct)
	return f.session
}

// IssueCode mints a one-time authorization code for a seeded email.
func (f *Fake) IssueCode(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := uuid.NewString()
	f.codes[code] = lower(email)
	return code
}

// Emit delivers an arbitrary event to all subscribers, replacing the fake's
// notion of the current session with the event payload.
func (f *Fake) Emit(ev provider.Event) {
	f.mu.Lock()
	f.session = ev.Session
	subs := f.subscribersLocked()
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// EmitRecovery delivers a PASSWORD_RECOVERY event carrying a recovery
// session for the given seeded email.
func (f *Fake) EmitRecovery(email string) {
	f.mu.Lock()
	acct := f.accounts[lower(email)]
	if acct == nil {
		f.mu.Unlock()
		return
	}
	sess := f.sessionForLocked(acct)
	f.session = sess
	subs := f.subscribersLocked()
	f.mu.Unlock()
	for _, fn := range subs {
		fn(provider.Event{Type: provider.EventPasswordRecovery, Session: sess})
	}
}

// Session returns the fake's current session.
func (f *Fake) Session() *provider.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

// CurrentSession implements provider.Client.
func (f *Fake) CurrentSession(ctx context.Context) (*provider.Session, error) {
	f.mu.Lock()
	delay := f.CurrentSessionDelay
	f.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ErrCurrentSession != nil {
		return nil, f.ErrCurrentSession
	}
	return f.session, nil
}

// Subscribe implements provider.Client.
func (f *Fake) Subscribe(fn func(provider.Event)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subscribers[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, id)
			f.mu.Unlock()
		})
	}
}

// SignInWithPassword implements provider.Client.
func (f *Fake) SignInWithPassword(ctx context.Context, email, password string) error {
	f.mu.Lock()
	if f.ErrSignIn != nil {
		err := f.ErrSignIn
		f.mu.Unlock()
		return err
	}
	acct := f.accounts[lower(email)]
	if acct == nil || acct.password != password {
		f.mu.Unlock()
		return ErrBadCredentials
	}
	sess := f.sessionForLocked(acct)
	f.session = sess
	subs := f.subscribersLocked()
	f.mu.Unlock()

	for _, fn := range subs {
		fn(provider.Event{Type: provider.EventSignedIn, Session: sess})
	}
	return nil
}

// SignUp implements provider.Client. The fake registers the account but does
// not establish a session (confirmation-email policy).
func (f *Fake) SignUp(ctx context.Context, email, password string, opts provider.SignUpOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ErrSignUp != nil {
		return f.ErrSignUp
	}
	if _, exists := f.accounts[lower(email)]; exists {
		return errors.New("providertest: account already registered")
	}
	f.accounts[lower(email)] = &account{id: uuid.NewString(), email: email, password: password}
	return nil
}

// SignOut implements provider.Client.
func (f *Fake) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	f.session = nil
	subs := f.subscribersLocked()
	f.mu.Unlock()

	for _, fn := range subs {
		fn(provider.Event{Type: provider.EventSignedOut, Session: nil})
	}
	return nil
}

// SendPasswordResetEmail implements provider.Client.
func (f *Fake) SendPasswordResetEmail(ctx context.Context, email string, opts provider.ResetOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ErrReset != nil {
		return f.ErrReset
	}
	f.ResetEmails = append(f.ResetEmails, email+"|"+opts.RedirectTarget)
	return nil
}

// UpdatePassword implements provider.Client. Requires an active session.
func (f *Fake) UpdatePassword(ctx context.Context, newPassword string) error {
	f.mu.Lock()
	if f.ErrUpdate != nil {
		err := f.ErrUpdate
		f.mu.Unlock()
		return err
	}
	if f.session == nil {
		f.mu.Unlock()
		return errors.New("providertest: no active session")
	}
	if acct := f.accounts[lower(f.session.Identity.Email)]; acct != nil {
		acct.password = newPassword
	}
	sess := f.session
	subs := f.subscribersLocked()
	f.mu.Unlock()

	for _, fn := range subs {
		fn(provider.Event{Type: provider.EventUserUpdated, Session: sess})
	}
	return nil
}

// ExchangeAuthorizationCode implements provider.Client. Codes are single-use.
func (f *Fake) ExchangeAuthorizationCode(ctx context.Context, code string) error {
	f.mu.Lock()
	f.ExchangeCalls++
	email, ok := f.codes[code]
	if !ok {
		f.mu.Unlock()
		return ErrBadCode
	}
	delete(f.codes, code)
	acct := f.accounts[email]
	if acct == nil {
		f.mu.Unlock()
		return ErrBadCode
	}
	sess := f.sessionForLocked(acct)
	f.session = sess
	subs := f.subscribersLocked()
	f.mu.Unlock()

	for _, fn := range subs {
		fn(provider.Event{Type: provider.EventSignedIn, Session: sess})
	}
	return nil
}

func (f *Fake) sessionForLocked(acct *account) *provider.Session {
	return &provider.Session{
		Identity:  provider.Identity{ID: acct.id, Email: acct.email},
		RawToken:  uuid.NewString(),
		ExpiresAt: time.Now().Add(f.SessionTTL),
	}
}

func (f *Fake) subscribersLocked() []func(provider.Event) {
	subs := make([]func(provider.Event), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func lower(s string) string {
	return strings.ToLower(s)
}
