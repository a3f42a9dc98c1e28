// Package httpapi implements provider.Client against a GoTrue-style REST
// identity API (the surface exposed by Supabase Auth and compatible
// backends): password grant, signup, recovery email, user update, and
// single-use PKCE code exchange.
//
// The client holds the current session in memory only. Identity and expiry
// are read from the access token's claims; the token signature is NOT
// verified here — the backend is the authority and verification is its job.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider"
)

// ErrNoSession is returned by session-bound operations when the client holds
// no active session.
var ErrNoSession = errors.New("httpapi: no active session")

// APIError is a non-2xx response from the identity API. The message is safe
// to surface verbatim on the originating form.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity api: status %d", e.Status)
	}
	return e.Message
}

// Config configures a Client.
type Config struct {
	// BaseURL is the identity API root, e.g. "https://x.supabase.co/auth/v1".
	BaseURL string
	// APIKey is sent as the "apikey" header on every request.
	APIKey string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

// Client is a provider.Client over HTTP. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.Mutex
	session     *provider.Session
	refreshTok  string
	subscribers map[int]func(provider.Event)
	nextSub     int
}

// New validates cfg and returns a Client with no session.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("httpapi: BaseURL required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("httpapi: invalid BaseURL: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		cfg:         cfg,
		http:        hc,
		subscribers: make(map[int]func(provider.Event)),
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type apiErrorBody struct {
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// CurrentSession implements provider.Client. An expired session is refreshed
// through the refresh token when one is held; refresh success is announced
// as a TOKEN_REFRESHED event.
func (c *Client) CurrentSession(ctx context.Context) (*provider.Session, error) {
	c.mu.Lock()
	sess, refresh := c.session, c.refreshTok
	c.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if time.Now().Before(sess.ExpiresAt) {
		return sess, nil
	}
	if refresh == "" {
		c.replaceSession(nil, "")
		return nil, nil
	}

	var tr tokenResponse
	err := c.post(ctx, "/token?grant_type=refresh_token",
		map[string]string{"refresh_token": refresh}, "", &tr)
	if err != nil {
		c.replaceSession(nil, "")
		return nil, err
	}
	next, err := c.applyTokens(tr)
	if err != nil {
		return nil, err
	}
	c.emit(provider.Event{Type: provider.EventTokenRefreshed, Session: next})
	return next, nil
}

// Subscribe implements provider.Client.
func (c *Client) Subscribe(fn func(provider.Event)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// SignInWithPassword implements provider.Client.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	var tr tokenResponse
	err := c.post(ctx, "/token?grant_type=password",
		map[string]string{"email": email, "password": password}, "", &tr)
	if err != nil {
		return err
	}
	sess, err := c.applyTokens(tr)
	if err != nil {
		return err
	}
	c.emit(provider.Event{Type: provider.EventSignedIn, Session: sess})
	return nil
}

// SignUp implements provider.Client. No session is established: the backend
// sends a confirmation email first.
func (c *Client) SignUp(ctx context.Context, email, password string, opts provider.SignUpOptions) error {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if opts.DisplayName != "" {
		body["data"] = map[string]string{"display_name": opts.DisplayName}
	}
	path := "/signup"
	if opts.RedirectTarget != "" {
		path += "?redirect_to=" + url.QueryEscape(opts.RedirectTarget)
	}
	return c.post(ctx, path, body, "", nil)
}

// SignOut implements provider.Client. The local session is dropped and the
// SIGNED_OUT event emitted even when the revocation call fails; the backend's
// own token expiry is the backstop.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	var token string
	if c.session != nil {
		token = c.session.RawToken
	}
	c.mu.Unlock()

	var err error
	if token != "" {
		err = c.post(ctx, "/logout", nil, token, nil)
	}
	c.replaceSession(nil, "")
	c.emit(provider.Event{Type: provider.EventSignedOut, Session: nil})
	return err
}

// SendPasswordResetEmail implements provider.Client.
func (c *Client) SendPasswordResetEmail(ctx context.Context, email string, opts provider.ResetOptions) error {
	path := "/recover"
	if opts.RedirectTarget != "" {
		path += "?redirect_to=" + url.QueryEscape(opts.RedirectTarget)
	}
	return c.post(ctx, path, map[string]string{"email": email}, "", nil)
}

// UpdatePassword implements provider.Client.
func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return ErrNoSession
	}
	if err := c.put(ctx, "/user", map[string]string{"password": newPassword}, sess.RawToken); err != nil {
		return err
	}
	c.emit(provider.Event{Type: provider.EventUserUpdated, Session: sess})
	return nil
}

// ExchangeAuthorizationCode implements provider.Client.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code string) error {
	var tr tokenResponse
	err := c.post(ctx, "/token?grant_type=pkce",
		map[string]string{"auth_code": code}, "", &tr)
	if err != nil {
		return err
	}
	sess, err := c.applyTokens(tr)
	if err != nil {
		return err
	}
	c.emit(provider.Event{Type: provider.EventSignedIn, Session: sess})
	return nil
}

// applyTokens parses the access token into a Session and installs it.
func (c *Client) applyTokens(tr tokenResponse) (*provider.Session, error) {
	sess, err := sessionFromToken(tr.AccessToken, tr.ExpiresIn)
	if err != nil {
		return nil, err
	}
	c.replaceSession(sess, tr.RefreshToken)
	return sess, nil
}

func (c *Client) replaceSession(sess *provider.Session, refresh string) {
	c.mu.Lock()
	c.session = sess
	c.refreshTok = refresh
	c.mu.Unlock()
}

func (c *Client) emit(ev provider.Event) {
	c.mu.Lock()
	subs := make([]func(provider.Event), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// sessionFromToken derives the Session from access-token claims. Signature
// verification is intentionally skipped (see package doc); claims are only
// a mirror of what the backend already decided.
func sessionFromToken(accessToken string, expiresIn int64) (*provider.Session, error) {
	if accessToken == "" {
		return nil, errors.New("httpapi: empty access token in response")
	}
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("httpapi: malformed access token: %w", err)
	}

	expiry := time.Now().Add(time.Duration(expiresIn) * time.Second)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	return &provider.Session{
		Identity: provider.Identity{
			ID:    claims.Subject,
			Email: claims.Email,
		},
		RawToken:  accessToken,
		ExpiresAt: expiry,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, bearer string, out any) error {
	return c.do(ctx, http.MethodPost, path, body, bearer, out)
}

func (c *Client) put(ctx context.Context, path string, body any, bearer string) error {
	return c.do(ctx, http.MethodPut, path, body, bearer, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, bearer string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body apiErrorBody
	_ = json.Unmarshal(data, &body)

	msg := body.Message
	if msg == "" {
		msg = body.ErrorDescription
	}
	if msg == "" {
		msg = body.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
