// Package identity is a client for the Nhost Auth REST API. A Client holds at
// most one session and keeps its access token fresh until Close.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	session   *domain.Session
	listeners map[int]func(domain.AuthEvent, *domain.Session)
	nextID    int
	timer     *time.Timer
	closed    bool
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.TokenRefreshTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		listeners:  make(map[int]func(domain.AuthEvent, *domain.Session)),
	}
}

type userPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type sessionPayload struct {
	AccessToken          string       `json:"accessToken"`
	AccessTokenExpiresIn int          `json:"accessTokenExpiresIn"`
	RefreshToken         string       `json:"refreshToken"`
	User                 *userPayload `json:"user"`
}

type sessionResponse struct {
	Session *sessionPayload `json:"session"`
}

type errorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	creds, err := newCredentials("sign in", email, password)
	if err != nil {
		return nil, err
	}
	var resp sessionResponse
	if err := c.do(ctx, "sign in", http.MethodPost, "/signin/email-password", "", creds, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, &domain.AuthError{Op: "sign in", Message: "no session returned, multi-factor sign in is not supported"}
	}
	session := resp.Session.toDomain()
	c.setSession(session, domain.AuthEventSignedIn)
	return session, nil
}

// SignUp registers a new account. When the project requires email
// verification no session is issued and ErrVerificationRequired is returned.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	creds, err := newCredentials("sign up", email, password)
	if err != nil {
		return nil, err
	}
	var resp sessionResponse
	if err := c.do(ctx, "sign up", http.MethodPost, "/signup/email-password", "", creds, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, domain.ErrVerificationRequired
	}
	session := resp.Session.toDomain()
	c.setSession(session, domain.AuthEventSignedIn)
	return session, nil
}

// SignOut revokes the refresh token and drops the local session. The local
// session is dropped even when the revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	session := c.GetSession()
	if session == nil {
		return nil
	}
	err := c.do(ctx, "sign out", http.MethodPost, "/signout", session.AccessToken,
		refreshRequest{RefreshToken: session.RefreshToken}, nil)
	c.clearSession(session.RefreshToken)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// GetUser validates the current session against the provider. An expired
// access token is refreshed once; a session the provider no longer accepts is
// dropped and reported as no user.
func (c *Client) GetUser(ctx context.Context) (*domain.User, error) {
	session := c.GetSession()
	if session == nil {
		return nil, nil
	}

	var user userPayload
	err := c.do(ctx, "get user", http.MethodGet, "/user", session.AccessToken, nil, &user)
	if isUnauthorized(err) {
		if err := c.Refresh(ctx); err != nil {
			if isRejected(err) {
				return nil, nil
			}
			return nil, err
		}
		session = c.GetSession()
		if session == nil {
			return nil, nil
		}
		err = c.do(ctx, "get user", http.MethodGet, "/user", session.AccessToken, nil, &user)
	}
	if err != nil {
		return nil, err
	}
	return user.toDomain(), nil
}

func (c *Client) GetSession() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// AccessToken returns the bearer token of the current session, or "".
func (c *Client) AccessToken() string {
	if s := c.GetSession(); s != nil {
		return s.AccessToken
	}
	return ""
}

func (c *Client) OnChange(fn func(domain.AuthEvent, *domain.Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Refresh exchanges the refresh token for a new session. A rejected refresh
// token ends the session.
func (c *Client) Refresh(ctx context.Context) error {
	current := c.GetSession()
	if current == nil {
		return nil
	}

	var payload sessionPayload
	err := c.do(ctx, "refresh token", http.MethodPost, "/token", "",
		refreshRequest{RefreshToken: current.RefreshToken}, &payload)
	if err != nil {
		if isRejected(err) {
			c.clearSession(current.RefreshToken)
			return err
		}
		c.scheduleRetry(current.RefreshToken)
		return err
	}

	session := payload.toDomain()
	if session.User == nil {
		session.User = current.User
	}

	// Signed out or signed in again while the refresh was in flight: keep
	// whatever is current.
	c.replaceSession(current.RefreshToken, session)
	return nil
}

// Close stops the refresh timer and drops all listeners. The session itself
// is left untouched on the provider side.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.listeners = make(map[int]func(domain.AuthEvent, *domain.Session))
}

func (c *Client) setSession(session *domain.Session, event domain.AuthEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.session = session
	c.scheduleLocked(refreshDelay(session.AccessTokenExpiresIn), session.RefreshToken)
	listeners := c.snapshotLocked()
	c.mu.Unlock()

	notify(listeners, event, session)
}

// replaceSession swaps in a refreshed session if the session carrying
// refreshToken is still current.
func (c *Client) replaceSession(refreshToken string, session *domain.Session) {
	c.mu.Lock()
	if c.closed || c.session == nil || c.session.RefreshToken != refreshToken {
		c.mu.Unlock()
		return
	}
	c.session = session
	c.scheduleLocked(refreshDelay(session.AccessTokenExpiresIn), session.RefreshToken)
	listeners := c.snapshotLocked()
	c.mu.Unlock()

	notify(listeners, domain.AuthEventTokenRefreshed, session)
}

// clearSession drops the session if it still carries refreshToken.
func (c *Client) clearSession(refreshToken string) {
	c.mu.Lock()
	if c.session == nil || c.session.RefreshToken != refreshToken {
		c.mu.Unlock()
		return
	}
	c.session = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	listeners := c.snapshotLocked()
	c.mu.Unlock()

	notify(listeners, domain.AuthEventSignedOut, nil)
}

func (c *Client) scheduleRetry(refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.session == nil || c.session.RefreshToken != refreshToken {
		return
	}
	c.scheduleLocked(config.TokenRefreshRetry, refreshToken)
}

func (c *Client) scheduleLocked(delay time.Duration, refreshToken string) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.TokenRefreshTimeout)
		defer cancel()
		if c.currentRefreshToken() != refreshToken {
			return
		}
		if err := c.Refresh(ctx); err != nil {
			slog.Warn("token refresh failed", "error", err)
		}
	})
}

func (c *Client) currentRefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.RefreshToken
}

func (c *Client) snapshotLocked() []func(domain.AuthEvent, *domain.Session) {
	fns := make([]func(domain.AuthEvent, *domain.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func notify(listeners []func(domain.AuthEvent, *domain.Session), event domain.AuthEvent, session *domain.Session) {
	for _, fn := range listeners {
		fn(event, session)
	}
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return newAuthError(op, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: parse response: %w", op, err)
	}
	return nil
}

func newAuthError(op string, status int, data []byte) error {
	var body errorResponse
	_ = json.Unmarshal(data, &body)
	message := body.Message
	if message == "" {
		message = http.StatusText(status)
	}
	return &domain.AuthError{
		Op:      op,
		Message: message,
		Err:     &statusError{code: status, kind: body.Error},
	}
}

type statusError struct {
	code int
	kind string
}

func (e *statusError) Error() string {
	if e.kind != "" {
		return fmt.Sprintf("status %d (%s)", e.code, e.kind)
	}
	return fmt.Sprintf("status %d", e.code)
}

func (e *statusError) Unwrap() error { return domain.ErrUnexpectedStatusCode }

func isUnauthorized(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusUnauthorized
}

// isRejected reports whether the provider refused the request itself, as
// opposed to failing to serve it.
func isRejected(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= http.StatusBadRequest && se.code < http.StatusInternalServerError
}

func newCredentials(op, email, password string) (credentials, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return credentials{}, &domain.AuthError{
			Op:      op,
			Message: domain.ErrInvalidCredentials.Error(),
			Err:     domain.ErrInvalidCredentials,
		}
	}
	return credentials{Email: email, Password: password}, nil
}

func refreshDelay(expiresIn int) time.Duration {
	delay := time.Duration(expiresIn)*time.Second - config.TokenRefreshMargin
	if delay < config.MinTokenRefreshDelay {
		delay = config.MinTokenRefreshDelay
	}
	return delay
}

func (p *sessionPayload) toDomain() *domain.Session {
	return &domain.Session{
		AccessToken:          p.AccessToken,
		AccessTokenExpiresIn: p.AccessTokenExpiresIn,
		RefreshToken:         p.RefreshToken,
		User:                 p.User.toDomain(),
	}
}

func (u *userPayload) toDomain() *domain.User {
	if u == nil || u.ID == "" {
		return nil
	}
	return &domain.User{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}
