package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Errors returned by the identity client.
var (
	// ErrInvalidCredentials indicates the provider rejected the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists indicates a sign-up collided with an existing account.
	ErrUserExists = errors.New("user already registered")
	// ErrNoSession indicates an operation that needs an authenticated session ran without one.
	ErrNoSession = errors.New("no active session")
)

// Credentials carry an email/password pair. They are transient: never stored,
// never logged, only forwarded to the provider for the call that uses them.
type Credentials struct {
	Email    string
	Password string
}

// ClientConfig wires the identity client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Store   *SessionStore
	Logger  *zap.Logger
	Timeout time.Duration
}

// Client talks to a password-grant identity provider (GoTrue-style REST API)
// and owns the single shared session. A mutex serializes auth operations so at
// most one sign-in/sign-out sequence is in flight at a time.
type Client struct {
	http   *resty.Client
	store  *SessionStore
	logger *zap.Logger

	mu      sync.Mutex
	session *Session
}

// NewClient builds the client and restores any persisted session.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("identity base url is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetHeader("apikey", cfg.APIKey)
	}

	session, err := cfg.Store.Load()
	if err != nil {
		return nil, err
	}

	return &Client{
		http:    httpClient,
		store:   cfg.Store,
		logger:  cfg.Logger,
		session: session,
	}, nil
}

// tokenResponse mirrors the provider's token grant payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// apiError mirrors the provider's error payloads, which vary by endpoint.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return "identity provider error"
}

// SignInWithPassword authenticates the credentials and persists the session.
func (c *Client) SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": creds.Email, "password": creds.Password}).
		Post("/token")
	if err != nil {
		return nil, fmt.Errorf("sign in request: %w", err)
	}

	if resp.IsError() {
		if resp.StatusCode() == 400 || resp.StatusCode() == 401 {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %s", decodeAPIError(resp.Body()).text())
	}

	session, err := c.adoptTokenResponse(resp.Body())
	if err != nil {
		return nil, err
	}

	c.logger.Info("signed in", zap.String("user_id", session.User.ID))
	return session, nil
}

// SignUp registers a new account. When the provider auto-confirms, the returned
// session carries token material and is persisted like a sign-in.
func (c *Client) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": creds.Email, "password": creds.Password}).
		Post("/signup")
	if err != nil {
		return nil, fmt.Errorf("sign up request: %w", err)
	}

	if resp.IsError() {
		if resp.StatusCode() == 422 || resp.StatusCode() == 409 {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("sign up: %s", decodeAPIError(resp.Body()).text())
	}

	var probe tokenResponse
	if err := json.Unmarshal(resp.Body(), &probe); err != nil {
		return nil, fmt.Errorf("decode sign up response: %w", err)
	}

	if probe.AccessToken != "" {
		session, err := c.adoptTokenResponse(resp.Body())
		if err != nil {
			return nil, err
		}
		c.logger.Info("signed up", zap.String("user_id", session.User.ID))
		return session, nil
	}

	// Confirmation-required flow: the provider returned the bare user record.
	var user User
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, fmt.Errorf("decode sign up user: %w", err)
	}
	c.logger.Info("signed up, confirmation pending", zap.String("user_id", user.ID))
	return &Session{User: user}, nil
}

// SignOut revokes the session with the provider and clears the local copy.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.AccessToken == "" {
		return ErrNoSession
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.session.AccessToken).
		Post("/logout")
	if err != nil {
		// Remote revocation is best effort; the local session still goes away.
		c.logger.Warn("sign out revocation failed", zap.Error(err))
	} else if resp.IsError() && resp.StatusCode() != 401 {
		c.logger.Warn("sign out rejected", zap.Int("status", resp.StatusCode()))
	}

	c.session = nil
	if err := c.store.Clear(); err != nil {
		return err
	}

	c.logger.Info("signed out")
	return nil
}

// GetUser fetches the authenticated subject from the provider.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil || session.AccessToken == "" {
		return nil, ErrNoSession
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(session.AccessToken).
		Get("/user")
	if err != nil {
		return nil, fmt.Errorf("get user request: %w", err)
	}

	if resp.IsError() {
		if resp.StatusCode() == 401 {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("get user: %s", decodeAPIError(resp.Body()).text())
	}

	var user User
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// CurrentSession returns the live session, if any.
func (c *Client) CurrentSession() (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, false
	}
	session := *c.session
	return &session, true
}

func (c *Client) adoptTokenResponse(body []byte) (*Session, error) {
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	fallback := time.Time{}
	if tok.ExpiresIn > 0 {
		fallback = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	session := &Session{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tokenExpiry(tok.AccessToken, fallback),
		User:         tok.User,
	}

	c.session = session
	if err := c.store.Save(session); err != nil {
		return nil, err
	}

	copied := *session
	return &copied, nil
}

func decodeAPIError(body []byte) apiError {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	return apiErr
}
