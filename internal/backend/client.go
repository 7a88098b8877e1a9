package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"parcelview/internal/models"
)

const authStateKey = "auth"

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	logger  *zap.Logger

	mu        sync.Mutex
	session   *Session
	// refreshToken outlives the persisted copy so a sign-out can still revoke
	// it after local state has been cleared.
	refreshToken string
	listeners map[int]AuthListener
	nextID    int
}

func NewClient(baseURL string, tokens TokenStore, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		tokens:    tokens,
		logger:    logger,
		listeners: make(map[int]AuthListener),
	}
	c.refreshToken = c.storedRefreshToken()
	return c
}

type persistedTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// OnAuthStateChange registers fn for sign-in, sign-out and refresh
// notifications. The returned func unsubscribes.
func (c *Client) OnAuthStateChange(fn AuthListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) notify(event AuthEvent, session *Session) {
	c.mu.Lock()
	listeners := make([]AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(event, session)
	}
}

func (c *Client) current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.refreshToken = ""
	if s != nil {
		c.refreshToken = s.RefreshToken
	}
	c.mu.Unlock()

	if c.tokens == nil {
		return
	}
	if s == nil {
		if err := c.tokens.Delete(authStateKey); err != nil {
			c.logger.Warn("failed to clear persisted tokens", zap.Error(err))
		}
		return
	}
	data, err := json.Marshal(persistedTokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken})
	if err != nil {
		return
	}
	if err := c.tokens.Set(authStateKey, string(data)); err != nil {
		c.logger.Warn("failed to persist tokens", zap.Error(err))
	}
}

// persistedRefreshToken prefers the stored copy and falls back to the last
// token this client saw.
func (c *Client) persistedRefreshToken() string {
	if token := c.storedRefreshToken(); token != "" {
		return token
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken
}

func (c *Client) storedRefreshToken() string {
	if c.tokens == nil {
		return ""
	}
	raw, ok, err := c.tokens.Get(authStateKey)
	if err != nil || !ok {
		return ""
	}
	var saved persistedTokens
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return ""
	}
	return saved.RefreshToken
}

// GetSession returns the in-memory session or resumes one from a persisted
// refresh token. It returns nil, nil when there is nothing to resume.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	if s := c.current(); s != nil {
		return s, nil
	}

	refreshToken := c.persistedRefreshToken()
	if refreshToken == "" {
		return nil, nil
	}

	s, err := c.refresh(ctx, refreshToken)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			c.setSession(nil)
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", refreshRequest{RefreshToken: refreshToken}, &s); err != nil {
		return nil, err
	}
	c.setSession(&s)
	c.notify(EventTokenRefreshed, &s)
	return &s, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", credentials{Email: email, Password: password}, &s); err != nil {
		return nil, err
	}
	c.setSession(&s)
	c.notify(EventSignedIn, &s)
	return &s, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", credentials{Email: email, Password: password}, &user); err != nil {
		return nil, err
	}
	return &Session{User: &user}, nil
}

// SignOut revokes the refresh token server-side. Local session state is
// dropped even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.current()
	refreshToken := c.persistedRefreshToken()
	accessToken := ""
	if s != nil {
		refreshToken = s.RefreshToken
		accessToken = s.AccessToken
	}

	var err error
	if refreshToken != "" {
		err = c.do(ctx, http.MethodPost, "/auth/logout", accessToken, refreshRequest{RefreshToken: refreshToken}, nil)
	}

	c.setSession(nil)
	if s != nil {
		c.notify(EventSignedOut, nil)
	}
	return err
}

// Insert posts one row to the table store.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	return c.doAuthorized(ctx, http.MethodPost, "/rest/"+url.PathEscape(table), row, nil)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doAuthorized(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type addFavoriteRequest struct {
	County string  `json:"county"`
	Label  *string `json:"label,omitempty"`
}

func (c *Client) ListFavorites(ctx context.Context) ([]models.FavoriteParcel, error) {
	var parcels []models.FavoriteParcel
	if err := c.doAuthorized(ctx, http.MethodGet, "/favorites", nil, &parcels); err != nil {
		return nil, err
	}
	return parcels, nil
}

func (c *Client) AddFavorite(ctx context.Context, parcelID, county string, label *string) error {
	path := "/parcels/" + url.PathEscape(parcelID) + "/favorite"
	return c.doAuthorized(ctx, http.MethodPost, path, addFavoriteRequest{County: county, Label: label}, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, parcelID string) error {
	path := "/parcels/" + url.PathEscape(parcelID) + "/favorite"
	return c.doAuthorized(ctx, http.MethodDelete, path, nil, nil)
}

// doAuthorized sends the current access token and retries once after a
// refresh when the token has expired.
func (c *Client) doAuthorized(ctx context.Context, method, path string, body, out any) error {
	s := c.current()
	token := ""
	if s != nil {
		token = s.AccessToken
	}

	err := c.do(ctx, method, path, token, body, out)

	var authErr *AuthError
	if s == nil || !errors.As(err, &authErr) || authErr.Status != http.StatusUnauthorized {
		return err
	}

	refreshed, rerr := c.refresh(ctx, s.RefreshToken)
	if rerr != nil {
		return err
	}
	return c.do(ctx, method, path, refreshed.AccessToken, body, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode < 500 {
			return &AuthError{Message: text, Status: resp.StatusCode}
		}
		return fmt.Errorf("%s %s: server returned %d: %s", method, path, resp.StatusCode, text)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
