package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parcelview/internal/backend"
	"parcelview/internal/models"
)

type AuthState int

const (
	StateLoading AuthState = iota
	StateAnonymous
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

const (
	ReasonSystemError = "system_error"

	auditTimeout = 10 * time.Second
	closeTimeout = 2 * time.Second
)

// Backend is the hosted auth service as seen by the controller.
type Backend interface {
	GetSession(ctx context.Context) (*backend.Session, error)
	OnAuthStateChange(fn backend.AuthListener) func()
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignOut(ctx context.Context) error
	SignUp(ctx context.Context, email, password string) (*backend.Session, error)
}

// Auditor is the subset of audit.Logger the controller calls.
type Auditor interface {
	LogLogin(ctx context.Context, userID uuid.UUID, email, sessionID string) bool
	LogFailedLogin(ctx context.Context, email, reason string) bool
	LogLogout(ctx context.Context, userID uuid.UUID, email, sessionID string) bool
	LogSessionRefresh(ctx context.Context, userID uuid.UUID, email, sessionID string) bool
	NewSessionID() string
}

// AuthResult mirrors the {data, error} shape returned to UI code. Err is either
// the backend's *backend.AuthError, unchanged, or an unexpected failure.
type AuthResult struct {
	Data *backend.Session
	Err  error
}

type Controller struct {
	backend Backend
	audit   Auditor
	state   StateStore
	logger  *zap.Logger

	tracker   *Tracker
	onExpired func()

	mu        sync.RWMutex
	authState AuthState
	user      *models.User
	sessionID string

	loadOnce    sync.Once
	loaded      chan struct{}
	unsubscribe func()
	pending     sync.WaitGroup
}

type ControllerOptions struct {
	Tracker   TrackerConfig
	OnWarning func(minutesLeft int)
	// OnExpired runs after an inactivity sign-out has completed.
	OnExpired func()
	Logger    *zap.Logger
}

func NewController(b Backend, auditor Auditor, state StateStore, opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		backend:   b,
		audit:     auditor,
		state:     state,
		logger:    logger,
		authState: StateLoading,
		loaded:    make(chan struct{}),
		onExpired: opts.OnExpired,
	}
	c.tracker = NewTracker(opts.Tracker, state, logger, opts.OnWarning, func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		c.SignOut(ctx)
		if c.onExpired != nil {
			c.onExpired()
		}
	})
	return c
}

// Init resumes a persisted session and subscribes to backend auth changes.
// Loading ends exactly once, whatever the outcome.
func (c *Controller) Init(ctx context.Context) AuthState {
	defer c.finishLoading()

	c.mu.Lock()
	if c.unsubscribe == nil {
		c.unsubscribe = c.backend.OnAuthStateChange(c.handleAuthChange)
	}
	c.mu.Unlock()

	s, err := c.backend.GetSession(ctx)
	if err != nil {
		c.logger.Warn("could not resume session", zap.Error(err))
	}
	if err != nil || s == nil || s.User == nil {
		c.setState(StateAnonymous, nil, "")
		return StateAnonymous
	}

	if !c.tracker.Resume(context.Background()) {
		c.expireRestored(ctx, *s.User)
		return StateAnonymous
	}

	sessionID := c.audit.NewSessionID()
	c.setState(StateAuthenticated, s.User, sessionID)
	c.persistSessionID(sessionID)

	user := *s.User
	c.background(func(ctx context.Context) {
		c.audit.LogSessionRefresh(ctx, user.ID, user.Email, sessionID)
	})

	return StateAuthenticated
}

// expireRestored ends a restored session that sat idle past the timeout while
// nothing was tracking it. No refresh is logged; the logout row carries the
// session id stored at sign-in. The state never leaves Loading on this path.
func (c *Controller) expireRestored(ctx context.Context, user models.User) {
	sessionID := ""
	if c.state != nil {
		if v, ok, err := c.state.Get(KeySessionID); err == nil && ok {
			sessionID = v
		}
	}

	c.mu.Lock()
	c.user = &user
	c.sessionID = sessionID
	c.mu.Unlock()

	c.SignOut(ctx)
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Controller) finishLoading() {
	c.loadOnce.Do(func() {
		c.mu.Lock()
		if c.authState == StateLoading {
			c.authState = StateAnonymous
		}
		c.mu.Unlock()
		close(c.loaded)
	})
}

// Loaded is closed once Init has finished.
func (c *Controller) Loaded() <-chan struct{} {
	return c.loaded
}

// handleAuthChange keeps the current user in sync with the backend. It never
// writes audit events.
func (c *Controller) handleAuthChange(event backend.AuthEvent, s *backend.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case s != nil && s.User != nil:
		c.user = s.User
		if c.authState != StateLoading {
			c.authState = StateAuthenticated
		}
	case event == backend.EventSignedOut:
		c.user = nil
		if c.authState != StateLoading {
			c.authState = StateAnonymous
		}
	}
}

func (c *Controller) SignIn(ctx context.Context, email, password string) (res AuthResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sign in: %v", r)
			c.logger.Error("unexpected failure during sign in", zap.String("email", email), zap.Error(err))
			c.background(func(ctx context.Context) {
				c.audit.LogFailedLogin(ctx, email, ReasonSystemError)
			})
			res = AuthResult{Err: err}
		}
	}()

	s, err := c.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		reason := ReasonSystemError
		var authErr *backend.AuthError
		if errors.As(err, &authErr) {
			reason = authErr.Message
		} else {
			c.logger.Error("sign in failed", zap.String("email", email), zap.Error(err))
		}
		c.background(func(ctx context.Context) {
			c.audit.LogFailedLogin(ctx, email, reason)
		})
		return AuthResult{Err: err}
	}
	if s == nil || s.User == nil {
		err := errors.New("sign in: backend returned no user")
		c.background(func(ctx context.Context) {
			c.audit.LogFailedLogin(ctx, email, ReasonSystemError)
		})
		return AuthResult{Err: err}
	}

	sessionID := c.audit.NewSessionID()
	c.setState(StateAuthenticated, s.User, sessionID)
	c.persistSessionID(sessionID)
	c.tracker.Start(context.Background())

	user := *s.User
	c.background(func(ctx context.Context) {
		c.audit.LogLogin(ctx, user.ID, user.Email, sessionID)
	})

	return AuthResult{Data: s}
}

// SignOut ends the session. It is safe to call repeatedly; only a call that
// finds a signed-in user writes a logout event. Local state is cleared and the
// backend is told even when that write fails.
func (c *Controller) SignOut(ctx context.Context) error {
	c.tracker.Stop()

	c.mu.Lock()
	user := c.user
	sessionID := c.sessionID
	c.user = nil
	if c.authState != StateLoading {
		c.authState = StateAnonymous
	}
	c.mu.Unlock()

	// written while the credentials that authorize the insert still exist
	if user != nil {
		c.logLogout(ctx, *user, sessionID)
	}

	if c.state != nil {
		if err := c.state.Clear(); err != nil {
			c.logger.Warn("failed to clear local session state", zap.Error(err))
		}
	}

	err := c.backend.SignOut(ctx)
	if err != nil {
		c.logger.Warn("backend sign out failed", zap.Error(err))
	}

	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()

	return err
}

// SignUp creates an account. Unlike SignIn it writes no audit event.
func (c *Controller) SignUp(ctx context.Context, email, password string) AuthResult {
	s, err := c.backend.SignUp(ctx, email, password)
	if err != nil {
		return AuthResult{Err: err}
	}
	return AuthResult{Data: s}
}

// Close is the terminal/tab close hook: a best-effort sign-out bounded by a
// short deadline, then teardown of the backend subscription.
func (c *Controller) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if c.User() != nil {
		_ = c.SignOut(ctx)
	}
	c.tracker.Stop()

	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	c.Flush(closeTimeout)
}

// Flush waits up to timeout for in-flight audit writes.
func (c *Controller) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *Controller) background(fn func(ctx context.Context)) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Warn("audit write panicked", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (c *Controller) logLogout(ctx context.Context, user models.User, sessionID string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("logout audit panicked", zap.Any("panic", r))
		}
	}()
	c.audit.LogLogout(ctx, user.ID, user.Email, sessionID)
}

func (c *Controller) setState(state AuthState, user *models.User, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authState = state
	c.user = user
	c.sessionID = sessionID
}

func (c *Controller) persistSessionID(sessionID string) {
	if c.state == nil {
		return
	}
	if err := c.state.Set(KeySessionID, sessionID); err != nil {
		c.logger.Warn("failed to persist session id", zap.Error(err))
	}
}

func (c *Controller) State() AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authState
}

func (c *Controller) User() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Controller) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Tracker exposes the inactivity tracker so the UI can forward interactions.
func (c *Controller) Tracker() *Tracker {
	return c.tracker
}
