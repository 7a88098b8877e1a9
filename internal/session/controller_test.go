package session

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"parcelview/internal/audit"
	"parcelview/internal/backend"
	"parcelview/internal/clientinfo"
	"parcelview/internal/geoip"
	"parcelview/internal/models"
)

const flushWait = time.Second

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "surveyor@example.com", Role: models.RoleUser}
}

func newTestController(t *testing.T, b *mockBackend, auditor Auditor, state StateStore) *Controller {
	t.Helper()
	b.On("OnAuthStateChange", mock.Anything).Maybe()
	c := NewController(b, auditor, state, ControllerOptions{})
	t.Cleanup(c.Tracker().Stop)
	return c
}

func TestController_InitWithoutSessionIsAnonymous(t *testing.T) {
	b := &mockBackend{}
	b.On("GetSession", mock.Anything).Return(nil, nil)
	auditor := &recordingAuditor{}
	c := newTestController(t, b, auditor, newMemState())

	require.Equal(t, StateLoading, c.State())
	require.Equal(t, StateAnonymous, c.Init(context.Background()))

	select {
	case <-c.Loaded():
	default:
		t.Fatal("loading did not end")
	}
	require.Nil(t, c.User())
	require.True(t, c.Flush(flushWait))
	require.Zero(t, auditor.count())
}

func TestController_InitResumesSessionAndLogsRefresh(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("GetSession", mock.Anything).Return(&backend.Session{User: user}, nil)
	auditor := &recordingAuditor{}
	state := newMemState()
	c := newTestController(t, b, auditor, state)

	require.Equal(t, StateAuthenticated, c.Init(context.Background()))
	require.Equal(t, user.ID, c.User().ID)
	require.NotEmpty(t, c.SessionID())
	require.True(t, c.Tracker().Running())

	require.True(t, c.Flush(flushWait))
	refreshes := auditor.ofKind("session_refresh")
	require.Len(t, refreshes, 1)
	require.Equal(t, c.SessionID(), refreshes[0].sessionID)

	stored, ok, _ := state.Get(KeySessionID)
	require.True(t, ok)
	require.Equal(t, c.SessionID(), stored)
}

func TestController_InitBackendErrorEndsLoading(t *testing.T) {
	b := &mockBackend{}
	b.On("GetSession", mock.Anything).Return(nil, errors.New("connection refused"))
	c := newTestController(t, b, &recordingAuditor{}, newMemState())

	require.Equal(t, StateAnonymous, c.Init(context.Background()))
	<-c.Loaded()
}

func TestController_SignInSuccess(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("SignInWithPassword", mock.Anything, user.Email, "correct horse").
		Return(&backend.Session{User: user, AccessToken: "at"}, nil)
	auditor := &recordingAuditor{}
	c := newTestController(t, b, auditor, newMemState())

	res := c.SignIn(context.Background(), user.Email, "correct horse")
	require.NoError(t, res.Err)
	require.Equal(t, "at", res.Data.AccessToken)
	require.Equal(t, StateAuthenticated, c.State())
	require.True(t, c.Tracker().Running())

	require.True(t, c.Flush(flushWait))
	logins := auditor.ofKind("login")
	require.Len(t, logins, 1)
	require.Equal(t, user.ID, logins[0].userID)
	require.Equal(t, c.SessionID(), logins[0].sessionID)
}

func TestController_SignInRejectedLogsOneFailure(t *testing.T) {
	rejection := &backend.AuthError{Message: "Invalid login credentials", Status: 400}
	b := &mockBackend{}
	b.On("SignInWithPassword", mock.Anything, "a@b.c", "wrong").Return(nil, rejection)
	auditor := &recordingAuditor{}
	c := newTestController(t, b, auditor, newMemState())

	res := c.SignIn(context.Background(), "a@b.c", "wrong")
	require.Nil(t, res.Data)
	require.Same(t, rejection, res.Err)
	require.Nil(t, c.User())

	require.True(t, c.Flush(flushWait))
	require.Equal(t, 1, auditor.count())
	failed := auditor.ofKind("failed_login")
	require.Len(t, failed, 1)
	require.Equal(t, "a@b.c", failed[0].email)
	require.Equal(t, "Invalid login credentials", failed[0].reason)
}

func TestController_SignInTransportErrorIsSystemError(t *testing.T) {
	b := &mockBackend{}
	b.On("SignInWithPassword", mock.Anything, "a@b.c", "pw").Return(nil, errors.New("dial tcp: refused"))
	auditor := &recordingAuditor{}
	c := newTestController(t, b, auditor, newMemState())

	res := c.SignIn(context.Background(), "a@b.c", "pw")
	require.Error(t, res.Err)

	require.True(t, c.Flush(flushWait))
	failed := auditor.ofKind("failed_login")
	require.Len(t, failed, 1)
	require.Equal(t, ReasonSystemError, failed[0].reason)
}

func TestController_SignInPanicIsSystemError(t *testing.T) {
	b := &mockBackend{}
	b.On("SignInWithPassword", mock.Anything, "a@b.c", "pw").
		Run(func(mock.Arguments) { panic("backend exploded") })
	auditor := &recordingAuditor{}
	c := newTestController(t, b, auditor, newMemState())

	var res AuthResult
	require.NotPanics(t, func() {
		res = c.SignIn(context.Background(), "a@b.c", "pw")
	})
	require.Nil(t, res.Data)
	require.ErrorContains(t, res.Err, "backend exploded")

	require.True(t, c.Flush(flushWait))
	failed := auditor.ofKind("failed_login")
	require.Len(t, failed, 1)
	require.Equal(t, ReasonSystemError, failed[0].reason)
}

func TestController_SignOutTwiceLogsOnce(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("SignInWithPassword", mock.Anything, user.Email, "pw").Return(&backend.Session{User: user}, nil)
	b.On("SignOut", mock.Anything).Return(nil)
	auditor := &recordingAuditor{}
	state := newMemState()
	c := newTestController(t, b, auditor, state)

	require.NoError(t, c.SignIn(context.Background(), user.Email, "pw").Err)
	sessionID := c.SessionID()

	require.NoError(t, c.SignOut(context.Background()))
	require.NotPanics(t, func() {
		require.NoError(t, c.SignOut(context.Background()))
	})

	require.True(t, c.Flush(flushWait))
	logouts := auditor.ofKind("logout")
	require.Len(t, logouts, 1)
	require.Equal(t, sessionID, logouts[0].sessionID)

	require.Equal(t, StateAnonymous, c.State())
	require.Empty(t, c.SessionID())
	require.False(t, c.Tracker().Running())
	require.Equal(t, 2, state.clears)
	b.AssertNumberOfCalls(t, "SignOut", 2)
}

func TestController_SignOutClearsStateWhenBackendFails(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("SignInWithPassword", mock.Anything, user.Email, "pw").Return(&backend.Session{User: user}, nil)
	b.On("SignOut", mock.Anything).Return(errors.New("server unavailable"))
	c := newTestController(t, b, &recordingAuditor{}, newMemState())

	require.NoError(t, c.SignIn(context.Background(), user.Email, "pw").Err)
	require.Error(t, c.SignOut(context.Background()))
	require.Nil(t, c.User())
	require.Empty(t, c.SessionID())
}

func TestController_SignUpWritesNoAudit(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("SignUp", mock.Anything, user.Email, "pw").Return(&backend.Session{User: user}, nil)
	auditor := &recordingAuditor{}
	c := newTestController(t, b, auditor, newMemState())

	res := c.SignUp(context.Background(), user.Email, "pw")
	require.NoError(t, res.Err)
	require.Equal(t, user.Email, res.Data.User.Email)

	require.True(t, c.Flush(flushWait))
	require.Zero(t, auditor.count())
}

func TestController_InactivitySignsOut(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("OnAuthStateChange", mock.Anything).Maybe()
	b.On("SignInWithPassword", mock.Anything, user.Email, "pw").Return(&backend.Session{User: user}, nil)
	b.On("SignOut", mock.Anything).Return(nil)
	auditor := &recordingAuditor{}

	var expired bool
	c := NewController(b, auditor, newMemState(), ControllerOptions{
		OnExpired: func() { expired = true },
	})
	t.Cleanup(c.Tracker().Stop)

	require.NoError(t, c.SignIn(context.Background(), user.Email, "pw").Err)
	start := c.Tracker().LastActivity()

	require.True(t, c.Tracker().CheckExpiry(start.Add(31*time.Minute)))
	require.True(t, expired)
	require.Equal(t, StateAnonymous, c.State())

	require.True(t, c.Flush(flushWait))
	require.Len(t, auditor.ofKind("logout"), 1)
}

func TestController_AuthChangeUpdatesUserOnly(t *testing.T) {
	b := &mockBackend{}
	var listener backend.AuthListener
	b.On("OnAuthStateChange", mock.Anything).Run(func(args mock.Arguments) {
		listener = args.Get(0).(backend.AuthListener)
	})
	b.On("GetSession", mock.Anything).Return(nil, nil)
	auditor := &recordingAuditor{}
	c := NewController(b, auditor, newMemState(), ControllerOptions{})
	c.Init(context.Background())
	require.NotNil(t, listener)

	user := testUser()
	listener(backend.EventTokenRefreshed, &backend.Session{User: user})
	require.Equal(t, user.ID, c.User().ID)
	require.Equal(t, StateAuthenticated, c.State())

	listener(backend.EventSignedOut, nil)
	require.Nil(t, c.User())

	require.True(t, c.Flush(flushWait))
	require.Zero(t, auditor.count())
}

func TestController_CloseSignsOutBestEffort(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("SignInWithPassword", mock.Anything, user.Email, "pw").Return(&backend.Session{User: user}, nil)
	b.On("SignOut", mock.Anything).Return(errors.New("timeout"))
	auditor := &recordingAuditor{}
	c := newTestController(t, b, auditor, newMemState())

	require.NoError(t, c.SignIn(context.Background(), user.Email, "pw").Err)
	c.Close()

	require.Nil(t, c.User())
	require.Len(t, auditor.ofKind("logout"), 1)
}

type fixedProbe struct{ info clientinfo.Info }

func (p fixedProbe) Probe(context.Context) clientinfo.Info { return p.info }

type rowStore struct {
	mu   sync.Mutex
	rows []*models.AccessEvent
}

func (s *rowStore) Insert(_ context.Context, table string, row any) error {
	if table != audit.AccessLogsTable {
		return errors.New("unexpected table " + table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row.(*models.AccessEvent))
	return nil
}

func TestController_FailedLoginThroughAuditPipeline(t *testing.T) {
	store := &rowStore{}
	probe := fixedProbe{info: clientinfo.Info{
		IP:        "127.0.0.1",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Version/17.1 Safari/605.1.15",
	}}
	auditor := audit.New(probe, geoip.NewResolver("http://127.0.0.1:1", time.Second, nil, nil), store, nil)

	b := &mockBackend{}
	b.On("SignInWithPassword", mock.Anything, "a@b.c", "wrong").
		Return(nil, &backend.AuthError{Message: "Invalid login credentials", Status: 400})
	c := newTestController(t, b, auditor, newMemState())

	c.SignIn(context.Background(), "a@b.c", "wrong")
	require.True(t, c.Flush(flushWait))

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	require.Equal(t, models.EventLogin, row.EventType)
	require.False(t, row.Success)
	require.Nil(t, row.UserID)
	require.Equal(t, "a@b.c", row.Email)
	require.Regexp(t, regexp.MustCompile(`^failed_\d+_Invalid login credentials$`), row.SessionID)
	require.Equal(t, "Local/Development", *row.Location.Country)
	require.Equal(t, "Safari", row.DeviceInfo.Browser)
	require.Equal(t, "macOS 10.15.7", row.DeviceInfo.OS)
}

func TestController_InitExpiresSessionIdlePastTimeout(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("GetSession", mock.Anything).Return(&backend.Session{User: user}, nil)
	b.On("SignOut", mock.Anything).Return(nil).Once()
	auditor := &recordingAuditor{}
	state := newMemState()
	require.NoError(t, state.Set(KeySessionID, "session_1699999000000_prev00001"))
	require.NoError(t, state.Set(KeyLastActivity, strconv.FormatInt(time.Now().Add(-31*time.Minute).UnixMilli(), 10)))

	var expired int
	b.On("OnAuthStateChange", mock.Anything).Maybe()
	c := NewController(b, auditor, state, ControllerOptions{OnExpired: func() { expired++ }})
	t.Cleanup(c.Tracker().Stop)

	require.Equal(t, StateAnonymous, c.Init(context.Background()))
	require.Equal(t, StateAnonymous, c.State())
	require.Nil(t, c.User())
	require.Empty(t, c.SessionID())
	require.False(t, c.Tracker().Running())
	require.Equal(t, 1, expired)

	require.True(t, c.Flush(flushWait))
	require.Empty(t, auditor.ofKind("session_refresh"))
	logouts := auditor.ofKind("logout")
	require.Len(t, logouts, 1)
	require.Equal(t, user.ID, logouts[0].userID)
	require.Equal(t, "session_1699999000000_prev00001", logouts[0].sessionID)

	require.Equal(t, 1, state.clears)
	_, ok, _ := state.Get(KeyLastActivity)
	require.False(t, ok)
	b.AssertExpectations(t)
}

func TestController_InitKeepsRecentlyActiveSession(t *testing.T) {
	user := testUser()
	b := &mockBackend{}
	b.On("GetSession", mock.Anything).Return(&backend.Session{User: user}, nil)
	auditor := &recordingAuditor{}
	state := newMemState()
	last := time.Now().Add(-10 * time.Minute).Truncate(time.Millisecond)
	require.NoError(t, state.Set(KeyLastActivity, strconv.FormatInt(last.UnixMilli(), 10)))
	c := newTestController(t, b, auditor, state)

	require.Equal(t, StateAuthenticated, c.Init(context.Background()))
	require.True(t, c.Tracker().Running())
	require.True(t, last.Equal(c.Tracker().LastActivity()))

	require.True(t, c.Flush(flushWait))
	require.Len(t, auditor.ofKind("session_refresh"), 1)
	require.Empty(t, auditor.ofKind("logout"))

	// 21 more idle minutes cross the 30 minute line
	b.On("SignOut", mock.Anything).Return(nil).Once()
	require.True(t, c.Tracker().CheckExpiry(last.Add(31*time.Minute)))
	require.Equal(t, StateAnonymous, c.State())
}
