package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"parcelview/internal/backend"
)

type memState struct {
	mu     sync.Mutex
	values map[string]string
	clears int
}

func newMemState() *memState {
	return &memState{values: make(map[string]string)}
}

func (m *memState) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memState) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memState) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memState) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	m.clears++
	return nil
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GetSession(ctx context.Context) (*backend.Session, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*backend.Session)
	return s, args.Error(1)
}

func (m *mockBackend) OnAuthStateChange(fn backend.AuthListener) func() {
	m.Called(fn)
	return func() {}
}

func (m *mockBackend) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*backend.Session)
	return s, args.Error(1)
}

func (m *mockBackend) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockBackend) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*backend.Session)
	return s, args.Error(1)
}

type auditCall struct {
	kind      string
	userID    uuid.UUID
	email     string
	sessionID string
	reason    string
}

type recordingAuditor struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *recordingAuditor) record(c auditCall) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, c)
	return true
}

func (a *recordingAuditor) LogLogin(_ context.Context, userID uuid.UUID, email, sessionID string) bool {
	return a.record(auditCall{kind: "login", userID: userID, email: email, sessionID: sessionID})
}

func (a *recordingAuditor) LogFailedLogin(_ context.Context, email, reason string) bool {
	return a.record(auditCall{kind: "failed_login", email: email, reason: reason})
}

func (a *recordingAuditor) LogLogout(_ context.Context, userID uuid.UUID, email, sessionID string) bool {
	return a.record(auditCall{kind: "logout", userID: userID, email: email, sessionID: sessionID})
}

func (a *recordingAuditor) LogSessionRefresh(_ context.Context, userID uuid.UUID, email, sessionID string) bool {
	return a.record(auditCall{kind: "session_refresh", userID: userID, email: email, sessionID: sessionID})
}

func (a *recordingAuditor) NewSessionID() string {
	return "session_1700000000000_abc123xyz"
}

func (a *recordingAuditor) ofKind(kind string) []auditCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []auditCall
	for _, c := range a.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (a *recordingAuditor) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}
