// Package audit records access events (logins, logouts, session refreshes and
// denials) into the access_logs table. Every entry point is best-effort: a
// failure anywhere in the pipeline is logged and reported as false, never
// returned or raised to the caller.
package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"

	"parcelview/internal/clientinfo"
	"parcelview/internal/metrics"
	"parcelview/internal/models"
	"parcelview/internal/useragent"
)

const AccessLogsTable = "access_logs"

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// TableStore is the row-insert surface of the backing store.
type TableStore interface {
	Insert(ctx context.Context, table string, row any) error
}

type Locator interface {
	Resolve(ctx context.Context, ip string) models.Location
}

type EventData struct {
	UserID    *uuid.UUID
	Email     string
	EventType models.EventType
	Success   bool
	SessionID string
}

type Stage string

const (
	StageProbe     Stage = "probe"
	StageGeo       Stage = "geoip"
	StageUserAgent Stage = "useragent"
	StageInsert    Stage = "insert"
)

type LogError struct {
	Stage Stage
	Err   error
}

func (e *LogError) Error() string {
	return fmt.Sprintf("audit %s: %v", e.Stage, e.Err)
}

func (e *LogError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one pass through the pipeline. Event is set as soon
// as it has been assembled, even when the insert later fails.
type Result struct {
	Event *models.AccessEvent
	Err   *LogError
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Logger struct {
	probe  clientinfo.Prober
	geo    Locator
	store  TableStore
	logger *zap.Logger
	now    func() time.Time
	random func() string
}

func New(probe clientinfo.Prober, geo Locator, store TableStore, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	random, err := nanoid.CustomASCII(base36, 9)
	if err != nil {
		// only fails for invalid alphabet or length
		panic(err)
	}
	return &Logger{
		probe:  probe,
		geo:    geo,
		store:  store,
		logger: logger,
		now:    time.Now,
		random: random,
	}
}

// WithProbe returns a copy of l that reads client details from probe. The
// server uses it to attribute events to the request being served.
func (l *Logger) WithProbe(probe clientinfo.Prober) *Logger {
	cp := *l
	cp.probe = probe
	return &cp
}

// Try runs the pipeline and reports which stage failed, if any.
func (l *Logger) Try(ctx context.Context, data EventData) (res Result) {
	stage := StageProbe
	defer func() {
		if r := recover(); r != nil {
			res.Err = &LogError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	info := l.probe.Probe(ctx)

	stage = StageGeo
	location := l.geo.Resolve(ctx, info.IP)

	stage = StageUserAgent
	device := useragent.Parse(info.UserAgent)

	event := &models.AccessEvent{
		ID:         uuid.New(),
		UserID:     data.UserID,
		Email:      data.Email,
		IPAddress:  info.IP,
		UserAgent:  info.UserAgent,
		EventType:  data.EventType,
		Success:    data.Success,
		Location:   location,
		SessionID:  data.SessionID,
		DeviceInfo: device,
		CreatedAt:  l.now().UTC(),
	}
	if info.Referrer != "" {
		ref := info.Referrer
		event.Referrer = &ref
	}
	res.Event = event

	stage = StageInsert
	if err := l.store.Insert(ctx, AccessLogsTable, event); err != nil {
		res.Err = &LogError{Stage: StageInsert, Err: err}
	}

	return res
}

// LogAccess writes one access event and reports whether it was persisted.
func (l *Logger) LogAccess(ctx context.Context, data EventData) bool {
	res := l.Try(ctx, data)
	if !res.OK() {
		l.logger.Warn("failed to log access event",
			zap.String("event_type", string(data.EventType)),
			zap.String("email", data.Email),
			zap.String("stage", string(res.Err.Stage)),
			zap.Error(res.Err.Err))
		metrics.AuditWritesTotal.WithLabelValues(string(data.EventType), string(res.Err.Stage)).Inc()
		return false
	}

	metrics.AuditWritesTotal.WithLabelValues(string(data.EventType), "ok").Inc()
	return true
}

func (l *Logger) LogLogin(ctx context.Context, userID uuid.UUID, email, sessionID string) bool {
	return l.LogAccess(ctx, EventData{
		UserID:    &userID,
		Email:     email,
		EventType: models.EventLogin,
		Success:   true,
		SessionID: l.sessionIDOrNew(sessionID),
	})
}

func (l *Logger) LogFailedLogin(ctx context.Context, email, reason string) bool {
	return l.LogAccess(ctx, EventData{
		Email:     email,
		EventType: models.EventLogin,
		Success:   false,
		SessionID: l.tagged("failed", reason),
	})
}

func (l *Logger) LogLogout(ctx context.Context, userID uuid.UUID, email, sessionID string) bool {
	return l.LogAccess(ctx, EventData{
		UserID:    &userID,
		Email:     email,
		EventType: models.EventLogout,
		Success:   true,
		SessionID: l.sessionIDOrNew(sessionID),
	})
}

func (l *Logger) LogSessionRefresh(ctx context.Context, userID uuid.UUID, email, sessionID string) bool {
	return l.LogAccess(ctx, EventData{
		UserID:    &userID,
		Email:     email,
		EventType: models.EventSessionRefresh,
		Success:   true,
		SessionID: l.sessionIDOrNew(sessionID),
	})
}

// LogAccessDenied records a denial; email may be empty for anonymous callers.
func (l *Logger) LogAccessDenied(ctx context.Context, email, reason string) bool {
	return l.LogAccess(ctx, EventData{
		Email:     email,
		EventType: models.EventAccessDenied,
		Success:   false,
		SessionID: l.tagged("denied", reason),
	})
}

// NewSessionID returns "session_<epoch-ms>_<9 base36 chars>".
func (l *Logger) NewSessionID() string {
	return l.tagged("session", l.random())
}

func (l *Logger) sessionIDOrNew(sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return l.NewSessionID()
}

func (l *Logger) tagged(kind, suffix string) string {
	return kind + "_" + strconv.FormatInt(l.now().UnixMilli(), 10) + "_" + suffix
}
