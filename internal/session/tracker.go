package session

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

type TrackerState int

const (
	StateActive TrackerState = iota
	StateWarning
	StateExpired
)

func (s TrackerState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateWarning:
		return "warning"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

type Interaction string

const (
	MouseDown  Interaction = "mousedown"
	MouseMove  Interaction = "mousemove"
	KeyPress   Interaction = "keypress"
	Scroll     Interaction = "scroll"
	TouchStart Interaction = "touchstart"
	Click      Interaction = "click"
)

var trackedInteractions = map[Interaction]bool{
	MouseDown:  true,
	MouseMove:  true,
	KeyPress:   true,
	Scroll:     true,
	TouchStart: true,
	Click:      true,
}

type TrackerConfig struct {
	Timeout     time.Duration
	WarningTime time.Duration
	WarningPoll time.Duration
	ExpiryPoll  time.Duration
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Timeout:     30 * time.Minute,
		WarningTime: 5 * time.Minute,
		WarningPoll: 30 * time.Second,
		ExpiryPoll:  60 * time.Second,
	}
}

func (c TrackerConfig) withDefaults() TrackerConfig {
	def := DefaultTrackerConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.WarningTime <= 0 || c.WarningTime >= c.Timeout {
		c.WarningTime = def.WarningTime
		if c.WarningTime >= c.Timeout {
			c.WarningTime = c.Timeout / 6
		}
	}
	if c.WarningPoll <= 0 {
		c.WarningPoll = def.WarningPoll
	}
	if c.ExpiryPoll <= 0 {
		c.ExpiryPoll = def.ExpiryPoll
	}
	return c
}

// Tracker signs the user out after cfg.Timeout without interaction and warns
// cfg.WarningTime before that. Two independent pollers evaluate the deadline;
// interactions reset it immediately.
type Tracker struct {
	cfg       TrackerConfig
	state     StateStore
	logger    *zap.Logger
	now       func() time.Time
	onWarning func(minutesLeft int)
	onExpire  func()

	mu           sync.Mutex
	lastActivity time.Time
	current      TrackerState
	cancel       context.CancelFunc
}

func NewTracker(cfg TrackerConfig, state StateStore, logger *zap.Logger, onWarning func(int), onExpire func()) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onWarning == nil {
		onWarning = func(int) {}
	}
	if onExpire == nil {
		onExpire = func() {}
	}
	return &Tracker{
		cfg:       cfg.withDefaults(),
		state:     state,
		logger:    logger,
		now:       time.Now,
		onWarning: onWarning,
		onExpire:  onExpire,
	}
}

// Start attaches the tracker for a fresh session and launches both pollers.
// Calling Start on a running tracker does nothing.
func (t *Tracker) Start(ctx context.Context) {
	t.start(ctx, time.Time{})
}

// Resume attaches the tracker for a session restored from local state. The
// clock continues from the persisted lastActivity. When that is already past
// the timeout the tracker stays detached and Resume returns false.
func (t *Tracker) Resume(ctx context.Context) bool {
	last, ok := t.persistedActivity()
	if !ok {
		t.start(ctx, time.Time{})
		return true
	}

	now := t.now()
	if last.After(now) {
		last = now
	}
	if now.Sub(last) > t.cfg.Timeout {
		t.logger.Info("restored session idle past timeout",
			zap.Time("last_activity", last),
			zap.Duration("timeout", t.cfg.Timeout))
		return false
	}
	t.start(ctx, last)
	return true
}

// start seeds the clock from resumeFrom, or from now when it is zero.
func (t *Tracker) start(ctx context.Context, resumeFrom time.Time) {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.current = StateActive
	if !resumeFrom.IsZero() {
		t.lastActivity = resumeFrom
	}
	t.mu.Unlock()

	if resumeFrom.IsZero() {
		t.touch()
	}

	go t.poll(ctx, t.cfg.WarningPoll, func(now time.Time) { t.CheckWarning(now) })
	go t.poll(ctx, t.cfg.ExpiryPoll, func(now time.Time) { t.CheckExpiry(now) })
}

// Stop detaches the tracker. It is safe to call from OnExpire and more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Tracker) poll(ctx context.Context, every time.Duration, check func(time.Time)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check(t.now())
		}
	}
}

// RecordActivity handles one interaction event. Untracked kinds and events
// arriving while the tracker is detached are ignored.
func (t *Tracker) RecordActivity(kind Interaction) bool {
	if !trackedInteractions[kind] || !t.Running() {
		return false
	}
	t.touch()
	return true
}

// Extend is the explicit "stay signed in" action from the warning prompt.
func (t *Tracker) Extend() {
	if !t.Running() {
		return
	}
	t.touch()
}

func (t *Tracker) touch() {
	now := t.now()

	t.mu.Lock()
	t.lastActivity = now
	if t.current == StateWarning {
		t.current = StateActive
	}
	t.mu.Unlock()

	if t.state == nil {
		return
	}
	if err := t.state.Set(KeyLastActivity, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		t.logger.Warn("failed to persist last activity", zap.Error(err))
	}
}

func (t *Tracker) persistedActivity() (time.Time, bool) {
	if t.state == nil {
		return time.Time{}, false
	}
	raw, ok, err := t.state.Get(KeyLastActivity)
	if err != nil {
		t.logger.Warn("failed to read last activity", zap.Error(err))
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		t.logger.Warn("ignoring malformed last activity", zap.String("value", raw))
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (t *Tracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

func (t *Tracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// CheckWarning is the fine-grained poll. Inside the warning window it moves to
// Warning and reports the whole minutes left, rounded up.
func (t *Tracker) CheckWarning(now time.Time) (int, bool) {
	t.mu.Lock()
	if t.current == StateExpired {
		t.mu.Unlock()
		return 0, false
	}
	elapsed := now.Sub(t.lastActivity)
	if elapsed < t.cfg.Timeout-t.cfg.WarningTime {
		t.current = StateActive
		t.mu.Unlock()
		return 0, false
	}
	remaining := t.cfg.Timeout - elapsed
	if remaining < 0 {
		remaining = 0
	}
	minutes := int(math.Ceil(remaining.Minutes()))
	t.current = StateWarning
	t.mu.Unlock()

	t.onWarning(minutes)
	return minutes, true
}

// CheckExpiry is the coarse poll. Past the timeout it moves to Expired and
// fires OnExpire once, whatever the previous state was.
func (t *Tracker) CheckExpiry(now time.Time) bool {
	t.mu.Lock()
	if t.current == StateExpired {
		t.mu.Unlock()
		return true
	}
	if now.Sub(t.lastActivity) <= t.cfg.Timeout {
		t.mu.Unlock()
		return false
	}
	t.current = StateExpired
	t.mu.Unlock()

	t.logger.Info("session expired due to inactivity",
		zap.Time("last_activity", t.LastActivity()),
		zap.Duration("timeout", t.cfg.Timeout))
	t.onExpire()
	return true
}
