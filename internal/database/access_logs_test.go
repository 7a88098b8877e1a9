package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"parcelview/internal/models"
)

func newTestAccessEvent(userID *uuid.UUID, email string, eventType models.EventType, success bool) *models.AccessEvent {
	country, city := "United States", "Tampa"
	return &models.AccessEvent{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     email,
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0 Safari/537.36",
		EventType: eventType,
		Success:   success,
		Location: models.Location{
			Country: &country,
			City:    &city,
			Coords:  &models.Coords{Lat: 27.95, Lng: -82.46},
		},
		SessionID: "session_1700000000123_abc123xyz",
		DeviceInfo: models.DeviceInfo{
			Browser:        "Chrome",
			BrowserVersion: "120.0",
			OS:             "Windows 10.0",
			Device:         "Desktop",
		},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestInsertAccessLog_RoundTrip(t *testing.T) {
	user := createRandomUser(t, "audit_roundtrip@example.com")
	event := newTestAccessEvent(&user.ID, user.Email, models.EventLogin, true)
	ref := "https://maps.example.com/parcels"
	event.Referrer = &ref

	require.NoError(t, testStore.Insert(context.Background(), "access_logs", event))
	require.True(t, testPublisher.contains(event.ID.String()))

	events, err := testStore.ListAccessLogs(context.Background(), AccessLogFilter{
		Email: "audit_roundtrip",
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	require.Equal(t, event.ID, got.ID)
	require.Equal(t, user.ID, *got.UserID)
	require.Equal(t, models.EventLogin, got.EventType)
	require.True(t, got.Success)
	require.Equal(t, "Tampa", *got.Location.City)
	require.Nil(t, got.Location.Region)
	require.Equal(t, 27.95, got.Location.Coords.Lat)
	require.Equal(t, event.DeviceInfo, got.DeviceInfo)
	require.Equal(t, ref, *got.Referrer)
	require.WithinDuration(t, event.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestInsertAccessLog_AnonymousFailure(t *testing.T) {
	event := newTestAccessEvent(nil, "intruder@example.com", models.EventLogin, false)
	event.SessionID = "failed_1700000000123_Invalid login credentials"

	require.NoError(t, testStore.Insert(context.Background(), "access_logs", event))

	events, err := testStore.ListAccessLogs(context.Background(), AccessLogFilter{Email: "intruder@", Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Nil(t, events[0].UserID)
	require.False(t, events[0].Success)
}

func TestInsertAccessLog_UnknownUser(t *testing.T) {
	ghost := uuid.New()
	event := newTestAccessEvent(&ghost, "ghost@example.com", models.EventLogout, true)

	err := testStore.Insert(context.Background(), "access_logs", event)
	require.ErrorIs(t, err, ErrUnknownUser)
	require.False(t, testPublisher.contains(event.ID.String()))
}

func TestStoreInsert_RejectsOtherTables(t *testing.T) {
	err := testStore.Insert(context.Background(), "users", map[string]any{"email": "x"})
	require.ErrorIs(t, err, ErrUnknownTable)

	err = testStore.Insert(context.Background(), "access_logs", map[string]any{"email": "x"})
	require.ErrorIs(t, err, ErrInvalidRow)
}

func TestAccessLogs_AppendOnly(t *testing.T) {
	event := newTestAccessEvent(nil, "appendonly@example.com", models.EventAccessDenied, false)
	require.NoError(t, testStore.InsertAccessLog(context.Background(), event))

	_, err := testStore.GetPool().Exec(context.Background(), `UPDATE access_logs SET success = true WHERE id = $1`, event.ID)
	require.Error(t, err)

	_, err = testStore.GetPool().Exec(context.Background(), `DELETE FROM access_logs WHERE id = $1`, event.ID)
	require.Error(t, err)
}

func TestListAccessLogs_FilterAndOrder(t *testing.T) {
	user := createRandomUser(t, "audit_filter@example.com")
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond)

	kinds := []models.EventType{models.EventLogin, models.EventSessionRefresh, models.EventLogout}
	for i, kind := range kinds {
		event := newTestAccessEvent(&user.ID, user.Email, kind, true)
		event.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, testStore.InsertAccessLog(context.Background(), event))
	}

	all, err := testStore.ListAccessLogs(context.Background(), AccessLogFilter{Email: "audit_filter", Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, models.EventLogout, all[0].EventType, "newest first")
	require.Equal(t, models.EventLogin, all[2].EventType)

	logouts, err := testStore.ListAccessLogs(context.Background(), AccessLogFilter{
		Email:     "audit_filter",
		EventType: models.EventLogout,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, logouts, 1)

	page, err := testStore.ListAccessLogs(context.Background(), AccessLogFilter{Email: "audit_filter", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, models.EventSessionRefresh, page[0].EventType)
}
