package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"parcelview/internal/database"
	"parcelview/internal/models"
)

func accessRow(userID *uuid.UUID, email string, eventType models.EventType, success bool) models.AccessEvent {
	country := "Local/Development"
	return models.AccessEvent{
		ID:         uuid.New(),
		UserID:     userID,
		Email:      email,
		IPAddress:  "localhost",
		UserAgent:  "parcelctl/1.0 (Linux)",
		EventType:  eventType,
		Success:    success,
		Location:   models.Location{Country: &country},
		SessionID:  "session_1700000000123_abc123xyz",
		DeviceInfo: models.DeviceInfo{Browser: "Unknown", BrowserVersion: "Unknown", OS: "Linux", Device: "Desktop"},
		CreatedAt:  time.Now().UTC(),
	}
}

func findAccessLog(t *testing.T, id uuid.UUID, email string) *models.AccessEvent {
	t.Helper()
	events, err := testServer.store.ListAccessLogs(context.Background(), database.AccessLogFilter{Email: email, Limit: 1000})
	require.NoError(t, err)
	for i := range events {
		if events[i].ID == id {
			return &events[i]
		}
	}
	return nil
}

func TestAPI_InsertOwnRow(t *testing.T) {
	row := accessRow(&testUser.ID, testUser.Email, models.EventLogin, true)

	rr := doRequest(t, http.MethodPost, "/rest/access_logs", testUserToken, row)
	requireStatus(t, http.StatusCreated, rr)

	stored := findAccessLog(t, row.ID, testUser.Email)
	require.NotNil(t, stored)
	require.Equal(t, testUser.ID, *stored.UserID)
	require.Equal(t, "Local/Development", *stored.Location.Country)
}

func TestAPI_InsertAnonymousFailedLogin(t *testing.T) {
	row := accessRow(nil, "stranger@example.com", models.EventLogin, false)
	row.SessionID = "failed_1700000000123_Invalid login credentials"

	rr := doRequest(t, http.MethodPost, "/rest/access_logs", "", row)
	requireStatus(t, http.StatusCreated, rr)

	stored := findAccessLog(t, row.ID, "stranger@example.com")
	require.NotNil(t, stored)
	require.Nil(t, stored.UserID)
}

func TestAPI_InsertRowLevelRule(t *testing.T) {
	// anonymous caller cannot attribute a row to a user
	row := accessRow(&testUser.ID, testUser.Email, models.EventLogin, true)
	rr := doRequest(t, http.MethodPost, "/rest/access_logs", "", row)
	requireStatus(t, http.StatusForbidden, rr)

	// nor can a user attribute a row to someone else
	row = accessRow(&testAdmin.ID, testAdmin.Email, models.EventLogout, true)
	rr = doRequest(t, http.MethodPost, "/rest/access_logs", testUserToken, row)
	requireStatus(t, http.StatusForbidden, rr)
	require.Nil(t, findAccessLog(t, row.ID, testAdmin.Email))

	// a signed-in user may still write null-user rows
	row = accessRow(nil, testUser.Email, models.EventAccessDenied, false)
	rr = doRequest(t, http.MethodPost, "/rest/access_logs", testUserToken, row)
	requireStatus(t, http.StatusCreated, rr)
}

func TestAPI_InsertValidation(t *testing.T) {
	row := accessRow(nil, "x@example.com", models.EventType("password_reset"), false)
	rr := doRequest(t, http.MethodPost, "/rest/access_logs", "", row)
	requireStatus(t, http.StatusBadRequest, rr)

	row = accessRow(nil, "x@example.com", models.EventLogin, false)
	row.SessionID = ""
	rr = doRequest(t, http.MethodPost, "/rest/access_logs", "", row)
	requireStatus(t, http.StatusBadRequest, rr)

	rr = doRequest(t, http.MethodPost, "/rest/users", testAdminToken, map[string]string{"email": "x"})
	requireStatus(t, http.StatusNotFound, rr)

	rr = doRequest(t, http.MethodPost, "/rest/access_logs", "garbage-token", accessRow(nil, "x@example.com", models.EventLogin, false))
	requireStatus(t, http.StatusUnauthorized, rr)
}
