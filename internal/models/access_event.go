package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventLogin          EventType = "login"
	EventLogout         EventType = "logout"
	EventSessionRefresh EventType = "session_refresh"
	EventAccessDenied   EventType = "access_denied"
)

func (e EventType) Valid() bool {
	switch e {
	case EventLogin, EventLogout, EventSessionRefresh, EventAccessDenied:
		return true
	}
	return false
}

// AccessEvent is one append-only audit row in access_logs.
type AccessEvent struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"user_id"`
	Email      string     `json:"email"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	EventType  EventType  `json:"event_type" validate:"required,oneof=login logout session_refresh access_denied"`
	Success    bool       `json:"success"`
	Location   Location   `json:"location"`
	SessionID  string     `json:"session_id" validate:"required"`
	Referrer   *string    `json:"referrer"`
	DeviceInfo DeviceInfo `json:"device_info"`
	CreatedAt  time.Time  `json:"created_at"`
}

type DeviceInfo struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	Device         string `json:"device"`
	Mobile         bool   `json:"mobile"`
}

type Location struct {
	Country *string `json:"country"`
	Region  *string `json:"region"`
	City    *string `json:"city"`
	Coords  *Coords `json:"coords"`
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
