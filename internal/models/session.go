package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one signed-in device, backed by a rotating refresh token.
type Session struct {
	ID        uuid.UUID `json:"id" example:"a1b2c3d4-e5f6-7890-1234-567890abcdef"`
	UserAgent string    `json:"user_agent" example:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) ..."`
	ClientIP  string    `json:"client_ip" example:"198.51.100.10"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceSession is a Session as listed to its owner: the parsed device and
// whether it is the session making the request.
type DeviceSession struct {
	Session
	Device  DeviceInfo `json:"device"`
	Current bool       `json:"current"`
}
