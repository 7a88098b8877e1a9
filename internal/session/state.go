// Package session owns the client-side authentication lifecycle: who is signed
// in, the current session id, and sign-out after a period of inactivity.
package session

const (
	KeyLastActivity = "lastActivity"
	KeySessionID    = "sessionId"
)

// StateStore is the client's local persisted state; storage.LocalState
// satisfies it.
type StateStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Clear() error
}
