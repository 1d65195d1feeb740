// Package session records probe runs and the messages they received.
package session

import (
	"time"

	"github.com/PentesterFlow/wsprobe/internal/websocket"
)

// Session is the recorded header of one probe run.
type Session struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Connected bool      `json:"connected"`
	Messages  int       `json:"messages"`
	Outcome   string    `json:"outcome,omitempty"` // error kind once finished
	Error     string    `json:"error,omitempty"`
}

// Active reports whether the session has not been finished.
func (s *Session) Active() bool {
	return s.EndedAt.IsZero()
}

// Duration returns how long the session lasted, or has lasted so far.
func (s *Session) Duration() time.Duration {
	if s.Active() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Recorder receives the lifecycle of probe runs.
type Recorder interface {
	// Begin starts a session for endpoint and returns its ID.
	Begin(endpoint string) (string, error)

	// MarkConnected records a successful handshake.
	MarkConnected(id string) error

	// Append records one received message.
	Append(id string, msg websocket.Message) error

	// Finish ends the session with its outcome kind and error text.
	Finish(id string, outcome string, cause string) error
}

// Store is a Recorder that can also be queried.
type Store interface {
	Recorder

	// Get returns a session header, or nil if unknown.
	Get(id string) (*Session, error)

	// List returns all sessions, oldest first.
	List() ([]*Session, error)

	// Messages returns a session's messages in receive order.
	Messages(id string) ([]websocket.Message, error)

	// Close releases the store.
	Close() error
}
