// Package probe opens one WebSocket connection and reports everything the
// backend sends until the connection fails or the run is cancelled.
package probe

import (
	"time"

	perrors "github.com/PentesterFlow/wsprobe/internal/errors"
)

// Exit codes of the command line tool.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// Result is the outcome of one probe run.
type Result struct {
	Endpoint      string        `json:"endpoint"`
	SessionID     string        `json:"session_id,omitempty"`
	Connected     bool          `json:"connected"`
	Messages      int           `json:"messages"`
	Bytes         int64         `json:"bytes"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
	HandshakeTime time.Duration `json:"handshake_time,omitempty"`

	// Err is the terminal error; a finished run always has one.
	Err error `json:"-"`
}

// Kind returns the kind of the terminal error.
func (r *Result) Kind() perrors.Kind {
	return perrors.GetKind(r.Err)
}

// Cancelled reports whether the run was stopped by its context.
func (r *Result) Cancelled() bool {
	return perrors.IsCancelled(r.Err)
}

// Failed reports whether the run ended by a handshake or read failure.
func (r *Result) Failed() bool {
	return r.Err != nil && !r.Cancelled()
}

// ExitCode maps the outcome to a process exit code.
func (r *Result) ExitCode() int {
	if r.Failed() {
		return ExitFailure
	}
	return ExitOK
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}
