// Package output provides the status line reporters for probe runs.
package output

import (
	"fmt"
	"io"

	"github.com/PentesterFlow/wsprobe/internal/websocket"
)

// Fixed status line texts.
const (
	ConnectedLine = "CONNECTED"
	InboundPrefix = ">>> FROM BACKEND:"
	ErrorPrefix   = "ERROR:"
)

// Reporter receives the observable events of a probe run.
type Reporter interface {
	// Connecting is emitted before the handshake is attempted.
	Connecting(url string) error

	// Connected is emitted after a successful handshake.
	Connected() error

	// Message is emitted once per inbound message, in receive order.
	Message(msg websocket.Message) error

	// Failure is emitted once when the handshake or a read fails.
	Failure(err error) error

	// Close closes the reporter
	Close() error
}

// Config holds output configuration.
type Config struct {
	Format string // "text" or "json"
	Pretty bool   // indent JSON events
}

// Formats accepted by NewReporter.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewReporter creates a reporter for the configured format.
func NewReporter(w io.Writer, config Config) (Reporter, error) {
	switch config.Format {
	case "", FormatText:
		return NewTextReporter(w), nil
	case FormatJSON:
		return NewJSONReporter(w, config.Pretty), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", config.Format)
	}
}
