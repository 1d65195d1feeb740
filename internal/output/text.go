package output

import (
	"fmt"
	"io"
	"sync"

	perrors "github.com/PentesterFlow/wsprobe/internal/errors"
	"github.com/PentesterFlow/wsprobe/internal/websocket"
)

// TextReporter writes one human-readable line per event.
type TextReporter struct {
	mu     sync.Mutex
	writer io.Writer
	closed bool
}

// NewTextReporter creates a new text reporter.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{writer: w}
}

// Connecting writes "Connecting to <url> ...".
func (r *TextReporter) Connecting(url string) error {
	return r.line(fmt.Sprintf("Connecting to %s ...", url))
}

// Connected writes "CONNECTED".
func (r *TextReporter) Connected() error {
	return r.line(ConnectedLine)
}

// Message writes ">>> FROM BACKEND: <payload>".
func (r *TextReporter) Message(msg websocket.Message) error {
	return r.line(InboundPrefix + " " + msg.String())
}

// Failure writes "ERROR: <description>".
func (r *TextReporter) Failure(err error) error {
	return r.line(ErrorPrefix + " " + perrors.Describe(err))
}

func (r *TextReporter) line(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	_, err := io.WriteString(r.writer, s+"\n")
	return err
}

// Close closes the reporter.
func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	if flusher, ok := r.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}
