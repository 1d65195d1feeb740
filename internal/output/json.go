package output

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	perrors "github.com/PentesterFlow/wsprobe/internal/errors"
	"github.com/PentesterFlow/wsprobe/internal/websocket"
)

// Event types written by JSONReporter.
const (
	EventConnecting = "connecting"
	EventConnected  = "connected"
	EventMessage    = "message"
	EventError      = "error"
)

// StreamEvent is one JSON line.
type StreamEvent struct {
	Event      string    `json:"event"`
	URL        string    `json:"url,omitempty"`
	Seq        int       `json:"seq,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Data       string    `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	ErrorClass string    `json:"error_class,omitempty"`
	CloseCode  int       `json:"close_code,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// JSONReporter writes one JSON object per event.
type JSONReporter struct {
	mu     sync.Mutex
	writer io.Writer
	pretty bool
	closed bool
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: w,
		pretty: pretty,
	}
}

// Connecting writes a connecting event.
func (j *JSONReporter) Connecting(url string) error {
	return j.write(StreamEvent{
		Event:     EventConnecting,
		URL:       url,
		Timestamp: time.Now(),
	})
}

// Connected writes a connected event.
func (j *JSONReporter) Connected() error {
	return j.write(StreamEvent{
		Event:     EventConnected,
		Timestamp: time.Now(),
	})
}

// Message writes a message event.
func (j *JSONReporter) Message(msg websocket.Message) error {
	ts := msg.ReceivedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return j.write(StreamEvent{
		Event:     EventMessage,
		Seq:       msg.Seq,
		Kind:      msg.Kind,
		Data:      msg.String(),
		Timestamp: ts,
	})
}

// Failure writes an error event.
func (j *JSONReporter) Failure(err error) error {
	event := StreamEvent{
		Event:     EventError,
		Error:     perrors.Describe(err),
		ErrorKind: perrors.GetKind(err).String(),
		Timestamp: time.Now(),
	}

	var probeErr *perrors.ProbeError
	if errors.As(err, &probeErr) {
		event.URL = probeErr.Endpoint
		event.ErrorClass = string(probeErr.Class)
		event.CloseCode = probeErr.CloseCode
		event.StatusCode = probeErr.StatusCode
	}

	return j.write(event)
}

// write writes a single event followed by a newline.
func (j *JSONReporter) write(event StreamEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	var data []byte
	var err error

	if j.pretty {
		data, err = json.MarshalIndent(event, "", "  ")
	} else {
		data, err = json.Marshal(event)
	}

	if err != nil {
		return err
	}

	_, err = j.writer.Write(append(data, '\n'))
	return err
}

// Close closes the reporter.
func (j *JSONReporter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true

	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}
