package websocket

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Frame kinds carried by a Message.
const (
	KindText   = "text"
	KindBinary = "binary"
)

// ErrSequenceConsumed is yielded when a connection's message sequence is iterated twice.
var ErrSequenceConsumed = errors.New("websocket: message sequence already consumed")

// Message is one data frame received from the server. The payload is opaque.
type Message struct {
	Seq        int       `json:"seq"`
	Kind       string    `json:"kind"`
	Data       []byte    `json:"data"`
	ReceivedAt time.Time `json:"received_at"`
}

// IsText reports whether the message arrived as a text frame.
func (m Message) IsText() bool {
	return m.Kind == KindText
}

// String renders the payload for display: text verbatim, binary as hex.
func (m Message) String() string {
	if m.IsText() {
		return string(m.Data)
	}
	return fmt.Sprintf("[binary %d bytes] %s", len(m.Data), hex.EncodeToString(m.Data))
}

func kindName(msgType int) string {
	switch msgType {
	case websocket.TextMessage:
		return KindText
	case websocket.BinaryMessage:
		return KindBinary
	default:
		return "unknown"
	}
}
